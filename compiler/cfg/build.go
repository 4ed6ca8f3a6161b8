package cfg

import (
	"fmt"
	"sort"

	"github.com/chazu/gd2c/pkg/bytecode"
)

// Build partitions ops into basic blocks and links them. Ops are cloned:
// the graph never shares instructions with its input. numSlots is the
// function's stack size.
//
// Successor order is significant and follows the terminator:
//
//	JUMP                  [target]
//	JUMP_IF, JUMP_IF_NOT  [target, fallthrough]
//	ITERATE_BEGIN, ITERATE [exit, body]
//	JUMP_TO_DEF_ARGUMENT  one per default-argument entry
//	RETURN, END           none
//
// Any other block falls through to the next one.
func Build(ops []bytecode.Op, numSlots int) (*CFG, error) {
	g := &CFG{NumSlots: numSlots}
	if len(ops) == 0 {
		g.NewBlock()
		return g, nil
	}

	index := make(map[int]int, len(ops))
	for i, op := range ops {
		index[op.Pos()] = i
	}

	leaders := map[int]bool{0: true}
	for i, op := range ops {
		for _, t := range bytecode.Targets(op) {
			j, ok := index[t]
			if !ok {
				return nil, fmt.Errorf("%w: offset %d: jump to %d is not an instruction start",
					bytecode.ErrMalformed, op.Pos(), t)
			}
			leaders[j] = true
		}
		if op.Opcode().IsTerminator() && i+1 < len(ops) {
			leaders[i+1] = true
		}
	}

	starts := make([]int, 0, len(leaders))
	for i := range leaders {
		starts = append(starts, i)
	}
	sort.Ints(starts)

	blockAt := make(map[int]*Block, len(starts))
	for n, i := range starts {
		end := len(ops)
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		b := g.NewBlock()
		b.Start = ops[i].Pos()
		for _, op := range ops[i:end] {
			b.Ops = append(b.Ops, bytecode.Clone(op))
		}
		blockAt[b.Start] = b
	}

	for n, b := range g.Blocks {
		var next *Block
		if n+1 < len(g.Blocks) {
			next = g.Blocks[n+1]
		}
		fallThrough := func(op bytecode.Op) error {
			if next == nil {
				return fmt.Errorf("%w: offset %d: %s falls off the end of the function",
					bytecode.ErrMalformed, op.Pos(), op.Opcode())
			}
			g.AddEdge(b, next)
			return nil
		}

		last := b.Ops[len(b.Ops)-1]
		switch t := last.(type) {
		case *bytecode.Jump:
			g.AddEdge(b, blockAt[t.Target])
		case *bytecode.JumpIf:
			g.AddEdge(b, blockAt[t.Target])
			if err := fallThrough(t); err != nil {
				return nil, err
			}
		case *bytecode.Iterate:
			g.AddEdge(b, blockAt[t.Exit])
			if err := fallThrough(t); err != nil {
				return nil, err
			}
		case *bytecode.JumpToDefArgument:
			for _, target := range t.Targets {
				g.AddEdge(b, blockAt[target])
			}
		case *bytecode.Return, *bytecode.End:
		default:
			if next != nil {
				g.AddEdge(b, next)
			}
		}
	}
	return g, nil
}

// Flatten returns the ops of g in layout order, suitable for a linear
// listing. Jump targets are not rewritten.
func Flatten(g *CFG) []bytecode.Op {
	return g.Ops()
}
