// Package cfg builds and manipulates control-flow graphs of decoded
// GDScript functions.
package cfg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/gd2c/pkg/bytecode"
)

// Block is a basic block. Only its last op may transfer control.
type Block struct {
	ID int

	// Start is the offset of the block's first op in the original stream,
	// or bytecode.Synthesized for blocks created by transforms.
	Start int

	Ops   []bytecode.Op
	Succs []*Block
	Preds []*Block
}

// Terminator returns the last op when it ends the block explicitly.
func (b *Block) Terminator() bytecode.Op {
	if len(b.Ops) == 0 {
		return nil
	}
	last := b.Ops[len(b.Ops)-1]
	if last.Opcode().IsTerminator() {
		return last
	}
	return nil
}

// Body returns the ops before the terminator.
func (b *Block) Body() []bytecode.Op {
	if b.Terminator() != nil {
		return b.Ops[:len(b.Ops)-1]
	}
	return b.Ops
}

// Phis returns the leading phi ops.
func (b *Block) Phis() []*bytecode.Phi {
	var out []*bytecode.Phi
	for _, op := range b.Ops {
		phi, ok := op.(*bytecode.Phi)
		if !ok {
			break
		}
		out = append(out, phi)
	}
	return out
}

// PredIndex returns the position of p among the predecessors, or -1.
func (b *Block) PredIndex(p *Block) int {
	for i, x := range b.Preds {
		if x == p {
			return i
		}
	}
	return -1
}

// InsertBeforeTerminator appends ops to the block body.
func (b *Block) InsertBeforeTerminator(ops ...bytecode.Op) {
	if t := b.Terminator(); t != nil {
		body := append([]bytecode.Op(nil), b.Ops[:len(b.Ops)-1]...)
		b.Ops = append(append(body, ops...), t)
		return
	}
	b.Ops = append(b.Ops, ops...)
}

// RemoveOps drops every op for which drop returns true.
func (b *Block) RemoveOps(drop func(bytecode.Op) bool) int {
	kept := b.Ops[:0]
	removed := 0
	for _, op := range b.Ops {
		if drop(op) {
			removed++
			continue
		}
		kept = append(kept, op)
	}
	for i := len(kept); i < len(b.Ops); i++ {
		b.Ops[i] = nil
	}
	b.Ops = kept
	return removed
}

func (b *Block) String() string {
	return fmt.Sprintf("b%d", b.ID)
}

// CFG is the control-flow graph of one function.
type CFG struct {
	// Blocks[0] is the entry block.
	Blocks []*Block

	// SSA reports whether stack addresses carry SSA versions.
	SSA bool

	// NumSlots is the number of stack slots the function body uses.
	NumSlots int

	// Coroutine is set once the function has been lowered to a resumable
	// state machine.
	Coroutine *Coroutine

	nextID int
}

// ResumePoint is one entry of a coroutine's resume table. The block starts
// with the matching bytecode.Resume op.
type ResumePoint struct {
	Index int
	Block *Block
}

// Resume returns the resume op heading the point's block.
func (p ResumePoint) Resume() *bytecode.Resume {
	return p.Block.Ops[0].(*bytecode.Resume)
}

// Coroutine is the resume table of a lowered coroutine. Points are
// numbered from 1; point 0 is the first call.
type Coroutine struct {
	Dispatch *Block
	Entry    *Block
	Points   []ResumePoint
}

// Entry returns the entry block.
func (g *CFG) Entry() *Block {
	return g.Blocks[0]
}

// NewBlock creates an empty synthesized block and appends it to the graph.
func (g *CFG) NewBlock() *Block {
	b := &Block{ID: g.nextID, Start: bytecode.Synthesized}
	g.nextID++
	g.Blocks = append(g.Blocks, b)
	return b
}

// SetEntry moves b to the front of the block list.
func (g *CFG) SetEntry(b *Block) {
	for i, x := range g.Blocks {
		if x == b {
			copy(g.Blocks[1:i+1], g.Blocks[:i])
			g.Blocks[0] = b
			return
		}
	}
	panic(fmt.Sprintf("cfg: %s is not in the graph", b))
}

// AddEdge appends an edge from -> to.
func (g *CFG) AddEdge(from, to *Block) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

// RemoveBlock deletes b and its edges. Phi arguments flowing in from b are
// dropped from its successors.
func (g *CFG) RemoveBlock(b *Block) {
	for _, s := range b.Succs {
		for {
			i := s.PredIndex(b)
			if i < 0 {
				break
			}
			removePred(s, i)
		}
	}
	for _, p := range b.Preds {
		kept := p.Succs[:0]
		for _, s := range p.Succs {
			if s != b {
				kept = append(kept, s)
			}
		}
		p.Succs = kept
	}
	b.Succs, b.Preds = nil, nil
	for i, x := range g.Blocks {
		if x == b {
			g.Blocks = append(g.Blocks[:i], g.Blocks[i+1:]...)
			break
		}
	}
}

// removePred drops predecessor i of b along with phi argument i.
func removePred(b *Block, i int) {
	b.Preds = append(b.Preds[:i], b.Preds[i+1:]...)
	for _, phi := range b.Phis() {
		phi.Args = append(phi.Args[:i], phi.Args[i+1:]...)
	}
}

// NumEdges counts successor edges.
func (g *CFG) NumEdges() int {
	n := 0
	for _, b := range g.Blocks {
		n += len(b.Succs)
	}
	return n
}

// Block returns the block with the given ID.
func (g *CFG) Block(id int) (*Block, bool) {
	for _, b := range g.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}

// Layout returns the blocks in emission order: original blocks by offset,
// then synthesized blocks in creation order. The entry block always comes
// first.
func (g *CFG) Layout() []*Block {
	out := append([]*Block(nil), g.Blocks[1:]...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Start < 0) != (b.Start < 0) {
			return a.Start >= 0
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.ID < b.ID
	})
	return append([]*Block{g.Entry()}, out...)
}

// Visit calls fn for every block in layout order.
func (g *CFG) Visit(fn func(*Block)) {
	for _, b := range g.Layout() {
		fn(b)
	}
}

// Ops returns every op in layout order.
func (g *CFG) Ops() []bytecode.Op {
	var out []bytecode.Op
	for _, b := range g.Layout() {
		out = append(out, b.Ops...)
	}
	return out
}

// String renders the graph for debugging and golden tests.
func (g *CFG) String() string {
	var sb strings.Builder
	form := "non-ssa"
	if g.SSA {
		form = "ssa"
	}
	sb.WriteString(fmt.Sprintf("; cfg %s, %d blocks, %d edges, %d slots\n", form, len(g.Blocks), g.NumEdges(), g.NumSlots))
	for _, b := range g.Layout() {
		start := "----"
		if b.Start >= 0 {
			start = fmt.Sprintf("%04d", b.Start)
		}
		sb.WriteString(fmt.Sprintf("%s [%s] preds(%s) succs(%s)\n", b, start, blockList(b.Preds), blockList(b.Succs)))
		for _, op := range b.Ops {
			sb.WriteString("  ")
			sb.WriteString(bytecode.DisassembleOp(op, nil))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func blockList(bs []*Block) string {
	parts := make([]string, len(bs))
	for i, b := range bs {
		parts[i] = b.String()
	}
	return strings.Join(parts, " ")
}
