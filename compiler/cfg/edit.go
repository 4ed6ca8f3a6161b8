package cfg

import (
	"fmt"

	"github.com/chazu/gd2c/pkg/bytecode"
)

// SplitBlock moves b.Ops[at:] into a new block that takes over b's
// successors. b falls through into the new block.
func (g *CFG) SplitBlock(b *Block, at int) *Block {
	if at < 0 || at > len(b.Ops) {
		panic(fmt.Sprintf("cfg: split of %s at %d out of range", b, at))
	}
	nb := g.NewBlock()
	if at < len(b.Ops) && b.Ops[at].Pos() >= 0 {
		nb.Start = b.Ops[at].Pos()
	}
	nb.Ops = append([]bytecode.Op(nil), b.Ops[at:]...)
	b.Ops = b.Ops[:at:at]

	nb.Succs = b.Succs
	for _, s := range nb.Succs {
		for i, p := range s.Preds {
			if p == b {
				s.Preds[i] = nb
			}
		}
	}
	b.Succs = nil
	g.AddEdge(b, nb)
	return nb
}

// SplitEdge inserts an empty block on the idx-th successor edge of from.
// The new block keeps from's position among the target's predecessors, so
// phi arguments stay aligned.
func (g *CFG) SplitEdge(from *Block, idx int) *Block {
	to := from.Succs[idx]

	// The k-th edge from -> to is the k-th occurrence of from in to.Preds.
	k := 0
	for i := 0; i < idx; i++ {
		if from.Succs[i] == to {
			k++
		}
	}
	pi := -1
	for i, p := range to.Preds {
		if p == from {
			if k == 0 {
				pi = i
				break
			}
			k--
		}
	}
	if pi < 0 {
		panic(fmt.Sprintf("cfg: edge %s -> %s missing from predecessor list", from, to))
	}

	mid := g.NewBlock()
	from.Succs[idx] = mid
	mid.Preds = []*Block{from}
	mid.Succs = []*Block{to}
	to.Preds[pi] = mid
	return mid
}

// SplitCriticalEdges splits every edge from a block with several
// successors into a block with several predecessors, when keep returns
// true for the target. It returns the number of edges split.
func (g *CFG) SplitCriticalEdges(keep func(to *Block) bool) int {
	n := 0
	for _, b := range append([]*Block(nil), g.Blocks...) {
		if len(b.Succs) < 2 {
			continue
		}
		for i, s := range b.Succs {
			if len(s.Preds) > 1 && (keep == nil || keep(s)) {
				g.SplitEdge(b, i)
				n++
			}
		}
	}
	return n
}

// RemoveEdge deletes one edge from -> to, dropping the matching phi
// arguments in to.
func (g *CFG) RemoveEdge(from, to *Block) {
	for i, s := range from.Succs {
		if s == to {
			from.Succs = append(from.Succs[:i], from.Succs[i+1:]...)
			break
		}
	}
	if i := to.PredIndex(from); i >= 0 {
		removePred(to, i)
	}
}
