package cfg

import "sort"

// ReversePostorder returns the blocks reachable from the entry in reverse
// postorder. Successors are visited in edge order.
func ReversePostorder(g *CFG) []*Block {
	seen := make(map[*Block]bool, len(g.Blocks))
	post := make([]*Block, 0, len(g.Blocks))

	var visit func(*Block)
	visit = func(b *Block) {
		seen[b] = true
		for _, s := range b.Succs {
			if !seen[s] {
				visit(s)
			}
		}
		post = append(post, b)
	}
	visit(g.Entry())

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// Reachable returns the set of blocks reachable from the entry.
func Reachable(g *CFG) map[*Block]bool {
	out := make(map[*Block]bool, len(g.Blocks))
	for _, b := range ReversePostorder(g) {
		out[b] = true
	}
	return out
}

// RemoveUnreachable deletes blocks the entry cannot reach and reports how
// many were removed.
func RemoveUnreachable(g *CFG) int {
	live := Reachable(g)
	var dead []*Block
	for _, b := range g.Blocks {
		if !live[b] {
			dead = append(dead, b)
		}
	}
	for _, b := range dead {
		g.RemoveBlock(b)
	}
	return len(dead)
}

// Dominators is the dominator tree of the reachable part of a CFG.
type Dominators struct {
	entry    *Block
	idom     map[*Block]*Block
	children map[*Block][]*Block
	rpo      []*Block
	number   map[*Block]int
}

// ComputeDominators runs the Cooper-Harvey-Kennedy iterative algorithm.
func ComputeDominators(g *CFG) *Dominators {
	rpo := ReversePostorder(g)
	d := &Dominators{
		entry:    g.Entry(),
		idom:     make(map[*Block]*Block, len(rpo)),
		children: make(map[*Block][]*Block, len(rpo)),
		rpo:      rpo,
		number:   make(map[*Block]int, len(rpo)),
	}
	for i, b := range rpo {
		d.number[b] = i
	}
	d.idom[d.entry] = d.entry

	intersect := func(a, b *Block) *Block {
		for a != b {
			for d.number[a] > d.number[b] {
				a = d.idom[a]
			}
			for d.number[b] > d.number[a] {
				b = d.idom[b]
			}
		}
		return a
	}

	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			var nidom *Block
			for _, p := range b.Preds {
				if _, done := d.idom[p]; !done {
					continue
				}
				if nidom == nil {
					nidom = p
				} else {
					nidom = intersect(p, nidom)
				}
			}
			if nidom != nil && d.idom[b] != nidom {
				d.idom[b] = nidom
				changed = true
			}
		}
	}

	for _, b := range rpo[1:] {
		p := d.idom[b]
		d.children[p] = append(d.children[p], b)
	}
	return d
}

// Idom returns the immediate dominator of b, or nil for the entry and for
// unreachable blocks.
func (d *Dominators) Idom(b *Block) *Block {
	if b == d.entry {
		return nil
	}
	return d.idom[b]
}

// Children returns the blocks immediately dominated by b, in reverse
// postorder.
func (d *Dominators) Children(b *Block) []*Block {
	return d.children[b]
}

// Reachable reports whether b is reachable from the entry.
func (d *Dominators) Reachable(b *Block) bool {
	_, ok := d.number[b]
	return ok
}

// Order returns the reachable blocks in reverse postorder.
func (d *Dominators) Order() []*Block {
	return d.rpo
}

// Dominates reports whether a dominates b. Every block dominates itself.
func (d *Dominators) Dominates(a, b *Block) bool {
	if !d.Reachable(a) || !d.Reachable(b) {
		return false
	}
	for {
		if a == b {
			return true
		}
		if b == d.entry {
			return false
		}
		b = d.idom[b]
	}
}

// Frontiers computes dominance frontiers.
func (d *Dominators) Frontiers() map[*Block][]*Block {
	df := make(map[*Block][]*Block, len(d.rpo))
	add := func(b, f *Block) {
		for _, x := range df[b] {
			if x == f {
				return
			}
		}
		df[b] = append(df[b], f)
	}
	for _, b := range d.rpo {
		if len(b.Preds) < 2 {
			continue
		}
		for _, p := range b.Preds {
			if !d.Reachable(p) {
				continue
			}
			for runner := p; runner != d.idom[b]; runner = d.idom[runner] {
				add(runner, b)
				if runner == d.entry {
					break
				}
			}
		}
	}
	return df
}

// Loop is a natural loop, identified by block IDs.
type Loop struct {
	Header  int
	Latches []int
	Body    []int
}

// Contains reports whether the block with the given ID belongs to the loop.
func (l Loop) Contains(id int) bool {
	i := sort.SearchInts(l.Body, id)
	return i < len(l.Body) && l.Body[i] == id
}

// FindLoops returns the natural loops of g: one per header, merging all
// back edges into that header. Loops are ordered by header ID.
func FindLoops(g *CFG, d *Dominators) []Loop {
	latches := make(map[*Block][]*Block)
	for _, b := range d.rpo {
		for _, s := range b.Succs {
			if d.Dominates(s, b) {
				latches[s] = append(latches[s], b)
			}
		}
	}

	var loops []Loop
	for header, tails := range latches {
		body := map[*Block]bool{header: true}
		work := append([]*Block(nil), tails...)
		for len(work) > 0 {
			b := work[len(work)-1]
			work = work[:len(work)-1]
			if body[b] {
				continue
			}
			body[b] = true
			for _, p := range b.Preds {
				if d.Reachable(p) {
					work = append(work, p)
				}
			}
		}

		l := Loop{Header: header.ID}
		for _, t := range tails {
			l.Latches = append(l.Latches, t.ID)
		}
		for b := range body {
			l.Body = append(l.Body, b.ID)
		}
		sort.Ints(l.Latches)
		sort.Ints(l.Body)
		loops = append(loops, l)
	}
	sort.Slice(loops, func(i, j int) bool { return loops[i].Header < loops[j].Header })
	return loops
}
