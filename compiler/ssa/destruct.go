package ssa

import (
	"github.com/chazu/gd2c/compiler/cfg"
	"github.com/chazu/gd2c/pkg/bytecode"
)

// Destruct takes g out of SSA form. Every version other than 0 gets a
// slot of its own above the function's original stack, and phis become
// parallel copies at the end of each predecessor. Edges whose source
// ends in anything but a plain jump are split first so the copies run
// after the terminator's own effects.
func Destruct(g *cfg.CFG) {
	if !g.SSA {
		panic("ssa: graph is not in SSA form")
	}

	slots := make(map[bytecode.Var]int)
	for _, b := range g.Layout() {
		for _, op := range b.Ops {
			op.Operands(func(a *bytecode.Address, _ bytecode.Role) {
				if !a.IsVar() || a.Version == 0 {
					return
				}
				v := a.Var()
				slot, ok := slots[v]
				if !ok {
					slot = g.NumSlots
					g.NumSlots++
					slots[v] = slot
				}
				a.Index, a.Version = slot, 0
			})
		}
	}

	copies, temps := 0, 0
	for _, b := range append([]*cfg.Block(nil), g.Blocks...) {
		phis := b.Phis()
		if len(phis) == 0 {
			continue
		}
		for j := range b.Preds {
			p := b.Preds[j]
			at := p
			if needsSplit(p) {
				at = g.SplitEdge(p, succIndex(p, b, j))
			}

			var moves []move
			for _, phi := range phis {
				moves = append(moves, move{dst: phi.Dst, src: phi.Args[j]})
			}
			seq, n := sequentialize(moves, func() bytecode.Address {
				t := bytecode.Stack(g.NumSlots)
				g.NumSlots++
				return t
			})
			temps += n
			copies += len(seq)
			at.InsertBeforeTerminator(seq...)
		}
		b.RemoveOps(func(op bytecode.Op) bool {
			_, ok := op.(*bytecode.Phi)
			return ok
		})
	}

	g.SSA = false
	log.Debugf("destructed SSA: %d slots, %d copies, %d temporaries", g.NumSlots, copies, temps)
}

// needsSplit reports whether copies cannot simply be appended to p.
func needsSplit(p *cfg.Block) bool {
	if len(p.Succs) > 1 {
		return true
	}
	switch p.Terminator().(type) {
	case nil, *bytecode.Jump:
		return false
	}
	return true
}

// succIndex maps the j-th predecessor entry of b (which is p) to the
// position of that edge in p.Succs.
func succIndex(p, b *cfg.Block, j int) int {
	k := 0
	for i := 0; i < j; i++ {
		if b.Preds[i] == p {
			k++
		}
	}
	for i, s := range p.Succs {
		if s == b {
			if k == 0 {
				return i
			}
			k--
		}
	}
	panic("ssa: inconsistent edge lists")
}

type move struct {
	dst, src bytecode.Address
}

func sameSlot(a, b bytecode.Address) bool {
	return a.IsVar() && b.IsVar() && a.Index == b.Index
}

// sequentialize orders a parallel copy so no source is overwritten before
// it is read. Cycles are broken through temporaries from newTemp. It
// returns the assignments and the number of temporaries used.
func sequentialize(moves []move, newTemp func() bytecode.Address) ([]bytecode.Op, int) {
	pending := moves[:0:0]
	for _, m := range moves {
		if !sameSlot(m.dst, m.src) {
			pending = append(pending, m)
		}
	}

	var out []bytecode.Op
	emit := func(m move) {
		out = append(out, &bytecode.Assign{Site: bytecode.At(bytecode.Synthesized), Dst: m.dst, Src: m.src})
	}
	temps := 0

	for len(pending) > 0 {
		progress := false
		for i := 0; i < len(pending); i++ {
			m := pending[i]
			blocked := false
			for j, other := range pending {
				if j != i && sameSlot(other.src, m.dst) {
					blocked = true
					break
				}
			}
			if blocked {
				continue
			}
			emit(m)
			pending = append(pending[:i], pending[i+1:]...)
			i--
			progress = true
		}
		if progress {
			continue
		}

		// Every remaining move is part of a cycle. Save one destination's
		// current value and redirect its readers.
		m := pending[0]
		t := newTemp()
		temps++
		emit(move{dst: t, src: m.dst})
		for i := range pending {
			if sameSlot(pending[i].src, m.dst) {
				pending[i].src = t
			}
		}
	}
	return out, temps
}
