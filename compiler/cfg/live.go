package cfg

import (
	"sort"

	"github.com/chazu/gd2c/pkg/bytecode"
)

// VarSet is a set of stack values.
type VarSet map[bytecode.Var]bool

func (s VarSet) add(v bytecode.Var) bool {
	if s[v] {
		return false
	}
	s[v] = true
	return true
}

// Sorted returns the members ordered by slot, then version.
func (s VarSet) Sorted() []bytecode.Var {
	out := make([]bytecode.Var, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot != out[j].Slot {
			return out[i].Slot < out[j].Slot
		}
		return out[i].Version < out[j].Version
	})
	return out
}

// Liveness holds live-in and live-out sets of stack values per block.
type Liveness struct {
	In  map[*Block]VarSet
	Out map[*Block]VarSet
}

// ComputeLiveness solves backward liveness over stack values. Phi operands
// are live out of the matching predecessor only.
func ComputeLiveness(g *CFG) *Liveness {
	lv := &Liveness{
		In:  make(map[*Block]VarSet, len(g.Blocks)),
		Out: make(map[*Block]VarSet, len(g.Blocks)),
	}
	gen := make(map[*Block]VarSet, len(g.Blocks))
	kill := make(map[*Block]VarSet, len(g.Blocks))
	for _, b := range g.Blocks {
		gen[b], kill[b] = upwardExposed(b)
		lv.In[b] = VarSet{}
		lv.Out[b] = VarSet{}
	}

	order := ReversePostorder(g)
	for changed := true; changed; {
		changed = false
		for i := len(order) - 1; i >= 0; i-- {
			b := order[i]
			out := lv.Out[b]
			for _, s := range b.Succs {
				phiDefs := VarSet{}
				for _, phi := range s.Phis() {
					phiDefs[phi.Dst.Var()] = true
				}
				for v := range lv.In[s] {
					if !phiDefs[v] && out.add(v) {
						changed = true
					}
				}
				for j, p := range s.Preds {
					if p != b {
						continue
					}
					for _, phi := range s.Phis() {
						if a := phi.Args[j]; a.IsVar() && out.add(a.Var()) {
							changed = true
						}
					}
				}
			}
			in := lv.In[b]
			for v := range gen[b] {
				if in.add(v) {
					changed = true
				}
			}
			for v := range out {
				if !kill[b][v] && in.add(v) {
					changed = true
				}
			}
		}
	}
	return lv
}

// upwardExposed returns the values a block reads before defining them and
// the values it defines. Phi destinations count as definitions; phi
// arguments are accounted to predecessors.
func upwardExposed(b *Block) (gen, kill VarSet) {
	gen, kill = VarSet{}, VarSet{}
	for _, op := range b.Ops {
		if _, ok := op.(*bytecode.Phi); !ok {
			for _, a := range bytecode.Uses(op) {
				if a.IsVar() && !kill[a.Var()] {
					gen[a.Var()] = true
				}
			}
		}
		for _, a := range bytecode.Defs(op) {
			if a.IsVar() {
				kill[a.Var()] = true
			}
		}
	}
	return gen, kill
}

// LiveBefore returns the values live immediately before b.Ops[i].
func (lv *Liveness) LiveBefore(b *Block, i int) VarSet {
	live := VarSet{}
	for v := range lv.Out[b] {
		live[v] = true
	}
	for j := len(b.Ops) - 1; j >= i; j-- {
		op := b.Ops[j]
		for _, a := range bytecode.Defs(op) {
			if a.IsVar() {
				delete(live, a.Var())
			}
		}
		if _, ok := op.(*bytecode.Phi); ok {
			continue
		}
		for _, a := range bytecode.Uses(op) {
			if a.IsVar() {
				live[a.Var()] = true
			}
		}
	}
	return live
}
