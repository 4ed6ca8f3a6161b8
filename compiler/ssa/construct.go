// Package ssa converts control-flow graphs into and out of static single
// assignment form.
//
// In SSA form every stack address carries a version. Version 0 is the
// value a slot holds on function entry (an argument, or nil); every other
// version has exactly one definition that dominates its uses. Phi ops at
// join blocks select between versions by predecessor.
package ssa

import (
	"fmt"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/chazu/gd2c/compiler/cfg"
	"github.com/chazu/gd2c/pkg/bytecode"
)

var log = commonlog.GetLogger("gd2c.ssa")

// Construct rewrites g into minimal SSA form. Phis are placed on the
// iterated dominance frontier of every definition, whether or not the
// merged value is used later; dead-code elimination prunes them.
// Unreachable blocks are renamed locally and contribute the entry version
// to phis in reachable blocks.
func Construct(g *cfg.CFG) {
	if g.SSA {
		panic("ssa: graph is already in SSA form")
	}

	if len(g.Entry().Preds) > 0 {
		old := g.Entry()
		entry := g.NewBlock()
		g.SetEntry(entry)
		g.AddEdge(entry, old)
	}

	dom := cfg.ComputeDominators(g)
	df := dom.Frontiers()

	defsites := make(map[int][]*cfg.Block)
	for _, b := range dom.Order() {
		seen := make(map[int]bool)
		for _, op := range b.Ops {
			for _, a := range bytecode.Defs(op) {
				if a.IsVar() && !seen[a.Index] {
					seen[a.Index] = true
					defsites[a.Index] = append(defsites[a.Index], b)
				}
			}
		}
	}

	phis := 0
	for _, slot := range sortedSlots(defsites) {
		placed := make(map[*cfg.Block]bool)
		work := append([]*cfg.Block{g.Entry()}, defsites[slot]...)
		for len(work) > 0 {
			b := work[len(work)-1]
			work = work[:len(work)-1]
			for _, f := range df[b] {
				if placed[f] {
					continue
				}
				placed[f] = true
				insertPhi(f, slot)
				phis++
				work = append(work, f)
			}
		}
	}

	r := &renamer{
		dom:   dom,
		stack: make(map[int][]int),
		next:  make(map[int]int),
	}
	r.block(g.Entry())
	for _, b := range g.Blocks {
		if !dom.Reachable(b) {
			r.block(b)
		}
	}
	g.SSA = true
	log.Debugf("constructed SSA: %d blocks, %d phis", len(g.Blocks), phis)
}

func insertPhi(b *cfg.Block, slot int) {
	phi := &bytecode.Phi{
		Site: bytecode.At(bytecode.Synthesized),
		Dst:  bytecode.Stack(slot),
		Args: make([]bytecode.Address, len(b.Preds)),
	}
	for i := range phi.Args {
		phi.Args[i] = bytecode.Stack(slot)
	}
	b.Ops = append([]bytecode.Op{phi}, b.Ops...)
}

func sortedSlots(m map[int][]*cfg.Block) []int {
	out := make([]int, 0, len(m))
	for slot := range m {
		out = append(out, slot)
	}
	sort.Ints(out)
	return out
}

// renamer assigns versions along a preorder walk of the dominator tree.
type renamer struct {
	dom   *cfg.Dominators
	stack map[int][]int
	next  map[int]int
}

func (r *renamer) current(slot int) int {
	s := r.stack[slot]
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

func (r *renamer) fresh(slot int) int {
	r.next[slot]++
	v := r.next[slot]
	r.stack[slot] = append(r.stack[slot], v)
	return v
}

func (r *renamer) block(b *cfg.Block) {
	pushed := make(map[int]int)

	for _, op := range b.Ops {
		if _, ok := op.(*bytecode.Phi); !ok {
			op.Operands(func(a *bytecode.Address, role bytecode.Role) {
				if role == bytecode.RoleUse && a.IsVar() {
					a.Version = r.current(a.Index)
				}
			})
		}
		op.Operands(func(a *bytecode.Address, role bytecode.Role) {
			if role == bytecode.RoleDef && a.IsVar() {
				a.Version = r.fresh(a.Index)
				pushed[a.Index]++
			}
		})
	}

	for _, s := range b.Succs {
		if !r.dom.Reachable(b) {
			break
		}
		for j, p := range s.Preds {
			if p != b {
				continue
			}
			for _, phi := range s.Phis() {
				phi.Args[j].Version = r.current(phi.Args[j].Index)
			}
		}
	}

	for _, c := range r.dom.Children(b) {
		r.block(c)
	}

	for slot, n := range pushed {
		r.stack[slot] = r.stack[slot][:len(r.stack[slot])-n]
	}
}

// Check verifies the single-assignment property: every version other than
// 0 is defined once. It is used by tests and debug builds of the pipeline.
func Check(g *cfg.CFG) error {
	if !g.SSA {
		return fmt.Errorf("ssa: graph is not in SSA form")
	}
	defined := make(map[bytecode.Var]*cfg.Block)
	for _, b := range g.Blocks {
		for _, op := range b.Ops {
			for _, a := range bytecode.Defs(op) {
				if !a.IsVar() {
					continue
				}
				v := a.Var()
				if v.Version == 0 {
					return fmt.Errorf("ssa: %s in %s defines entry value %s", op.Opcode(), b, v)
				}
				if prev, dup := defined[v]; dup {
					return fmt.Errorf("ssa: %s defined in %s and %s", v, prev, b)
				}
				defined[v] = b
			}
		}
	}
	return nil
}
