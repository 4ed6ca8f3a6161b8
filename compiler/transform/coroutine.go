package transform

import (
	"fmt"

	"github.com/chazu/gd2c/compiler/cfg"
	"github.com/chazu/gd2c/pkg/bytecode"
	"github.com/chazu/gd2c/project"
)

type suspendSite struct {
	op    bytecode.Op
	point int
}

// MakeCoroutine lowers a yielding function into a resumable state machine.
// Every yield, signal yield and awaited call becomes a suspend point that
// saves the values live across it; a dispatch block placed at the entry
// routes a resumed call to the matching resume block.
//
// The graph must be in SSA form and analysis must have marked f as
// yielding.
func MakeCoroutine(f *project.Function) {
	g := f.CFG()
	requireSSA("make-coroutine", g, true)
	if !f.Yields {
		panic(fmt.Sprintf("transform: make-coroutine on %s, which does not yield", f.QualifiedName()))
	}
	if g.Coroutine != nil {
		panic(fmt.Sprintf("transform: %s is already a coroutine", f.QualifiedName()))
	}

	sites := suspendSites(f, g)
	if len(sites) == 0 {
		log.Warningf("%s yields but has no reachable suspend point", f.QualifiedName())
	}

	entry := g.Entry()
	co := &cfg.Coroutine{Entry: entry}
	suspends := make([]*bytecode.Suspend, len(sites))
	for k, s := range sites {
		b, i := locate(g, s.op)
		r, sus := lower(g, b, i, s)
		co.Points = append(co.Points, cfg.ResumePoint{Index: s.point, Block: r})
		suspends[k] = sus
	}

	d := g.NewBlock()
	d.Ops = []bytecode.Op{&bytecode.Dispatch{Site: bytecode.At(bytecode.Synthesized), Points: len(co.Points)}}
	g.AddEdge(d, entry)
	for _, p := range co.Points {
		g.AddEdge(d, p.Block)
	}
	g.SetEntry(d)
	co.Dispatch = d

	// Liveness needs the dispatch edges: a yield's resume block is only
	// reachable through them.
	lv := cfg.ComputeLiveness(g)
	for k, p := range co.Points {
		r := p.Resume()
		var live []bytecode.Address
		for _, v := range lv.In[p.Block].Sorted() {
			if r.HasDst && r.Dst.IsVar() && r.Dst.Var() == v {
				continue
			}
			live = append(live, bytecode.Versioned(v.Slot, v.Version))
		}
		r.Live = live
		suspends[k].Live = append([]bytecode.Address(nil), live...)
	}

	g.Coroutine = co
	log.Infof("%s: lowered to a coroutine with %d resume points", f.QualifiedName(), len(co.Points))
}

// suspendSites lists the yields and awaited calls of f in layout order,
// numbering them from 1.
func suspendSites(f *project.Function, g *cfg.CFG) []suspendSite {
	wanted := make(map[int]bool, len(f.YieldSites)+len(f.AwaitSites))
	for _, pos := range f.YieldSites {
		wanted[pos] = true
	}
	for _, pos := range f.AwaitSites {
		wanted[pos] = true
	}

	var sites []suspendSite
	for _, b := range g.Layout() {
		for _, op := range b.Ops {
			if !wanted[op.Pos()] {
				continue
			}
			switch op.(type) {
			case *bytecode.Yield, *bytecode.YieldSignal, *bytecode.Call, *bytecode.CallSelfBase:
				sites = append(sites, suspendSite{op: op, point: len(sites) + 1})
			}
		}
	}
	return sites
}

func locate(g *cfg.CFG, op bytecode.Op) (*cfg.Block, int) {
	for _, b := range g.Blocks {
		for i, x := range b.Ops {
			if x == op {
				return b, i
			}
		}
	}
	panic(fmt.Sprintf("transform: %s vanished from the graph", op))
}

// lower splits b after the suspend site at index i. It returns the resume
// block and the suspend op ending b.
func lower(g *cfg.CFG, b *cfg.Block, i int, s suspendSite) (*cfg.Block, *bytecode.Suspend) {
	synth := bytecode.At(bytecode.Synthesized)

	switch o := s.op.(type) {
	case *bytecode.Yield, *bytecode.YieldSignal:
		r := g.SplitBlock(b, i+1)
		g.RemoveEdge(b, r)
		sus := &bytecode.Suspend{Site: bytecode.At(o.Pos()), Point: s.point, Kind: bytecode.SuspendYield}
		if ys, ok := o.(*bytecode.YieldSignal); ok {
			sus.Kind = bytecode.SuspendSignal
			sus.Object, sus.Signal = ys.Object, ys.Signal
		}
		b.Ops[i] = sus
		r.Ops = append([]bytecode.Op{&bytecode.Resume{Site: synth, Point: s.point}}, r.Ops...)
		return r, sus

	default:
		dst := awaitResult(g, o)
		r := g.SplitBlock(b, i+1)
		sus := &bytecode.Suspend{Site: synth, Point: s.point, Kind: bytecode.SuspendAwait, Awaited: dst}
		b.Ops = append(b.Ops, sus)
		r.Ops = append([]bytecode.Op{&bytecode.Resume{Site: synth, Point: s.point, HasDst: true, Dst: dst}}, r.Ops...)
		return r, sus
	}
}

// awaitResult returns where an awaited call leaves its result. A call
// whose result is discarded gets a fresh slot, since the caller needs it
// to tell whether the callee suspended.
func awaitResult(g *cfg.CFG, op bytecode.Op) bytecode.Address {
	switch c := op.(type) {
	case *bytecode.Call:
		if !c.Return {
			c.Return = true
			c.Dst = bytecode.Versioned(g.NumSlots, 1)
			g.NumSlots++
		}
		return c.Dst
	case *bytecode.CallSelfBase:
		return c.Dst
	}
	panic(fmt.Sprintf("transform: %s cannot be awaited", op))
}
