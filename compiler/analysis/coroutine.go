package analysis

import (
	"sort"

	"github.com/chazu/gd2c/pkg/bytecode"
	"github.com/chazu/gd2c/project"
)

// CallSite is a call that resolves statically to a project function.
type CallSite struct {
	Offset int
	Callee *project.Function
}

// Callees returns the project functions f calls directly, with the offset
// of each call. Calls on self are looked up through the class and its
// bases; super calls start from the base class. Calls on other receivers
// cannot be resolved statically and are ignored.
func Callees(f *project.Function) []CallSite {
	if f.Class == nil {
		return nil
	}
	var out []CallSite
	for _, op := range functionOps(f) {
		var target *project.Function
		switch o := op.(type) {
		case *bytecode.Call:
			if o.Base.Kind == bytecode.AddrSelf {
				target, _ = f.Class.FindMethod(f.GlobalName(o.Name))
			}
		case *bytecode.CallSelfBase:
			if f.Class.Base != nil {
				target, _ = f.Class.Base.FindMethod(f.GlobalName(o.Name))
			}
		}
		if target != nil {
			out = append(out, CallSite{Offset: op.Pos(), Callee: target})
		}
	}
	return out
}

// Coroutines marks every function that can suspend: it contains a yield,
// or it calls a function that can. Strongly connected components of the
// call graph are visited callee-first and each is iterated to a fixed
// point, so recursion through yielding functions is handled.
func Coroutines(p *project.Project) {
	functions := p.Functions()
	calls := make(map[*project.Function][]CallSite, len(functions))
	for _, f := range functions {
		f.Yields = false
		f.YieldSites = nil
		f.AwaitSites = nil
		calls[f] = Callees(f)
		for _, op := range functionOps(f) {
			if op.Opcode().IsYield() {
				f.YieldSites = append(f.YieldSites, op.Pos())
			}
		}
		sort.Ints(f.YieldSites)
	}

	for _, scc := range stronglyConnected(functions, calls) {
		for changed := true; changed; {
			changed = false
			for _, f := range scc {
				if f.Yields {
					continue
				}
				if len(f.YieldSites) > 0 {
					f.Yields = true
					changed = true
					continue
				}
				for _, c := range calls[f] {
					if c.Callee.Yields {
						f.Yields = true
						changed = true
						break
					}
				}
			}
		}
	}

	n := 0
	for _, f := range functions {
		for _, c := range calls[f] {
			if c.Callee.Yields {
				f.AwaitSites = append(f.AwaitSites, c.Offset)
			}
		}
		sort.Ints(f.AwaitSites)
		if f.Yields {
			n++
			log.Debugf("%s yields (%d yield sites, %d await sites)", f.QualifiedName(), len(f.YieldSites), len(f.AwaitSites))
		}
	}
	log.Infof("coroutine analysis: %d of %d functions yield", n, len(functions))
}

// stronglyConnected returns the components of the call graph with Tarjan's
// algorithm. Components come out callee-first.
func stronglyConnected(functions []*project.Function, calls map[*project.Function][]CallSite) [][]*project.Function {
	index := make(map[*project.Function]int, len(functions))
	low := make(map[*project.Function]int, len(functions))
	onStack := make(map[*project.Function]bool, len(functions))
	var stack []*project.Function
	var out [][]*project.Function
	next := 0

	var connect func(f *project.Function)
	connect = func(f *project.Function) {
		index[f] = next
		low[f] = next
		next++
		stack = append(stack, f)
		onStack[f] = true

		for _, c := range calls[f] {
			w := c.Callee
			if _, seen := index[w]; !seen {
				connect(w)
				low[f] = min(low[f], low[w])
			} else if onStack[w] {
				low[f] = min(low[f], index[w])
			}
		}

		if low[f] == index[f] {
			var scc []*project.Function
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == f {
					break
				}
			}
			out = append(out, scc)
		}
	}

	for _, f := range functions {
		if _, seen := index[f]; !seen {
			connect(f)
		}
	}
	return out
}
