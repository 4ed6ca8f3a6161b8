// Package analysis annotates functions with facts the transform pipeline
// and backends rely on: whether a function can suspend, which parameters
// it writes, and where its loops are. Every annotation is recomputed from
// scratch, so running a pass twice leaves the same result.
package analysis

import (
	"sort"

	"github.com/tliron/commonlog"

	"github.com/chazu/gd2c/compiler/cfg"
	"github.com/chazu/gd2c/pkg/bytecode"
	"github.com/chazu/gd2c/project"
)

var log = commonlog.GetLogger("gd2c.analysis")

// Annotate runs every analysis over the project. Functions must have a
// CFG attached.
func Annotate(p *project.Project) {
	Coroutines(p)
	for _, f := range p.Functions() {
		AssignedParams(f)
		Loops(f)
	}
}

// AssignedParams records the parameters the function body writes. Those
// need a mutable local in emitted code.
func AssignedParams(f *project.Function) {
	argc := f.Argc()
	seen := make(map[int]bool)
	for _, op := range functionOps(f) {
		for _, a := range bytecode.Defs(op) {
			if a.IsVar() && a.Index < argc {
				seen[a.Index] = true
			}
		}
	}
	f.AssignedParams = f.AssignedParams[:0]
	for i := range seen {
		f.AssignedParams = append(f.AssignedParams, i)
	}
	sort.Ints(f.AssignedParams)
}

// Loops records the natural loops of the function's CFG.
func Loops(f *project.Function) {
	g := f.CFG()
	f.Loops = cfg.FindLoops(g, cfg.ComputeDominators(g))
	if len(f.Loops) > 0 {
		log.Debugf("%s: %d loops", f.QualifiedName(), len(f.Loops))
	}
}

// functionOps returns the ops reachable from the entry when a CFG is
// attached, or the decoded stream otherwise.
func functionOps(f *project.Function) []bytecode.Op {
	if !f.HasCFG() {
		return f.Ops
	}
	var out []bytecode.Op
	for _, b := range cfg.ReversePostorder(f.CFG()) {
		out = append(out, b.Ops...)
	}
	return out
}
