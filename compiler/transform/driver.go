package transform

import (
	"github.com/chazu/gd2c/compiler/cfg"
	"github.com/chazu/gd2c/compiler/ssa"
	"github.com/chazu/gd2c/manifest"
	"github.com/chazu/gd2c/project"
)

// MaxIterations caps the optimization loop.
const MaxIterations = manifest.MaxIterations

// Optimize applies every pass once per iteration until an iteration
// changes nothing or the cap is reached. A cap outside 1..MaxIterations
// means MaxIterations. It returns the number of iterations run.
func Optimize(g *cfg.CFG, passes []Pass, maxIterations int) int {
	requireSSA("optimize", g, true)
	if maxIterations <= 0 || maxIterations > MaxIterations {
		maxIterations = MaxIterations
	}
	if len(passes) == 0 {
		return 0
	}

	iterations := 0
	for iterations < maxIterations {
		iterations++
		changed := false
		for _, p := range passes {
			if p.Run(g) {
				log.Debugf("iteration %d: %s changed the graph", iterations, p.Name)
				changed = true
			}
		}
		if !changed {
			return iterations
		}
	}
	log.Debugf("optimization stopped at the cap of %d iterations", maxIterations)
	return iterations
}

// Options selects the per-function pipeline.
type Options struct {
	StripDebug    bool
	SSA           bool
	Passes        []Pass
	MaxIterations int
}

// Apply runs the pipeline on f's CFG: debug stripping, then SSA
// construction, optimization, coroutine lowering and SSA destruction. The
// SSA stages run when SSA is enabled or the function yields, since
// coroutine lowering needs SSA form; optimization only when enabled.
func Apply(f *project.Function, opts Options) {
	g := f.CFG()
	if opts.StripDebug {
		StripDebug(g)
	}
	if !opts.SSA && !f.Yields {
		return
	}

	ssa.Construct(g)
	if opts.SSA {
		n := Optimize(g, opts.Passes, opts.MaxIterations)
		log.Debugf("%s: optimized in %d iterations", f.QualifiedName(), n)
	}
	if f.Yields {
		MakeCoroutine(f)
	}
	ssa.Destruct(g)
}
