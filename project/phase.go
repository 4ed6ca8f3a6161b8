package project

import (
	"fmt"

	"github.com/chazu/gd2c/compiler/cfg"
)

// Phase tags how far a function has progressed through the pipeline.
type Phase int

const (
	Unanalyzed Phase = iota
	Analyzed
	Transformed
	Emitted
)

func (p Phase) String() string {
	switch p {
	case Unanalyzed:
		return "unanalyzed"
	case Analyzed:
		return "analyzed"
	case Transformed:
		return "transformed"
	case Emitted:
		return "emitted"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Phase returns the current phase.
func (f *Function) Phase() Phase {
	return f.phase
}

// Advance moves the function to the next phase. Skipping or revisiting a
// phase is a pipeline ordering bug and panics.
func (f *Function) Advance(to Phase) {
	if to != f.phase+1 {
		panic(fmt.Sprintf("project: %s cannot move from %s to %s", f.QualifiedName(), f.phase, to))
	}
	f.phase = to
}

// SetCFG attaches the control-flow graph built for the function.
func (f *Function) SetCFG(g *cfg.CFG) {
	if g == nil {
		panic(fmt.Sprintf("project: SetCFG(nil) on %s; use DiscardCFG", f.QualifiedName()))
	}
	if f.phase == Emitted {
		panic(fmt.Sprintf("project: %s already emitted", f.QualifiedName()))
	}
	f.graph = g
}

// CFG returns the attached control-flow graph. Reading it when none is
// attached panics.
func (f *Function) CFG() *cfg.CFG {
	if f.graph == nil {
		panic(fmt.Sprintf("project: %s has no CFG (phase %s)", f.QualifiedName(), f.phase))
	}
	return f.graph
}

// HasCFG reports whether a control-flow graph is attached.
func (f *Function) HasCFG() bool {
	return f.graph != nil
}

// DiscardCFG drops the control-flow graph once emission consumed it.
func (f *Function) DiscardCFG() {
	f.graph = nil
}
