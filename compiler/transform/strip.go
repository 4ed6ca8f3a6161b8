// Package transform rewrites function CFGs between analysis and emission:
// debug stripping, the SSA optimization passes and their fixed-point
// driver, and coroutine lowering.
//
// Every transform states the form it expects. Calling one on a graph in
// the wrong form is a pipeline bug and panics.
package transform

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/gd2c/compiler/cfg"
	"github.com/chazu/gd2c/pkg/bytecode"
)

var log = commonlog.GetLogger("gd2c.transform")

func requireSSA(name string, g *cfg.CFG, ssa bool) {
	if g.SSA != ssa {
		form := "non-SSA"
		if ssa {
			form = "SSA"
		}
		panic(fmt.Sprintf("transform: %s requires a graph in %s form", name, form))
	}
}

// StripDebug removes LINE and BREAKPOINT ops. Control flow is untouched:
// blocks left empty fall through as before.
func StripDebug(g *cfg.CFG) int {
	requireSSA("strip-debug", g, false)
	n := 0
	for _, b := range g.Blocks {
		n += b.RemoveOps(func(op bytecode.Op) bool {
			return op.Opcode().IsDebug()
		})
	}
	if n > 0 {
		log.Debugf("stripped %d debug ops", n)
	}
	return n
}
