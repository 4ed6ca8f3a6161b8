package transform

import (
	"fmt"
	"strings"

	"github.com/chazu/gd2c/compiler/cfg"
	"github.com/chazu/gd2c/pkg/bytecode"
)

// Pass is an SSA-to-SSA optimization. Run reports whether it changed the
// graph; a pass that reports no change has not touched it.
type Pass struct {
	Name string
	Run  func(g *cfg.CFG) bool
}

var registry = []Pass{
	{"cse", CSE},
	{"copy-elimination", CopyElimination},
	{"dead-code", DeadCode},
	{"redundant-phi", RedundantPhi},
	{"substitute-intrinsics", SubstituteIntrinsics},
	{"promote-typed-arithmetic", PromoteTypedArithmetic},
}

// PassNames lists every registered pass.
func PassNames() []string {
	names := make([]string, len(registry))
	for i, p := range registry {
		names[i] = p.Name
	}
	return names
}

// Lookup finds a pass by name.
func Lookup(name string) (Pass, bool) {
	for _, p := range registry {
		if p.Name == name {
			return p, true
		}
	}
	return Pass{}, false
}

// Passes resolves a configured pass list, keeping its order.
func Passes(names []string) ([]Pass, error) {
	out := make([]Pass, 0, len(names))
	for _, n := range names {
		p, ok := Lookup(n)
		if !ok {
			return nil, fmt.Errorf("unknown optimization pass %q (known: %s)", n, strings.Join(PassNames(), ", "))
		}
		out = append(out, p)
	}
	return out, nil
}

// CSE replaces a pure op by a copy when a dominating op already computed
// the same value from the same operands.
func CSE(g *cfg.CFG) bool {
	requireSSA("cse", g, true)
	dom := cfg.ComputeDominators(g)
	available := make(map[string]bytecode.Address)
	changed := false

	var walk func(b *cfg.Block)
	walk = func(b *cfg.Block) {
		var added []string
		for i, op := range b.Ops {
			key, dst, ok := valueKey(op)
			if !ok {
				continue
			}
			if prev, seen := available[key]; seen {
				b.Ops[i] = &bytecode.Assign{Site: bytecode.At(op.Pos()), Dst: dst, Src: prev}
				changed = true
				continue
			}
			available[key] = dst
			added = append(added, key)
		}
		for _, c := range dom.Children(b) {
			walk(c)
		}
		for _, k := range added {
			delete(available, k)
		}
	}
	walk(g.Entry())
	return changed
}

// valueKey names the value a pure op computes. Only ops reading SSA
// values, constants or nil qualify.
func valueKey(op bytecode.Op) (string, bytecode.Address, bool) {
	if !op.Opcode().IsPure() {
		return "", bytecode.Address{}, false
	}
	stable := true
	op.Operands(func(a *bytecode.Address, role bytecode.Role) {
		if role == bytecode.RoleUse && !(a.IsVar() || a.IsConst() || a.IsNil()) {
			stable = false
		}
		if role == bytecode.RoleDef && !a.IsVar() {
			stable = false
		}
	})
	if !stable {
		return "", bytecode.Address{}, false
	}

	switch o := op.(type) {
	case *bytecode.Operator:
		a, b := o.A.String(), o.B.String()
		if o.Operator.IsUnary() {
			b = ""
		} else if o.Operator.Commutes() && b < a {
			a, b = b, a
		}
		return fmt.Sprintf("op %d %s %s", o.Operator, a, b), o.Dst, true
	case *bytecode.IsBuiltin:
		return fmt.Sprintf("is %s %d", o.Value, o.Type), o.Dst, true
	case *bytecode.CastToBuiltin:
		return fmt.Sprintf("cast %d %s", o.Type, o.Src), o.Dst, true
	}
	return "", bytecode.Address{}, false
}

// CopyElimination removes ASSIGN ops whose source is an SSA value, a
// constant, nil, self or the class, and rewires readers to the source.
func CopyElimination(g *cfg.CFG) bool {
	requireSSA("copy-elimination", g, true)
	subst := make(map[bytecode.Var]bytecode.Address)
	for _, b := range g.Blocks {
		for _, op := range b.Ops {
			a, ok := op.(*bytecode.Assign)
			if !ok || !a.Dst.IsVar() || a.Dst.Version == 0 {
				continue
			}
			switch {
			case a.Src.IsVar(), a.Src.IsConst(), a.Src.IsNil(),
				a.Src.Kind == bytecode.AddrSelf, a.Src.Kind == bytecode.AddrClass:
				subst[a.Dst.Var()] = a.Src
			}
		}
	}
	if len(subst) == 0 {
		return false
	}
	for _, b := range g.Blocks {
		b.RemoveOps(func(op bytecode.Op) bool {
			a, ok := op.(*bytecode.Assign)
			if !ok || !a.Dst.IsVar() {
				return false
			}
			_, drop := subst[a.Dst.Var()]
			return drop
		})
	}
	substitute(g, subst)
	return true
}

// substitute rewrites every read of a key of subst, following chains.
func substitute(g *cfg.CFG, subst map[bytecode.Var]bytecode.Address) {
	resolve := func(a bytecode.Address) bytecode.Address {
		for i := 0; i <= len(subst) && a.IsVar(); i++ {
			next, ok := subst[a.Var()]
			if !ok {
				break
			}
			// Keep the reader's address kind when forwarding between stack
			// kinds.
			if next.IsVar() {
				next.Kind = a.Kind
			}
			a = next
		}
		return a
	}
	for _, b := range g.Blocks {
		for _, op := range b.Ops {
			op.Operands(func(a *bytecode.Address, role bytecode.Role) {
				if role == bytecode.RoleUse && a.IsVar() {
					*a = resolve(*a)
				}
			})
		}
	}
}

// removable reports whether op has no effect besides defining stack
// values.
func removable(op bytecode.Op) bool {
	switch op.(type) {
	case *bytecode.Phi, *bytecode.Assign, *bytecode.AssignBool:
	default:
		if !op.Opcode().IsPure() {
			return false
		}
	}
	defs := bytecode.Defs(op)
	for _, a := range defs {
		if !a.IsVar() {
			return false
		}
	}
	return len(defs) > 0
}

// DeadCode deletes unreachable blocks, then pure ops and phis whose
// results are never read.
func DeadCode(g *cfg.CFG) bool {
	requireSSA("dead-code", g, true)
	changed := cfg.RemoveUnreachable(g) > 0

	for {
		uses := make(map[bytecode.Var]int)
		for _, b := range g.Blocks {
			for _, op := range b.Ops {
				phi, isPhi := op.(*bytecode.Phi)
				for _, a := range bytecode.Uses(op) {
					if !a.IsVar() || (isPhi && a.SameValue(phi.Dst)) {
						continue
					}
					uses[a.Var()]++
				}
			}
		}

		removed := 0
		for _, b := range g.Blocks {
			removed += b.RemoveOps(func(op bytecode.Op) bool {
				if !removable(op) {
					return false
				}
				for _, a := range bytecode.Defs(op) {
					if uses[a.Var()] > 0 {
						return false
					}
				}
				return true
			})
		}
		if removed == 0 {
			return changed
		}
		changed = true
	}
}

// RedundantPhi replaces phis whose arguments, ignoring the phi's own
// result, are all the same value.
func RedundantPhi(g *cfg.CFG) bool {
	requireSSA("redundant-phi", g, true)
	changed := false
	for {
		subst := make(map[bytecode.Var]bytecode.Address)
		for _, b := range g.Blocks {
			for _, phi := range b.Phis() {
				if v, ok := uniqueArg(phi); ok {
					subst[phi.Dst.Var()] = v
				}
			}
		}
		if len(subst) == 0 {
			return changed
		}
		for _, b := range g.Blocks {
			b.RemoveOps(func(op bytecode.Op) bool {
				phi, ok := op.(*bytecode.Phi)
				if !ok {
					return false
				}
				_, drop := subst[phi.Dst.Var()]
				return drop
			})
		}
		substitute(g, subst)
		changed = true
	}
}

func uniqueArg(phi *bytecode.Phi) (bytecode.Address, bool) {
	var v bytecode.Address
	found := false
	for _, a := range phi.Args {
		if a.SameValue(phi.Dst) {
			continue
		}
		if !found {
			v, found = a, true
			continue
		}
		if !a.SameValue(v) {
			return bytecode.Address{}, false
		}
	}
	return v, found
}

// SubstituteIntrinsics would replace builtin calls with known types by
// inline operations.
func SubstituteIntrinsics(g *cfg.CFG) bool {
	requireSSA("substitute-intrinsics", g, true)
	log.Debug("substitute-intrinsics: not implemented")
	return false
}

// PromoteTypedArithmetic would specialize operators whose operand types
// are statically known.
func PromoteTypedArithmetic(g *cfg.CFG) bool {
	requireSSA("promote-typed-arithmetic", g, true)
	log.Debug("promote-typed-arithmetic: not implemented")
	return false
}
