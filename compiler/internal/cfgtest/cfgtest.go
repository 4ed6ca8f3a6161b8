// Package cfgtest helps test graph transforms. It assembles bytecode and
// interprets integer-only graphs so a transformed function can be checked
// against the original by running both.
package cfgtest

import (
	"errors"
	"fmt"
	"testing"

	"github.com/chazu/gd2c/compiler/cfg"
	"github.com/chazu/gd2c/pkg/bytecode"
)

// S encodes stack slot i.
func S(i int) int { return bytecode.Stack(i).Encode() }

// K encodes local constant i.
func K(i int) int { return bytecode.Const(i).Encode() }

// Build decodes code and builds its graph, failing the test on error.
func Build(t testing.TB, code []int, stackSize int, defaultArgs ...int) *cfg.CFG {
	t.Helper()
	ops, err := bytecode.Decode(code, defaultArgs)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	g, err := cfg.Build(ops, stackSize)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

// Pending is the value an awaited call returns when it suspended.
const Pending int64 = -1 << 40

// ErrUnsupported is returned for ops the interpreter does not model.
var ErrUnsupported = errors.New("unsupported op")

// ErrUnset is returned when an op consumes a stack value that was never
// written. Copies and phis carry an unset value along instead, so only a
// real use fails. After a resume, anything missing from the saved live set
// is unset.
var ErrUnset = errors.New("read of unset value")

// MaxSteps bounds a run so broken transforms cannot hang a test.
const MaxSteps = 100000

// Frame is one activation of an interpreted function. A coroutine frame
// survives suspension and is resumed with Resume.
type Frame struct {
	G      *cfg.CFG
	Consts []int64

	// Suspended reports whether the last run stopped at a suspend point.
	Suspended bool
	Result    int64
	Steps     int

	point int
	saved map[bytecode.Var]int64
	env   map[bytecode.Var]int64
}

// Run interprets g with the given arguments and returns its result. A
// coroutine that suspends returns an error.
func Run(g *cfg.CFG, consts []int64, args ...int64) (int64, error) {
	f, err := Start(g, consts, args...)
	if err != nil {
		return 0, err
	}
	if f.Suspended {
		return 0, fmt.Errorf("function suspended at point %d", f.point)
	}
	return f.Result, nil
}

// Start runs g from its entry until it returns or suspends.
func Start(g *cfg.CFG, consts []int64, args ...int64) (*Frame, error) {
	f := &Frame{G: g, Consts: consts, env: make(map[bytecode.Var]int64)}
	for i, a := range args {
		f.env[bytecode.Var{Slot: i}] = a
	}
	return f, f.exec(0)
}

// Resume continues a suspended frame, passing value to the resumed code.
func (f *Frame) Resume(value int64) error {
	if !f.Suspended {
		return errors.New("frame is not suspended")
	}
	f.Suspended = false
	f.env = f.saved
	f.saved = nil
	return f.exec(value)
}

// Point returns the resume point the frame is suspended at.
func (f *Frame) Point() int {
	return f.point
}

// value returns the value at a and whether it has been written.
func (f *Frame) value(a bytecode.Address) (int64, bool, error) {
	switch {
	case a.IsVar():
		v, ok := f.env[a.Var()]
		return v, ok, nil
	case a.Kind == bytecode.AddrLocalConstant:
		if a.Index >= len(f.Consts) {
			return 0, false, fmt.Errorf("constant %d out of range", a.Index)
		}
		return f.Consts[a.Index], true, nil
	case a.IsNil():
		return 0, true, nil
	}
	return 0, false, fmt.Errorf("%w: read of %s", ErrUnsupported, a)
}

func (f *Frame) read(a bytecode.Address) (int64, error) {
	v, ok, err := f.value(a)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnset, a)
	}
	return v, nil
}

// copyValue moves src to dst, leaving dst unset when src is.
func (f *Frame) copyValue(dst, src bytecode.Address) error {
	v, ok, err := f.value(src)
	if err != nil {
		return err
	}
	if ok {
		return f.write(dst, v)
	}
	if !dst.IsVar() {
		return fmt.Errorf("%w: write to %s", ErrUnsupported, dst)
	}
	delete(f.env, dst.Var())
	return nil
}

func (f *Frame) write(a bytecode.Address, v int64) error {
	if !a.IsVar() {
		return fmt.Errorf("%w: write to %s", ErrUnsupported, a)
	}
	f.env[a.Var()] = v
	return nil
}

func operate(op bytecode.VariantOperator, a, b int64) (int64, error) {
	truth := func(c bool) int64 {
		if c {
			return 1
		}
		return 0
	}
	switch op {
	case bytecode.OpEqual:
		return truth(a == b), nil
	case bytecode.OpNotEqual:
		return truth(a != b), nil
	case bytecode.OpLess:
		return truth(a < b), nil
	case bytecode.OpLessEqual:
		return truth(a <= b), nil
	case bytecode.OpGreater:
		return truth(a > b), nil
	case bytecode.OpGreaterEqual:
		return truth(a >= b), nil
	case bytecode.OpAdd:
		return a + b, nil
	case bytecode.OpSubtract:
		return a - b, nil
	case bytecode.OpMultiply:
		return a * b, nil
	case bytecode.OpNegate:
		return -a, nil
	case bytecode.OpNot:
		return truth(a == 0), nil
	}
	return 0, fmt.Errorf("%w: operator %s", ErrUnsupported, op)
}

// exec runs from the entry block; Dispatch routes resumed frames.
func (f *Frame) exec(resumed int64) error {
	b := f.G.Entry()
	var prev *cfg.Block

	for {
		if f.Steps++; f.Steps > MaxSteps {
			return errors.New("step limit exceeded")
		}

		if phis := b.Phis(); len(phis) > 0 {
			j := b.PredIndex(prev)
			if j < 0 {
				return fmt.Errorf("phi in %s reached without predecessor", b)
			}
			// Phis read all their arguments before any of them is written.
			vals := make([]int64, len(phis))
			set := make([]bool, len(phis))
			for i, phi := range phis {
				v, ok, err := f.value(phi.Args[j])
				if err != nil {
					return err
				}
				vals[i], set[i] = v, ok
			}
			for i, phi := range phis {
				if !set[i] {
					delete(f.env, phi.Dst.Var())
					continue
				}
				if err := f.write(phi.Dst, vals[i]); err != nil {
					return err
				}
			}
		}

		next, done, err := f.block(b, resumed)
		if err != nil || done {
			return err
		}
		prev, b = b, next
	}
}

// block runs the non-phi ops of b and returns the successor to enter.
func (f *Frame) block(b *cfg.Block, resumed int64) (*cfg.Block, bool, error) {
	for _, op := range b.Ops {
		switch o := op.(type) {
		case *bytecode.Phi, *bytecode.Line, *bytecode.Breakpoint, *bytecode.Resume:
		case *bytecode.Assign:
			if err := f.copyValue(o.Dst, o.Src); err != nil {
				return nil, false, err
			}
		case *bytecode.AssignTypedBuiltin:
			v, err := f.read(o.Src)
			if err != nil {
				return nil, false, err
			}
			if err := f.write(o.Dst, v); err != nil {
				return nil, false, err
			}
		case *bytecode.AssignBool:
			v := int64(0)
			if o.Value {
				v = 1
			}
			if err := f.write(o.Dst, v); err != nil {
				return nil, false, err
			}
		case *bytecode.Operator:
			a, err := f.read(o.A)
			if err != nil {
				return nil, false, err
			}
			var c int64
			if !o.Operator.IsUnary() {
				if c, err = f.read(o.B); err != nil {
					return nil, false, err
				}
			}
			v, err := operate(o.Operator, a, c)
			if err != nil {
				return nil, false, err
			}
			if err := f.write(o.Dst, v); err != nil {
				return nil, false, err
			}
		case *bytecode.YieldResume:
			if err := f.write(o.Dst, resumed); err != nil {
				return nil, false, err
			}
		case *bytecode.Jump:
			return b.Succs[0], false, nil
		case *bytecode.JumpIf:
			c, err := f.read(o.Cond)
			if err != nil {
				return nil, false, err
			}
			if (c != 0) != o.Negate {
				return b.Succs[0], false, nil
			}
			return b.Succs[1], false, nil
		case *bytecode.Iterate:
			return f.iterate(b, o)
		case *bytecode.Return:
			v, err := f.read(o.Value)
			if err != nil {
				return nil, false, err
			}
			f.Result = v
			return nil, true, nil
		case *bytecode.End:
			f.Result = 0
			return nil, true, nil
		case *bytecode.Suspend:
			if o.Kind == bytecode.SuspendAwait {
				v, err := f.read(o.Awaited)
				if err != nil {
					return nil, false, err
				}
				if v != Pending {
					return b.Succs[0], false, nil
				}
			}
			f.saved = make(map[bytecode.Var]int64, len(o.Live))
			for _, a := range o.Live {
				if v, ok := f.env[a.Var()]; ok {
					f.saved[a.Var()] = v
				}
			}
			f.point = o.Point
			f.Suspended = true
			return nil, true, nil
		case *bytecode.Dispatch:
			if f.point == 0 {
				return b.Succs[0], false, nil
			}
			target := b.Succs[f.point]
			if r, ok := target.Ops[0].(*bytecode.Resume); ok && r.HasDst {
				if err := f.write(r.Dst, resumed); err != nil {
					return nil, false, err
				}
			}
			return target, false, nil
		default:
			return nil, false, fmt.Errorf("%w: %s", ErrUnsupported, op.Opcode())
		}
	}
	if len(b.Succs) == 0 {
		return nil, false, fmt.Errorf("%s has no successor", b)
	}
	return b.Succs[0], false, nil
}

// iterate models for-loops over an integer n, visiting 0..n-1.
func (f *Frame) iterate(b *cfg.Block, o *bytecode.Iterate) (*cfg.Block, bool, error) {
	n, err := f.read(o.Container)
	if err != nil {
		return nil, false, err
	}
	counter := int64(0)
	if !o.Begin {
		if counter, err = f.read(o.Counter); err != nil {
			return nil, false, err
		}
		counter++
	}
	if err := f.write(o.CounterOut, counter); err != nil {
		return nil, false, err
	}
	if counter >= n {
		return b.Succs[0], false, nil
	}
	if err := f.write(o.Iterator, counter); err != nil {
		return nil, false, err
	}
	return b.Succs[1], false, nil
}
