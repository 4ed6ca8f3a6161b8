package bytecode

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every decoding error.
var ErrMalformed = errors.New("malformed bytecode")

// DecodeError locates a decoding failure in the word stream.
type DecodeError struct {
	Offset int
	Msg    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

func (e *DecodeError) Unwrap() error { return ErrMalformed }

type decoder struct {
	code  []int
	start int
	pos   int
	err   error
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = &DecodeError{Offset: d.start, Msg: fmt.Sprintf(format, args...)}
	}
}

func (d *decoder) word() int {
	if d.pos >= len(d.code) {
		d.fail("truncated %s instruction", Opcode(d.code[d.start]))
		return 0
	}
	w := d.code[d.pos]
	d.pos++
	return w
}

func (d *decoder) addr() Address {
	w := d.word()
	if d.err != nil {
		return Address{}
	}
	a, err := DecodeAddress(w)
	if err != nil {
		d.fail("%v", err)
	}
	return a
}

func (d *decoder) addrs(n int) []Address {
	if n < 0 {
		d.fail("negative argument count %d", n)
		return nil
	}
	if d.pos+n > len(d.code) {
		d.fail("truncated %s instruction", Opcode(d.code[d.start]))
		return nil
	}
	out := make([]Address, n)
	for i := range out {
		out[i] = d.addr()
	}
	return out
}

// Decode converts a raw word stream into ops. defaultArgs supplies the
// jump table of JUMP_TO_DEF_ARGUMENT. Every jump target must be the start
// of an instruction, and no op may define a read-only address.
func Decode(code []int, defaultArgs []int) ([]Op, error) {
	var ops []Op
	starts := make(map[int]bool)
	d := &decoder{code: code}

	for d.pos < len(code) && d.err == nil {
		d.start = d.pos
		starts[d.start] = true
		op := d.decodeOne(defaultArgs)
		if d.err != nil {
			break
		}
		ops = append(ops, op)
	}
	if d.err != nil {
		return nil, d.err
	}

	for _, op := range ops {
		for _, t := range Targets(op) {
			if t < 0 || t >= len(code) {
				return nil, &DecodeError{Offset: op.Pos(), Msg: fmt.Sprintf("jump target %d outside stream of %d words", t, len(code))}
			}
			if !starts[t] {
				return nil, &DecodeError{Offset: op.Pos(), Msg: fmt.Sprintf("jump target %d is not an instruction start", t)}
			}
		}
		var bad error
		op.Operands(func(a *Address, r Role) {
			if r == RoleDef && !a.Writable() && bad == nil {
				bad = &DecodeError{Offset: op.Pos(), Msg: fmt.Sprintf("%s defines read-only address %s", op.Opcode(), a)}
			}
		})
		if bad != nil {
			return nil, bad
		}
	}
	return ops, nil
}

func (d *decoder) decodeOne(defaultArgs []int) Op {
	opcode := Opcode(d.word())
	site := At(d.start)

	switch opcode {
	case OpOperator:
		o := &Operator{Site: site, Operator: VariantOperator(d.word())}
		o.A, o.B, o.Dst = d.addr(), d.addr(), d.addr()
		if o.Operator < 0 || o.Operator >= OpMax {
			d.fail("unknown operator %d", int(o.Operator))
		}
		return o
	case OpExtendsTest:
		o := &ExtendsTest{Site: site}
		o.A, o.B, o.Dst = d.addr(), d.addr(), d.addr()
		return o
	case OpIsBuiltin:
		o := &IsBuiltin{Site: site}
		o.Value = d.addr()
		o.Type = VariantType(d.word())
		o.Dst = d.addr()
		return o
	case OpSet:
		o := &Set{Site: site}
		o.Base, o.Index, o.Value = d.addr(), d.addr(), d.addr()
		o.Target = o.Base
		return o
	case OpGet:
		o := &Get{Site: site}
		o.Src, o.Index, o.Dst = d.addr(), d.addr(), d.addr()
		return o
	case OpSetNamed:
		o := &SetNamed{Site: site}
		o.Base = d.addr()
		o.Name = d.word()
		o.Value = d.addr()
		o.Target = o.Base
		return o
	case OpGetNamed:
		o := &GetNamed{Site: site}
		o.Src = d.addr()
		o.Name = d.word()
		o.Dst = d.addr()
		return o
	case OpSetMember:
		o := &SetMember{Site: site, Name: d.word()}
		o.Src = d.addr()
		return o
	case OpGetMember:
		o := &GetMember{Site: site, Name: d.word()}
		o.Dst = d.addr()
		return o
	case OpAssign:
		o := &Assign{Site: site}
		o.Dst, o.Src = d.addr(), d.addr()
		return o
	case OpAssignTrue, OpAssignFalse:
		return &AssignBool{Site: site, Dst: d.addr(), Value: opcode == OpAssignTrue}
	case OpAssignTypedBuiltin:
		o := &AssignTypedBuiltin{Site: site, Type: VariantType(d.word())}
		o.Dst, o.Src = d.addr(), d.addr()
		return o
	case OpAssignTypedNative, OpAssignTypedScript:
		o := &AssignTypedObject{Site: site, Script: opcode == OpAssignTypedScript}
		o.Type, o.Dst, o.Src = d.addr(), d.addr(), d.addr()
		return o
	case OpCastToBuiltin:
		o := &CastToBuiltin{Site: site, Type: VariantType(d.word())}
		o.Src, o.Dst = d.addr(), d.addr()
		return o
	case OpCastToNative, OpCastToScript:
		o := &CastToObject{Site: site, Script: opcode == OpCastToScript}
		o.Type, o.Src, o.Dst = d.addr(), d.addr(), d.addr()
		return o
	case OpConstruct:
		o := &Construct{Site: site, Type: VariantType(d.word())}
		argc := d.word()
		o.Args = d.addrs(argc)
		o.Dst = d.addr()
		return o
	case OpConstructArray:
		o := &ConstructArray{Site: site}
		o.Elems = d.addrs(d.word())
		o.Dst = d.addr()
		return o
	case OpConstructDictionary:
		o := &ConstructDictionary{Site: site}
		n := d.word()
		flat := d.addrs(2 * n)
		for i := 0; i+1 < len(flat); i += 2 {
			o.Pairs = append(o.Pairs, KeyValue{Key: flat[i], Value: flat[i+1]})
		}
		o.Dst = d.addr()
		return o
	case OpCall, OpCallReturn:
		o := &Call{Site: site, Return: opcode == OpCallReturn}
		argc := d.word()
		o.Base = d.addr()
		o.Name = d.word()
		o.Args = d.addrs(argc)
		o.Dst = d.addr()
		o.Target = o.Base
		return o
	case OpCallBuiltin:
		o := &CallBuiltin{Site: site, Func: d.word()}
		o.Args = d.addrs(d.word())
		o.Dst = d.addr()
		if d.err == nil && (o.Func < 0 || o.Func >= Builtins()) {
			d.fail("unknown builtin function %d", o.Func)
		}
		return o
	case OpCallSelf:
		return &CallSelf{Site: site}
	case OpCallSelfBase:
		o := &CallSelfBase{Site: site, Name: d.word()}
		o.Args = d.addrs(d.word())
		o.Dst = d.addr()
		return o
	case OpCallStack, OpCallStackReturn:
		o := &CallStack{Site: site, Return: opcode == OpCallStackReturn}
		argc := d.word()
		o.Callee = d.addr()
		o.Args = d.addrs(argc)
		o.Dst = d.addr()
		return o
	case OpYield:
		return &Yield{Site: site}
	case OpYieldSignal:
		o := &YieldSignal{Site: site}
		o.Object, o.Signal = d.addr(), d.addr()
		return o
	case OpYieldResume:
		return &YieldResume{Site: site, Dst: d.addr()}
	case OpJump:
		return &Jump{Site: site, Target: d.word()}
	case OpJumpIf, OpJumpIfNot:
		o := &JumpIf{Site: site, Negate: opcode == OpJumpIfNot}
		o.Cond = d.addr()
		o.Target = d.word()
		return o
	case OpJumpToDefArgument:
		if len(defaultArgs) == 0 {
			d.fail("JUMP_TO_DEF_ARGUMENT without default arguments")
		}
		return &JumpToDefArgument{Site: site, Targets: append([]int(nil), defaultArgs...)}
	case OpReturn:
		return &Return{Site: site, Value: d.addr()}
	case OpIterateBegin, OpIterate:
		o := &Iterate{Site: site, Begin: opcode == OpIterateBegin}
		o.Counter = d.addr()
		o.Container = d.addr()
		o.Exit = d.word()
		o.Iterator = d.addr()
		o.CounterOut = o.Counter
		return o
	case OpAssert:
		o := &Assert{Site: site}
		o.Cond, o.Message = d.addr(), d.addr()
		return o
	case OpBreakpoint:
		return &Breakpoint{Site: site}
	case OpLine:
		return &Line{Site: site, Line: d.word()}
	case OpEnd:
		return &End{Site: site}
	}
	d.fail("unknown opcode %d", int(opcode))
	return nil
}

// Encode converts ops back into a word stream. Synthetic ops cannot be
// encoded. SSA versions are dropped, so Encode is only meaningful for
// ops in non-SSA form.
func Encode(ops []Op) ([]int, error) {
	var out []int
	addr := func(a Address) { out = append(out, a.Encode()) }
	addrs := func(as []Address) {
		for _, a := range as {
			addr(a)
		}
	}
	for _, op := range ops {
		out = append(out, int(op.Opcode()))
		switch o := op.(type) {
		case *Operator:
			out = append(out, int(o.Operator))
			addrs([]Address{o.A, o.B, o.Dst})
		case *ExtendsTest:
			addrs([]Address{o.A, o.B, o.Dst})
		case *IsBuiltin:
			addr(o.Value)
			out = append(out, int(o.Type))
			addr(o.Dst)
		case *Set:
			addrs([]Address{o.Base, o.Index, o.Value})
		case *Get:
			addrs([]Address{o.Src, o.Index, o.Dst})
		case *SetNamed:
			addr(o.Base)
			out = append(out, o.Name)
			addr(o.Value)
		case *GetNamed:
			addr(o.Src)
			out = append(out, o.Name)
			addr(o.Dst)
		case *SetMember:
			out = append(out, o.Name)
			addr(o.Src)
		case *GetMember:
			out = append(out, o.Name)
			addr(o.Dst)
		case *Assign:
			addrs([]Address{o.Dst, o.Src})
		case *AssignBool:
			addr(o.Dst)
		case *AssignTypedBuiltin:
			out = append(out, int(o.Type))
			addrs([]Address{o.Dst, o.Src})
		case *AssignTypedObject:
			addrs([]Address{o.Type, o.Dst, o.Src})
		case *CastToBuiltin:
			out = append(out, int(o.Type))
			addrs([]Address{o.Src, o.Dst})
		case *CastToObject:
			addrs([]Address{o.Type, o.Src, o.Dst})
		case *Construct:
			out = append(out, int(o.Type), len(o.Args))
			addrs(o.Args)
			addr(o.Dst)
		case *ConstructArray:
			out = append(out, len(o.Elems))
			addrs(o.Elems)
			addr(o.Dst)
		case *ConstructDictionary:
			out = append(out, len(o.Pairs))
			for _, kv := range o.Pairs {
				addrs([]Address{kv.Key, kv.Value})
			}
			addr(o.Dst)
		case *Call:
			out = append(out, len(o.Args))
			addr(o.Base)
			out = append(out, o.Name)
			addrs(o.Args)
			addr(o.Dst)
		case *CallBuiltin:
			out = append(out, o.Func, len(o.Args))
			addrs(o.Args)
			addr(o.Dst)
		case *CallSelf, *Yield, *JumpToDefArgument, *Breakpoint, *End:
		case *CallSelfBase:
			out = append(out, o.Name, len(o.Args))
			addrs(o.Args)
			addr(o.Dst)
		case *CallStack:
			out = append(out, len(o.Args))
			addr(o.Callee)
			addrs(o.Args)
			addr(o.Dst)
		case *YieldSignal:
			addrs([]Address{o.Object, o.Signal})
		case *YieldResume:
			addr(o.Dst)
		case *Jump:
			out = append(out, o.Target)
		case *JumpIf:
			addr(o.Cond)
			out = append(out, o.Target)
		case *Return:
			addr(o.Value)
		case *Iterate:
			addrs([]Address{o.Counter, o.Container})
			out = append(out, o.Exit)
			addr(o.Iterator)
		case *Assert:
			addrs([]Address{o.Cond, o.Message})
		case *Line:
			out = append(out, o.Line)
		default:
			return nil, fmt.Errorf("cannot encode %s", op.Opcode())
		}
	}
	return out, nil
}
