package bytecode

import (
	"fmt"
	"strings"
)

// Role describes how an op touches an operand.
type Role uint8

const (
	// RoleNone marks operands that are referenced but neither read as a
	// value nor defined, such as the unused destination of a void call.
	RoleNone Role = iota
	RoleUse
	RoleDef
)

// Synthesized is the position of ops created by the compiler.
const Synthesized = -1

// Op is a single decoded instruction. There is one concrete type per
// opcode shape; passes switch on the type to reach shape-specific fields.
type Op interface {
	Opcode() Opcode

	// Pos returns the word offset of the op in the original stream, or
	// Synthesized.
	Pos() int

	// Operands calls visit with a pointer to every address the op
	// references, in encoding order. Passes rewrite operands through the
	// pointer.
	Operands(visit func(a *Address, role Role))

	String() string
}

// Site records where an op was decoded.
type Site struct {
	Offset int
}

func (s Site) Pos() int { return s.Offset }

// At returns a Site for the given offset.
func At(offset int) Site { return Site{Offset: offset} }

// Operator evaluates a Variant operator.
type Operator struct {
	Site
	Operator VariantOperator
	A, B     Address
	Dst      Address
}

func (*Operator) Opcode() Opcode { return OpOperator }
func (o *Operator) Operands(visit func(*Address, Role)) {
	visit(&o.A, RoleUse)
	visit(&o.B, RoleUse)
	visit(&o.Dst, RoleDef)
}
func (o *Operator) String() string {
	if o.Operator.IsUnary() {
		return fmt.Sprintf("%s = %s %s", o.Dst, o.Operator, o.A)
	}
	return fmt.Sprintf("%s = %s %s %s", o.Dst, o.A, o.Operator, o.B)
}

// ExtendsTest evaluates `A is B` for script and native types.
type ExtendsTest struct {
	Site
	A, B Address
	Dst  Address
}

func (*ExtendsTest) Opcode() Opcode { return OpExtendsTest }
func (o *ExtendsTest) Operands(visit func(*Address, Role)) {
	visit(&o.A, RoleUse)
	visit(&o.B, RoleUse)
	visit(&o.Dst, RoleDef)
}
func (o *ExtendsTest) String() string {
	return fmt.Sprintf("%s = %s is %s", o.Dst, o.A, o.B)
}

// IsBuiltin tests a value against a builtin variant type.
type IsBuiltin struct {
	Site
	Value Address
	Type  VariantType
	Dst   Address
}

func (*IsBuiltin) Opcode() Opcode { return OpIsBuiltin }
func (o *IsBuiltin) Operands(visit func(*Address, Role)) {
	visit(&o.Value, RoleUse)
	visit(&o.Dst, RoleDef)
}
func (o *IsBuiltin) String() string {
	return fmt.Sprintf("%s = %s is %s", o.Dst, o.Value, o.Type)
}

// Set stores Value at Base[Index]. Base is updated in place; in SSA form
// the updated container is a new value named by Target.
type Set struct {
	Site
	Base, Target Address
	Index, Value Address
}

func (*Set) Opcode() Opcode { return OpSet }
func (o *Set) Operands(visit func(*Address, Role)) {
	visit(&o.Base, RoleUse)
	visit(&o.Index, RoleUse)
	visit(&o.Value, RoleUse)
	visit(&o.Target, mutRole(o.Target))
}
func (o *Set) String() string {
	return fmt.Sprintf("%s = %s[%s] <- %s", o.Target, o.Base, o.Index, o.Value)
}

// Get loads Src[Index].
type Get struct {
	Site
	Src, Index Address
	Dst        Address
}

func (*Get) Opcode() Opcode { return OpGet }
func (o *Get) Operands(visit func(*Address, Role)) {
	visit(&o.Src, RoleUse)
	visit(&o.Index, RoleUse)
	visit(&o.Dst, RoleDef)
}
func (o *Get) String() string {
	return fmt.Sprintf("%s = %s[%s]", o.Dst, o.Src, o.Index)
}

// SetNamed stores Value in the named property of Base. Name indexes the
// function's global name table.
type SetNamed struct {
	Site
	Base, Target Address
	Name         int
	Value        Address
}

func (*SetNamed) Opcode() Opcode { return OpSetNamed }
func (o *SetNamed) Operands(visit func(*Address, Role)) {
	visit(&o.Base, RoleUse)
	visit(&o.Value, RoleUse)
	visit(&o.Target, mutRole(o.Target))
}
func (o *SetNamed) String() string {
	return fmt.Sprintf("%s = %s.name[%d] <- %s", o.Target, o.Base, o.Name, o.Value)
}

// GetNamed loads the named property of Src.
type GetNamed struct {
	Site
	Src  Address
	Name int
	Dst  Address
}

func (*GetNamed) Opcode() Opcode { return OpGetNamed }
func (o *GetNamed) Operands(visit func(*Address, Role)) {
	visit(&o.Src, RoleUse)
	visit(&o.Dst, RoleDef)
}
func (o *GetNamed) String() string {
	return fmt.Sprintf("%s = %s.name[%d]", o.Dst, o.Src, o.Name)
}

// SetMember stores Src in the named property of self.
type SetMember struct {
	Site
	Name int
	Src  Address
}

func (*SetMember) Opcode() Opcode { return OpSetMember }
func (o *SetMember) Operands(visit func(*Address, Role)) {
	visit(&o.Src, RoleUse)
}
func (o *SetMember) String() string {
	return fmt.Sprintf("self.name[%d] <- %s", o.Name, o.Src)
}

// GetMember loads the named property of self.
type GetMember struct {
	Site
	Name int
	Dst  Address
}

func (*GetMember) Opcode() Opcode { return OpGetMember }
func (o *GetMember) Operands(visit func(*Address, Role)) {
	visit(&o.Dst, RoleDef)
}
func (o *GetMember) String() string {
	return fmt.Sprintf("%s = self.name[%d]", o.Dst, o.Name)
}

// Assign copies Src into Dst.
type Assign struct {
	Site
	Dst, Src Address
}

func (*Assign) Opcode() Opcode { return OpAssign }
func (o *Assign) Operands(visit func(*Address, Role)) {
	visit(&o.Src, RoleUse)
	visit(&o.Dst, RoleDef)
}
func (o *Assign) String() string {
	return fmt.Sprintf("%s = %s", o.Dst, o.Src)
}

// AssignBool stores a boolean literal (ASSIGN_TRUE / ASSIGN_FALSE).
type AssignBool struct {
	Site
	Dst   Address
	Value bool
}

func (o *AssignBool) Opcode() Opcode {
	if o.Value {
		return OpAssignTrue
	}
	return OpAssignFalse
}
func (o *AssignBool) Operands(visit func(*Address, Role)) {
	visit(&o.Dst, RoleDef)
}
func (o *AssignBool) String() string {
	return fmt.Sprintf("%s = %t", o.Dst, o.Value)
}

// AssignTypedBuiltin assigns with a runtime check against a builtin type.
type AssignTypedBuiltin struct {
	Site
	Type     VariantType
	Dst, Src Address
}

func (*AssignTypedBuiltin) Opcode() Opcode { return OpAssignTypedBuiltin }
func (o *AssignTypedBuiltin) Operands(visit func(*Address, Role)) {
	visit(&o.Src, RoleUse)
	visit(&o.Dst, RoleDef)
}
func (o *AssignTypedBuiltin) String() string {
	return fmt.Sprintf("%s = (%s) %s", o.Dst, o.Type, o.Src)
}

// AssignTypedObject assigns with a runtime check against a native class
// or, when Script is set, a script class.
type AssignTypedObject struct {
	Site
	Script   bool
	Type     Address
	Dst, Src Address
}

func (o *AssignTypedObject) Opcode() Opcode {
	if o.Script {
		return OpAssignTypedScript
	}
	return OpAssignTypedNative
}
func (o *AssignTypedObject) Operands(visit func(*Address, Role)) {
	visit(&o.Type, RoleUse)
	visit(&o.Src, RoleUse)
	visit(&o.Dst, RoleDef)
}
func (o *AssignTypedObject) String() string {
	return fmt.Sprintf("%s = (%s) %s", o.Dst, o.Type, o.Src)
}

// CastToBuiltin converts Src to a builtin type.
type CastToBuiltin struct {
	Site
	Type     VariantType
	Src, Dst Address
}

func (*CastToBuiltin) Opcode() Opcode { return OpCastToBuiltin }
func (o *CastToBuiltin) Operands(visit func(*Address, Role)) {
	visit(&o.Src, RoleUse)
	visit(&o.Dst, RoleDef)
}
func (o *CastToBuiltin) String() string {
	return fmt.Sprintf("%s = %s as %s", o.Dst, o.Src, o.Type)
}

// CastToObject casts Src to a native or script class.
type CastToObject struct {
	Site
	Script   bool
	Type     Address
	Src, Dst Address
}

func (o *CastToObject) Opcode() Opcode {
	if o.Script {
		return OpCastToScript
	}
	return OpCastToNative
}
func (o *CastToObject) Operands(visit func(*Address, Role)) {
	visit(&o.Type, RoleUse)
	visit(&o.Src, RoleUse)
	visit(&o.Dst, RoleDef)
}
func (o *CastToObject) String() string {
	return fmt.Sprintf("%s = %s as %s", o.Dst, o.Src, o.Type)
}

// Construct builds a builtin value from arguments.
type Construct struct {
	Site
	Type VariantType
	Args []Address
	Dst  Address
}

func (*Construct) Opcode() Opcode { return OpConstruct }
func (o *Construct) Operands(visit func(*Address, Role)) {
	visitAll(o.Args, RoleUse, visit)
	visit(&o.Dst, RoleDef)
}
func (o *Construct) String() string {
	return fmt.Sprintf("%s = %s(%s)", o.Dst, o.Type, joinAddrs(o.Args))
}

// ConstructArray builds an Array literal.
type ConstructArray struct {
	Site
	Elems []Address
	Dst   Address
}

func (*ConstructArray) Opcode() Opcode { return OpConstructArray }
func (o *ConstructArray) Operands(visit func(*Address, Role)) {
	visitAll(o.Elems, RoleUse, visit)
	visit(&o.Dst, RoleDef)
}
func (o *ConstructArray) String() string {
	return fmt.Sprintf("%s = [%s]", o.Dst, joinAddrs(o.Elems))
}

// KeyValue is one dictionary literal entry.
type KeyValue struct {
	Key, Value Address
}

// ConstructDictionary builds a Dictionary literal.
type ConstructDictionary struct {
	Site
	Pairs []KeyValue
	Dst   Address
}

func (*ConstructDictionary) Opcode() Opcode { return OpConstructDictionary }
func (o *ConstructDictionary) Operands(visit func(*Address, Role)) {
	for i := range o.Pairs {
		visit(&o.Pairs[i].Key, RoleUse)
		visit(&o.Pairs[i].Value, RoleUse)
	}
	visit(&o.Dst, RoleDef)
}
func (o *ConstructDictionary) String() string {
	parts := make([]string, len(o.Pairs))
	for i, kv := range o.Pairs {
		parts[i] = kv.Key.String() + ": " + kv.Value.String()
	}
	return fmt.Sprintf("%s = {%s}", o.Dst, strings.Join(parts, ", "))
}

// Call invokes a method by name on Base. Calls on value types may mutate
// the receiver, so the receiver after the call is named by Target. Dst is
// only written when Return is set.
type Call struct {
	Site
	Return       bool
	Base, Target Address
	Name         int
	Args         []Address
	Dst          Address
}

func (o *Call) Opcode() Opcode {
	if o.Return {
		return OpCallReturn
	}
	return OpCall
}
func (o *Call) Operands(visit func(*Address, Role)) {
	visit(&o.Base, RoleUse)
	visitAll(o.Args, RoleUse, visit)
	visit(&o.Target, mutRole(o.Target))
	if o.Return {
		visit(&o.Dst, RoleDef)
	} else {
		visit(&o.Dst, RoleNone)
	}
}
func (o *Call) String() string {
	call := fmt.Sprintf("%s.name[%d](%s)", o.Base, o.Name, joinAddrs(o.Args))
	if o.Return {
		return fmt.Sprintf("%s = %s", o.Dst, call)
	}
	return call
}

// CallBuiltin invokes a GDScript builtin function by index.
type CallBuiltin struct {
	Site
	Func int
	Args []Address
	Dst  Address
}

func (*CallBuiltin) Opcode() Opcode { return OpCallBuiltin }
func (o *CallBuiltin) Operands(visit func(*Address, Role)) {
	visitAll(o.Args, RoleUse, visit)
	visit(&o.Dst, RoleDef)
}
func (o *CallBuiltin) String() string {
	return fmt.Sprintf("%s = %s(%s)", o.Dst, BuiltinName(o.Func), joinAddrs(o.Args))
}

// CallSelf is reserved by the interpreter and does nothing.
type CallSelf struct {
	Site
}

func (*CallSelf) Opcode() Opcode { return OpCallSelf }
func (*CallSelf) Operands(func(*Address, Role)) {}
func (*CallSelf) String() string { return "call_self" }

// CallSelfBase calls the base class implementation of a method.
type CallSelfBase struct {
	Site
	Name int
	Args []Address
	Dst  Address
}

func (*CallSelfBase) Opcode() Opcode { return OpCallSelfBase }
func (o *CallSelfBase) Operands(visit func(*Address, Role)) {
	visitAll(o.Args, RoleUse, visit)
	visit(&o.Dst, RoleDef)
}
func (o *CallSelfBase) String() string {
	return fmt.Sprintf("%s = .name[%d](%s)", o.Dst, o.Name, joinAddrs(o.Args))
}

// CallStack calls a callable held in a slot.
type CallStack struct {
	Site
	Return bool
	Callee Address
	Args   []Address
	Dst    Address
}

func (o *CallStack) Opcode() Opcode {
	if o.Return {
		return OpCallStackReturn
	}
	return OpCallStack
}
func (o *CallStack) Operands(visit func(*Address, Role)) {
	visit(&o.Callee, RoleUse)
	visitAll(o.Args, RoleUse, visit)
	if o.Return {
		visit(&o.Dst, RoleDef)
	} else {
		visit(&o.Dst, RoleNone)
	}
}
func (o *CallStack) String() string {
	call := fmt.Sprintf("%s(%s)", o.Callee, joinAddrs(o.Args))
	if o.Return {
		return fmt.Sprintf("%s = %s", o.Dst, call)
	}
	return call
}

// Yield suspends the function until resumed.
type Yield struct {
	Site
}

func (*Yield) Opcode() Opcode { return OpYield }
func (*Yield) Operands(func(*Address, Role)) {}
func (*Yield) String() string { return "yield" }

// YieldSignal suspends the function until Object emits Signal.
type YieldSignal struct {
	Site
	Object, Signal Address
}

func (*YieldSignal) Opcode() Opcode { return OpYieldSignal }
func (o *YieldSignal) Operands(visit func(*Address, Role)) {
	visit(&o.Object, RoleUse)
	visit(&o.Signal, RoleUse)
}
func (o *YieldSignal) String() string {
	return fmt.Sprintf("yield %s, %s", o.Object, o.Signal)
}

// YieldResume receives the value the function was resumed with.
type YieldResume struct {
	Site
	Dst Address
}

func (*YieldResume) Opcode() Opcode { return OpYieldResume }
func (o *YieldResume) Operands(visit func(*Address, Role)) {
	visit(&o.Dst, RoleDef)
}
func (o *YieldResume) String() string {
	return fmt.Sprintf("%s = resume", o.Dst)
}

// Jump transfers control unconditionally.
type Jump struct {
	Site
	Target int
}

func (*Jump) Opcode() Opcode { return OpJump }
func (*Jump) Operands(func(*Address, Role)) {}
func (o *Jump) String() string { return fmt.Sprintf("jump %04d", o.Target) }

// JumpIf branches to Target when Cond is truthy, or falsy when Negate is
// set (JUMP_IF_NOT).
type JumpIf struct {
	Site
	Negate bool
	Cond   Address
	Target int
}

func (o *JumpIf) Opcode() Opcode {
	if o.Negate {
		return OpJumpIfNot
	}
	return OpJumpIf
}
func (o *JumpIf) Operands(visit func(*Address, Role)) {
	visit(&o.Cond, RoleUse)
}
func (o *JumpIf) String() string {
	if o.Negate {
		return fmt.Sprintf("jump %04d if not %s", o.Target, o.Cond)
	}
	return fmt.Sprintf("jump %04d if %s", o.Target, o.Cond)
}

// JumpToDefArgument enters the default-argument initializers. Targets[i]
// is taken when i arguments are missing.
type JumpToDefArgument struct {
	Site
	Targets []int
}

func (*JumpToDefArgument) Opcode() Opcode { return OpJumpToDefArgument }
func (*JumpToDefArgument) Operands(func(*Address, Role)) {}
func (o *JumpToDefArgument) String() string {
	parts := make([]string, len(o.Targets))
	for i, t := range o.Targets {
		parts[i] = fmt.Sprintf("%04d", t)
	}
	return "jump_to_def_argument " + strings.Join(parts, ", ")
}

// Return leaves the function with Value.
type Return struct {
	Site
	Value Address
}

func (*Return) Opcode() Opcode { return OpReturn }
func (o *Return) Operands(visit func(*Address, Role)) {
	visit(&o.Value, RoleUse)
}
func (o *Return) String() string { return "return " + o.Value.String() }

// Iterate advances a for-loop (ITERATE) or starts one (ITERATE_BEGIN).
// The counter is updated in place: Counter is the incoming state and
// CounterOut the updated one. Control goes to Exit when the container is
// exhausted, otherwise falls through into the loop body with Iterator set.
type Iterate struct {
	Site
	Begin      bool
	Counter    Address
	CounterOut Address
	Container  Address
	Exit       int
	Iterator   Address
}

func (o *Iterate) Opcode() Opcode {
	if o.Begin {
		return OpIterateBegin
	}
	return OpIterate
}
func (o *Iterate) Operands(visit func(*Address, Role)) {
	if o.Begin {
		visit(&o.Counter, RoleNone)
	} else {
		visit(&o.Counter, RoleUse)
	}
	visit(&o.Container, RoleUse)
	visit(&o.CounterOut, RoleDef)
	visit(&o.Iterator, RoleDef)
}
func (o *Iterate) String() string {
	verb := "iterate"
	if o.Begin {
		verb = "iterate_begin"
	}
	return fmt.Sprintf("%s = %s %s in %s (counter %s -> %s) else %04d",
		o.Iterator, verb, o.Iterator, o.Container, o.Counter, o.CounterOut, o.Exit)
}

// Assert fails when Cond is falsy.
type Assert struct {
	Site
	Cond, Message Address
}

func (*Assert) Opcode() Opcode { return OpAssert }
func (o *Assert) Operands(visit func(*Address, Role)) {
	visit(&o.Cond, RoleUse)
	visit(&o.Message, RoleUse)
}
func (o *Assert) String() string {
	return fmt.Sprintf("assert %s, %s", o.Cond, o.Message)
}

// Breakpoint is a debugger stop.
type Breakpoint struct {
	Site
}

func (*Breakpoint) Opcode() Opcode { return OpBreakpoint }
func (*Breakpoint) Operands(func(*Address, Role)) {}
func (*Breakpoint) String() string { return "breakpoint" }

// Line marks the source line of the following ops.
type Line struct {
	Site
	Line int
}

func (*Line) Opcode() Opcode { return OpLine }
func (*Line) Operands(func(*Address, Role)) {}
func (o *Line) String() string { return fmt.Sprintf("line %d", o.Line) }

// End terminates the function returning nil.
type End struct {
	Site
}

func (*End) Opcode() Opcode { return OpEnd }
func (*End) Operands(func(*Address, Role)) {}
func (*End) String() string { return "end" }

// Phi merges values at a join block. Args[i] flows in from the block's
// i-th predecessor.
type Phi struct {
	Site
	Dst  Address
	Args []Address
}

func (*Phi) Opcode() Opcode { return OpPhi }
func (o *Phi) Operands(visit func(*Address, Role)) {
	visitAll(o.Args, RoleUse, visit)
	visit(&o.Dst, RoleDef)
}
func (o *Phi) String() string {
	return fmt.Sprintf("%s = phi(%s)", o.Dst, joinAddrs(o.Args))
}

// SuspendKind tells backends how a coroutine is suspended.
type SuspendKind int

const (
	// SuspendYield stops until resumed explicitly.
	SuspendYield SuspendKind = iota
	// SuspendSignal stops until an object emits a signal.
	SuspendSignal
	// SuspendAwait stops only when a called coroutine suspended.
	SuspendAwait
)

func (k SuspendKind) String() string {
	switch k {
	case SuspendYield:
		return "yield"
	case SuspendSignal:
		return "signal"
	case SuspendAwait:
		return "await"
	}
	return fmt.Sprintf("suspend(%d)", int(k))
}

// Suspend saves the live values and returns a continuation for resume
// point Point. Await suspends are conditional: when the awaited value is
// not a pending coroutine, control continues into the resume block.
type Suspend struct {
	Site
	Point          int
	Kind           SuspendKind
	Object, Signal Address
	Awaited        Address
	Live           []Address
}

func (*Suspend) Opcode() Opcode { return OpSuspend }
func (o *Suspend) Operands(visit func(*Address, Role)) {
	switch o.Kind {
	case SuspendSignal:
		visit(&o.Object, RoleUse)
		visit(&o.Signal, RoleUse)
	case SuspendAwait:
		visit(&o.Awaited, RoleUse)
	}
	visitAll(o.Live, RoleUse, visit)
}
func (o *Suspend) String() string {
	s := fmt.Sprintf("suspend #%d %s", o.Point, o.Kind)
	switch o.Kind {
	case SuspendSignal:
		s += fmt.Sprintf(" %s, %s", o.Object, o.Signal)
	case SuspendAwait:
		s += " " + o.Awaited.String()
	}
	return s + " live(" + joinAddrs(o.Live) + ")"
}

// Resume marks the start of the code that runs after resume point Point.
// When entered through the coroutine dispatch the Live values are restored
// into the same names they had when suspending, and Dst (if any) receives
// the value the coroutine was resumed with.
type Resume struct {
	Site
	Point  int
	Live   []Address
	HasDst bool
	Dst    Address
}

func (*Resume) Opcode() Opcode { return OpResume }
func (o *Resume) Operands(visit func(*Address, Role)) {
	visitAll(o.Live, RoleNone, visit)
	if o.HasDst {
		visit(&o.Dst, RoleNone)
	}
}
func (o *Resume) String() string {
	s := fmt.Sprintf("resume #%d live(%s)", o.Point, joinAddrs(o.Live))
	if o.HasDst {
		s += " -> " + o.Dst.String()
	}
	return s
}

// Dispatch is the coroutine entry: it branches to the original entry on
// first call and to the matching resume block afterwards.
type Dispatch struct {
	Site
	Points int
}

func (*Dispatch) Opcode() Opcode { return OpDispatch }
func (*Dispatch) Operands(func(*Address, Role)) {}
func (o *Dispatch) String() string { return fmt.Sprintf("dispatch %d", o.Points) }

// mutRole is the role of a receiver updated in place. Receivers that cannot
// be stored to (constants, self, nil) are left untouched.
func mutRole(a Address) Role {
	if a.Writable() {
		return RoleDef
	}
	return RoleNone
}

func visitAll(addrs []Address, role Role, visit func(*Address, Role)) {
	for i := range addrs {
		visit(&addrs[i], role)
	}
}

func joinAddrs(addrs []Address) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

// Uses returns the addresses op reads.
func Uses(op Op) []Address {
	var out []Address
	op.Operands(func(a *Address, r Role) {
		if r == RoleUse {
			out = append(out, *a)
		}
	})
	return out
}

// Defs returns the addresses op writes.
func Defs(op Op) []Address {
	var out []Address
	op.Operands(func(a *Address, r Role) {
		if r == RoleDef {
			out = append(out, *a)
		}
	})
	return out
}

// Clone returns a deep copy of op so that transforms never alias the
// decoded instruction stream.
func Clone(op Op) Op {
	switch o := op.(type) {
	case *Operator:
		c := *o
		return &c
	case *ExtendsTest:
		c := *o
		return &c
	case *IsBuiltin:
		c := *o
		return &c
	case *Set:
		c := *o
		return &c
	case *Get:
		c := *o
		return &c
	case *SetNamed:
		c := *o
		return &c
	case *GetNamed:
		c := *o
		return &c
	case *SetMember:
		c := *o
		return &c
	case *GetMember:
		c := *o
		return &c
	case *Assign:
		c := *o
		return &c
	case *AssignBool:
		c := *o
		return &c
	case *AssignTypedBuiltin:
		c := *o
		return &c
	case *AssignTypedObject:
		c := *o
		return &c
	case *CastToBuiltin:
		c := *o
		return &c
	case *CastToObject:
		c := *o
		return &c
	case *Construct:
		c := *o
		c.Args = cloneAddrs(o.Args)
		return &c
	case *ConstructArray:
		c := *o
		c.Elems = cloneAddrs(o.Elems)
		return &c
	case *ConstructDictionary:
		c := *o
		c.Pairs = append([]KeyValue(nil), o.Pairs...)
		return &c
	case *Call:
		c := *o
		c.Args = cloneAddrs(o.Args)
		return &c
	case *CallBuiltin:
		c := *o
		c.Args = cloneAddrs(o.Args)
		return &c
	case *CallSelf:
		c := *o
		return &c
	case *CallSelfBase:
		c := *o
		c.Args = cloneAddrs(o.Args)
		return &c
	case *CallStack:
		c := *o
		c.Args = cloneAddrs(o.Args)
		return &c
	case *Yield:
		c := *o
		return &c
	case *YieldSignal:
		c := *o
		return &c
	case *YieldResume:
		c := *o
		return &c
	case *Jump:
		c := *o
		return &c
	case *JumpIf:
		c := *o
		return &c
	case *JumpToDefArgument:
		c := *o
		c.Targets = append([]int(nil), o.Targets...)
		return &c
	case *Return:
		c := *o
		return &c
	case *Iterate:
		c := *o
		return &c
	case *Assert:
		c := *o
		return &c
	case *Breakpoint:
		c := *o
		return &c
	case *Line:
		c := *o
		return &c
	case *End:
		c := *o
		return &c
	case *Phi:
		c := *o
		c.Args = cloneAddrs(o.Args)
		return &c
	case *Suspend:
		c := *o
		c.Live = cloneAddrs(o.Live)
		return &c
	case *Resume:
		c := *o
		c.Live = cloneAddrs(o.Live)
		return &c
	case *Dispatch:
		c := *o
		return &c
	}
	panic(fmt.Sprintf("bytecode: cannot clone %T", op))
}

func cloneAddrs(a []Address) []Address {
	if a == nil {
		return nil
	}
	return append([]Address(nil), a...)
}

// Targets returns the jump offsets named by a branch op.
func Targets(op Op) []int {
	switch o := op.(type) {
	case *Jump:
		return []int{o.Target}
	case *JumpIf:
		return []int{o.Target}
	case *Iterate:
		return []int{o.Exit}
	case *JumpToDefArgument:
		return o.Targets
	}
	return nil
}
