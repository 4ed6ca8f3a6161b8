package bytecode

import "fmt"

// Address encoding: the kind lives above bit 24, the index below it.
const (
	AddrBits = 24
	AddrMask = (1 << AddrBits) - 1
)

// AddrKind identifies the storage an address refers to.
type AddrKind int

const (
	AddrSelf AddrKind = iota
	AddrClass
	AddrMember
	AddrClassConstant
	AddrLocalConstant
	AddrStack
	AddrStackVariable
	AddrGlobal
	AddrNamedGlobal
	AddrFunction
	AddrLambdaFunction
	AddrNil
)

var addrKindNames = [...]string{
	AddrSelf:           "self",
	AddrClass:          "class",
	AddrMember:         "member",
	AddrClassConstant:  "class_const",
	AddrLocalConstant:  "const",
	AddrStack:          "stack",
	AddrStackVariable:  "var",
	AddrGlobal:         "global",
	AddrNamedGlobal:    "named_global",
	AddrFunction:       "func",
	AddrLambdaFunction: "lambda",
	AddrNil:            "nil",
}

func (k AddrKind) String() string {
	if k >= 0 && int(k) < len(addrKindNames) {
		return addrKindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Address references a storage slot. It never owns the value; backends
// resolve it to a concrete location when emitting code.
//
// Version is only meaningful for stack addresses while the CFG is in SSA
// form. Version 0 names the value the slot holds on function entry.
type Address struct {
	Kind    AddrKind
	Index   int
	Version int
}

// DecodeAddress splits a raw bytecode word into kind and index.
func DecodeAddress(raw int) (Address, error) {
	kind := AddrKind(uint32(raw) >> AddrBits)
	if kind < AddrSelf || kind > AddrNil {
		return Address{}, fmt.Errorf("invalid address kind %d in word %#x", int(kind), uint32(raw))
	}
	return Address{Kind: kind, Index: raw & AddrMask}, nil
}

// Encode packs the address back into a bytecode word. The SSA version is
// not representable and is dropped.
func (a Address) Encode() int {
	return int(a.Kind)<<AddrBits | a.Index&AddrMask
}

// Convenience constructors.
func Stack(slot int) Address  { return Address{Kind: AddrStack, Index: slot} }
func Member(idx int) Address  { return Address{Kind: AddrMember, Index: idx} }
func Const(idx int) Address   { return Address{Kind: AddrLocalConstant, Index: idx} }
func Global(idx int) Address  { return Address{Kind: AddrGlobal, Index: idx} }
func Nil() Address            { return Address{Kind: AddrNil} }
func Self() Address           { return Address{Kind: AddrSelf} }
func Versioned(slot, v int) Address {
	return Address{Kind: AddrStack, Index: slot, Version: v}
}

// IsVar reports whether the address is a function-local stack slot. These
// are the only addresses renamed by SSA construction.
func (a Address) IsVar() bool {
	return a.Kind == AddrStack || a.Kind == AddrStackVariable
}

// IsConst reports whether the address names an immutable constant.
func (a Address) IsConst() bool {
	return a.Kind == AddrClassConstant || a.Kind == AddrLocalConstant
}

// IsNil reports whether the address is the nil literal.
func (a Address) IsNil() bool {
	return a.Kind == AddrNil
}

// Writable reports whether an op may store into the address.
func (a Address) Writable() bool {
	return a.IsVar() || a.Kind == AddrMember
}

// Slot returns the stack slot of a variable address.
func (a Address) Slot() int {
	return a.Index
}

// Var identifies an SSA value: a slot plus a version.
type Var struct {
	Slot    int
	Version int
}

// Var returns the SSA identity of a stack address.
func (a Address) Var() Var {
	return Var{Slot: a.Index, Version: a.Version}
}

func (v Var) String() string {
	return fmt.Sprintf("%%%d.%d", v.Slot, v.Version)
}

// SameValue reports whether two addresses denote the same value. Stack and
// stack-variable addresses for the same slot are interchangeable.
func (a Address) SameValue(b Address) bool {
	if a.IsVar() && b.IsVar() {
		return a.Index == b.Index && a.Version == b.Version
	}
	return a == b
}

func (a Address) String() string {
	switch a.Kind {
	case AddrSelf:
		return "self"
	case AddrClass:
		return "class"
	case AddrNil:
		return "nil"
	case AddrStack, AddrStackVariable:
		if a.Version > 0 {
			return fmt.Sprintf("%%%d.%d", a.Index, a.Version)
		}
		return fmt.Sprintf("%%%d", a.Index)
	}
	return fmt.Sprintf("%s[%d]", a.Kind, a.Index)
}
