// Package gdrt declares the runtime that Go code generated by gd2c runs
// against: the dynamic Variant value, the Runtime interface generated
// methods call into, coroutine state for yielding methods and the class
// registry generated packages fill.
//
// Engine bindings implement Runtime; this package only holds the parts
// generated code depends on directly.
package gdrt

import (
	"encoding/binary"
	"fmt"
)

// Type is a Variant type code, numbered like the engine's.
type Type int

const (
	TypeNil Type = iota
	TypeBool
	TypeInt
	TypeReal
	TypeString
	TypeVector2
	TypeRect2
	TypeVector3
	TypeTransform2D
	TypePlane
	TypeQuat
	TypeAABB
	TypeBasis
	TypeTransform
	TypeColor
	TypeNodePath
	TypeRID
	TypeObject
	TypeDictionary
	TypeArray
	TypePoolByteArray
	TypePoolIntArray
	TypePoolRealArray
	TypePoolStringArray
	TypePoolVector2Array
	TypePoolVector3Array
	TypePoolColorArray
)

// Operator is a Variant operator code, numbered like the engine's.
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNegate
	OpPositive
	OpModule
	OpStringConcat
	OpShiftLeft
	OpShiftRight
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNegate
	OpAnd
	OpOr
	OpXor
	OpNot
	OpIn
)

// Variant is a dynamically typed value. Value holds bool, int64, float64,
// string, Raw, *Coroutine or whatever the runtime stores for engine types.
type Variant struct {
	Type  Type
	Value any
}

// Raw is a value still in the engine's binary encoding. Runtimes decode
// it on first use.
type Raw []byte

// Nil is the nil Variant.
var Nil = Variant{}

func Bool(b bool) Variant     { return Variant{Type: TypeBool, Value: b} }
func Int(n int64) Variant     { return Variant{Type: TypeInt, Value: n} }
func Real(f float64) Variant  { return Variant{Type: TypeReal, Value: f} }
func String(s string) Variant { return Variant{Type: TypeString, Value: s} }

func Vector2(x, y float64) Variant {
	return Variant{Type: TypeVector2, Value: [2]float64{x, y}}
}
func Vector3(x, y, z float64) Variant {
	return Variant{Type: TypeVector3, Value: [3]float64{x, y, z}}
}
func Color(r, g, b, a float64) Variant {
	return Variant{Type: TypeColor, Value: [4]float64{r, g, b, a}}
}

// Encoded wraps a constant in the engine's binary encoding.
func Encoded(data []byte) Variant {
	var t Type
	if len(data) >= 4 {
		t = Type(binary.LittleEndian.Uint32(data) & 0xFF)
	}
	return Variant{Type: t, Value: Raw(data)}
}

// IsNil reports whether v is nil.
func (v Variant) IsNil() bool {
	return v.Type == TypeNil
}

func (v Variant) String() string {
	switch x := v.Value.(type) {
	case nil:
		return "null"
	case Raw:
		return fmt.Sprintf("<encoded %d bytes>", len(x))
	case *Coroutine:
		return "[GDScriptFunctionState]"
	}
	return fmt.Sprint(v.Value)
}

// encoding flag of 64-bit ints and doubles
const encode64 = 1 << 16

// AsInt returns v as an integer, decoding constants still in the engine
// encoding.
func (v Variant) AsInt() (int64, bool) {
	switch x := v.Value.(type) {
	case int64:
		return x, true
	case Raw:
		if v.Type != TypeInt || len(x) < 8 {
			return 0, false
		}
		if binary.LittleEndian.Uint32(x)&encode64 != 0 {
			if len(x) < 12 {
				return 0, false
			}
			return int64(binary.LittleEndian.Uint64(x[4:])), true
		}
		return int64(int32(binary.LittleEndian.Uint32(x[4:]))), true
	}
	return 0, false
}

// AsString returns v as a string, decoding constants still in the engine
// encoding.
func (v Variant) AsString() (string, bool) {
	switch x := v.Value.(type) {
	case string:
		return x, true
	case Raw:
		if v.Type != TypeString || len(x) < 8 {
			return "", false
		}
		n := int(binary.LittleEndian.Uint32(x[4:]))
		if n < 0 || 8+n > len(x) {
			return "", false
		}
		return string(x[8 : 8+n]), true
	}
	return "", false
}
