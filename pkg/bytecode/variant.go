package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// VariantType is a Godot Variant::Type code.
type VariantType int

const (
	TypeNil VariantType = iota
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
	TypeMax
)

var variantTypeNames = [...]string{
	"Nil", "bool", "int", "float", "String", "Vector2", "Rect2", "Vector3",
	"Transform2D", "Plane", "Quat", "AABB", "Basis", "Transform", "Color",
	"NodePath", "RID", "Object", "Dictionary", "Array", "PoolByteArray",
	"PoolIntArray", "PoolRealArray", "PoolStringArray", "PoolVector2Array",
	"PoolVector3Array", "PoolColorArray",
}

func (t VariantType) String() string {
	if t >= 0 && t < TypeMax {
		return variantTypeNames[t]
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// IsValid reports whether t is a known variant type.
func (t VariantType) IsValid() bool {
	return t >= TypeNil && t < TypeMax
}

// IsValueType reports whether values of t have no identity, which makes
// constructing them side-effect free.
func (t VariantType) IsValueType() bool {
	return t >= TypeNil && t < TypeObject
}

// VariantOperator is a Godot Variant::Operator code.
type VariantOperator int

const (
	OpEqual VariantOperator = iota
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
	OpMax
)

var operatorSymbols = [...]string{
	"==", "!=", "<", "<=", ">", ">=", "+", "-", "*", "/", "neg", "pos", "%",
	"..", "<<", ">>", "&", "|", "^", "~", "and", "or", "xor", "not", "in",
}

func (o VariantOperator) String() string {
	if o >= 0 && o < OpMax {
		return operatorSymbols[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// IsUnary reports whether the operator ignores its second operand.
func (o VariantOperator) IsUnary() bool {
	switch o {
	case OpNegate, OpPositive, OpBitNegate, OpNot:
		return true
	}
	return false
}

// Commutes reports whether operand order does not affect the result.
func (o VariantOperator) Commutes() bool {
	switch o {
	case OpEqual, OpNotEqual, OpMultiply, OpBitAnd, OpBitOr, OpBitXor, OpAnd, OpOr, OpXor:
		return true
	}
	return false
}

// encode_variant header flag marking 64-bit ints and reals.
const encodeFlag64 = 1 << 16

// ErrShortVariant is returned when an encoded variant is truncated.
var ErrShortVariant = errors.New("encoded variant is truncated")

// Value is a decoded constant. Types the compiler does not need to inspect
// are kept opaque: Data holds the full encoding for backends to embed.
type Value struct {
	Type  VariantType
	Bool  bool
	Int   int64
	Real  float64
	Str   string
	Vec   []float64
	Data  []byte
	Known bool
}

// DecodeVariant decodes a Godot encode_variant buffer.
func DecodeVariant(data []byte) (Value, error) {
	if len(data) < 4 {
		return Value{}, ErrShortVariant
	}
	header := binary.LittleEndian.Uint32(data)
	typ := VariantType(header & 0xFF)
	wide := header&encodeFlag64 != 0
	body := data[4:]
	v := Value{Type: typ, Data: data, Known: true}

	switch typ {
	case TypeNil:
	case TypeBool:
		n, err := readU32(body)
		if err != nil {
			return Value{}, err
		}
		v.Bool = n != 0
	case TypeInt:
		if wide {
			if len(body) < 8 {
				return Value{}, ErrShortVariant
			}
			v.Int = int64(binary.LittleEndian.Uint64(body))
		} else {
			n, err := readU32(body)
			if err != nil {
				return Value{}, err
			}
			v.Int = int64(int32(n))
		}
	case TypeReal:
		if wide {
			if len(body) < 8 {
				return Value{}, ErrShortVariant
			}
			v.Real = math.Float64frombits(binary.LittleEndian.Uint64(body))
		} else {
			n, err := readU32(body)
			if err != nil {
				return Value{}, err
			}
			v.Real = float64(math.Float32frombits(n))
		}
	case TypeString:
		s, err := readString(body)
		if err != nil {
			return Value{}, err
		}
		v.Str = s
	case TypeVector2, TypeVector3, TypeColor:
		n := map[VariantType]int{TypeVector2: 2, TypeVector3: 3, TypeColor: 4}[typ]
		if len(body) < 4*n {
			return Value{}, ErrShortVariant
		}
		v.Vec = make([]float64, n)
		for i := range v.Vec {
			v.Vec[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:])))
		}
	default:
		if !typ.IsValid() {
			return Value{}, fmt.Errorf("unknown variant type %d", int(typ))
		}
		v.Known = false
	}
	return v, nil
}

func readU32(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, ErrShortVariant
	}
	return binary.LittleEndian.Uint32(b), nil
}

func readString(b []byte) (string, error) {
	n, err := readU32(b)
	if err != nil {
		return "", err
	}
	if uint64(len(b)-4) < uint64(n) {
		return "", ErrShortVariant
	}
	return string(b[4 : 4+n]), nil
}

// EncodeString produces the encode_variant form of a string. Test fixtures
// and backends that synthesize constants use it.
func EncodeString(s string) []byte {
	n := len(s)
	pad := (4 - n%4) % 4
	out := make([]byte, 8+n+pad)
	binary.LittleEndian.PutUint32(out, uint32(TypeString))
	binary.LittleEndian.PutUint32(out[4:], uint32(n))
	copy(out[8:], s)
	return out
}

// EncodeInt produces the encode_variant form of a 32-bit int.
func EncodeInt(n int32) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint32(out, uint32(TypeInt))
	binary.LittleEndian.PutUint32(out[4:], uint32(n))
	return out
}

// String renders the value in GDScript literal syntax where possible.
func (v Value) String() string {
	if !v.Known {
		return fmt.Sprintf("<%s %d bytes>", v.Type, len(v.Data))
	}
	switch v.Type {
	case TypeNil:
		return "null"
	case TypeBool:
		return strconv.FormatBool(v.Bool)
	case TypeInt:
		return strconv.FormatInt(v.Int, 10)
	case TypeReal:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case TypeString:
		return strconv.Quote(v.Str)
	}
	s := v.Type.String() + "("
	for i, f := range v.Vec {
		if i > 0 {
			s += ", "
		}
		s += strconv.FormatFloat(f, 'g', -1, 64)
	}
	return s + ")"
}
