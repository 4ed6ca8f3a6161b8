package bytecode

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestDecodeVariantString(t *testing.T) {
	v, err := DecodeVariant(EncodeString("res://player.gd"))
	if err != nil {
		t.Fatalf("DecodeVariant: %v", err)
	}
	if v.Type != TypeString || v.Str != "res://player.gd" {
		t.Errorf("got %+v", v)
	}
	if len(EncodeString("abc"))%4 != 0 {
		t.Error("string encoding must be padded to 4 bytes")
	}
}

func TestDecodeVariantScalars(t *testing.T) {
	v, err := DecodeVariant(EncodeInt(-42))
	if err != nil || v.Int != -42 {
		t.Errorf("int: %+v %v", v, err)
	}

	wide := make([]byte, 12)
	binary.LittleEndian.PutUint32(wide, uint32(TypeReal)|encodeFlag64)
	binary.LittleEndian.PutUint64(wide[4:], math.Float64bits(2.5))
	v, err = DecodeVariant(wide)
	if err != nil || v.Real != 2.5 {
		t.Errorf("real: %+v %v", v, err)
	}

	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b, uint32(TypeBool))
	binary.LittleEndian.PutUint32(b[4:], 1)
	v, err = DecodeVariant(b)
	if err != nil || !v.Bool || v.String() != "true" {
		t.Errorf("bool: %+v %v", v, err)
	}
}

func TestDecodeVariantVector(t *testing.T) {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b, uint32(TypeVector2))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(1))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(-2))
	v, err := DecodeVariant(b)
	if err != nil {
		t.Fatalf("DecodeVariant: %v", err)
	}
	if v.String() != "Vector2(1, -2)" {
		t.Errorf("String() = %q", v.String())
	}
}

func TestDecodeVariantOpaque(t *testing.T) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b, uint32(TypeNodePath))
	v, err := DecodeVariant(b)
	if err != nil {
		t.Fatalf("DecodeVariant: %v", err)
	}
	if v.Known || len(v.Data) != 8 {
		t.Errorf("node path should stay opaque, got %+v", v)
	}
}

func TestDecodeVariantTruncated(t *testing.T) {
	s := EncodeString("hello")
	if _, err := DecodeVariant(s[:9]); !errors.Is(err, ErrShortVariant) {
		t.Errorf("err = %v, want ErrShortVariant", err)
	}
	if _, err := DecodeVariant([]byte{1}); !errors.Is(err, ErrShortVariant) {
		t.Errorf("err = %v, want ErrShortVariant", err)
	}
}

func TestBuiltinTable(t *testing.T) {
	if BuiltinName(0) != "sin" {
		t.Errorf("BuiltinName(0) = %q", BuiltinName(0))
	}
	if BuiltinName(BuiltinConvert) != "convert" || BuiltinName(BuiltinLoad) != "load" {
		t.Error("convert/load indices are wrong")
	}
	if i, ok := BuiltinIndex("print"); !ok || BuiltinName(i) != "print" {
		t.Error("print lookup failed")
	}
	if _, ok := BuiltinIndex("nope"); ok {
		t.Error("unknown builtin resolved")
	}
}
