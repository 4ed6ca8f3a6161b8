package bytecode

import (
	"errors"
	"strings"
	"testing"
)

func s(i int) int { return Stack(i).Encode() }
func k(i int) int { return Const(i).Encode() }

func TestDecodeAddress(t *testing.T) {
	a, err := DecodeAddress(5<<AddrBits | 7)
	if err != nil {
		t.Fatalf("DecodeAddress: %v", err)
	}
	if a.Kind != AddrStack || a.Index != 7 {
		t.Errorf("got %+v, want stack 7", a)
	}
	if a.Encode() != 5<<AddrBits|7 {
		t.Errorf("Encode() = %#x", a.Encode())
	}
	if _, err := DecodeAddress(12 << AddrBits); err == nil {
		t.Error("kind 12 should be rejected")
	}
}

func TestDecodeFixedWidths(t *testing.T) {
	// Each instruction followed by END; the decoder must land exactly on END.
	tests := []struct {
		name string
		code []int
		want Opcode
	}{
		{"operator", []int{int(OpOperator), int(OpAdd), s(0), s(1), s(2)}, OpOperator},
		{"extends", []int{int(OpExtendsTest), s(0), s(1), s(2)}, OpExtendsTest},
		{"is_builtin", []int{int(OpIsBuiltin), s(0), int(TypeInt), s(2)}, OpIsBuiltin},
		{"set", []int{int(OpSet), s(0), s(1), s(2)}, OpSet},
		{"get", []int{int(OpGet), s(0), s(1), s(2)}, OpGet},
		{"set_named", []int{int(OpSetNamed), s(0), 0, s(2)}, OpSetNamed},
		{"get_named", []int{int(OpGetNamed), s(0), 0, s(2)}, OpGetNamed},
		{"set_member", []int{int(OpSetMember), 0, s(2)}, OpSetMember},
		{"get_member", []int{int(OpGetMember), 0, s(2)}, OpGetMember},
		{"assign", []int{int(OpAssign), s(0), s(1)}, OpAssign},
		{"assign_true", []int{int(OpAssignTrue), s(0)}, OpAssignTrue},
		{"assign_false", []int{int(OpAssignFalse), s(0)}, OpAssignFalse},
		{"assign_typed", []int{int(OpAssignTypedBuiltin), int(TypeInt), s(0), s(1)}, OpAssignTypedBuiltin},
		{"assign_native", []int{int(OpAssignTypedNative), Global(0).Encode(), s(0), s(1)}, OpAssignTypedNative},
		{"cast", []int{int(OpCastToBuiltin), int(TypeReal), s(0), s(1)}, OpCastToBuiltin},
		{"cast_script", []int{int(OpCastToScript), k(0), s(0), s(1)}, OpCastToScript},
		{"construct", []int{int(OpConstruct), int(TypeVector2), 2, s(0), s(1), s(2)}, OpConstruct},
		{"array", []int{int(OpConstructArray), 1, s(0), s(1)}, OpConstructArray},
		{"dict", []int{int(OpConstructDictionary), 1, s(0), s(1), s(2)}, OpConstructDictionary},
		{"call", []int{int(OpCall), 1, s(0), 0, s(1), s(2)}, OpCall},
		{"call_return", []int{int(OpCallReturn), 0, Self().Encode(), 0, s(2)}, OpCallReturn},
		{"call_builtin", []int{int(OpCallBuiltin), 0, 1, s(0), s(1)}, OpCallBuiltin},
		{"call_self_base", []int{int(OpCallSelfBase), 0, 1, s(0), s(1)}, OpCallSelfBase},
		{"call_stack", []int{int(OpCallStackReturn), 1, s(0), s(1), s(2)}, OpCallStackReturn},
		{"yield", []int{int(OpYield)}, OpYield},
		{"yield_signal", []int{int(OpYieldSignal), s(0), k(0)}, OpYieldSignal},
		{"yield_resume", []int{int(OpYieldResume), s(0)}, OpYieldResume},
		{"return", []int{int(OpReturn), s(0)}, OpReturn},
		{"assert", []int{int(OpAssert), s(0), k(0)}, OpAssert},
		{"breakpoint", []int{int(OpBreakpoint)}, OpBreakpoint},
		{"line", []int{int(OpLine), 12}, OpLine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := append(append([]int{}, tt.code...), int(OpEnd))
			ops, err := Decode(code, nil)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(ops) != 2 {
				t.Fatalf("got %d ops, want 2", len(ops))
			}
			if ops[0].Opcode() != tt.want {
				t.Errorf("opcode = %s, want %s", ops[0].Opcode(), tt.want)
			}
			if ops[1].Pos() != len(tt.code) {
				t.Errorf("END at %d, want %d", ops[1].Pos(), len(tt.code))
			}
			if w := GetOpcodeInfo(tt.want).Width; w != 0 && w != len(tt.code) {
				t.Errorf("table width %d, encoded width %d", w, len(tt.code))
			}
		})
	}
}

func TestDecodeOperands(t *testing.T) {
	code := []int{int(OpCallReturn), 2, s(3), 4, s(0), k(1), s(5), int(OpEnd)}
	ops, err := Decode(code, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	call, ok := ops[0].(*Call)
	if !ok {
		t.Fatalf("got %T, want *Call", ops[0])
	}
	if call.Base != Stack(3) || call.Target != Stack(3) || call.Name != 4 {
		t.Errorf("bad call fields: %+v", call)
	}
	if len(call.Args) != 2 || call.Args[1] != Const(1) {
		t.Errorf("bad args: %v", call.Args)
	}

	uses := Uses(call)
	defs := Defs(call)
	if len(uses) != 3 {
		t.Errorf("uses = %v, want base and two args", uses)
	}
	if len(defs) != 2 || defs[0] != Stack(3) || defs[1] != Stack(5) {
		t.Errorf("defs = %v, want receiver and result", defs)
	}
}

func TestDecodeVoidCallOnConstant(t *testing.T) {
	code := []int{int(OpCall), 0, k(0), 0, s(0), int(OpEnd)}
	ops, err := Decode(code, nil)
	if err != nil {
		t.Fatalf("call on a constant receiver must decode: %v", err)
	}
	if defs := Defs(ops[0]); len(defs) != 0 {
		t.Errorf("void call on constant defines %v", defs)
	}
}

func TestDecodeDefaultArguments(t *testing.T) {
	code := []int{
		int(OpJumpToDefArgument),
		int(OpAssign), s(1), k(0),
		int(OpEnd),
	}
	ops, err := Decode(code, []int{4, 1})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	j := ops[0].(*JumpToDefArgument)
	if len(j.Targets) != 2 || j.Targets[0] != 4 || j.Targets[1] != 1 {
		t.Errorf("targets = %v", j.Targets)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		code []int
		msg  string
	}{
		{"unknown opcode", []int{77}, "unknown opcode"},
		{"truncated", []int{int(OpOperator), int(OpAdd), s(0)}, "truncated"},
		{"truncated args", []int{int(OpCallBuiltin), 0, 5, s(0)}, "truncated"},
		{"bad address", []int{int(OpReturn), 15 << AddrBits}, "invalid address kind"},
		{"target out of range", []int{int(OpJump), 40, int(OpEnd)}, "outside stream"},
		{"misaligned target", []int{int(OpJump), 1, int(OpEnd)}, "not an instruction start"},
		{"read-only def", []int{int(OpAssign), k(0), s(0), int(OpEnd)}, "read-only"},
		{"unknown builtin", []int{int(OpCallBuiltin), 999, 0, s(0), int(OpEnd)}, "unknown builtin"},
		{"def arg without table", []int{int(OpJumpToDefArgument), int(OpEnd)}, "without default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.code, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("error %v does not wrap ErrMalformed", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err, tt.msg)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	code := []int{
		int(OpLine), 3,
		int(OpOperator), int(OpLess), s(0), k(0), s(2),
		int(OpJumpIfNot), s(2), 17,
		int(OpConstructDictionary), 1, k(1), s(0), s(3),
		int(OpReturn), s(3),
		int(OpIterateBegin), s(4), s(3), 24, s(5),
		int(OpJump), 17,
		int(OpCallBuiltin), 62, 1, s(0), s(6),
		int(OpEnd),
	}
	ops, err := Decode(code, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := Encode(ops)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(got) != len(code) {
		t.Fatalf("encoded %d words, want %d", len(got), len(code))
	}
	for i := range code {
		if got[i] != code[i] {
			t.Errorf("word %d = %d, want %d", i, got[i], code[i])
		}
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	orig := &Construct{Site: At(0), Type: TypeVector2, Args: []Address{Stack(0), Stack(1)}, Dst: Stack(2)}
	c := Clone(orig).(*Construct)
	c.Args[0] = Stack(9)
	c.Dst = Stack(8)
	if orig.Args[0] != Stack(0) || orig.Dst != Stack(2) {
		t.Error("Clone shares operand storage with the original")
	}
}

func TestOperandRewrite(t *testing.T) {
	op := &Operator{Operator: OpAdd, A: Stack(0), B: Stack(0), Dst: Stack(0)}
	op.Operands(func(a *Address, r Role) {
		if r == RoleUse {
			a.Version = 1
		} else {
			a.Version = 2
		}
	})
	if op.A.Version != 1 || op.B.Version != 1 || op.Dst.Version != 2 {
		t.Errorf("rewrite through Operands failed: %s", op)
	}
}
