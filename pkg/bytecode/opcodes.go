package bytecode

import "fmt"

// Opcode identifies a GDScript bytecode instruction. The numeric values of
// the exported opcodes match the Godot 3.x interpreter so raw streams can be
// decoded without translation.
type Opcode int

const (
	// ========================================================================
	// Expressions and assignment (0-20)
	// ========================================================================

	OpOperator           Opcode = iota // OPERATOR <op> <a> <b> <dst>
	OpExtendsTest                      // EXTENDS_TEST <a> <b> <dst>
	OpIsBuiltin                        // IS_BUILTIN <value> <type> <dst>
	OpSet                              // SET <base> <index> <value>
	OpGet                              // GET <src> <index> <dst>
	OpSetNamed                         // SET_NAMED <base> <name> <value>
	OpGetNamed                         // GET_NAMED <src> <name> <dst>
	OpSetMember                        // SET_MEMBER <name> <src>
	OpGetMember                        // GET_MEMBER <name> <dst>
	OpAssign                           // ASSIGN <dst> <src>
	OpAssignTrue                       // ASSIGN_TRUE <dst>
	OpAssignFalse                      // ASSIGN_FALSE <dst>
	OpAssignTypedBuiltin               // ASSIGN_TYPED_BUILTIN <type> <dst> <src>
	OpAssignTypedNative                // ASSIGN_TYPED_NATIVE <type_addr> <dst> <src>
	OpAssignTypedScript                // ASSIGN_TYPED_SCRIPT <type_addr> <dst> <src>
	OpCastToBuiltin                    // CAST_TO_BUILTIN <type> <src> <dst>
	OpCastToNative                     // CAST_TO_NATIVE <type_addr> <src> <dst>
	OpCastToScript                     // CAST_TO_SCRIPT <type_addr> <src> <dst>
	OpConstruct                        // CONSTRUCT <type> <argc> <args...> <dst>
	OpConstructArray                   // CONSTRUCT_ARRAY <argc> <args...> <dst>
	OpConstructDictionary              // CONSTRUCT_DICTIONARY <argc> <k v...> <dst>

	// ========================================================================
	// Calls (21-27)
	// ========================================================================

	OpCall            // CALL <argc> <base> <name> <args...> <dst>
	OpCallReturn      // CALL_RETURN <argc> <base> <name> <args...> <dst>
	OpCallBuiltin     // CALL_BUILT_IN <func> <argc> <args...> <dst>
	OpCallSelf        // CALL_SELF
	OpCallSelfBase    // CALL_SELF_BASE <name> <argc> <args...> <dst>
	OpCallStack       // CALL_STACK <argc> <callee> <args...> <dst>
	OpCallStackReturn // CALL_STACK_RETURN <argc> <callee> <args...> <dst>

	// ========================================================================
	// Coroutines (28-30)
	// ========================================================================

	OpYield       // YIELD
	OpYieldSignal // YIELD_SIGNAL <object> <signal>
	OpYieldResume // YIELD_RESUME <dst>

	// ========================================================================
	// Control flow (31-37)
	// ========================================================================

	OpJump              // JUMP <target>
	OpJumpIf            // JUMP_IF <cond> <target>
	OpJumpIfNot         // JUMP_IF_NOT <cond> <target>
	OpJumpToDefArgument // JUMP_TO_DEF_ARGUMENT (targets from the function table)
	OpReturn            // RETURN <value>
	OpIterateBegin      // ITERATE_BEGIN <counter> <container> <exit> <iterator>
	OpIterate           // ITERATE <counter> <container> <exit> <iterator>

	// ========================================================================
	// Debugging and termination (38-41)
	// ========================================================================

	OpAssert     // ASSERT <cond> <message>
	OpBreakpoint // BREAKPOINT
	OpLine       // LINE <line>
	OpEnd        // END
)

// Synthetic opcodes are produced by the compiler's transforms and never
// appear in exported bytecode.
const (
	OpPhi      Opcode = 0x100 + iota // SSA merge
	OpSuspend                        // coroutine suspension terminator
	OpResume                         // coroutine resume entry
	OpDispatch                       // coroutine entry dispatch terminator
)

// OpcodeFlags classifies opcodes for the builder and the passes.
type OpcodeFlags uint8

const (
	// FlagBranch marks ops that end a block and name jump targets.
	FlagBranch OpcodeFlags = 1 << iota

	// FlagExit marks ops that leave the function.
	FlagExit

	// FlagDebug marks debug-only ops removed by debug stripping.
	FlagDebug

	// FlagPure marks ops without side effects whose result depends only on
	// their operands.
	FlagPure

	// FlagYield marks suspend instructions.
	FlagYield

	// FlagSynthetic marks compiler-generated ops.
	FlagSynthetic
)

// OpcodeInfo contains metadata about an opcode.
type OpcodeInfo struct {
	Name string

	// Width is the fixed instruction width in words including the opcode,
	// or 0 when the width depends on an argument count.
	Width int

	Flags OpcodeFlags
}

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpOperator:            {"OPERATOR", 5, FlagPure},
	OpExtendsTest:         {"EXTENDS_TEST", 4, 0},
	OpIsBuiltin:           {"IS_BUILTIN", 4, FlagPure},
	OpSet:                 {"SET", 4, 0},
	OpGet:                 {"GET", 4, 0},
	OpSetNamed:            {"SET_NAMED", 4, 0},
	OpGetNamed:            {"GET_NAMED", 4, 0},
	OpSetMember:           {"SET_MEMBER", 3, 0},
	OpGetMember:           {"GET_MEMBER", 3, 0},
	OpAssign:              {"ASSIGN", 3, 0},
	OpAssignTrue:          {"ASSIGN_TRUE", 2, 0},
	OpAssignFalse:         {"ASSIGN_FALSE", 2, 0},
	OpAssignTypedBuiltin:  {"ASSIGN_TYPED_BUILTIN", 4, 0},
	OpAssignTypedNative:   {"ASSIGN_TYPED_NATIVE", 4, 0},
	OpAssignTypedScript:   {"ASSIGN_TYPED_SCRIPT", 4, 0},
	OpCastToBuiltin:       {"CAST_TO_BUILTIN", 4, FlagPure},
	OpCastToNative:        {"CAST_TO_NATIVE", 4, 0},
	OpCastToScript:        {"CAST_TO_SCRIPT", 4, 0},
	OpConstruct:           {"CONSTRUCT", 0, 0},
	OpConstructArray:      {"CONSTRUCT_ARRAY", 0, 0},
	OpConstructDictionary: {"CONSTRUCT_DICTIONARY", 0, 0},
	OpCall:                {"CALL", 0, 0},
	OpCallReturn:          {"CALL_RETURN", 0, 0},
	OpCallBuiltin:         {"CALL_BUILT_IN", 0, 0},
	OpCallSelf:            {"CALL_SELF", 1, 0},
	OpCallSelfBase:        {"CALL_SELF_BASE", 0, 0},
	OpCallStack:           {"CALL_STACK", 0, 0},
	OpCallStackReturn:     {"CALL_STACK_RETURN", 0, 0},
	OpYield:               {"YIELD", 1, FlagYield},
	OpYieldSignal:         {"YIELD_SIGNAL", 3, FlagYield},
	OpYieldResume:         {"YIELD_RESUME", 2, 0},
	OpJump:                {"JUMP", 2, FlagBranch},
	OpJumpIf:              {"JUMP_IF", 3, FlagBranch},
	OpJumpIfNot:           {"JUMP_IF_NOT", 3, FlagBranch},
	OpJumpToDefArgument:   {"JUMP_TO_DEF_ARGUMENT", 1, FlagBranch},
	OpReturn:              {"RETURN", 2, FlagExit},
	OpIterateBegin:        {"ITERATE_BEGIN", 5, FlagBranch},
	OpIterate:             {"ITERATE", 5, FlagBranch},
	OpAssert:              {"ASSERT", 3, 0},
	OpBreakpoint:          {"BREAKPOINT", 1, FlagDebug},
	OpLine:                {"LINE", 2, FlagDebug},
	OpEnd:                 {"END", 1, FlagExit},

	OpPhi:      {"PHI", 0, FlagSynthetic},
	OpSuspend:  {"SUSPEND", 0, FlagSynthetic | FlagExit},
	OpResume:   {"RESUME", 0, FlagSynthetic},
	OpDispatch: {"DISPATCH", 0, FlagSynthetic | FlagBranch},
}

// GetOpcodeInfo returns metadata for an opcode.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%d", int(op))}
}

// String returns the opcode mnemonic.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsValid reports whether op is a known opcode.
func (op Opcode) IsValid() bool {
	_, ok := opcodeTable[op]
	return ok
}

// Is reports whether the opcode carries all of the given flags.
func (op Opcode) Is(flags OpcodeFlags) bool {
	return GetOpcodeInfo(op).Flags&flags == flags
}

// IsBranch reports whether op transfers control to explicit targets.
func (op Opcode) IsBranch() bool {
	return op.Is(FlagBranch)
}

// IsExit reports whether op leaves the function.
func (op Opcode) IsExit() bool {
	return op.Is(FlagExit)
}

// IsTerminator reports whether op must be the last op of a basic block.
func (op Opcode) IsTerminator() bool {
	return op.IsBranch() || op.IsExit()
}

// IsDebug reports whether op only carries debug information.
func (op Opcode) IsDebug() bool {
	return op.Is(FlagDebug)
}

// IsYield reports whether op suspends the running function.
func (op Opcode) IsYield() bool {
	return op.Is(FlagYield)
}

// IsPure reports whether op has no side effects.
func (op Opcode) IsPure() bool {
	return op.Is(FlagPure)
}

// IsSynthetic reports whether op is compiler-generated.
func (op Opcode) IsSynthetic() bool {
	return op.Is(FlagSynthetic)
}
