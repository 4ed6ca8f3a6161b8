package bytecode

import (
	"fmt"
	"strings"
)

// Listing is everything the disassembler prints for one function.
type Listing struct {
	Name        string
	Params      []string
	StackSize   int
	GlobalNames []string
	Constants   []Value
	Ops         []Op
}

// Disassemble returns a human-readable listing of a decoded function.
func Disassemble(l Listing) string {
	var sb strings.Builder

	// Header
	if l.Name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", l.Name))
	}
	if len(l.Params) > 0 {
		sb.WriteString(fmt.Sprintf("; Parameters (%d): %s\n", len(l.Params), strings.Join(l.Params, ", ")))
	}
	if l.StackSize > 0 {
		sb.WriteString(fmt.Sprintf("; Stack: %d slots\n", l.StackSize))
	}
	sb.WriteString("\n")

	if len(l.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, c := range l.Constants {
			display := c.String()
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			display = strings.ReplaceAll(display, "\n", "\\n")
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, display))
		}
		sb.WriteString("\n")
	}

	if len(l.GlobalNames) > 0 {
		sb.WriteString("; Names:\n")
		for i, n := range l.GlobalNames {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, n))
		}
		sb.WriteString("\n")
	}

	for _, op := range l.Ops {
		sb.WriteString(DisassembleOp(op, l.GlobalNames))
		sb.WriteString("\n")
	}
	return sb.String()
}

// DisassembleOp renders a single op as one listing line.
func DisassembleOp(op Op, names []string) string {
	pos := "    "
	if op.Pos() >= 0 {
		pos = fmt.Sprintf("%04d", op.Pos())
	}
	line := fmt.Sprintf("%s  %-22s %s", pos, op.Opcode(), op)
	if n, ok := nameOf(op); ok && n >= 0 && n < len(names) {
		line += "  ; " + names[n]
	}
	return line
}

func nameOf(op Op) (int, bool) {
	switch o := op.(type) {
	case *SetNamed:
		return o.Name, true
	case *GetNamed:
		return o.Name, true
	case *SetMember:
		return o.Name, true
	case *GetMember:
		return o.Name, true
	case *Call:
		return o.Name, true
	case *CallSelfBase:
		return o.Name, true
	}
	return 0, false
}
