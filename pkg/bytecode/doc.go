// Package bytecode models the GDScript bytecode exported by Godot 3.x:
// opcodes, addresses, decoded instructions and constant values.
//
// A function's raw word stream is decoded once with Decode into a slice of
// Op values. Each opcode shape has its own Go type, so passes reach the
// fields they need through a type switch, and every op exposes its
// operands through Operands with a use/def role so transforms can rename
// them in place.
//
// Synthetic opcodes (PHI, SUSPEND, RESUME, DISPATCH) never appear in input
// bytecode; the compiler introduces them while transforming a function.
package bytecode
