package gdrt

import "strings"

// Method is the signature of every generated method. args holds the
// arguments the caller passed, which may be fewer than the declared
// parameters when defaults apply. co is nil on a first call and the
// method's own coroutine when it is resumed.
type Method func(rt Runtime, self Variant, args []Variant, co *Coroutine) Variant

// Runtime is everything generated code asks of the engine.
type Runtime interface {
	Operator(op Operator, a, b Variant) Variant
	ExtendsTest(v, class Variant) Variant
	IsBuiltin(v Variant, t Type) Variant

	// Set and SetNamed return the updated container, which differs from
	// base for value types.
	Get(base, index Variant) Variant
	Set(base, index, value Variant) Variant
	GetNamed(base Variant, name string) Variant
	SetNamed(base Variant, name string, value Variant) Variant
	GetProperty(self Variant, name string) Variant
	SetProperty(self Variant, name string, value Variant)

	// Members returns the script member storage of self. Generated code
	// reads and writes it by index.
	Members(self Variant) []Variant

	Convert(v Variant, t Type) Variant
	Cast(v, class Variant) Variant
	Construct(t Type, args ...Variant) Variant
	Array(elems ...Variant) Variant
	Dictionary(pairs ...Variant) Variant

	// Call returns the result and the receiver after the call, which
	// differs from base when a method mutates a value type.
	Call(base Variant, method string, args ...Variant) (result, receiver Variant)
	CallBase(self Variant, method string, args ...Variant) Variant
	CallValue(callee Variant, args ...Variant) Variant
	CallBuiltin(fn int, args ...Variant) Variant

	Load(path string) Variant
	Script(class string) Variant
	// Global resolves an engine global constant by index; the names
	// behind the indices are the Registry's Globals.
	Global(index int) Variant
	NamedGlobal(name string) Variant

	// IterBegin and IterNext drive for loops. ok is false once the
	// container is exhausted.
	IterBegin(container Variant) (counter, item Variant, ok bool)
	IterNext(container, counter Variant) (next, item Variant, ok bool)

	Truth(v Variant) bool
	Assert(cond bool, message Variant)

	// Connect resumes co when object emits signal.
	Connect(object, signal Variant, co *Coroutine)
}

// LoadValue loads the resource named by a runtime value. Script paths are
// mapped to the NativeScript resources that replace them.
func LoadValue(rt Runtime, path Variant) Variant {
	s, ok := path.AsString()
	if !ok {
		s = path.String()
	}
	if strings.HasSuffix(s, ".gd") {
		s = strings.TrimSuffix(s, ".gd") + ".gdns"
	}
	return rt.Load(s)
}

// ConvertValue implements convert(v, type) where the type code is itself
// a value.
func ConvertValue(rt Runtime, v, t Variant) Variant {
	n, _ := t.AsInt()
	return rt.Convert(v, Type(n))
}
