package gdrt

import (
	"testing"

	"github.com/chazu/gd2c/pkg/bytecode"
)

// fakeRuntime implements the few entry points the tests reach.
type fakeRuntime struct {
	Runtime
	connected []*Coroutine
	last      Variant
	immediate bool
	loaded    []string
	converted []Type
}

func (r *fakeRuntime) Load(path string) Variant {
	r.loaded = append(r.loaded, path)
	return String(path)
}

func (r *fakeRuntime) Convert(v Variant, t Type) Variant {
	r.converted = append(r.converted, t)
	return v
}

func (r *fakeRuntime) Call(base Variant, method string, args ...Variant) (Variant, Variant) {
	if r.immediate {
		r.last = Int(1)
	} else {
		r.last = sumResumed(r, base, args, nil)
	}
	return r.last, base
}

func (r *fakeRuntime) Operator(op Operator, a, b Variant) Variant {
	x, y := a.Value.(int64), b.Value.(int64)
	switch op {
	case OpAdd:
		return Int(x + y)
	case OpLess:
		return Bool(x < y)
	}
	panic("unsupported operator")
}

func (r *fakeRuntime) Connect(object, signal Variant, co *Coroutine) {
	r.connected = append(r.connected, co)
}

// sumResumed is shaped like generated code for
//
//	func f(a):
//		var x = yield()
//		var y = yield()
//		return a + x + y
func sumResumed(rt Runtime, self Variant, args []Variant, co *Coroutine) Variant {
	var st [4]Variant
	if co == nil {
		co = NewCoroutine(sumResumed, self)
	}
	switch co.Point() {
	case 1:
		st[0] = co.Restore(0)
		st[1] = co.Resumed()
		goto L1
	case 2:
		st[2] = co.Restore(0)
		st[3] = co.Resumed()
		goto L2
	}
	copy(st[:1], args)
	return Suspend(co, 1, st[0])
L1:
	st[2] = rt.Operator(OpAdd, st[0], st[1])
	return Suspend(co, 2, st[2])
L2:
	return rt.Operator(OpAdd, st[2], st[3])
}

func TestCoroutineResume(t *testing.T) {
	rt := &fakeRuntime{}
	v := sumResumed(rt, Nil, []Variant{Int(1)}, nil)
	co, ok := AsCoroutine(v)
	if !ok || !co.Pending() || co.Point() != 1 {
		t.Fatalf("first call: got %v", v)
	}

	v, err := co.Resume(rt, Int(10))
	if err != nil {
		t.Fatal(err)
	}
	if !IsPending(v) || co.Point() != 2 {
		t.Fatalf("first resume: got %v at point %d", v, co.Point())
	}

	v, err = co.Resume(rt, Int(100))
	if err != nil {
		t.Fatal(err)
	}
	if v.Value != int64(111) {
		t.Errorf("result: got %v, want 111", v)
	}
	if co.Pending() {
		t.Error("completed coroutine still pending")
	}
	if _, err := co.Resume(rt, Nil); err == nil {
		t.Error("resuming a completed coroutine should fail")
	}
}

// awaitInner is shaped like a caller that awaits a yielding method.
func awaitInner(rt Runtime, self Variant, args []Variant, co *Coroutine) Variant {
	var st [2]Variant
	if co == nil {
		co = NewCoroutine(awaitInner, self)
	}
	switch co.Point() {
	case 1:
		st[1] = co.Resumed()
		goto L1
	}
	st[1], _ = rt.Call(self, "sum", Int(1))
	if IsPending(st[1]) {
		return Await(co, 1, st[1])
	}
L1:
	return rt.Operator(OpAdd, st[1], Int(1000))
}

func TestCoroutineAwaitChains(t *testing.T) {
	rt := &fakeRuntime{}
	outer, ok := AsCoroutine(awaitInner(rt, Nil, nil, nil))
	if !ok || !outer.Pending() {
		t.Fatal("caller did not suspend on a pending callee")
	}
	callee, ok := AsCoroutine(rt.last)
	if !ok || callee.next != outer {
		t.Fatal("callee does not continue into the caller")
	}

	if _, err := callee.Resume(rt, Int(10)); err != nil {
		t.Fatal(err)
	}
	v, err := callee.Resume(rt, Int(100))
	if err != nil {
		t.Fatal(err)
	}
	if v.Value != int64(1111) {
		t.Errorf("result: got %v, want 1111", v)
	}
	if outer.Pending() {
		t.Error("caller still pending after the callee completed")
	}
}

func TestAwaitCompletedCallDoesNotSuspend(t *testing.T) {
	rt := &fakeRuntime{immediate: true}
	v := awaitInner(rt, Nil, nil, nil)
	if v.Value != int64(1001) {
		t.Errorf("result: got %v, want 1001", v)
	}
}

func TestNilCoroutineIsFirstCall(t *testing.T) {
	var co *Coroutine
	if co.Point() != 0 || co.Pending() {
		t.Error("nil coroutine is not a first call")
	}
}

func TestSuspendSignalConnects(t *testing.T) {
	rt := &fakeRuntime{}
	co := NewCoroutine(sumResumed, Nil)
	v := SuspendSignal(rt, co, 3, String("timer"), String("timeout"), Int(7))
	if !IsPending(v) || co.Point() != 3 || co.Restore(0).Value != int64(7) {
		t.Fatalf("got %v at point %d", v, co.Point())
	}
	if len(rt.connected) != 1 || rt.connected[0] != co {
		t.Error("coroutine not connected to the signal")
	}
}

func TestEncoded(t *testing.T) {
	v := Encoded(bytecode.EncodeString("res://a.gd"))
	if v.Type != TypeString {
		t.Errorf("type: got %d, want %d", v.Type, TypeString)
	}
	if _, ok := v.Value.(Raw); !ok {
		t.Errorf("value: got %T, want Raw", v.Value)
	}
}

func TestTypeAndOperatorCodesMatchBytecode(t *testing.T) {
	if int(TypePoolColorArray) != int(bytecode.TypePoolColorArray) || int(TypeObject) != int(bytecode.TypeObject) {
		t.Error("variant type codes diverge")
	}
	if int(OpIn) != int(bytecode.OpIn) || int(OpStringConcat) != int(bytecode.OpStringConcat) {
		t.Error("operator codes diverge")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	base := &Class{Name: "Base", Methods: map[string]Method{"f": sumResumed}}
	child := &Class{Name: "Child", Base: "Base", Methods: map[string]Method{"g": awaitInner}}

	if err := r.Register(child); err == nil {
		t.Error("child registered before its base")
	}
	if err := r.Register(base); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(child); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(base); err == nil {
		t.Error("duplicate registration accepted")
	}
	if _, ok := r.Method("Child", "f"); !ok {
		t.Error("inherited method not found")
	}
	if _, ok := r.Method("Child", "h"); ok {
		t.Error("unknown method found")
	}
	if len(r.Classes()) != 2 || r.Classes()[0] != base {
		t.Error("registration order lost")
	}
}

func TestEncodedAccessors(t *testing.T) {
	n, ok := Encoded(bytecode.EncodeInt(-3)).AsInt()
	if !ok || n != -3 {
		t.Errorf("AsInt: got %d, %v", n, ok)
	}
	s, ok := Encoded(bytecode.EncodeString("abc")).AsString()
	if !ok || s != "abc" {
		t.Errorf("AsString: got %q, %v", s, ok)
	}
	if _, ok := Encoded(bytecode.EncodeString("abc")).AsInt(); ok {
		t.Error("string constant read as int")
	}
	if n, ok := Int(9).AsInt(); !ok || n != 9 {
		t.Errorf("AsInt of a decoded int: got %d, %v", n, ok)
	}
}

func TestLoadValueMapsScripts(t *testing.T) {
	rt := &fakeRuntime{}
	LoadValue(rt, Encoded(bytecode.EncodeString("res://enemy.gd")))
	LoadValue(rt, String("res://icon.png"))
	if len(rt.loaded) != 2 || rt.loaded[0] != "res://enemy.gdns" || rt.loaded[1] != "res://icon.png" {
		t.Errorf("loaded: got %v", rt.loaded)
	}
}

func TestConvertValue(t *testing.T) {
	rt := &fakeRuntime{}
	ConvertValue(rt, String("1"), Encoded(bytecode.EncodeInt(int32(TypeInt))))
	if len(rt.converted) != 1 || rt.converted[0] != TypeInt {
		t.Errorf("converted: got %v", rt.converted)
	}
}

func TestRegistryGlobals(t *testing.T) {
	r := NewRegistry()
	names := []string{"", "Input"}
	r.SetGlobals(names)
	names[1] = "changed"
	if g := r.Globals(); len(g) != 2 || g[1] != "Input" {
		t.Errorf("globals: got %v", g)
	}
}
