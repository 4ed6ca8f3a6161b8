package gdrt

import "fmt"

// Coroutine is the resumable state of a suspended method: the point it
// stopped at and the values live across the suspension.
type Coroutine struct {
	fn   Method
	self Variant

	point   int
	saved   []Variant
	resumed Variant
	done    bool

	// next is resumed with this coroutine's result once it completes.
	next *Coroutine
}

// NewCoroutine creates the state of a first call to fn.
func NewCoroutine(fn Method, self Variant) *Coroutine {
	return &Coroutine{fn: fn, self: self}
}

// Point returns the resume point, 0 for a first call. A nil coroutine is
// a first call.
func (c *Coroutine) Point() int {
	if c == nil {
		return 0
	}
	return c.point
}

// Restore returns live value i saved at the last suspension.
func (c *Coroutine) Restore(i int) Variant {
	return c.saved[i]
}

// Resumed returns the value the coroutine was resumed with.
func (c *Coroutine) Resumed() Variant {
	return c.resumed
}

// Pending reports whether the coroutine is suspended.
func (c *Coroutine) Pending() bool {
	return c != nil && c.point > 0 && !c.done
}

func (c *Coroutine) save(point int, live []Variant) {
	c.point = point
	c.saved = append(c.saved[:0], live...)
}

// Resume continues the coroutine with value. When the method completes
// and another coroutine is awaiting it, that one is resumed with the
// result in turn.
func (c *Coroutine) Resume(rt Runtime, value Variant) (Variant, error) {
	if !c.Pending() {
		return Nil, fmt.Errorf("resume of a coroutine that is not suspended")
	}
	c.resumed = value
	result := c.fn(rt, c.self, nil, c)
	if co, ok := AsCoroutine(result); ok && co.Pending() {
		return result, nil
	}
	c.done = true
	if next := c.next; next != nil {
		c.next = nil
		return next.Resume(rt, result)
	}
	return result, nil
}

// AsCoroutine returns the coroutine held by v.
func AsCoroutine(v Variant) (*Coroutine, bool) {
	co, ok := v.Value.(*Coroutine)
	return co, ok
}

// IsPending reports whether v is a suspended coroutine.
func IsPending(v Variant) bool {
	co, ok := AsCoroutine(v)
	return ok && co.Pending()
}

func (c *Coroutine) variant() Variant {
	return Variant{Type: TypeObject, Value: c}
}

// Suspend saves live values for point and returns the coroutine as the
// method's result.
func Suspend(co *Coroutine, point int, live ...Variant) Variant {
	co.save(point, live)
	return co.variant()
}

// SuspendSignal suspends until object emits signal.
func SuspendSignal(rt Runtime, co *Coroutine, point int, object, signal Variant, live ...Variant) Variant {
	co.save(point, live)
	rt.Connect(object, signal, co)
	return co.variant()
}

// Await suspends co until the pending coroutine in awaited completes.
func Await(co *Coroutine, point int, awaited Variant, live ...Variant) Variant {
	inner, _ := AsCoroutine(awaited)
	inner.next = co
	co.save(point, live)
	return co.variant()
}
