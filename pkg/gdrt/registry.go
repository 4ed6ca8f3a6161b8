package gdrt

import "fmt"

// Class describes one generated script class.
type Class struct {
	Name         string
	Path         string
	Base         string
	InstanceType string
	Members      []string
	Signals      []string
	Methods      map[string]Method
}

// Registry collects the classes of a generated package. Classes must be
// registered after their base classes.
type Registry struct {
	classes []*Class
	byName  map[string]*Class
	globals []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Class)}
}

// Register adds c.
func (r *Registry) Register(c *Class) error {
	if _, dup := r.byName[c.Name]; dup {
		return fmt.Errorf("class %s registered twice", c.Name)
	}
	if c.Base != "" {
		if _, ok := r.byName[c.Base]; !ok {
			return fmt.Errorf("class %s registered before its base %s", c.Name, c.Base)
		}
	}
	r.byName[c.Name] = c
	r.classes = append(r.classes, c)
	return nil
}

// Class returns the named class.
func (r *Registry) Class(name string) (*Class, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Classes returns the classes in registration order.
func (r *Registry) Classes() []*Class {
	return r.classes
}

// Method resolves name on class, searching base classes.
func (r *Registry) Method(class, name string) (Method, bool) {
	for c, ok := r.byName[class]; ok; c, ok = r.byName[c.Base] {
		if m, found := c.Methods[name]; found {
			return m, true
		}
	}
	return nil, false
}

// SetGlobals records the engine global names generated code refers to by
// index.
func (r *Registry) SetGlobals(names []string) {
	r.globals = append([]string(nil), names...)
}

// Globals returns the name of every global index. Unused indices are
// empty.
func (r *Registry) Globals() []string {
	return r.globals
}
