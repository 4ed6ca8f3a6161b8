// Package project holds the in-memory model of a compiled Godot project:
// classes loaded from bytecode dumps, their functions, and the derived
// annotations the compiler attaches to them.
package project

import (
	"fmt"
	"sort"

	"github.com/chazu/gd2c/compiler/cfg"
	"github.com/chazu/gd2c/pkg/bytecode"
)

// Project owns the classes of one compilation, in dependency order once
// loaded.
type Project struct {
	Name            string
	Root            string
	Classes         []*Class
	GlobalConstants []GlobalConstant

	byPath map[string]*Class
}

// GlobalConstant is an engine-wide constant or singleton visible to
// scripts through GLOBAL addresses.
type GlobalConstant struct {
	Index  int
	Name   string
	Source string
}

// Class returns the class loaded from the given resource path.
func (p *Project) Class(path string) (*Class, bool) {
	c, ok := p.byPath[path]
	return c, ok
}

// Global returns the name of global constant i.
func (p *Project) Global(i int) (string, bool) {
	if i >= 0 && i < len(p.GlobalConstants) {
		return p.GlobalConstants[i].Name, true
	}
	return "", false
}

// Functions returns every function of every class in dependency order.
func (p *Project) Functions() []*Function {
	var out []*Function
	for _, c := range p.Classes {
		out = append(out, c.Functions...)
	}
	return out
}

// DataType describes a declared type of a parameter, member or return.
type DataType struct {
	Type     bytecode.VariantType
	TypeName string
	Kind     int
}

// Member is a script member variable.
type Member struct {
	Index      int
	Name       string
	Kind       int
	Type       bytecode.VariantType
	NativeType string
	HasType    bool
}

// Constant is a class or function constant. Declaration is the constant
// in GDScript literal syntax as exported by the engine.
type Constant struct {
	Name        string
	Declaration string
	Value       bytecode.Value
}

// Resource returns the path of a preloaded resource constant.
func (c Constant) Resource() (string, bool) {
	m := resourceDecl.FindStringSubmatch(c.Declaration)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Class is one GDScript file.
type Class struct {
	Name         string
	Path         string
	Dump         string
	InstanceType string
	BasePath     string
	Base         *Class
	Members      []Member
	Constants    []Constant
	Signals      []string
	Functions    []*Function

	// Deps lists the project classes this class must follow in
	// dependency order.
	Deps []*Class

	byName map[string]*Function
}

// NewClass creates a class and indexes its functions. Function names must
// be unique.
func NewClass(name, path string, functions ...*Function) (*Class, error) {
	c := &Class{Name: name, Path: path}
	for _, f := range functions {
		if err := c.AddFunction(f); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AddFunction appends f to the class.
func (c *Class) AddFunction(f *Function) error {
	if c.byName == nil {
		c.byName = make(map[string]*Function)
	}
	if _, dup := c.byName[f.Name]; dup {
		return fmt.Errorf("%s: duplicate function %q", c.Path, f.Name)
	}
	f.Class = c
	c.byName[f.Name] = f
	c.Functions = append(c.Functions, f)
	return nil
}

// Function looks up a function declared by this class.
func (c *Class) Function(name string) (*Function, bool) {
	f, ok := c.byName[name]
	return f, ok
}

// FindMethod looks up a function through the class and its bases.
func (c *Class) FindMethod(name string) (*Function, bool) {
	for k := c; k != nil; k = k.Base {
		if f, ok := k.Function(name); ok {
			return f, true
		}
	}
	return nil, false
}

// Member returns the member variable with the given index.
func (c *Class) Member(index int) (Member, bool) {
	for _, m := range c.Members {
		if m.Index == index {
			return m, true
		}
	}
	return Member{}, false
}

// MemberCount returns the number of member slots of an instance,
// including inherited ones.
func (c *Class) MemberCount() int {
	n := 0
	for _, m := range c.Members {
		if m.Index+1 > n {
			n = m.Index + 1
		}
	}
	if c.Base != nil && c.Base.MemberCount() > n {
		n = c.Base.MemberCount()
	}
	return n
}

// Parameter is a declared function parameter.
type Parameter struct {
	Name string
	DataType
}

// Function is one compiled method. Code and Ops are immutable after load;
// the CFG is owned transiently between analysis and emission.
type Function struct {
	Name             string
	ID               string
	Class            *Class
	ReturnType       DataType
	Parameters       []Parameter
	StackSize        int
	DefaultArguments []int
	GlobalNames      []string
	Constants        []Constant
	Code             []int
	Ops              []bytecode.Op

	// Annotations, set by analysis and read-only afterwards.
	Yields         bool
	YieldSites     []int
	AwaitSites     []int
	AssignedParams []int
	Loops          []cfg.Loop

	phase Phase
	graph *cfg.CFG
}

// NewFunction decodes code into a function.
func NewFunction(name string, params []Parameter, stackSize int, code []int, defaultArgs []int) (*Function, error) {
	ops, err := bytecode.Decode(code, defaultArgs)
	if err != nil {
		return nil, fmt.Errorf("function %s: %w", name, err)
	}
	return &Function{
		Name:             name,
		Parameters:       params,
		StackSize:        stackSize,
		DefaultArguments: append([]int(nil), defaultArgs...),
		Code:             append([]int(nil), code...),
		Ops:              ops,
	}, nil
}

// QualifiedName returns Class.function for diagnostics.
func (f *Function) QualifiedName() string {
	if f.Class == nil {
		return f.Name
	}
	return f.Class.Name + "." + f.Name
}

// Argc returns the number of declared parameters.
func (f *Function) Argc() int {
	return len(f.Parameters)
}

// GlobalName resolves an index into the function's global name table.
func (f *Function) GlobalName(i int) string {
	if i >= 0 && i < len(f.GlobalNames) {
		return f.GlobalNames[i]
	}
	return fmt.Sprintf("<name %d>", i)
}

// Constant returns local constant i.
func (f *Function) Constant(i int) (Constant, bool) {
	if i >= 0 && i < len(f.Constants) {
		return f.Constants[i], true
	}
	return Constant{}, false
}

// IsParamAssigned reports whether parameter i is written by the body.
func (f *Function) IsParamAssigned(i int) bool {
	j := sort.SearchInts(f.AssignedParams, i)
	return j < len(f.AssignedParams) && f.AssignedParams[j] == i
}

// Listing returns the disassembler input for the function.
func (f *Function) Listing() bytecode.Listing {
	l := bytecode.Listing{
		Name:        f.QualifiedName(),
		StackSize:   f.StackSize,
		GlobalNames: f.GlobalNames,
		Ops:         f.Ops,
	}
	for _, p := range f.Parameters {
		l.Params = append(l.Params, p.Name)
	}
	for _, c := range f.Constants {
		l.Constants = append(l.Constants, c.Value)
	}
	return l
}
