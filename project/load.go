package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/tliron/commonlog"

	"github.com/chazu/gd2c/manifest"
	"github.com/chazu/gd2c/pkg/bytecode"
)

var log = commonlog.GetLogger("gd2c.project")

// DumpSuffix is the file suffix of exported bytecode dumps.
const DumpSuffix = ".gd.json"

// ErrMalformed is wrapped by errors caused by unreadable dump files.
var ErrMalformed = errors.New("malformed bytecode dump")

var resourceDecl = regexp.MustCompile(`Resource\(\s*"(res://[^"]+)"\s*\)`)

// Source is a directory of bytecode dumps and the resource path prefix its
// scripts are mounted at.
type Source struct {
	Dir   string
	Mount string
}

// Load reads every dump under root, mounted at res://.
func Load(root string) (*Project, error) {
	return LoadSources(filepath.Base(root), Source{Dir: root, Mount: "res://"})
}

// LoadSources reads every dump under the given sources and returns the
// project with classes in dependency order. All load errors are collected
// before giving up.
func LoadSources(name string, sources ...Source) (*Project, error) {
	var errs *multierror.Error
	var classes []*Class
	var globals []GlobalConstant

	for _, src := range sources {
		paths, err := findDumps(src.Dir)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		for _, path := range paths {
			rel, err := filepath.Rel(src.Dir, path)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			resPath := joinRes(src.Mount, filepath.ToSlash(strings.TrimSuffix(rel, ".json")))

			c, g, err := LoadFile(path, resPath)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			if globals == nil {
				globals = g
			}
			classes = append(classes, c)
			log.Debugf("loaded %s (%d functions)", resPath, len(c.Functions))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	p, err := New(name, classes...)
	if err != nil {
		return nil, err
	}
	p.GlobalConstants = globals
	if len(sources) > 0 {
		p.Root = sources[0].Dir
	}
	log.Infof("loaded project %s: %d classes", p.Name, len(p.Classes))
	return p, nil
}

func joinRes(mount, rel string) string {
	if strings.HasSuffix(mount, "/") {
		return mount + rel
	}
	return mount + "/" + rel
}

func findDumps(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), DumpSuffix) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// New links classes into a project: resolves bases and resource
// references, names classes uniquely and orders them by dependency.
func New(name string, classes ...*Class) (*Project, error) {
	p := &Project{Name: name, byPath: make(map[string]*Class)}
	for _, c := range classes {
		if _, dup := p.byPath[c.Path]; dup {
			return nil, fmt.Errorf("duplicate class %s", c.Path)
		}
		p.byPath[c.Path] = c
	}

	assignNames(classes)

	for _, c := range classes {
		c.Base, c.Deps = nil, nil
		if c.BasePath != "" {
			if b, ok := p.byPath[c.BasePath]; ok {
				c.Base = b
				c.Deps = append(c.Deps, b)
			}
		}
		for _, path := range c.references() {
			if d, ok := p.byPath[path]; ok && d != c && !containsClass(c.Deps, d) {
				c.Deps = append(c.Deps, d)
			}
		}
	}

	ordered, err := dependencyOrder(classes)
	if err != nil {
		return nil, err
	}
	p.Classes = ordered
	return p, nil
}

// references returns the resource paths preloaded by the class and its
// functions, in declaration order.
func (c *Class) references() []string {
	var out []string
	add := func(k Constant) {
		if path, ok := k.Resource(); ok {
			out = append(out, path)
		}
	}
	for _, k := range c.Constants {
		add(k)
	}
	for _, f := range c.Functions {
		for _, k := range f.Constants {
			add(k)
		}
	}
	return out
}

func containsClass(list []*Class, c *Class) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}

// assignNames derives class symbols from file stems, qualifying them with
// their directory when two scripts share a stem.
func assignNames(classes []*Class) {
	count := make(map[string]int)
	for _, c := range classes {
		if c.Name == "" {
			c.Name = manifest.ClassSymbol(stem(c.Path))
		}
		count[c.Name]++
	}
	for _, c := range classes {
		if count[c.Name] > 1 {
			rel := strings.TrimPrefix(c.Path, "res://")
			c.Name = manifest.ClassSymbol(strings.TrimSuffix(rel, filepath.Ext(rel)))
		}
	}
}

func stem(resPath string) string {
	base := filepath.Base(strings.TrimPrefix(resPath, "res://"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// JSON schema of the engine's bytecode exporter.

type dumpFile struct {
	GlobalConstants []dumpGlobal   `json:"global_constants"`
	Type            string         `json:"type"`
	BaseType        *string        `json:"base_type"`
	Members         []dumpMember   `json:"members"`
	Constants       []dumpConstant `json:"constants"`
	Signals         []string       `json:"signals"`
	Methods         []dumpMethod   `json:"methods"`
}

type dumpGlobal struct {
	Source string `json:"source"`
	Name   string `json:"name"`
	Index  int    `json:"index"`
}

type dumpMember struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Kind       int    `json:"kind"`
	Type       int    `json:"type"`
	NativeType string `json:"native_type"`
	HasType    bool   `json:"has_type"`
}

type dumpConstant struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Declaration string `json:"declaration"`
	Type        int    `json:"type"`
	TypeName    string `json:"type_name"`
	Data        []int  `json:"data"`
}

type dumpType struct {
	Type     int    `json:"type"`
	TypeName string `json:"type_name"`
	Kind     int    `json:"kind"`
}

type dumpMethod struct {
	Name             string         `json:"name"`
	ID               string         `json:"id"`
	ReturnType       dumpType       `json:"return_type"`
	StackSize        int            `json:"stack_size"`
	Parameters       []dumpParam    `json:"parameters"`
	DefaultArguments []int          `json:"default_arguments"`
	GlobalNames      []string       `json:"global_names"`
	Constants        []dumpConstant `json:"constants"`
	Bytecode         []int          `json:"bytecode"`
}

type dumpParam struct {
	Name string `json:"name"`
	dumpType
}

// LoadFile reads one dump. resPath is the resource path of the script it
// was exported from. The file's global constant table is returned
// alongside the class.
func LoadFile(path, resPath string) (*Class, []GlobalConstant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var dump dumpFile
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %v", path, ErrMalformed, err)
	}

	c := &Class{
		Path:         resPath,
		Dump:         path,
		InstanceType: dump.Type,
		Signals:      dump.Signals,
	}
	if dump.BaseType != nil {
		c.BasePath = *dump.BaseType
	}
	for _, m := range dump.Members {
		c.Members = append(c.Members, Member{
			Index:      m.Index,
			Name:       m.Name,
			Kind:       m.Kind,
			Type:       bytecode.VariantType(m.Type),
			NativeType: m.NativeType,
			HasType:    m.HasType,
		})
	}

	var errs *multierror.Error
	for _, k := range dump.Constants {
		v, err := decodeConstant(k)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: constant %s: %w", path, k.Name, err))
			continue
		}
		c.Constants = append(c.Constants, v)
	}

	for _, m := range dump.Methods {
		f, err := loadMethod(m)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if err := c.AddFunction(f); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, nil, err
	}

	globals := make([]GlobalConstant, 0, len(dump.GlobalConstants))
	for _, g := range dump.GlobalConstants {
		globals = append(globals, GlobalConstant{Index: g.Index, Name: g.Name, Source: g.Source})
	}
	sort.Slice(globals, func(i, j int) bool { return globals[i].Index < globals[j].Index })
	return c, globals, nil
}

func loadMethod(m dumpMethod) (*Function, error) {
	params := make([]Parameter, len(m.Parameters))
	for i, p := range m.Parameters {
		params[i] = Parameter{Name: p.Name, DataType: DataType{
			Type: bytecode.VariantType(p.Type), TypeName: p.TypeName, Kind: p.Kind,
		}}
	}

	f, err := NewFunction(m.Name, params, m.StackSize, m.Bytecode, m.DefaultArguments)
	if err != nil {
		return nil, err
	}
	f.ID = m.ID
	f.GlobalNames = m.GlobalNames
	f.ReturnType = DataType{Type: bytecode.VariantType(m.ReturnType.Type), TypeName: m.ReturnType.TypeName, Kind: m.ReturnType.Kind}

	for _, k := range m.Constants {
		v, err := decodeConstant(k)
		if err != nil {
			return nil, fmt.Errorf("function %s: constant %d: %w", m.Name, k.Index, err)
		}
		f.Constants = append(f.Constants, v)
	}

	if err := checkAddresses(f); err != nil {
		return nil, err
	}
	return f, nil
}

func decodeConstant(k dumpConstant) (Constant, error) {
	buf := make([]byte, len(k.Data))
	for i, b := range k.Data {
		if b < 0 || b > 255 {
			return Constant{}, fmt.Errorf("%w: byte %d out of range", ErrMalformed, b)
		}
		buf[i] = byte(b)
	}
	v, err := bytecode.DecodeVariant(buf)
	if err != nil {
		return Constant{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Constant{Name: k.Name, Declaration: k.Declaration, Value: v}, nil
}

// checkAddresses rejects stack and constant addresses outside the
// function's tables.
func checkAddresses(f *Function) error {
	var err error
	for _, op := range f.Ops {
		op.Operands(func(a *bytecode.Address, _ bytecode.Role) {
			if err != nil {
				return
			}
			switch {
			case a.IsVar() && a.Index >= f.StackSize:
				err = fmt.Errorf("function %s: %w: offset %d: stack slot %d beyond stack size %d",
					f.Name, bytecode.ErrMalformed, op.Pos(), a.Index, f.StackSize)
			case a.Kind == bytecode.AddrLocalConstant && a.Index >= len(f.Constants):
				err = fmt.Errorf("function %s: %w: offset %d: constant %d beyond table of %d",
					f.Name, bytecode.ErrMalformed, op.Pos(), a.Index, len(f.Constants))
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}
