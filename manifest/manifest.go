// Package manifest handles gd2c.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "gd2c.toml"

// MaxIterations bounds the optimization fixed point loop. Configuration may
// lower the bound but never raise it.
const MaxIterations = 10

// Manifest represents a gd2c.toml project configuration.
type Manifest struct {
	Project      Project               `toml:"project"`
	Build        Build                 `toml:"build"`
	Optimize     Optimize              `toml:"optimize"`
	Builtins     Builtins              `toml:"builtins"`
	Dependencies map[string]Dependency `toml:"dependencies"`

	// Dir is the directory containing the gd2c.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// Build configures the compilation pipeline.
type Build struct {
	Target        string `toml:"target"`
	Output        string `toml:"output"`
	SSA           bool   `toml:"ssa"`
	StripDebug    bool   `toml:"strip-debug"`
	MaxIterations int    `toml:"max-iterations"`
	Incremental   bool   `toml:"incremental"`
}

// Optimize selects the SSA passes run by the fixed point driver.
type Optimize struct {
	Passes []string `toml:"passes"`
}

// Builtins configures builtin call lowering.
type Builtins struct {
	Disallow []string `toml:"disallow"`
}

// Dependency is an extra tree of bytecode dumps compiled with the project,
// typically an addon. Mount is the resource path prefix its scripts live
// under.
type Dependency struct {
	Path  string `toml:"path"`
	Mount string `toml:"mount"`
}

// DefaultPasses lists the optimization passes enabled by default.
var DefaultPasses = []string{"cse", "copy-elimination", "dead-code", "redundant-phi"}

// Default returns the configuration used when no gd2c.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	m.Build.SSA = true
	m.Build.StripDebug = true
	m.Build.Incremental = true
	m.Optimize.Passes = append([]string(nil), DefaultPasses...)
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Project.Name == "" && m.Dir != "" {
		m.Project.Name = filepath.Base(m.Dir)
	}
	if m.Build.Target == "" {
		m.Build.Target = "gdnative"
	}
	if m.Build.Output == "" {
		m.Build.Output = "native"
	}
	if m.Build.MaxIterations == 0 {
		m.Build.MaxIterations = MaxIterations
	}
}

// Load parses a gd2c.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Booleans and pass lists default to on; values present in the file
	// overwrite them.
	m := Default(absDir)
	m.Optimize.Passes = nil
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if !md.IsDefined("optimize", "passes") {
		m.Optimize.Passes = append([]string(nil), DefaultPasses...)
	}
	m.Dir = absDir
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return m, nil
}

// LoadOrDefault loads gd2c.toml from dir, falling back to defaults when the
// file does not exist.
func LoadOrDefault(dir string) (*Manifest, error) {
	m, err := Load(dir)
	if errors.Is(err, os.ErrNotExist) {
		abs, aerr := filepath.Abs(dir)
		if aerr != nil {
			return nil, fmt.Errorf("cannot resolve path %s: %w", dir, aerr)
		}
		return Default(abs), nil
	}
	return m, err
}

// FindAndLoad walks up from startDir to find a gd2c.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks values that have a fixed legal range.
func (m *Manifest) Validate() error {
	if m.Build.MaxIterations < 1 || m.Build.MaxIterations > MaxIterations {
		return fmt.Errorf("build.max-iterations must be between 1 and %d, got %d", MaxIterations, m.Build.MaxIterations)
	}
	for name, dep := range m.Dependencies {
		if dep.Path == "" {
			return fmt.Errorf("dependency %q has no path specified", name)
		}
	}
	return nil
}

// OutputPath returns the absolute output directory.
func (m *Manifest) OutputPath() string {
	if filepath.IsAbs(m.Build.Output) {
		return m.Build.Output
	}
	return filepath.Join(m.Dir, m.Build.Output)
}
