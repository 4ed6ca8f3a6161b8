// Package compiler drives the whole pipeline over a project: CFG
// construction, analysis, the transform pipeline and emission through a
// backend, with incremental builds backed by the output cache.
package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/tliron/commonlog"

	"github.com/chazu/gd2c/cache"
	"github.com/chazu/gd2c/compiler/analysis"
	"github.com/chazu/gd2c/compiler/cfg"
	"github.com/chazu/gd2c/compiler/hash"
	"github.com/chazu/gd2c/compiler/transform"
	"github.com/chazu/gd2c/manifest"
	"github.com/chazu/gd2c/project"
	"github.com/chazu/gd2c/target"
	"github.com/chazu/gd2c/target/emit"
)

var log = commonlog.GetLogger("gd2c.compiler")

// Settings configure one build.
type Settings struct {
	Target        target.Kind
	SSA           bool
	StripDebug    bool
	Passes        []string
	MaxIterations int
	Disallow      []string

	// Package names the generated Go package.
	Package string

	// Incremental skips classes whose inputs did not change since the
	// build recorded in the output cache.
	Incremental bool
}

// SettingsFromManifest returns the build settings m describes, for the
// already parsed target kind.
func SettingsFromManifest(m *manifest.Manifest, kind target.Kind) Settings {
	return Settings{
		Target:        kind,
		SSA:           m.Build.SSA,
		StripDebug:    m.Build.StripDebug,
		Passes:        append([]string(nil), m.Optimize.Passes...),
		MaxIterations: m.Build.MaxIterations,
		Disallow:      append([]string(nil), m.Builtins.Disallow...),
		Package:       manifest.PackageName(m.Project.Name),
		Incremental:   m.Build.Incremental,
	}
}

func (s Settings) hashSettings() hash.Settings {
	return hash.Settings{
		Target:        s.Target.String(),
		SSA:           s.SSA,
		StripDebug:    s.StripDebug,
		MaxIterations: s.MaxIterations,
		Passes:        s.Passes,
		Disallow:      s.Disallow,
	}
}

// Result summarizes a build.
type Result struct {
	Emitted []*project.Class
	Skipped []*project.Class

	// Written lists the files that reached the output, Unchanged the
	// files whose content was already there.
	Written   []string
	Unchanged []string

	Warnings []string
}

// pipeline is a build whose configuration has been checked.
type pipeline struct {
	settings  Settings
	backend   target.Backend
	transform transform.Options
}

func newPipeline(s Settings) (*pipeline, error) {
	passes, err := transform.Passes(s.Passes)
	if err != nil {
		return nil, err
	}
	builtins, err := emit.NewBuiltinPolicy(s.Disallow)
	if err != nil {
		return nil, err
	}
	backend, err := target.New(s.Target, target.Options{Builtins: builtins, Package: s.Package})
	if err != nil {
		return nil, err
	}
	return &pipeline{
		settings: s,
		backend:  backend,
		transform: transform.Options{
			StripDebug:    s.StripDebug,
			SSA:           s.SSA,
			Passes:        passes,
			MaxIterations: s.MaxIterations,
		},
	}, nil
}

// Compile runs the pipeline over p and writes through out. Classes that
// c records as emitted from identical inputs are skipped when the build
// is incremental, and c is updated with everything emitted. A nil c
// compiles everything.
func Compile(p *project.Project, s Settings, out emit.Output, c *cache.Cache) (*Result, error) {
	pl, err := newPipeline(s)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = cache.New(s.Target.String())
	}
	return pl.run(p, c.Filter(out), c)
}

// CompileDir compiles p into dir and records the build in the cache
// stored there. Only an incremental build reads the previous cache.
// Nothing in dir is touched when the configuration is invalid.
func CompileDir(p *project.Project, s Settings, dir string) (*Result, error) {
	pl, err := newPipeline(s)
	if err != nil {
		return nil, err
	}
	c := cache.New(s.Target.String())
	if s.Incremental {
		if c, err = cache.Load(dir, s.Target.String()); err != nil {
			return nil, err
		}
	}
	res, err := pl.run(p, c.Filter(emit.NewDirOutput(dir)), c)
	if err != nil {
		return nil, err
	}
	if err := c.Save(dir); err != nil {
		return nil, err
	}
	return res, nil
}

func (pl *pipeline) run(p *project.Project, out *cache.Output, c *cache.Cache) (*Result, error) {
	if err := buildGraphs(p); err != nil {
		return nil, err
	}
	analysis.Annotate(p)
	for _, f := range p.Functions() {
		f.Advance(project.Analyzed)
	}

	hashes := hash.Project(p, pl.settings.hashSettings())

	res := &Result{}
	keep := make(map[string]bool, len(p.Classes))
	for _, class := range p.Classes {
		keep[class.Path] = true
		if pl.settings.Incremental && c.Fresh(class.Path, hashes[class], out.Exists) {
			log.Infof("%s is up to date (%s)", class.Path, hash.Hex(hashes[class])[:12])
			for _, f := range class.Functions {
				f.DiscardCFG()
			}
			res.Skipped = append(res.Skipped, class)
			continue
		}

		files, err := pl.emitClass(class, out)
		if err != nil {
			return nil, err
		}
		c.Record(class.Path, hashes[class], files)
		res.Emitted = append(res.Emitted, class)
	}
	c.Retain(keep)

	if err := pl.backend.EmitProject(p, out); err != nil {
		return nil, err
	}

	res.Written = out.Written
	res.Unchanged = out.Skipped
	res.Warnings = pl.backend.Warnings()
	log.Infof("%s: emitted %d classes, %d up to date, %d files written",
		p.Name, len(res.Emitted), len(res.Skipped), len(res.Written))
	return res, nil
}

// buildGraphs attaches a CFG to every function of p. All malformed
// functions are reported together.
func buildGraphs(p *project.Project) error {
	var errs *multierror.Error
	for _, f := range p.Functions() {
		g, err := cfg.Build(f.Ops, f.StackSize)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", f.QualifiedName(), err))
			continue
		}
		f.SetCFG(g)
	}
	return errs.ErrorOrNil()
}

func (pl *pipeline) emitClass(class *project.Class, out *cache.Output) ([]string, error) {
	for _, f := range class.Functions {
		transform.Apply(f, pl.transform)
		f.Advance(project.Transformed)
	}
	files, err := out.Capture(func() error {
		return pl.backend.EmitClass(class, out)
	})
	if err != nil {
		return nil, fmt.Errorf("emit %s: %w", class.Path, err)
	}
	for _, f := range class.Functions {
		f.Advance(project.Emitted)
		f.DiscardCFG()
	}
	log.Debugf("emitted %s: %v", class.Path, files)
	return files, nil
}

// LoadProject loads the bytecode dumps of the project m configures and of
// every dependency it declares, each mounted at its resource prefix.
// Dependencies inside the project tree are already loaded with it.
func LoadProject(m *manifest.Manifest) (*project.Project, error) {
	deps, err := manifest.NewResolver(m).Resolve()
	if err != nil {
		return nil, err
	}
	sources := []project.Source{{Dir: m.Dir, Mount: "res://"}}
	for _, d := range deps {
		if within(m.Dir, d.LocalPath) {
			log.Debugf("dependency %s is part of the project tree", d.Name)
			continue
		}
		log.Debugf("dependency %s from %s at %s", d.Name, d.LocalPath, d.Mount)
		sources = append(sources, project.Source{Dir: d.LocalPath, Mount: d.Mount})
	}
	return project.LoadSources(m.Project.Name, sources...)
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
