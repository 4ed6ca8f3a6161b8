package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chazu/gd2c/compiler"
	"github.com/chazu/gd2c/manifest"
	"github.com/chazu/gd2c/target"
)

type compileOptions struct {
	output        string
	target        string
	pkg           string
	ssa           bool
	stripDebug    bool
	incremental   bool
	passes        []string
	maxIterations int
	disallow      []string
}

func newCompileCommand() *cobra.Command {
	opts := &compileOptions{}
	cmd := &cobra.Command{
		Use:   "compile [project]",
		Short: "Compile a project of bytecode dumps",
		Long: `Compile every *.gd.json dump below the project directory (default ".").

Without a project argument the nearest gd2c.toml in the current directory
or one of its parents selects the project. Settings come from gd2c.toml in
the project directory; flags override them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runCompile(cmd, dir, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output directory (default: build.output)")
	f.StringVarP(&opts.target, "target", "t", "", "backend to emit (see gd2c targets)")
	f.StringVar(&opts.pkg, "package", "", "package name of generated Go code")
	f.BoolVar(&opts.ssa, "ssa", true, "run the SSA optimization passes")
	f.BoolVar(&opts.stripDebug, "strip-debug", true, "drop line and breakpoint ops")
	f.BoolVar(&opts.incremental, "incremental", true, "skip classes unchanged since the last build")
	f.StringSliceVar(&opts.passes, "passes", nil, "optimization passes in order")
	f.IntVar(&opts.maxIterations, "max-iterations", manifest.MaxIterations, "optimization iteration cap")
	f.StringSliceVar(&opts.disallow, "disallow", nil, "additional builtins to drop from compiled code")
	return cmd
}

func runCompile(cmd *cobra.Command, dir string, opts *compileOptions) error {
	// An explicit target is checked before anything is read or written.
	var kind target.Kind
	if opts.target != "" {
		k, err := target.ParseKind(opts.target)
		if err != nil {
			return err
		}
		kind = k
	}

	m, err := loadManifest(dir)
	if err != nil {
		return err
	}
	if opts.target == "" {
		if kind, err = target.ParseKind(m.Build.Target); err != nil {
			return fmt.Errorf("%s: build.target: %w", manifest.FileName, err)
		}
	}
	if err := opts.override(cmd, m); err != nil {
		return err
	}

	settings := compiler.SettingsFromManifest(m, kind)
	if opts.pkg != "" {
		settings.Package = opts.pkg
	}
	out := m.OutputPath()
	if opts.output != "" {
		if out, err = filepath.Abs(opts.output); err != nil {
			return err
		}
	}

	p, err := compiler.LoadProject(m)
	if err != nil {
		return err
	}
	res, err := compiler.CompileDir(p, settings, out)
	if err != nil {
		return err
	}
	report(cmd.OutOrStdout(), res, out)
	return nil
}

// loadManifest reads the configuration of dir. An empty dir searches the
// working directory and its parents for a gd2c.toml.
func loadManifest(dir string) (*manifest.Manifest, error) {
	if dir != "" {
		return manifest.LoadOrDefault(dir)
	}
	m, err := manifest.FindAndLoad(".")
	if err != nil || m != nil {
		return m, err
	}
	return manifest.LoadOrDefault(".")
}

// override applies the flags given on the command line to m.
func (o *compileOptions) override(cmd *cobra.Command, m *manifest.Manifest) error {
	f := cmd.Flags()
	if f.Changed("ssa") {
		m.Build.SSA = o.ssa
	}
	if f.Changed("strip-debug") {
		m.Build.StripDebug = o.stripDebug
	}
	if f.Changed("incremental") {
		m.Build.Incremental = o.incremental
	}
	if f.Changed("passes") {
		m.Optimize.Passes = o.passes
	}
	if f.Changed("max-iterations") {
		m.Build.MaxIterations = o.maxIterations
	}
	if f.Changed("disallow") {
		m.Builtins.Disallow = append(m.Builtins.Disallow, o.disallow...)
	}
	return m.Validate()
}

func report(w io.Writer, res *compiler.Result, dir string) {
	for _, msg := range res.Warnings {
		fmt.Fprintf(w, "%s %s\n", yellow("warning:"), msg)
	}
	fmt.Fprintf(w, "%s %d classes compiled, %d up to date, %d files written to %s\n",
		green("done:"), len(res.Emitted), len(res.Skipped), len(res.Written), dir)
}
