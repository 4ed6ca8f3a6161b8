package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/gd2c/compiler/analysis"
	"github.com/chazu/gd2c/compiler/cfg"
	"github.com/chazu/gd2c/compiler/ssa"
	"github.com/chazu/gd2c/compiler/transform"
	"github.com/chazu/gd2c/manifest"
	"github.com/chazu/gd2c/pkg/bytecode"
	"github.com/chazu/gd2c/project"
)

type disOptions struct {
	function string
	graph    bool
	ssa      bool
	optimize bool
}

func newDisCommand() *cobra.Command {
	opts := &disOptions{}
	cmd := &cobra.Command{
		Use:   "dis <script.gd.json>",
		Short: "Disassemble a bytecode dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDis(cmd.OutOrStdout(), args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.function, "func", "f", "", "only show this function")
	f.BoolVar(&opts.graph, "cfg", false, "print the control-flow graph")
	f.BoolVar(&opts.ssa, "ssa", false, "print the graph in SSA form (implies --cfg)")
	f.BoolVar(&opts.optimize, "optimize", false, "run the default optimization passes on the SSA graph (implies --ssa)")
	return cmd
}

func runDis(w io.Writer, path string, opts *disOptions) error {
	resPath := "res://" + strings.TrimSuffix(filepath.Base(path), ".json")
	c, _, err := project.LoadFile(path, resPath)
	if err != nil {
		return err
	}
	// Naming the class gives qualified function names.
	if _, err := project.New(filepath.Base(filepath.Dir(path)), c); err != nil {
		return err
	}

	shown := 0
	for _, f := range c.Functions {
		if opts.function != "" && f.Name != opts.function {
			continue
		}
		shown++
		printListing(w, bytecode.Disassemble(f.Listing()))
		if !opts.graph && !opts.ssa && !opts.optimize {
			continue
		}
		g, err := graph(f, opts)
		if err != nil {
			return err
		}
		printListing(w, g.String())
		printLoops(w, f.Loops)
		fmt.Fprintln(w)
	}
	if opts.function != "" && shown == 0 {
		return fmt.Errorf("%s has no function %q", path, opts.function)
	}
	return nil
}

func graph(f *project.Function, opts *disOptions) (*cfg.CFG, error) {
	g, err := cfg.Build(f.Ops, f.StackSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.QualifiedName(), err)
	}
	// Loops are found before SSA; later passes may split blocks.
	f.SetCFG(g)
	analysis.Loops(f)
	if !opts.ssa && !opts.optimize {
		return g, nil
	}
	ssa.Construct(g)
	if opts.optimize {
		passes, err := transform.Passes(manifest.DefaultPasses)
		if err != nil {
			return nil, err
		}
		transform.Optimize(g, passes, manifest.MaxIterations)
	}
	return g, nil
}

func printLoops(w io.Writer, loops []cfg.Loop) {
	var sb strings.Builder
	for _, l := range loops {
		fmt.Fprintf(&sb, "; loop b%d: body %s, latches %s\n", l.Header, blockList(l.Body), blockList(l.Latches))
	}
	if sb.Len() > 0 {
		printListing(w, sb.String())
	}
}

func blockList(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("b%d", id)
	}
	return strings.Join(parts, " ")
}

// printListing writes a listing, coloring comments and block headers.
func printListing(w io.Writer, listing string) {
	for _, line := range strings.Split(strings.TrimSuffix(listing, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, ";"):
			line = cyan(line)
		case strings.HasPrefix(line, "b"):
			line = bold(line)
		}
		fmt.Fprintln(w, line)
	}
}
