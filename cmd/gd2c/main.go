// gd2c compiles exported GDScript bytecode into native source code.
//
// Usage:
//
//	gd2c compile [project] [-o dir] [-t gdnative|go]
//	gd2c dis <script.gd.json> [--cfg] [--ssa]
//	gd2c targets
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

type globalOptions struct {
	verbose int
	logFile string
	noColor bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fatal(err)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "gd2c",
		Short:         "Compile GDScript bytecode to native code",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.apply()
		},
	}
	flags := cmd.PersistentFlags()
	flags.CountVarP(&opts.verbose, "verbose", "v", "log more (repeat for debug output)")
	flags.StringVar(&opts.logFile, "log", "", "write the log to a file instead of stderr")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newCompileCommand(), newDisCommand(), newTargetsCommand())
	return cmd
}

func (o *globalOptions) apply() {
	var path *string
	if o.logFile != "" {
		path = &o.logFile
	}
	commonlog.Configure(o.verbose, path)
	if o.noColor || os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stdout) {
		color.NoColor = true
	}
}
