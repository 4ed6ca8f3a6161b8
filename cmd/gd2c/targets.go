package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/gd2c/target"
)

func newTargetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the available backends",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			for _, k := range target.Kinds() {
				fmt.Fprintf(w, "%-10s %s\n", bold(k.String()), k.Description())
			}
		},
	}
}
