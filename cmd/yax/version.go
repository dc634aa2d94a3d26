package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/yax"
	"github.com/aretw0/yax/internal/presentation/tui"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of yax",
		Run: func(cmd *cobra.Command, args []string) {
			if isTerminal(cmd.OutOrStdout()) {
				tui.PrintBanner(cmd.OutOrStdout(), yax.Version)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "yax version %s\n", yax.Version)
		},
	}
}
