package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "yax",
		Short: "yax is a hierarchical module state container",
		Long: `yax loads a module tree described in a YAML or JSON manifest and lets you
inspect it, dispatch actions against it, or serve it over HTTP and MCP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newInspectCmd(),
		newGraphCmd(),
		newValidateCmd(),
		newDispatchCmd(),
		newServeCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute builds the command tree and runs it.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
