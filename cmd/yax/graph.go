package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/yax/internal/presentation/graph"
)

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <manifest>",
		Short: "Export the module tree as a Mermaid diagram",
		Long:  `Loads the manifest and outputs a Mermaid diagram (graph TD) of its modules and handlers.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFromFlags(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(args[0], logger)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(store.Modules(), nil))
			return nil
		},
	}
}
