package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Check a manifest for consistency",
		Long:  `Parses the manifest, binds every handler name and installs the module tree, reporting the first problem found.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFromFlags(cmd)
			if err != nil {
				return err
			}
			if _, err := openStore(args[0], logger); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Manifest is valid! ✅")
			return nil
		},
	}
}
