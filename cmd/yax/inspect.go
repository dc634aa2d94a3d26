package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/yax/internal/presentation/tui"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <manifest>",
		Short: "Show the module tree and initial state of a manifest",
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

			md, err := tui.Describe(filepath.Base(args[0]), store.Modules(), store.State())
			if err != nil {
				return err
			}

			render := tui.PlainRenderer
			plain, _ := cmd.Flags().GetBool("plain")
			if !plain && isTerminal(cmd.OutOrStdout()) {
				if render, err = tui.NewRenderer(0); err != nil {
					return err
				}
			}
			out, err := render(md)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().Bool("plain", false, "Print raw markdown even on a terminal")
	return cmd
}
