package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/yax/pkg/domain"
)

// dispatchReport is what yax dispatch prints.
type dispatchReport struct {
	Results []dispatchResult `json:"results" yaml:"results"`
	State   any              `json:"state" yaml:"state"`
}

type dispatchResult struct {
	Type   string `json:"type" yaml:"type"`
	Result any    `json:"result,omitempty" yaml:"result,omitempty"`
}

func newDispatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch <manifest> [type [payload]]",
		Short: "Dispatch actions against a manifest and print the resulting state",
		Long: `Builds the store described by the manifest, dispatches the given actions in
order (waiting for each one) and prints every result together with the final state.

Payloads are JSON when they parse as JSON and plain strings otherwise:

  yax dispatch store.yaml count/add 2
  yax dispatch store.yaml --action count/add=2 --action 'todos/push={"title":"x"}'`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFromFlags(cmd)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			extra, _ := cmd.Flags().GetStringArray("action")

			var actions []domain.Action
			if len(args) > 1 {
				a := domain.Action{Type: args[1]}
				if len(args) > 2 {
					a.Payload = parsePayload(args[2])
				}
				actions = append(actions, a)
			}
			for _, s := range extra {
				a, err := parseAction(s)
				if err != nil {
					return err
				}
				actions = append(actions, a)
			}

			store, err := openStore(args[0], logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			report := dispatchReport{Results: []dispatchResult{}}
			for _, a := range actions {
				task, err := store.DispatchAction(ctx, a)
				if err != nil {
					return err
				}
				value, err := task.Wait(ctx)
				if err != nil {
					return fmt.Errorf("%s: %w", a.Type, err)
				}
				report.Results = append(report.Results, dispatchResult{Type: a.Type, Result: value})
			}
			report.State = store.State()

			return writeValue(cmd.OutOrStdout(), output, report)
		},
	}
	cmd.Flags().StringArray("action", nil, "Additional action as type=payload (repeatable)")
	cmd.Flags().StringP("output", "o", "json", "Output format: json or yaml")
	cmd.Flags().Duration("timeout", 30*time.Second, "Maximum time to wait for all actions")
	return cmd
}
