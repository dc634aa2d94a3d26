package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/yax/pkg/adapters/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp <manifest>",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Builds the store described by the manifest and exposes it as an MCP server
with the tools dispatch, get_state and list_modules.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFromFlags(cmd)
			if err != nil {
				return err
			}
			transport, _ := cmd.Flags().GetString("transport")
			port, _ := cmd.Flags().GetInt("port")

			store, err := openStore(args[0], logger)
			if err != nil {
				return err
			}
			srv := mcp.NewServer(store, logger)

			switch transport {
			case "stdio":
				// Ensure logs don't corrupt JSON-RPC on Stdout
				log.SetOutput(os.Stderr)
				logger.Info("starting yax MCP server (stdio)")
				return srv.ServeStdio()
			case "sse":
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				logger.Info("MCP server stopped gracefully")
				return nil
			default:
				return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
			}
		},
	}
	cmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	cmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	return cmd
}
