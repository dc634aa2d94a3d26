package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	httpAdapter "github.com/aretw0/yax/pkg/adapters/http"
	"github.com/aretw0/yax/pkg/domain"
	"github.com/aretw0/yax/pkg/observability"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <manifest>",
		Short: "Serve a store over HTTP",
		Long: `Builds the store described by the manifest and exposes it as a JSON API:
GET /state, GET /state/{path}, POST /dispatch, GET /modules, GET /events (SSE)
and GET /metrics.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFromFlags(cmd)
			if err != nil {
				return err
			}
			port, _ := cmd.Flags().GetString("port")
			withMetrics, _ := cmd.Flags().GetBool("metrics")

			opts := []httpAdapter.Option{httpAdapter.WithLogger(logger)}
			var hooks []domain.LifecycleHooks
			var metrics *observability.Metrics
			reg := prometheus.NewRegistry()
			if withMetrics {
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				if metrics, err = observability.NewMetrics(reg, ""); err != nil {
					return err
				}
				hooks = append(hooks, metrics.Hooks())
				opts = append(opts, httpAdapter.WithMetrics(reg))
			}

			store, err := openStore(args[0], logger, hooks...)
			if err != nil {
				return err
			}
			if metrics != nil {
				if err := metrics.WatchModules(reg, "", func() int { return len(store.Modules()) }); err != nil {
					return err
				}
			}

			srv := &http.Server{
				Addr:              ":" + port,
				Handler:           httpAdapter.NewHandler(store, opts...),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Channel to listen for errors coming from the listener.
			serverErrors := make(chan error, 1)
			go func() {
				logger.Info("starting yax server", "addr", srv.Addr, "manifest", args[0])
				serverErrors <- srv.ListenAndServe()
			}()

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(shutdown)

			select {
			case err := <-serverErrors:
				return fmt.Errorf("server error: %w", err)

			case sig := <-shutdown:
				logger.Info("shutting down", "signal", sig.String())

				// Give outstanding requests a deadline for completion.
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Warn("graceful shutdown did not complete", "err", err)
					return srv.Close()
				}
				logger.Info("yax server stopped gracefully")
				return nil
			}
		},
	}
	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("metrics", true, "Expose Prometheus metrics on /metrics")
	return cmd
}
