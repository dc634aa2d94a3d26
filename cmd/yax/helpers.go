package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/yax"
	"github.com/aretw0/yax/internal/logging"
	"github.com/aretw0/yax/pkg/domain"
	"github.com/aretw0/yax/pkg/manifest"
	"github.com/aretw0/yax/pkg/observability"
	"github.com/aretw0/yax/pkg/registry"
)

func loggerFromFlags(cmd *cobra.Command) (*slog.Logger, error) {
	raw, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(raw)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(cmd.ErrOrStderr(), level), nil
}

// openStore loads the manifest at path with the built-in handlers and builds
// a store logging to logger. Every store event is also logged at debug level.
func openStore(path string, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*yax.Store, error) {
	def, err := manifest.LoadModule(path, registry.Default())
	if err != nil {
		return nil, err
	}

	all := append([]domain.LifecycleHooks{observability.LoggingHooks(logger, slog.LevelDebug)}, hooks...)
	store, err := yax.New(def,
		yax.WithLogger(logger),
		yax.WithName(filepath.Base(path)),
		yax.WithLifecycleHooks(observability.Combine(all...)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return store, nil
}

// parseAction reads "type" or "type=payload". The payload is decoded as JSON
// when possible and kept as a plain string otherwise.
func parseAction(s string) (domain.Action, error) {
	typ, raw, hasPayload := strings.Cut(s, "=")
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return domain.Action{}, fmt.Errorf("invalid action %q: missing type", s)
	}
	a := domain.Action{Type: typ}
	if hasPayload {
		a.Payload = parsePayload(raw)
	}
	return a, nil
}

func parsePayload(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func writeValue(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (json or yaml)", format)
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
