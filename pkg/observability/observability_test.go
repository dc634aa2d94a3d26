package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/yax"
	"github.com/aretw0/yax/pkg/domain"
	"github.com/aretw0/yax/pkg/observability"
)

var errRejected = errors.New("rejected")

func counterModule() *domain.Module {
	return &domain.Module{
		Modules: map[string]*domain.Module{
			"count": {
				State: 0,
				Reducers: map[string]domain.Reducer{
					"add": func(state, payload any) (any, error) {
						return state.(int) + payload.(int), nil
					},
					"reject": func(state, payload any) (any, error) {
						return nil, errRejected
					},
				},
				Actions: map[string]domain.ActionHandler{
					"bump": func(ctx context.Context, c domain.Context, payload any) (any, error) {
						return nil, c.Commit("add", 1)
					},
					"fail": func(ctx context.Context, c domain.Context, payload any) (any, error) {
						return nil, c.Commit("reject", nil)
					},
				},
			},
		},
	}
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg, "")
	require.NoError(t, err)

	store, err := yax.New(counterModule(), yax.WithLifecycleHooks(m.Hooks()))
	require.NoError(t, err)
	require.NoError(t, m.WatchModules(reg, "", func() int { return len(store.Modules()) }))

	ctx := context.Background()
	_, err = store.Run(ctx, "count/bump", nil)
	require.NoError(t, err)
	_, err = store.Run(ctx, "count/add", 2)
	require.NoError(t, err)
	_, err = store.Run(ctx, "count/fail", nil)
	require.ErrorIs(t, err, errRejected)
	_, err = store.Run(ctx, "count/missing", nil)
	require.Error(t, err)

	require.NoError(t, store.RegisterModule("extra", &domain.Module{}))
	require.NoError(t, store.UnregisterModule("extra"))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Dispatches.WithLabelValues("count", "action")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Dispatches.WithLabelValues("count", "reducer")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Commits.WithLabelValues("count", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Commits.WithLabelValues("count", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ModuleChanges.WithLabelValues("register")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ModuleChanges.WithLabelValues("unregister")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.ActionDuration))

	expected := `
# HELP yax_modules Installed modules, the root included.
# TYPE yax_modules gauge
yax_modules 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "yax_modules"))
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg, "app")
	require.NoError(t, err)

	_, err = observability.NewMetrics(reg, "app")
	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &already)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store, err := yax.New(counterModule(), yax.WithLifecycleHooks(observability.LoggingHooks(logger, slog.LevelInfo)))
	require.NoError(t, err)

	_, err = store.Run(context.Background(), "count/bump", nil)
	require.NoError(t, err)
	_, err = store.Run(context.Background(), "count/fail", nil)
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `level=INFO msg=dispatch type=count/bump kind=action`)
	assert.Contains(t, out, `level=INFO msg=commit path=count local=add`)
	assert.Contains(t, out, `level=WARN msg="commit failed" path=count local=reject err=rejected`)
	assert.Contains(t, out, `level=WARN msg="action done" type=count/fail`)
}

func TestCombine(t *testing.T) {
	var calls []string
	record := func(name string) func(context.Context, *domain.CommitEvent) {
		return func(context.Context, *domain.CommitEvent) { calls = append(calls, name) }
	}

	hooks := observability.Combine(
		domain.LifecycleHooks{OnCommit: record("a")},
		domain.LifecycleHooks{},
		domain.LifecycleHooks{OnCommit: record("b")},
	)
	assert.Nil(t, hooks.OnDispatch)
	require.NotNil(t, hooks.OnCommit)

	hooks.OnCommit(context.Background(), &domain.CommitEvent{})
	assert.Equal(t, []string{"a", "b"}, calls)
}
