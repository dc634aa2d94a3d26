package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/yax/pkg/domain"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "yax"

// Metrics holds the Prometheus collectors fed by store lifecycle hooks.
// The module label is the module namespace ("" for the root).
type Metrics struct {
	Dispatches     *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
	Commits        *prometheus.CounterVec
	ModuleChanges  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// An empty namespace uses DefaultNamespace.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m := &Metrics{
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatches_total",
				Help:      "Resolved dispatches by module and handler kind.",
			},
			[]string{"module", "kind"},
		),
		ActionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Duration of action handlers.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"module", "outcome"},
		),
		Commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commits_total",
				Help:      "Reducer invocations by module and outcome.",
			},
			[]string{"module", "outcome"},
		),
		ModuleChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_changes_total",
				Help:      "Module registrations and unregistrations.",
			},
			[]string{"op"},
		),
	}

	for _, c := range []prometheus.Collector{m.Dispatches, m.ActionDuration, m.Commits, m.ModuleChanges} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// WatchModules exports the number of installed modules, read through count on
// every scrape.
func (m *Metrics) WatchModules(reg prometheus.Registerer, namespace string, count func() int) error {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "modules",
			Help:      "Installed modules, the root included.",
		},
		func() float64 { return float64(count()) },
	))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			m.Dispatches.WithLabelValues(e.Path.String(), string(e.Kind)).Inc()
		},
		OnActionDone: func(_ context.Context, e *domain.DispatchEvent) {
			m.ActionDuration.WithLabelValues(e.Path.String(), outcome(e.Err)).Observe(e.Duration.Seconds())
		},
		OnCommit: func(_ context.Context, e *domain.CommitEvent) {
			m.Commits.WithLabelValues(e.Path.String(), outcome(e.Err)).Inc()
		},
		OnRegister: func(context.Context, *domain.ModuleEvent) {
			m.ModuleChanges.WithLabelValues("register").Inc()
		},
		OnUnregister: func(context.Context, *domain.ModuleEvent) {
			m.ModuleChanges.WithLabelValues("unregister").Inc()
		},
	}
}
