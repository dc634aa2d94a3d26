package yax

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/yax/internal/runtime"
	"github.com/aretw0/yax/pkg/domain"
)

// Store is the high-level entry point for the yax library.
// It wraps the internal runtime and validates the loosely typed arguments
// (module paths, action records) callers hand it.
type Store struct {
	runtime *runtime.Engine
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	Name    string
}

// Option defines a functional option for configuring the Store.
type Option func(*Store)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Store) {
		s.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithName labels the store in logs.
func WithName(name string) Option {
	return func(s *Store) {
		s.Name = name
	}
}

// Listener receives the aggregated state after every successful commit
// and after every registration change.
type Listener = runtime.Listener

// New builds a store from the root module definition. The definition is
// validated and installed pre-order, parents before children.
func New(root *domain.Module, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if s.Name != "" {
		s.logger = s.logger.With("store", s.Name)
	}

	eng, err := runtime.NewEngine(root,
		runtime.WithLifecycleHooks(s.hooks),
		runtime.WithLogger(s.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build module tree: %w", err)
	}
	s.runtime = eng
	return s, nil
}

// Dispatch runs the handler registered under the namespaced type.
// Unknown types fail immediately with a *domain.ResolutionError. Reducers run
// before Dispatch returns; actions run concurrently and settle the Task.
func (s *Store) Dispatch(ctx context.Context, typ string, payload any) (*domain.Task, error) {
	return s.runtime.Dispatch(ctx, domain.Action{Type: typ, Payload: payload}, nil)
}

// DispatchAction is Dispatch for an action record.
func (s *Store) DispatchAction(ctx context.Context, action domain.Action) (*domain.Task, error) {
	return s.runtime.Dispatch(ctx, action, nil)
}

// Run dispatches and waits for the result.
func (s *Store) Run(ctx context.Context, typ string, payload any) (any, error) {
	task, err := s.Dispatch(ctx, typ, payload)
	if err != nil {
		return nil, err
	}
	return task.Wait(ctx)
}

// State returns the aggregated state. It must not be modified.
func (s *Store) State() any {
	return s.runtime.State()
}

// Lookup walks the aggregated state by keys, e.g. Lookup("nested", "one", "a").
func (s *Store) Lookup(keys ...string) (any, bool) {
	return lookup(s.runtime.State(), keys)
}

func lookup(v any, keys []string) (any, bool) {
	for _, k := range keys {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = m[k]; !ok {
			return nil, false
		}
	}
	return v, true
}

// RegisterModule installs def at path, a string or a []string.
// Registering at an occupied path merges handlers and keeps the current state
// unless def declares a different initial state.
func (s *Store) RegisterModule(path any, def *domain.Module) error {
	p, err := domain.ParsePath(path)
	if err != nil {
		return err
	}
	return s.runtime.Register(context.Background(), p, def)
}

// UnregisterModule removes the module at path and its subtree.
// Paths that are not installed are ignored.
func (s *Store) UnregisterModule(path any) error {
	p, err := domain.ParsePath(path)
	if err != nil {
		return err
	}
	return s.runtime.Unregister(context.Background(), p)
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	return s.runtime.Subscribe(fn)
}

// Modules lists installed modules pre-order.
func (s *Store) Modules() []domain.ModuleInfo {
	return s.runtime.Modules()
}
