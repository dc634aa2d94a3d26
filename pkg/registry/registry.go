package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/yax/pkg/domain"
)

// ErrNotRegistered is returned when a handler name is not in the registry.
var ErrNotRegistered = errors.New("handler not registered")

// Registry manages named reducers and actions, so module trees described as
// data (manifests, adapters) can refer to handlers by name.
type Registry struct {
	mu       sync.RWMutex
	reducers map[string]domain.Reducer
	actions  map[string]domain.ActionHandler
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		reducers: make(map[string]domain.Reducer),
		actions:  make(map[string]domain.ActionHandler),
	}
}

// Default creates a registry preloaded with the built-in handlers.
func Default() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// RegisterReducer adds a reducer to the registry.
// If a reducer with the same name exists, it is overwritten.
func (r *Registry) RegisterReducer(name string, fn domain.Reducer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reducers[name] = fn
}

// RegisterAction adds an action handler to the registry.
// If an action with the same name exists, it is overwritten.
func (r *Registry) RegisterAction(name string, fn domain.ActionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = fn
}

// Reducer looks up a reducer by name.
func (r *Registry) Reducer(name string) (domain.Reducer, error) {
	r.mu.RLock()
	fn, ok := r.reducers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("reducer %q: %w", name, ErrNotRegistered)
	}
	return fn, nil
}

// Action looks up an action handler by name.
func (r *Registry) Action(name string) (domain.ActionHandler, error) {
	r.mu.RLock()
	fn, ok := r.actions[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("action %q: %w", name, ErrNotRegistered)
	}
	return fn, nil
}

// Names returns the registered reducer and action names, sorted.
func (r *Registry) Names() (reducers, actions []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name := range r.reducers {
		reducers = append(reducers, name)
	}
	for name := range r.actions {
		actions = append(actions, name)
	}
	sort.Strings(reducers)
	sort.Strings(actions)
	return reducers, actions
}
