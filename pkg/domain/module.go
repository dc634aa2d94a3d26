package domain

import (
	"context"
	"fmt"
	"sort"
)

// StateFunc produces a fresh initial state slice. Use it when the same definition
// is installed at several paths and each copy needs its own mapping.
type StateFunc func() any

// Reducer is a synchronous mutation handler. It receives a shallow copy of the
// module's own state (child module keys excluded) and returns the replacement.
// The returned value is only installed when err is nil.
type Reducer func(state any, payload any) (any, error)

// ActionHandler is an orchestration handler. It may block, commit through c,
// and dispatch other actions. Its return value completes the dispatch Task.
type ActionHandler func(ctx context.Context, c Context, payload any) (any, error)

// Module describes one node of the module tree.
type Module struct {
	// State is the initial state slice, or a StateFunc producing it.
	State any

	// Reducers maps local mutation names to reducers.
	Reducers map[string]Reducer

	// Actions maps local action names to orchestration handlers.
	Actions map[string]ActionHandler

	// Modules maps child names to nested definitions.
	Modules map[string]*Module
}

// InitialState resolves State, calling it if it is a StateFunc.
func (m *Module) InitialState() any {
	if m == nil {
		return nil
	}
	switch s := m.State.(type) {
	case StateFunc:
		return s()
	case func() any:
		return s()
	default:
		return m.State
	}
}

func (m *Module) producesState() bool {
	switch m.State.(type) {
	case StateFunc, func() any:
		return true
	}
	return false
}

// Validate checks the definition and every nested definition.
func (m *Module) Validate() error {
	return m.validate(nil)
}

func (m *Module) validate(at Path) error {
	if m == nil {
		return fmt.Errorf("%w: nil module at %q", ErrInvalidModule, at.String())
	}
	for name, fn := range m.Reducers {
		if err := ValidateName(name); err != nil {
			return fmt.Errorf("%w: reducer at %q: %v", ErrInvalidModule, at.String(), err)
		}
		if fn == nil {
			return fmt.Errorf("%w: reducer %q is nil", ErrInvalidModule, at.Type(name))
		}
	}
	for name, fn := range m.Actions {
		if err := ValidateName(name); err != nil {
			return fmt.Errorf("%w: action at %q: %v", ErrInvalidModule, at.String(), err)
		}
		if fn == nil {
			return fmt.Errorf("%w: action %q is nil", ErrInvalidModule, at.Type(name))
		}
	}
	if len(m.Modules) > 0 {
		if !m.producesState() && !IsMapping(m.State) {
			return fmt.Errorf("%w: %q has child modules but %T state", ErrStateNotMapping, at.String(), m.State)
		}
	}
	for _, name := range m.ChildNames() {
		if err := ValidateName(name); err != nil {
			return fmt.Errorf("%w: child of %q: %v", ErrInvalidModule, at.String(), err)
		}
		if err := m.Modules[name].validate(at.Child(name)); err != nil {
			return err
		}
	}
	return nil
}

// ChildNames returns the nested module names in sorted order, so installation
// and listings are deterministic.
func (m *Module) ChildNames() []string {
	names := make([]string, 0, len(m.Modules))
	for name := range m.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsMapping reports whether a state slice can hold child modules.
// A nil slice counts as an empty mapping.
func IsMapping(state any) bool {
	if state == nil {
		return true
	}
	_, ok := state.(map[string]any)
	return ok
}

// ModuleInfo is a read-only description of an installed module, used for introspection.
type ModuleInfo struct {
	Path     Path     `json:"path"`
	Reducers []string `json:"reducers,omitempty"`
	Actions  []string `json:"actions,omitempty"`
	Children []string `json:"children,omitempty"`
}

// Namespace is the module path rendered as a type prefix.
func (i ModuleInfo) Namespace() string {
	return i.Path.String()
}
