package domain

import "context"

// Action is a dispatchable record: a namespaced type and its payload.
type Action struct {
	Type    string `json:"type" yaml:"type" mapstructure:"type"`
	Payload any    `json:"payload,omitempty" yaml:"payload,omitempty" mapstructure:"payload"`
}

// Scope selects the namespace a Context resolves dispatched types against.
type Scope int

const (
	// ScopeLocal prefixes the type with the bound module's path.
	ScopeLocal Scope = iota
	// ScopeRoot resolves the type from the root namespace.
	ScopeRoot
)

func (s Scope) String() string {
	if s == ScopeRoot {
		return "root"
	}
	return "local"
}

// HandlerKind tells reducers and actions apart after resolution.
type HandlerKind string

const (
	KindReducer HandlerKind = "reducer"
	KindAction  HandlerKind = "action"
)

// Selector reads from the bound module's view and the root aggregate.
type Selector func(local, root any) any

// Context is the capability bundle handed to every action handler.
// It is bound to the module that owns the handler.
type Context interface {
	// Path is the namespace of the bound module.
	Path() Path

	// Commit runs a reducer of the bound module synchronously.
	Commit(local string, payload any) error

	// Dispatch runs an action or reducer relative to the bound module and waits for it.
	Dispatch(ctx context.Context, typ string, payload any) (any, error)

	// DispatchRoot runs a fully qualified action or reducer and waits for it.
	DispatchRoot(ctx context.Context, typ string, payload any) (any, error)

	// DispatchAction starts an action without waiting for it.
	DispatchAction(ctx context.Context, action Action, scope Scope) (*Task, error)

	// Select returns the bound module's current view.
	Select() any

	// SelectWith calls fn with the module's view and the root aggregate.
	SelectWith(fn Selector) any
}
