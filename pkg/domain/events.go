package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventDispatch   EventType = "dispatch"
	EventActionDone EventType = "action_done"
	EventCommit     EventType = "commit"
	EventRegister   EventType = "register"
	EventUnregister EventType = "unregister"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// DispatchEvent describes a resolved dispatch, and for EventActionDone its outcome.
type DispatchEvent struct {
	EventBase
	ActionType string        `json:"action_type"`
	Path       Path          `json:"path"`
	Local      string        `json:"local"`
	Kind       HandlerKind   `json:"kind"`
	Duration   time.Duration `json:"duration,omitempty"`
	Err        error         `json:"-"`
}

// CommitEvent describes a reducer invocation.
type CommitEvent struct {
	EventBase
	Path  Path   `json:"path"`
	Local string `json:"local"`
	Err   error  `json:"-"`
}

// ModuleEvent describes a structural change of the module tree.
type ModuleEvent struct {
	EventBase
	Path Path `json:"path"`
}

// LifecycleHooks defines callbacks for store observability.
// Hooks run synchronously on the goroutine that triggered them and must not block.
type LifecycleHooks struct {
	OnDispatch   func(context.Context, *DispatchEvent)
	OnActionDone func(context.Context, *DispatchEvent)
	OnCommit     func(context.Context, *CommitEvent)
	OnRegister   func(context.Context, *ModuleEvent)
	OnUnregister func(context.Context, *ModuleEvent)
}

// NewEventBase stamps an event with the current time.
func NewEventBase(t EventType) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t}
}
