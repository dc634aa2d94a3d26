package domain

import (
	"context"
	"sync"
)

// Task is the handle returned for every dispatch. Reducer dispatches return
// an already completed Task; action dispatches complete when the handler returns.
type Task struct {
	Type string

	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

// NewTask creates a pending task for the given action type.
func NewTask(typ string) *Task {
	return &Task{
		Type: typ,
		done: make(chan struct{}),
	}
}

// CompletedTask creates a task that is already settled.
func CompletedTask(typ string, value any, err error) *Task {
	t := NewTask(typ)
	t.Complete(value, err)
	return t
}

// Complete settles the task. Only the first call has an effect.
func (t *Task) Complete(value any, err error) {
	t.once.Do(func() {
		t.value = value
		t.err = err
		close(t.done)
	})
}

// Done is closed once the task has settled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task settles or ctx is done.
// A canceled ctx does not stop the handler; it only stops waiting.
func (t *Task) Wait(ctx context.Context) (any, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the settled value without blocking. ok is false while pending.
func (t *Task) Result() (value any, err error, ok bool) {
	select {
	case <-t.done:
		return t.value, t.err, true
	default:
		return nil, nil, false
	}
}
