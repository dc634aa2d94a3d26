package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidPath is returned when a module path is not a string or a slice of strings,
// or when it contains empty or slash-separated segments.
var ErrInvalidPath = errors.New("module path must be a string or a slice of strings")

// ErrUnknownModule is returned when a namespaced type names a module that is not installed.
var ErrUnknownModule = errors.New("unknown module")

// ErrUnknownHandler is returned when the resolved module has no handler for the local name.
var ErrUnknownHandler = errors.New("unknown handler")

// ErrModuleDetached is returned when a commit targets a module that was unregistered
// after its action started running.
var ErrModuleDetached = errors.New("module detached")

// ErrInvalidModule is returned when a module definition fails validation.
var ErrInvalidModule = errors.New("invalid module definition")

// ErrStateNotMapping is returned when child modules are attached to a module
// whose own state is not a map[string]any.
var ErrStateNotMapping = errors.New("module state is not a mapping")

// ResolutionError reports a dispatch or commit whose type did not resolve to a handler.
type ResolutionError struct {
	Type  string // The type as given by the caller (after namespace prefixing)
	Path  Path   // Deepest module reached
	Local string // Local handler name that was looked up
	Err   error
}

func (e *ResolutionError) Error() string {
	where := e.Path.String()
	if where == "" {
		where = "<root>"
	}
	return fmt.Sprintf("cannot resolve %q (module %s, handler %q): %v", e.Type, where, e.Local, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking action handler.
type PanicError struct {
	Type  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("action %q panicked: %v", e.Type, e.Value)
}

// IsResolution reports whether err is (or wraps) a ResolutionError.
func IsResolution(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
