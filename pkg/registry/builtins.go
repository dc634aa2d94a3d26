package registry

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/yax/pkg/domain"
)

// ErrInvalidPayload is returned by built-in handlers for payloads or states
// they cannot work with.
var ErrInvalidPayload = errors.New("invalid payload")

// Names of the built-in handlers.
const (
	Set      = "set"
	Merge    = "merge"
	Incr     = "incr"
	Decr     = "decr"
	Append   = "append"
	Sequence = "sequence"
	Delay    = "delay"
)

// RegisterBuiltins adds the built-in reducers and actions to r.
func RegisterBuiltins(r *Registry) {
	r.RegisterReducer(Set, SetReducer)
	r.RegisterReducer(Merge, MergeReducer)
	r.RegisterReducer(Incr, step(1))
	r.RegisterReducer(Decr, step(-1))
	r.RegisterReducer(Append, AppendReducer)

	r.RegisterAction(Sequence, SequenceAction)
	r.RegisterAction(Delay, DelayAction)
}

// SetReducer replaces the state with the payload.
func SetReducer(_ any, payload any) (any, error) {
	return payload, nil
}

// MergeReducer copies the keys of a mapping payload into a mapping state.
func MergeReducer(state, payload any) (any, error) {
	patch, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: merge expects a mapping, got %T", ErrInvalidPayload, payload)
	}
	if state == nil {
		return maps.Clone(patch), nil
	}
	s, ok := state.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: merge into %T state", ErrInvalidPayload, state)
	}
	maps.Copy(s, patch)
	return s, nil
}

// AppendReducer appends the payload to a list state. A nil state starts a new list.
func AppendReducer(state, payload any) (any, error) {
	switch s := state.(type) {
	case nil:
		return []any{payload}, nil
	case []any:
		return append(slices.Clip(s), payload), nil
	default:
		return nil, fmt.Errorf("%w: append to %T state", ErrInvalidPayload, state)
	}
}

// keyedStep targets one key of a mapping state, e.g. {key: hits, by: 2}.
type keyedStep struct {
	Key string `mapstructure:"key"`
	By  any    `mapstructure:"by"`
}

// step builds incr (sign 1) and decr (sign -1). The payload is nil (step by one),
// a number, or a keyedStep mapping.
func step(sign int) domain.Reducer {
	return func(state, payload any) (any, error) {
		if m, ok := payload.(map[string]any); ok {
			var args keyedStep
			if err := mapstructure.Decode(m, &args); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
			}
			if args.Key == "" {
				return nil, fmt.Errorf("%w: missing key", ErrInvalidPayload)
			}
			s, ok := state.(map[string]any)
			if !ok && state != nil {
				return nil, fmt.Errorf("%w: keyed step on %T state", ErrInvalidPayload, state)
			}
			if s == nil {
				s = make(map[string]any)
			}
			next, err := addSigned(s[args.Key], args.By, sign)
			if err != nil {
				return nil, err
			}
			s[args.Key] = next
			return s, nil
		}
		return addSigned(state, payload, sign)
	}
}

func addSigned(current, by any, sign int) (any, error) {
	if by == nil {
		by = 1
	}
	a, aInt, err := number(current)
	if err != nil {
		return nil, err
	}
	b, bInt, err := number(by)
	if err != nil {
		return nil, err
	}
	sum := a + float64(sign)*b
	if aInt && bInt {
		return int(sum), nil
	}
	return sum, nil
}

// number normalizes the numeric types produced by Go callers, YAML and JSON.
// A nil value counts as integer zero.
func number(v any) (f float64, isInt bool, err error) {
	switch n := v.(type) {
	case nil:
		return 0, true, nil
	case int:
		return float64(n), true, nil
	case int32:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case uint:
		return float64(n), true, nil
	case uint64:
		return float64(n), true, nil
	case float32:
		return float64(n), false, nil
	case float64:
		if n == float64(int(n)) {
			return n, true, nil
		}
		return n, false, nil
	default:
		return 0, false, fmt.Errorf("%w: %T is not a number", ErrInvalidPayload, v)
	}
}

// SequenceAction dispatches a list of actions in order within the calling
// module's namespace, awaiting each one. Elements are type strings, action
// records or mappings with type and payload keys. It returns the results.
func SequenceAction(ctx context.Context, c domain.Context, payload any) (any, error) {
	steps, err := decodeActions(payload)
	if err != nil {
		return nil, err
	}
	results := make([]any, 0, len(steps))
	for _, a := range steps {
		v, err := c.Dispatch(ctx, a.Type, a.Payload)
		if err != nil {
			return results, fmt.Errorf("sequence step %q: %w", a.Type, err)
		}
		results = append(results, v)
	}
	return results, nil
}

func decodeActions(payload any) ([]domain.Action, error) {
	switch p := payload.(type) {
	case []domain.Action:
		return p, nil
	case []string:
		out := make([]domain.Action, len(p))
		for i, typ := range p {
			out[i] = domain.Action{Type: typ}
		}
		return out, nil
	case []any:
		out := make([]domain.Action, 0, len(p))
		for i, item := range p {
			if typ, ok := item.(string); ok {
				out = append(out, domain.Action{Type: typ})
				continue
			}
			var a domain.Action
			if err := mapstructure.Decode(item, &a); err != nil {
				return nil, fmt.Errorf("%w: sequence step %d: %v", ErrInvalidPayload, i, err)
			}
			if a.Type == "" {
				return nil, fmt.Errorf("%w: sequence step %d has no type", ErrInvalidPayload, i)
			}
			out = append(out, a)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: sequence expects a list, got %T", ErrInvalidPayload, payload)
	}
}

// delayArgs is the payload of the delay action.
type delayArgs struct {
	MS      int    `mapstructure:"ms"`
	Commit  string `mapstructure:"commit"`
	Payload any    `mapstructure:"payload"`
}

// DelayAction waits ms milliseconds, then commits the named reducer of the
// calling module with payload. Without a commit name it only waits.
func DelayAction(ctx context.Context, c domain.Context, payload any) (any, error) {
	var args delayArgs
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &args,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(payload); err != nil {
		return nil, fmt.Errorf("%w: delay: %v", ErrInvalidPayload, err)
	}
	if args.MS < 0 {
		return nil, fmt.Errorf("%w: delay: negative ms", ErrInvalidPayload)
	}

	timer := time.NewTimer(time.Duration(args.MS) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	if args.Commit == "" {
		return nil, nil
	}
	return nil, c.Commit(args.Commit, args.Payload)
}
