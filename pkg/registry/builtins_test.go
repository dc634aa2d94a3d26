package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/yax"
	"github.com/aretw0/yax/pkg/domain"
	"github.com/aretw0/yax/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinReducers(t *testing.T) {
	r := registry.Default()

	tests := []struct {
		name    string
		reducer string
		state   any
		payload any
		want    any
		wantErr bool
	}{
		{name: "set", reducer: "set", state: 1, payload: "x", want: "x"},
		{name: "merge into nil", reducer: "merge", state: nil, payload: map[string]any{"a": 1}, want: map[string]any{"a": 1}},
		{name: "merge overrides", reducer: "merge", state: map[string]any{"a": 1, "b": 2}, payload: map[string]any{"b": 3}, want: map[string]any{"a": 1, "b": 3}},
		{name: "merge scalar payload", reducer: "merge", state: map[string]any{}, payload: 1, wantErr: true},
		{name: "merge scalar state", reducer: "merge", state: 1, payload: map[string]any{}, wantErr: true},
		{name: "incr default", reducer: "incr", state: 1, payload: nil, want: 2},
		{name: "incr nil state", reducer: "incr", state: nil, payload: 3, want: 3},
		{name: "incr json number", reducer: "incr", state: 1, payload: float64(2), want: 3},
		{name: "incr fraction", reducer: "incr", state: 1, payload: 0.5, want: 1.5},
		{name: "incr keyed", reducer: "incr", state: map[string]any{"hits": 1}, payload: map[string]any{"key": "hits", "by": 2}, want: map[string]any{"hits": 3}},
		{name: "incr keyed new key", reducer: "incr", state: map[string]any{}, payload: map[string]any{"key": "hits"}, want: map[string]any{"hits": 1}},
		{name: "incr keyed without key", reducer: "incr", state: map[string]any{}, payload: map[string]any{"by": 1}, wantErr: true},
		{name: "incr string", reducer: "incr", state: "a", payload: 1, wantErr: true},
		{name: "decr", reducer: "decr", state: 5, payload: 2, want: 3},
		{name: "decr keyed", reducer: "decr", state: map[string]any{"n": 0}, payload: map[string]any{"key": "n"}, want: map[string]any{"n": -1}},
		{name: "append to nil", reducer: "append", state: nil, payload: "a", want: []any{"a"}},
		{name: "append", reducer: "append", state: []any{"a"}, payload: "b", want: []any{"a", "b"}},
		{name: "append to scalar", reducer: "append", state: 1, payload: "b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := r.Reducer(tt.reducer)
			require.NoError(t, err)

			got, err := fn(tt.state, tt.payload)
			if tt.wantErr {
				assert.ErrorIs(t, err, registry.ErrInvalidPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppendReducer_DoesNotAlias(t *testing.T) {
	base := make([]any, 1, 4)
	base[0] = "a"

	first, err := registry.AppendReducer(base, "b")
	require.NoError(t, err)
	second, err := registry.AppendReducer(base, "c")
	require.NoError(t, err)

	assert.Equal(t, []any{"a", "b"}, first)
	assert.Equal(t, []any{"a", "c"}, second)
}

func builtinStore(t *testing.T) *yax.Store {
	t.Helper()
	r := registry.Default()
	incr, err := r.Reducer(registry.Incr)
	require.NoError(t, err)
	seq, err := r.Action(registry.Sequence)
	require.NoError(t, err)
	delay, err := r.Action(registry.Delay)
	require.NoError(t, err)

	store, err := yax.New(&domain.Module{
		Modules: map[string]*domain.Module{
			"count": {
				State:    0,
				Reducers: map[string]domain.Reducer{"add": incr},
				Actions: map[string]domain.ActionHandler{
					"all":   seq,
					"later": delay,
				},
			},
		},
	})
	require.NoError(t, err)
	return store
}

func TestSequenceAction(t *testing.T) {
	store := builtinStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := store.Run(ctx, "count/all", []any{
		"add",
		map[string]any{"type": "add", "payload": 10},
		map[string]any{"type": "later", "payload": map[string]any{"ms": 1, "commit": "add", "payload": 100}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 11, nil}, got)

	v, _ := store.Lookup("count")
	assert.Equal(t, 111, v)
}

func TestSequenceAction_StopsOnError(t *testing.T) {
	store := builtinStore(t)

	got, err := store.Run(context.Background(), "count/all", []string{"add", "missing", "add"})
	assert.ErrorIs(t, err, domain.ErrUnknownHandler)
	assert.Equal(t, []any{1}, got)

	v, _ := store.Lookup("count")
	assert.Equal(t, 1, v)

	_, err = store.Run(context.Background(), "count/all", "add")
	assert.ErrorIs(t, err, registry.ErrInvalidPayload)

	_, err = store.Run(context.Background(), "count/all", []any{map[string]any{"payload": 1}})
	assert.ErrorIs(t, err, registry.ErrInvalidPayload)
}

func TestDelayAction(t *testing.T) {
	store := builtinStore(t)

	// JSON decoders produce float64 numbers.
	_, err := store.Run(context.Background(), "count/later", map[string]any{"ms": float64(1), "commit": "add", "payload": 2})
	require.NoError(t, err)
	v, _ := store.Lookup("count")
	assert.Equal(t, 2, v)

	_, err = store.Run(context.Background(), "count/later", map[string]any{"ms": -1})
	assert.ErrorIs(t, err, registry.ErrInvalidPayload)

	ctx, cancel := context.WithCancel(context.Background())
	task, err := store.Dispatch(ctx, "count/later", map[string]any{"ms": 60_000, "commit": "add"})
	require.NoError(t, err)
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	_, err = task.Wait(waitCtx)
	assert.ErrorIs(t, err, context.Canceled)
	v, _ = store.Lookup("count")
	assert.Equal(t, 2, v)
}
