package runtime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/yax/internal/runtime"
	"github.com/aretw0/yax/internal/testutils"
	"github.com/aretw0/yax/pkg/domain"
)

func TestContext_Scopes(t *testing.T) {
	var (
		path     domain.Path
		selected any
		rootSeen any
	)

	hit := func(state, _ any) (any, error) {
		s := state.(map[string]any)
		s["hits"] = s["hits"].(int) + 1
		return s, nil
	}

	eng, err := runtime.NewEngine(&domain.Module{
		State:    map[string]any{"hits": 0},
		Reducers: map[string]domain.Reducer{"hit": hit},
		Modules: map[string]*domain.Module{
			"outer": {
				Modules: map[string]*domain.Module{
					"inner": {
						State:    0,
						Reducers: map[string]domain.Reducer{"add": addInt},
						Actions: map[string]domain.ActionHandler{
							"run": func(ctx context.Context, c domain.Context, payload any) (any, error) {
								path = c.Path()
								// "add" resolves inside outer/inner, "hit" from the root.
								if _, err := c.Dispatch(ctx, "add", 2); err != nil {
									return nil, err
								}
								if _, err := c.DispatchRoot(ctx, "hit", nil); err != nil {
									return nil, err
								}
								selected = c.Select()
								rootSeen = c.SelectWith(func(local, root any) any {
									return root.(map[string]any)["hits"]
								})
								return "ok", nil
							},
						},
					},
				},
			},
		},
	})
	require.NoError(t, err)

	task, err := eng.Dispatch(context.Background(), domain.Action{Type: "outer/inner/run"}, nil)
	require.NoError(t, err)
	value, err := testutils.Wait(t, task)
	require.NoError(t, err)

	assert.Equal(t, "ok", value)
	assert.Equal(t, domain.Path{"outer", "inner"}, path)
	assert.Equal(t, 2, selected)
	assert.Equal(t, 1, rootSeen)
}

func TestContext_LocalDispatchDoesNotEscape(t *testing.T) {
	eng, err := runtime.NewEngine(&domain.Module{
		Reducers: map[string]domain.Reducer{"top": addInt},
		Modules: map[string]*domain.Module{
			"child": {
				Actions: map[string]domain.ActionHandler{
					"try": func(ctx context.Context, c domain.Context, payload any) (any, error) {
						return c.Dispatch(ctx, "top", 1)
					},
				},
			},
		},
	})
	require.NoError(t, err)

	task, err := eng.Dispatch(context.Background(), domain.Action{Type: "child/try"}, nil)
	require.NoError(t, err)
	_, err = testutils.Wait(t, task)
	assert.ErrorIs(t, err, domain.ErrUnknownHandler)
}

func TestContext_SelectWithNil(t *testing.T) {
	var got any
	eng, err := runtime.NewEngine(&domain.Module{
		State: map[string]any{"a": 1},
		Actions: map[string]domain.ActionHandler{
			"peek": func(ctx context.Context, c domain.Context, payload any) (any, error) {
				got = c.SelectWith(nil)
				return nil, nil
			},
		},
	})
	require.NoError(t, err)

	task, err := eng.Dispatch(context.Background(), domain.Action{Type: "peek"}, nil)
	require.NoError(t, err)
	_, err = testutils.Wait(t, task)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, got)
}
