package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/yax"
	"github.com/aretw0/yax/pkg/domain"
)

var errBoom = errors.New("boom")

func newServer(t *testing.T, release <-chan struct{}) (*Server, *yax.Store) {
	t.Helper()
	store, err := yax.New(&domain.Module{
		Modules: map[string]*domain.Module{
			"count": {
				State: float64(0),
				Reducers: map[string]domain.Reducer{
					"add": func(state, payload any) (any, error) {
						return state.(float64) + payload.(float64), nil
					},
				},
				Actions: map[string]domain.ActionHandler{
					"wait": func(ctx context.Context, c domain.Context, payload any) (any, error) {
						<-release
						return "released", nil
					},
					"fail": func(ctx context.Context, c domain.Context, payload any) (any, error) {
						return nil, errBoom
					},
				},
			},
		},
	})
	require.NoError(t, err)
	return NewServer(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestHandleDispatch(t *testing.T) {
	release := make(chan struct{})
	close(release)
	s, store := newServer(t, release)
	ctx := context.Background()

	got, err := s.handleDispatch(ctx, mcp.CallToolRequest{}, DispatchArgs{Type: "count/add", Payload: "2.5"})
	require.NoError(t, err)
	assert.Equal(t, DispatchResult{Type: "count/add", Status: "done", Result: 2.5}, got)

	got, err = s.handleDispatch(ctx, mcp.CallToolRequest{}, DispatchArgs{Type: "count/wait"})
	require.NoError(t, err)
	assert.Equal(t, "released", got.Result)

	got, err = s.handleDispatch(ctx, mcp.CallToolRequest{}, DispatchArgs{Type: "count/fail"})
	require.NoError(t, err)
	assert.Equal(t, DispatchResult{Type: "count/fail", Status: "failed", Error: "boom"}, got)

	_, err = s.handleDispatch(ctx, mcp.CallToolRequest{}, DispatchArgs{Type: "count/nope"})
	assert.ErrorIs(t, err, domain.ErrUnknownHandler)

	_, err = s.handleDispatch(ctx, mcp.CallToolRequest{}, DispatchArgs{})
	assert.Error(t, err)

	_, err = s.handleDispatch(ctx, mcp.CallToolRequest{}, DispatchArgs{Type: "count/add", Payload: "{"})
	assert.ErrorContains(t, err, "payload is not valid json")

	v, _ := store.Lookup("count")
	assert.Equal(t, 2.5, v)
}

func TestHandleDispatch_Pending(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	s, _ := newServer(t, release)
	s.waitTimeout = 10 * time.Millisecond

	got, err := s.handleDispatch(context.Background(), mcp.CallToolRequest{}, DispatchArgs{Type: "count/wait", NoWait: true})
	require.NoError(t, err)
	assert.Equal(t, DispatchResult{Type: "count/wait", Status: "pending", Pending: true}, got)

	got, err = s.handleDispatch(context.Background(), mcp.CallToolRequest{}, DispatchArgs{Type: "count/wait"})
	require.NoError(t, err)
	assert.Equal(t, "pending", got.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), got.Error)
}

func TestHandleGetState(t *testing.T) {
	s, _ := newServer(t, nil)
	ctx := context.Background()

	res, err := s.handleGetState(ctx, callRequest(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":0}`, text(t, res))

	res, err = s.handleGetState(ctx, callRequest(map[string]any{"path": "count"}))
	require.NoError(t, err)
	assert.Equal(t, "0", text(t, res))

	res, err = s.handleGetState(ctx, callRequest(map[string]any{"path": "missing/key"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), `no state at "missing/key"`)
}

func TestHandleListModules(t *testing.T) {
	s, _ := newServer(t, nil)

	res, err := s.handleListModules(context.Background(), callRequest(nil))
	require.NoError(t, err)

	var infos []domain.ModuleInfo
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, domain.Path{"count"}, infos[1].Path)
	assert.Equal(t, []string{"add"}, infos[1].Reducers)
	assert.Equal(t, []string{"fail", "wait"}, infos[1].Actions)
}
