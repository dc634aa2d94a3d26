package runtime

import (
	"context"

	"github.com/aretw0/yax/pkg/domain"
)

// boundContext implements domain.Context for one node. It is created per
// action invocation and carries that invocation's ctx for commit hooks.
type boundContext struct {
	engine *Engine
	node   *Node
	ctx    context.Context
}

var _ domain.Context = (*boundContext)(nil)

func (e *Engine) bind(ctx context.Context, n *Node) *boundContext {
	return &boundContext{engine: e, node: n, ctx: ctx}
}

func (c *boundContext) Path() domain.Path {
	return c.node.Path()
}

func (c *boundContext) Commit(local string, payload any) error {
	_, err := c.engine.commit(c.ctx, c.node, local, payload)
	return err
}

func (c *boundContext) Dispatch(ctx context.Context, typ string, payload any) (any, error) {
	return c.await(ctx, domain.Action{Type: typ, Payload: payload}, domain.ScopeLocal)
}

func (c *boundContext) DispatchRoot(ctx context.Context, typ string, payload any) (any, error) {
	return c.await(ctx, domain.Action{Type: typ, Payload: payload}, domain.ScopeRoot)
}

func (c *boundContext) DispatchAction(ctx context.Context, action domain.Action, scope domain.Scope) (*domain.Task, error) {
	var base domain.Path
	if scope == domain.ScopeLocal {
		base = c.node.path
	}
	return c.engine.Dispatch(ctx, action, base)
}

func (c *boundContext) await(ctx context.Context, action domain.Action, scope domain.Scope) (any, error) {
	task, err := c.DispatchAction(ctx, action, scope)
	if err != nil {
		return nil, err
	}
	return task.Wait(ctx)
}

func (c *boundContext) Select() any {
	local, _ := c.engine.views(c.node)
	return local
}

func (c *boundContext) SelectWith(fn domain.Selector) any {
	local, root := c.engine.views(c.node)
	if fn == nil {
		return local
	}
	return fn(local, root)
}
