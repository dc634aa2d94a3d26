package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/yax/internal/logging"
	"github.com/aretw0/yax/pkg/domain"
)

// Listener receives the aggregated state after every change.
type Listener func(state any)

// Engine is the core of the store: it owns the module tree, serializes every
// commit and structural change behind one lock, and runs actions on their own
// goroutines.
type Engine struct {
	mu   sync.RWMutex
	tree *Tree

	subMu     sync.Mutex
	nextSub   int
	listeners []subscription

	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

type subscription struct {
	id int
	fn Listener
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// NewEngine builds the module tree from root, installing every module before
// its children.
func NewEngine(root *domain.Module, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		tree:   NewTree(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	// The root aggregate is a mapping unless the root declares its own state.
	if root == nil {
		root = &domain.Module{}
	}
	if root.State == nil {
		def := *root
		def.State = domain.StateFunc(func() any { return map[string]any{} })
		root = &def
	}

	if _, err := e.tree.Install(nil, root); err != nil {
		return nil, err
	}
	return e, nil
}

// State returns the aggregated snapshot. Callers must treat it as read-only.
func (e *Engine) State() any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tree.Root().view
}

// Dispatch resolves action against base (nil for the root namespace).
// Resolution errors are returned directly. Reducers run before Dispatch
// returns; actions run on a new goroutine and settle the returned Task.
func (e *Engine) Dispatch(ctx context.Context, action domain.Action, base domain.Path) (*domain.Task, error) {
	typ := base.Type(action.Type)

	e.mu.RLock()
	route, err := Resolve(e.tree.Root(), typ)
	e.mu.RUnlock()
	if err != nil {
		e.logger.Debug("dispatch unresolved", "type", typ, "err", err)
		return nil, err
	}

	e.logger.Debug("dispatch",
		"type", typ,
		"path", route.Node.path.String(),
		"local", route.Local,
		"kind", route.Kind,
	)
	if e.hooks.OnDispatch != nil {
		e.hooks.OnDispatch(ctx, e.dispatchEvent(domain.EventDispatch, typ, route))
	}

	if route.Kind == domain.KindReducer {
		value, err := e.commit(ctx, route.Node, route.Local, action.Payload)
		return domain.CompletedTask(typ, value, err), nil
	}

	task := domain.NewTask(typ)
	go e.run(ctx, task, route, action.Payload)
	return task, nil
}

func (e *Engine) run(ctx context.Context, task *domain.Task, route Route, payload any) {
	start := time.Now()
	var (
		value any
		err   error
	)
	defer func() {
		if r := recover(); r != nil {
			err = &domain.PanicError{Type: task.Type, Value: r, Stack: debug.Stack()}
		}
		if err != nil {
			e.logger.Warn("action failed", "type", task.Type, "err", err)
		}
		if e.hooks.OnActionDone != nil {
			evt := e.dispatchEvent(domain.EventActionDone, task.Type, route)
			evt.Duration = time.Since(start)
			evt.Err = err
			e.hooks.OnActionDone(ctx, evt)
		}
		task.Complete(value, err)
	}()

	value, err = route.Action(ctx, e.bind(ctx, route.Node), payload)
}

func (e *Engine) dispatchEvent(t domain.EventType, typ string, route Route) *domain.DispatchEvent {
	return &domain.DispatchEvent{
		EventBase:  domain.NewEventBase(t),
		ActionType: typ,
		Path:       route.Node.path.Clone(),
		Local:      route.Local,
		Kind:       route.Kind,
	}
}

// commit runs a reducer of n under the write lock and returns the new slice.
// The node's state is only replaced when the reducer succeeds.
func (e *Engine) commit(ctx context.Context, n *Node, local string, payload any) (any, error) {
	next, snapshot, err := e.reduce(n, local, payload)

	if e.hooks.OnCommit != nil {
		e.hooks.OnCommit(ctx, &domain.CommitEvent{
			EventBase: domain.NewEventBase(domain.EventCommit),
			Path:      n.path.Clone(),
			Local:     local,
			Err:       err,
		})
	}
	if err != nil {
		return nil, err
	}

	e.logger.Debug("commit", "path", n.path.String(), "local", local)
	e.notify(snapshot)
	return next, nil
}

func (e *Engine) reduce(n *Node, local string, payload any) (next, snapshot any, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	typ := n.path.Type(local)
	defer func() {
		if r := recover(); r != nil {
			next, snapshot = nil, nil
			err = &domain.PanicError{Type: typ, Value: r, Stack: debug.Stack()}
		}
	}()
	if n.detached {
		return nil, nil, &domain.ResolutionError{
			Type:  typ,
			Path:  n.path.Clone(),
			Local: local,
			Err:   domain.ErrModuleDetached,
		}
	}
	route, err := ResolveReducer(n, local, typ)
	if err != nil {
		return nil, nil, err
	}

	next, err = route.Reducer(cloneSlice(n.state), payload)
	if err != nil {
		return nil, nil, err
	}
	if len(n.children) > 0 && !domain.IsMapping(next) {
		return nil, nil, fmt.Errorf("%w: reducer %q returned %T state for a module with children",
			domain.ErrStateNotMapping, typ, next)
	}
	n.state = next
	e.tree.Refresh(n.path)
	return next, e.tree.Root().view, nil
}

// cloneSlice gives reducers a private shallow copy so a failing reducer cannot
// leave a half-mutated slice behind.
func cloneSlice(state any) any {
	switch s := state.(type) {
	case map[string]any:
		return maps.Clone(s)
	case []any:
		return slices.Clone(s)
	default:
		return state
	}
}

// views returns a node's view and the root view under the read lock.
func (e *Engine) views(n *Node) (local, root any) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return n.view, e.tree.Root().view
}

// Register installs def at path, merging into an existing module.
func (e *Engine) Register(ctx context.Context, path domain.Path, def *domain.Module) error {
	e.mu.Lock()
	_, err := e.tree.Install(path, def)
	snapshot := e.tree.Root().view
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.logger.Debug("module registered", "path", path.String())
	if e.hooks.OnRegister != nil {
		e.hooks.OnRegister(ctx, &domain.ModuleEvent{
			EventBase: domain.NewEventBase(domain.EventRegister),
			Path:      path.Clone(),
		})
	}
	e.notify(snapshot)
	return nil
}

// Unregister removes the subtree at path. Unknown paths are ignored.
func (e *Engine) Unregister(ctx context.Context, path domain.Path) error {
	e.mu.Lock()
	_, removed := e.tree.Uninstall(path)
	snapshot := e.tree.Root().view
	e.mu.Unlock()
	if !removed {
		e.logger.Debug("unregister ignored, module not installed", "path", path.String())
		return nil
	}

	e.logger.Debug("module unregistered", "path", path.String())
	if e.hooks.OnUnregister != nil {
		e.hooks.OnUnregister(ctx, &domain.ModuleEvent{
			EventBase: domain.NewEventBase(domain.EventUnregister),
			Path:      path.Clone(),
		})
	}
	e.notify(snapshot)
	return nil
}

// Modules lists installed modules pre-order.
func (e *Engine) Modules() []domain.ModuleInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var infos []domain.ModuleInfo
	_ = e.tree.Walk(func(n *Node) error {
		infos = append(infos, n.Info())
		return nil
	})
	return infos
}

// Subscribe adds a listener and returns a function removing it.
func (e *Engine) Subscribe(fn Listener) func() {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	e.nextSub++
	id := e.nextSub
	e.listeners = append(e.listeners, subscription{id: id, fn: fn})

	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		e.listeners = slices.DeleteFunc(e.listeners, func(s subscription) bool {
			return s.id == id
		})
	}
}

// notify calls listeners on the current goroutine, outside the state lock,
// so listeners may read the store.
func (e *Engine) notify(snapshot any) {
	e.subMu.Lock()
	listeners := slices.Clone(e.listeners)
	e.subMu.Unlock()

	for _, s := range listeners {
		s.fn(snapshot)
	}
}
