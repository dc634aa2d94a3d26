package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/yax/pkg/domain"
)

// Combine returns hooks that call every non-nil hook of each set, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnDispatch = chain(out.OnDispatch, h.OnDispatch)
		out.OnActionDone = chain(out.OnActionDone, h.OnActionDone)
		out.OnCommit = chain(out.OnCommit, h.OnCommit)
		out.OnRegister = chain(out.OnRegister, h.OnRegister)
		out.OnUnregister = chain(out.OnUnregister, h.OnUnregister)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

// LoggingHooks logs every store event at level. Failed actions and commits are
// logged at Warn regardless of level.
func LoggingHooks(logger *slog.Logger, level slog.Level) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			logger.Log(ctx, level, "dispatch", "type", e.ActionType, "kind", e.Kind)
		},
		OnActionDone: func(ctx context.Context, e *domain.DispatchEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "action done", "type", e.ActionType, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.Log(ctx, level, "action done", "type", e.ActionType, "duration", e.Duration)
		},
		OnCommit: func(ctx context.Context, e *domain.CommitEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "commit failed", "path", e.Path.String(), "local", e.Local, "err", e.Err)
				return
			}
			logger.Log(ctx, level, "commit", "path", e.Path.String(), "local", e.Local)
		},
		OnRegister: func(ctx context.Context, e *domain.ModuleEvent) {
			logger.Log(ctx, level, "module registered", "path", e.Path.String())
		},
		OnUnregister: func(ctx context.Context, e *domain.ModuleEvent) {
			logger.Log(ctx, level, "module unregistered", "path", e.Path.String())
		},
	}
}
