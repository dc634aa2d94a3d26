/*
Package yax is a centralized, hierarchical state container that separates
synchronous state mutation (reducers) from asynchronous orchestration (actions).

A store is built from a tree of modules. Each module owns one slice of state,
its reducers and its actions, and may nest further modules. The slices are
merged into one aggregated state, and every handler is addressed by a
namespaced type such as "nested/one/add".

# Concept

Reducers are pure and synchronous: they receive a copy of their module's own
state and return the replacement. Actions receive a domain.Context bound to
their module, through which they commit to their own reducers, dispatch other
handlers (relative to their namespace, or from the root) and select state.
Modules can be registered and unregistered at runtime.

# Usage

	store, err := yax.New(&domain.Module{
		State: map[string]any{"foo": 0},
		Reducers: map[string]domain.Reducer{
			"addFooDone": func(state, payload any) (any, error) {
				s := state.(map[string]any)
				s["foo"] = s["foo"].(int) + payload.(int)
				return s, nil
			},
		},
		Actions: map[string]domain.ActionHandler{
			"addFoo": func(ctx context.Context, c domain.Context, payload any) (any, error) {
				return nil, c.Commit("addFooDone", 1)
			},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	task, err := store.Dispatch(ctx, "addFoo", nil)
	if err != nil {
		log.Fatal(err) // unknown type
	}
	if _, err := task.Wait(ctx); err != nil {
		log.Fatal(err) // handler failure
	}

Dispatch never blocks on actions; callers decide whether to wait on the Task.
*/
package yax
