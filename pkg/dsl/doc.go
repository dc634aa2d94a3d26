/*
Package dsl provides a fluent builder for yax module trees.

It is an alternative to writing nested domain.Module literals by hand, which
gets noisy for deep trees, and to manifests when handlers are Go closures.

Example usage:

	b := dsl.New()
	b.State(map[string]any{"ready": false})

	b.Module("count").
		State(0).
		Reducer("addDone", func(state, payload any) (any, error) {
			return state.(int) + payload.(int), nil
		}).
		Commits("add", "addDone")

	b.Module("nested").Module("one").State(map[string]any{"a": 1})

	def, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}
	store, err := yax.New(def)
*/
package dsl
