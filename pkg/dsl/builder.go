package dsl

import (
	"context"
	"fmt"

	"github.com/aretw0/yax/pkg/domain"
)

// Builder configures one module and, through Module, its children.
type Builder struct {
	def      *domain.Module
	parent   *Builder
	children map[string]*Builder
	path     domain.Path
}

// New creates a builder for a root module.
func New() *Builder {
	return newBuilder(nil, nil)
}

func newBuilder(parent *Builder, path domain.Path) *Builder {
	return &Builder{
		def: &domain.Module{
			Reducers: make(map[string]domain.Reducer),
			Actions:  make(map[string]domain.ActionHandler),
		},
		parent:   parent,
		children: make(map[string]*Builder),
		path:     path,
	}
}

// Module returns the builder of the named child.
// If the child already exists, it returns the existing builder.
func (b *Builder) Module(name string) *Builder {
	if child, ok := b.children[name]; ok {
		return child
	}
	child := newBuilder(b, b.path.Child(name))
	b.children[name] = child
	return child
}

// Parent returns the enclosing builder, or b itself for the root.
func (b *Builder) Parent() *Builder {
	if b.parent == nil {
		return b
	}
	return b.parent
}

// State sets the initial state slice.
func (b *Builder) State(state any) *Builder {
	b.def.State = state
	return b
}

// StateFunc sets a producer called on every installation.
func (b *Builder) StateFunc(fn func() any) *Builder {
	b.def.State = domain.StateFunc(fn)
	return b
}

// Reducer adds a reducer under a local name.
func (b *Builder) Reducer(name string, fn domain.Reducer) *Builder {
	b.def.Reducers[name] = fn
	return b
}

// Action adds an action handler under a local name.
func (b *Builder) Action(name string, fn domain.ActionHandler) *Builder {
	b.def.Actions[name] = fn
	return b
}

// Commits adds an action that commits reducer with its own payload, the usual
// shape of an action wrapping a single mutation.
func (b *Builder) Commits(action, reducer string) *Builder {
	return b.Action(action, func(ctx context.Context, c domain.Context, payload any) (any, error) {
		return nil, c.Commit(reducer, payload)
	})
}

// Build assembles the tree rooted at the builder's root and validates it.
// Commits actions must name a reducer of the same module.
func (b *Builder) Build() (*domain.Module, error) {
	root := b
	for root.parent != nil {
		root = root.parent
	}
	def := root.assemble()
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("failed to build module tree: %w", err)
	}
	return def, nil
}

func (b *Builder) assemble() *domain.Module {
	def := *b.def
	def.Modules = make(map[string]*domain.Module, len(b.children))
	for name, child := range b.children {
		def.Modules[name] = child.assemble()
	}
	return &def
}
