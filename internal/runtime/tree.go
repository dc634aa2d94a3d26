package runtime

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sort"

	"github.com/aretw0/yax/pkg/domain"
)

// Node is an installed module. Its own state excludes child modules; the merged
// view (own state plus child views) is cached in view.
type Node struct {
	path      domain.Path
	state     any
	initial   any
	installed bool // false for intermediate placeholders
	detached  bool

	reducers map[string]domain.Reducer
	actions  map[string]domain.ActionHandler
	children map[string]*Node

	view any
}

func newNode(path domain.Path) *Node {
	return &Node{
		path:     path.Clone(),
		reducers: make(map[string]domain.Reducer),
		actions:  make(map[string]domain.ActionHandler),
		children: make(map[string]*Node),
	}
}

// Path returns the namespace of the node.
func (n *Node) Path() domain.Path {
	return n.path.Clone()
}

// Child returns the named child, or nil.
func (n *Node) Child(name string) *Node {
	return n.children[name]
}

// Info describes the node for introspection.
func (n *Node) Info() domain.ModuleInfo {
	return domain.ModuleInfo{
		Path:     n.path.Clone(),
		Reducers: sortedKeys(n.reducers),
		Actions:  sortedKeys(n.actions),
		Children: sortedKeys(n.children),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// rebuildView merges the node's own state with its children's cached views.
// A fresh map is built every time so previously returned snapshots never change.
func (n *Node) rebuildView() {
	if len(n.children) == 0 {
		n.view = n.state
		return
	}
	own, _ := n.state.(map[string]any)
	merged := make(map[string]any, len(own)+len(n.children))
	maps.Copy(merged, own)
	for name, child := range n.children {
		merged[name] = child.view
	}
	n.view = merged
}

func (n *Node) rebuildSubtree() {
	for _, child := range n.children {
		child.rebuildSubtree()
	}
	n.rebuildView()
}

func (n *Node) detach() {
	n.detached = true
	for _, child := range n.children {
		child.detach()
	}
}

// plan is a definition with its initial state evaluated once, so producers are
// not called twice between validation and installation.
type plan struct {
	def      *domain.Module
	initial  any
	children map[string]*plan
}

func newPlan(def *domain.Module) *plan {
	p := &plan{
		def:      def,
		initial:  def.InitialState(),
		children: make(map[string]*plan, len(def.Modules)),
	}
	for name, child := range def.Modules {
		p.children[name] = newPlan(child)
	}
	return p
}

// nextState decides the state a node ends up with after merging p.
// Re-installing an identical initial state keeps whatever the node holds now.
func nextState(n *Node, p *plan) (state any, reset bool) {
	switch {
	case n == nil || !n.installed:
		return p.initial, true
	case p.def.State == nil:
		return n.state, false
	case reflect.DeepEqual(p.initial, n.initial):
		return n.state, false
	default:
		return p.initial, true
	}
}

func checkPlan(n *Node, p *plan) error {
	state, _ := nextState(n, p)
	hasChildren := len(p.children) > 0 || (n != nil && len(n.children) > 0)
	if hasChildren && !domain.IsMapping(state) {
		where := "<root>"
		if n != nil {
			where = n.path.String()
		}
		return fmt.Errorf("%w: %s would hold %T state with child modules", domain.ErrStateNotMapping, where, state)
	}
	for name, child := range p.children {
		var existing *Node
		if n != nil {
			existing = n.children[name]
		}
		if err := checkPlan(existing, child); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) apply(p *plan) {
	if state, reset := nextState(n, p); reset {
		n.state = state
		n.initial = p.initial
	}
	n.installed = true
	n.detached = false
	maps.Copy(n.reducers, p.def.Reducers)
	maps.Copy(n.actions, p.def.Actions)

	// Parent before children, in name order.
	names := sortedKeys(p.children)
	for _, name := range names {
		child, ok := n.children[name]
		if !ok {
			child = newNode(n.path.Child(name))
			n.children[name] = child
		}
		child.apply(p.children[name])
	}
}

// Tree owns the root node and performs structural changes.
// It is not safe for concurrent use; the Engine serializes access.
type Tree struct {
	root *Node
}

// NewTree creates a tree with an empty root placeholder.
func NewTree() *Tree {
	root := newNode(nil)
	return &Tree{root: root}
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Get returns the node at path, or nil.
func (t *Tree) Get(path domain.Path) *Node {
	n := t.root
	for _, seg := range path {
		n = n.children[seg]
		if n == nil {
			return nil
		}
	}
	return n
}

// chain returns the nodes from the root down to path, stopping at the first gap.
func (t *Tree) chain(path domain.Path) []*Node {
	nodes := []*Node{t.root}
	n := t.root
	for _, seg := range path {
		n = n.children[seg]
		if n == nil {
			break
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// Refresh rebuilds cached views from the node at path up to the root.
func (t *Tree) Refresh(path domain.Path) {
	nodes := t.chain(path)
	for _, n := range slices.Backward(nodes) {
		n.rebuildView()
	}
}

// Install merges def into the node at path, creating missing intermediate
// modules. Handlers are merged with the last registration winning. Either the
// whole definition is installed or the tree is left untouched.
func (t *Tree) Install(path domain.Path, def *domain.Module) (*Node, error) {
	if def == nil {
		def = &domain.Module{}
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	// Every existing ancestor must be able to hold a child key.
	n := t.root
	for _, seg := range path {
		if !domain.IsMapping(n.state) {
			return nil, fmt.Errorf("%w: cannot attach %q under %q (%T state)",
				domain.ErrStateNotMapping, seg, n.path.String(), n.state)
		}
		if n = n.children[seg]; n == nil {
			break
		}
	}

	p := newPlan(def)
	if err := checkPlan(t.Get(path), p); err != nil {
		return nil, err
	}

	n = t.root
	for i, seg := range path {
		child, ok := n.children[seg]
		if !ok {
			// Placeholders are empty modules until a definition is installed.
			child = newNode(path[:i+1])
			child.state = map[string]any{}
			n.children[seg] = child
		}
		n = child
	}
	n.apply(p)

	n.rebuildSubtree()
	t.Refresh(path)
	return n, nil
}

// Uninstall detaches the subtree at path. It reports false when nothing is
// installed there. The root cannot be uninstalled.
func (t *Tree) Uninstall(path domain.Path) (*Node, bool) {
	parentPath, ok := path.Parent()
	if !ok {
		return nil, false
	}
	parent := t.Get(parentPath)
	if parent == nil {
		return nil, false
	}
	n, ok := parent.children[path.Name()]
	if !ok {
		return nil, false
	}

	delete(parent.children, path.Name())
	n.detach()
	t.Refresh(parentPath)
	return n, true
}

// Walk visits every node pre-order, children in name order.
func (t *Tree) Walk(fn func(*Node) error) error {
	return walk(t.root, fn)
}

func walk(n *Node, fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, name := range sortedKeys(n.children) {
		if err := walk(n.children[name], fn); err != nil {
			return err
		}
	}
	return nil
}
