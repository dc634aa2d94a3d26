package runtime

import (
	"github.com/aretw0/yax/pkg/domain"
)

// Route is the outcome of resolving a namespaced type.
type Route struct {
	Node    *Node
	Local   string
	Kind    domain.HandlerKind
	Reducer domain.Reducer
	Action  domain.ActionHandler
}

// Resolve maps a namespaced type ("nested/one/add") to a node and handler.
// The last segment is the local handler name; every preceding segment must
// name a child module. Actions take precedence over reducers of the same name.
// Resolve does not modify the tree.
func Resolve(root *Node, typ string) (Route, error) {
	segments := domain.SplitType(typ)
	local := segments[len(segments)-1]

	n := root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := n.children[seg]
		if !ok {
			return Route{}, &domain.ResolutionError{
				Type:  typ,
				Path:  n.path.Clone(),
				Local: seg,
				Err:   domain.ErrUnknownModule,
			}
		}
		n = child
	}

	if fn, ok := n.actions[local]; ok && local != "" {
		return Route{Node: n, Local: local, Kind: domain.KindAction, Action: fn}, nil
	}
	return ResolveReducer(n, local, typ)
}

// ResolveReducer looks up a reducer on a single node. Commits use it so a
// module can never mutate another module's state.
func ResolveReducer(n *Node, local, typ string) (Route, error) {
	fn, ok := n.reducers[local]
	if !ok || local == "" {
		return Route{}, &domain.ResolutionError{
			Type:  typ,
			Path:  n.path.Clone(),
			Local: local,
			Err:   domain.ErrUnknownHandler,
		}
	}
	return Route{Node: n, Local: local, Kind: domain.KindReducer, Reducer: fn}, nil
}
