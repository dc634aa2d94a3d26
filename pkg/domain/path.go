package domain

import (
	"fmt"
	"strings"
)

// Separator joins namespace segments in action types (e.g. "nested/one/add").
const Separator = "/"

// Path is the ordered sequence of module names from the root to a module.
// The empty Path addresses the root module.
type Path []string

// ParsePath validates a module path given as a string or a slice of strings.
// A string path names a single module; use a slice for nested modules.
func ParsePath(v any) (Path, error) {
	var p Path
	switch t := v.(type) {
	case string:
		p = Path{t}
	case []string:
		p = Path(t)
	case Path:
		p = t
	default:
		return nil, fmt.Errorf("%w: got %T", ErrInvalidPath, v)
	}

	if len(p) == 0 {
		return nil, fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}
	for _, seg := range p {
		if err := ValidateName(seg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
		}
	}
	return p.Clone(), nil
}

// ValidateName checks a single module or handler name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name")
	}
	if strings.Contains(name, Separator) {
		return fmt.Errorf("name %q must not contain %q", name, Separator)
	}
	return nil
}

// String renders the path as a namespace prefix ("a/b").
func (p Path) String() string {
	return strings.Join(p, Separator)
}

// Type builds a fully qualified action type for a local handler name.
func (p Path) Type(local string) string {
	if len(p) == 0 {
		return local
	}
	return p.String() + Separator + local
}

// Child returns a new path extended by name.
func (p Path) Child(name string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

// Parent returns the path of the enclosing module. The root has no parent.
func (p Path) Parent() (Path, bool) {
	if len(p) == 0 {
		return nil, false
	}
	return p[:len(p)-1 : len(p)-1], true
}

// Name is the last segment, or "" for the root.
func (p Path) Name() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Clone returns an independent copy.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// SplitType splits a namespaced action type into its segments.
func SplitType(typ string) []string {
	return strings.Split(typ, Separator)
}
