package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/yax/pkg/domain"
)

// GraphOverlay marks modules to highlight on the graph, e.g. the targets of
// the actions just dispatched.
type GraphOverlay struct {
	Active []domain.Path
}

// GenerateMermaid produces a Mermaid flowchart of the module tree.
// Shapes:
// - Root: ((Circle))
// - Module with actions: [[Subroutine]]
// - Other modules: [Rectangle]
// Handler names are listed under the module name.
func GenerateMermaid(modules []domain.ModuleInfo, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, m := range modules {
		safeID := mermaidID(m.Path)

		opener, closer := "[", "]"
		switch {
		case len(m.Path) == 0:
			opener, closer = "((", "))"
		case len(m.Actions) > 0:
			opener, closer = "[[", "]]"
		}

		label := m.Path.Name()
		if label == "" {
			label = "root"
		}
		if len(m.Reducers) > 0 {
			label += "<br/>reducers: " + strings.Join(m.Reducers, ", ")
		}
		if len(m.Actions) > 0 {
			label += "<br/>actions: " + strings.Join(m.Actions, ", ")
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, strings.ReplaceAll(label, "\"", "'"), closer)

		for _, child := range m.Children {
			fmt.Fprintf(&sb, "    %s --> %s\n", safeID, mermaidID(m.Path.Child(child)))
		}
	}

	if overlay != nil && len(overlay.Active) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps the highlight readable on light and dark themes.
		sb.WriteString("    classDef active fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, p := range overlay.Active {
			id := mermaidID(p)
			if !seen[id] {
				seen[id] = true
				fmt.Fprintf(&sb, "    class %s active;\n", id)
			}
		}
	}

	return sb.String()
}

// mermaidID prefixes every id so the root (empty path) and a module named
// "root" cannot collide.
func mermaidID(p domain.Path) string {
	s := "m_" + strings.Join(p, "__")
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
