package tui

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/yax/pkg/domain"
)

// Describe renders installed modules and the aggregated state as markdown.
func Describe(title string, modules []domain.ModuleInfo, state any) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("## Modules\n\n")
	b.WriteString("| Namespace | Reducers | Actions | Children |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, m := range modules {
		ns := m.Namespace()
		if ns == "" {
			ns = "(root)"
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", ns, names(m.Reducers), names(m.Actions), names(m.Children))
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to encode state: %w", err)
	}
	b.WriteString("\n## State\n\n```yaml\n")
	b.Write(data)
	b.WriteString("```\n")
	return b.String(), nil
}

func names(list []string) string {
	if len(list) == 0 {
		return "-"
	}
	return strings.Join(list, ", ")
}
