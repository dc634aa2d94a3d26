package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background. wordWrap <= 0 keeps glamour's default.
func NewRenderer(wordWrap int) (func(string) (string, error), error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if wordWrap > 0 {
		opts = append(opts, glamour.WithWordWrap(wordWrap))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

// PlainRenderer returns markdown unchanged, for pipes and files.
func PlainRenderer(markdown string) (string, error) {
	return markdown, nil
}
