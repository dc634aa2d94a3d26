package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the yax banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{" _   _  __ ___  __", "#818cf8"},
		{"| | | |/ _` \\ \\/ /", "#a78bfa"},
		{"| |_| | (_| |>  < ", "#e879f9"},
		{" \\__, |\\__,_/_/\\_\\", "#f472b6"},
		{" |___/            ", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintf(w, "\n  version %s\n\n", version)
}
