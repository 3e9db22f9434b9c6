package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the huddle banner to w, colored when the terminal allows.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{" _               _     _ _", "#34d399"},
		{"| |__  _   _  __| | __| | | ___", "#2dd4bf"},
		{"| '_ \\| | | |/ _` |/ _` | |/ _ \\", "#22d3ee"},
		{"| | | | |_| | (_| | (_| | |  __/", "#38bdf8"},
		{"|_| |_|\\__,_|\\__,_|\\__,_|_|\\___|", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
