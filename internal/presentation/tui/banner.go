package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`   __ _`, "#818cf8"},
	{`  / _| | _____      _____`, "#a78bfa"},
	{` | |_| |/ _ \ \ /\ / / __|`, "#c084fc"},
	{` |  _| | (_) \ V  V /\__ \`, "#e879f9"},
	{` |_| |_|\___/ \_/\_/ |___/`, "#f472b6"},
}

// PrintBanner writes the flows banner followed by a subtitle, colored for
// the terminal profile of w.
func PrintBanner(w io.Writer, subtitle string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	if subtitle != "" {
		fmt.Fprintln(w, out.String("  "+subtitle).Faint())
	}
	fmt.Fprintln(w)
}
