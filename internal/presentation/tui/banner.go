package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the startup banner with the mode the bot runs in.
func PrintBanner(w io.Writer, mode, repository, version string) {
	out := termenv.NewOutput(w)
	title := out.String(" release-bot ").Bold().
		Foreground(out.Color("#ffffff")).
		Background(out.Color("#6d28d9"))
	detail := out.String(fmt.Sprintf("%s · %s · %s", mode, repository, version)).
		Foreground(out.Color("#a78bfa"))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", title, detail)
	fmt.Fprintln(w)
}

// Outcome colours a cycle outcome for terminal output.
func Outcome(w io.Writer, outcome string) string {
	out := termenv.NewOutput(w)
	color := "#9ca3af"
	switch outcome {
	case "success":
		color = "#16a34a"
	case "partial":
		color = "#d97706"
	case "error":
		color = "#dc2626"
	}
	return out.String(outcome).Foreground(out.Color(color)).String()
}
