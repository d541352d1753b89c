package tui

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/aretw0/releasebot/pkg/domain"
)

const timeLayout = "2006-01-02 15:04"

// WriteHistory renders cycles as a table, newest first as given.
func WriteHistory(w io.Writer, cycles []domain.CycleReport) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Started", "Repository", "Trigger", "Version", "Outcome", "Steps", "Branches"})
	for _, c := range cycles {
		v := "-"
		if c.Intent != nil {
			v = c.Intent.Version
		}
		tw.AppendRow(table.Row{
			c.StartedAt.Local().Format(timeLayout),
			c.Repository,
			c.Trigger,
			v,
			Outcome(w, c.Outcome()),
			steps(c.Steps),
			branches(c.Branches),
		})
	}
	if len(cycles) == 0 {
		tw.AppendFooter(table.Row{"no cycles recorded"})
	}
	tw.Render()
}

func steps(results []domain.StepResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, string(r.Step)+":"+string(r.Status))
	}
	return strings.Join(parts, " ")
}

func branches(report domain.BuildReport) string {
	parts := make([]string, 0, len(report))
	for _, b := range report {
		parts = append(parts, b.Branch+":"+string(b.Status))
	}
	return strings.Join(parts, " ")
}
