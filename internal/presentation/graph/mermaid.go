package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/releasebot/pkg/domain"
)

// States lists the release machine states in publishing order.
var States = []domain.CycleState{
	domain.StateIdle,
	domain.StateDiscovered,
	domain.StateGitHubReleased,
	domain.StatePackageReleased,
	domain.StateDistributionReleased,
}

var labels = map[domain.CycleState]string{
	domain.StateIdle:                 "Idle",
	domain.StateDiscovered:           "Discovered",
	domain.StateGitHubReleased:       "GitHub released",
	domain.StatePackageReleased:      "PyPI released",
	domain.StateDistributionReleased: "Fedora released",
}

// Overlay marks the states one cycle went through.
type Overlay struct {
	Trail []domain.CycleState
	// Failed is the state the cycle was in when a step failed, if any.
	Failed domain.CycleState
}

// GenerateMermaid draws the release machine as a Mermaid flowchart.
// Forward transitions are solid; the fallback to Idle is dotted.
// With an overlay, visited states are highlighted and the last non-idle one is
// marked as where the cycle ended.
func GenerateMermaid(overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, s := range States {
		opener, closer := "[", "]"
		if s == domain.StateIdle {
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(s), opener, labels[s], closer)
	}
	for _, from := range States {
		for _, to := range States {
			if from == to || !from.CanTransitionTo(to) {
				continue
			}
			arrow := "-->"
			if to == domain.StateIdle {
				arrow = "-.->"
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(from), arrow, sanitizeMermaidID(to))
		}
	}

	if overlay == nil || len(overlay.Trail) == 0 {
		return sb.String()
	}

	sb.WriteString("\n    %% Overlay Styles\n")
	sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
	sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#c62828,stroke-width:4px,color:#000;\n")

	seen := make(map[domain.CycleState]bool)
	var last domain.CycleState
	for _, s := range overlay.Trail {
		if s != domain.StateIdle {
			last = s
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		fmt.Fprintf(&sb, "    class %s visited;\n", sanitizeMermaidID(s))
	}
	switch {
	case overlay.Failed != "":
		fmt.Fprintf(&sb, "    class %s failed;\n", sanitizeMermaidID(overlay.Failed))
	case last != "":
		fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(last))
	}
	return sb.String()
}

// OverlayFor builds the overlay of a recorded cycle.
func OverlayFor(report domain.CycleReport) *Overlay {
	o := &Overlay{Trail: report.Trail}
	if report.Outcome() == "partial" || report.Outcome() == "error" {
		for i := len(report.Trail) - 1; i >= 0; i-- {
			if report.Trail[i] != domain.StateIdle {
				o.Failed = report.Trail[i]
				break
			}
		}
	}
	return o
}

func sanitizeMermaidID(s domain.CycleState) string {
	return strings.ReplaceAll(string(s), "-", "_")
}
