package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/releasebot/internal/presentation/graph"
	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name        string
		overlay     *graph.Overlay
		contains    []string
		notContains []string
	}{
		{
			name: "Plain Machine",
			contains: []string{
				"graph TD",
				`idle(("Idle"))`,
				`github_released["GitHub released"]`,
				"idle --> discovered",
				"package_released --> distribution_released",
				"distribution_released -.-> idle",
			},
			notContains: []string{"classDef", "idle --> github_released"},
		},
		{
			name: "Successful Cycle",
			overlay: &graph.Overlay{Trail: []domain.CycleState{
				domain.StateIdle, domain.StateDiscovered, domain.StateGitHubReleased, domain.StateIdle,
			}},
			contains: []string{
				"class idle visited;",
				"class github_released visited;",
				"class github_released current;",
			},
			notContains: []string{"class package_released visited;"},
		},
		{
			name: "Failed Step",
			overlay: &graph.Overlay{
				Trail:  []domain.CycleState{domain.StateIdle, domain.StateDiscovered, domain.StateIdle},
				Failed: domain.StateDiscovered,
			},
			contains:    []string{"class discovered failed;"},
			notContains: []string{"current;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(tt.overlay)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestOverlayFor(t *testing.T) {
	trail := []domain.CycleState{domain.StateIdle, domain.StateDiscovered, domain.StateGitHubReleased, domain.StateIdle}

	ok := graph.OverlayFor(domain.CycleReport{
		Intent: &domain.ReleaseIntent{Version: "1.0.0"},
		Trail:  trail,
	})
	assert.Empty(t, ok.Failed)

	partial := graph.OverlayFor(domain.CycleReport{
		Intent: &domain.ReleaseIntent{Version: "1.0.0"},
		Steps:  []domain.StepResult{{Step: domain.StepPackageIndex, Status: domain.StepFailed}},
		Trail:  trail,
	})
	assert.Equal(t, domain.StateGitHubReleased, partial.Failed)
	assert.Equal(t, 1, strings.Count(graph.GenerateMermaid(partial), "failed;"))
}
