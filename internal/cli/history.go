package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/releasebot/internal/presentation/graph"
	"github.com/aretw0/releasebot/internal/presentation/tui"
	"github.com/aretw0/releasebot/pkg/adapters/sqlite"
	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/ports"
)

// ErrNoLedger is returned by ledger commands when ledger.path is empty.
var ErrNoLedger = errors.New("no ledger configured (set ledger.path)")

// HistoryOptions select what History prints.
type HistoryOptions struct {
	// Repository filters cycles; "*" lists every repository.
	Repository string
	Limit      int
	JSON       bool
}

func openLedger(ctx context.Context, env *Env) (*sqlite.Ledger, error) {
	if env.Config.Ledger.Path == "" {
		return nil, ErrNoLedger
	}
	return sqlite.Open(ctx, env.Config.Ledger.Path)
}

// History prints recorded cycles.
func History(ctx context.Context, env *Env, opts HistoryOptions) error {
	ledger, err := openLedger(ctx, env)
	if err != nil {
		return err
	}
	defer ledger.Close()
	return writeHistory(ctx, env.Stdout, ledger, opts)
}

func writeHistory(ctx context.Context, w io.Writer, ledger ports.Ledger, opts HistoryOptions) error {
	repo := opts.Repository
	if repo == "*" {
		repo = ""
	}
	cycles, err := ledger.RecentCycles(ctx, repo, opts.Limit)
	if err != nil {
		return err
	}
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cycles)
	}
	tui.WriteHistory(w, cycles)
	return nil
}

// Graph prints the release machine as Mermaid, overlaid with the trail of the
// recorded cycle whose ID starts with cycleID when one is given.
func Graph(ctx context.Context, env *Env, cycleID string) error {
	if cycleID == "" {
		_, err := io.WriteString(env.Stdout, graph.GenerateMermaid(nil))
		return err
	}
	ledger, err := openLedger(ctx, env)
	if err != nil {
		return err
	}
	defer ledger.Close()

	report, err := findCycle(ctx, ledger, cycleID)
	if err != nil {
		return err
	}
	_, err = io.WriteString(env.Stdout, graph.GenerateMermaid(graph.OverlayFor(report)))
	return err
}

// cycleSearchDepth bounds how far back Graph looks for a cycle ID.
const cycleSearchDepth = 500

func findCycle(ctx context.Context, ledger ports.Ledger, prefix string) (domain.CycleReport, error) {
	cycles, err := ledger.RecentCycles(ctx, "", cycleSearchDepth)
	if err != nil {
		return domain.CycleReport{}, err
	}
	for _, c := range cycles {
		if strings.HasPrefix(c.ID, prefix) {
			return c, nil
		}
	}
	return domain.CycleReport{}, fmt.Errorf("cycle %q not found in the last %d cycles", prefix, cycleSearchDepth)
}
