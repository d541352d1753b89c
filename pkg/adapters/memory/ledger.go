package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/version"
)

// Ledger implements ports.Ledger in memory.
type Ledger struct {
	mu           sync.RWMutex
	cycles       []domain.CycleReport
	distribution map[string]string
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{distribution: make(map[string]string)}
}

// RecordCycle stores a copy of report.
func (l *Ledger) RecordCycle(_ context.Context, report *domain.CycleReport) error {
	copied := *report
	copied.Steps = append([]domain.StepResult(nil), report.Steps...)
	copied.Branches = append(domain.BuildReport(nil), report.Branches...)
	copied.Notes = append([]string(nil), report.Notes...)
	copied.Trail = append([]domain.CycleState(nil), report.Trail...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cycles = append(l.cycles, copied)
	return nil
}

// RecentCycles returns up to limit cycles of repository, newest first.
// An empty repository lists every repository.
func (l *Ledger) RecentCycles(_ context.Context, repository string, limit int) ([]domain.CycleReport, error) {
	if limit <= 0 {
		limit = 20
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.CycleReport
	for i := len(l.cycles) - 1; i >= 0; i-- {
		if c := l.cycles[i]; repository == "" || c.Repository == repository {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LastDistributionVersion returns version.None when nothing was recorded.
func (l *Ledger) LastDistributionVersion(_ context.Context, repository string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if v, ok := l.distribution[repository]; ok {
		return v, nil
	}
	return version.None, nil
}

// MarkDistributionReleased records v for repository.
func (l *Ledger) MarkDistributionReleased(_ context.Context, repository, v string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.distribution[repository] = v
	return nil
}
