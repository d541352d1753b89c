package ports

import (
	"context"
	"time"

	"github.com/aretw0/releasebot/pkg/domain"
)

// JobQueue hands jobs from the webhook receiver to workers.
type JobQueue interface {
	Enqueue(ctx context.Context, job domain.Job) error
	// Dequeue blocks up to timeout and returns domain.ErrQueueEmpty when nothing arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (domain.Job, error)
}

// Ledger persists cycle history. It is optional; a nil Ledger disables history.
type Ledger interface {
	RecordCycle(ctx context.Context, report *domain.CycleReport) error
	RecentCycles(ctx context.Context, repository string, limit int) ([]domain.CycleReport, error)
	// LastDistributionVersion returns version.None when the repository never reached the distribution.
	LastDistributionVersion(ctx context.Context, repository string) (string, error)
	MarkDistributionReleased(ctx context.Context, repository, version string) error
}
