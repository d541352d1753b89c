package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunJobQueueContract runs a suite of tests to verify that a JobQueue implementation
// adheres to the defined interface contract.
func RunJobQueueContract(t *testing.T, queue JobQueue) {
	ctx := context.Background()

	t.Run("Empty Queue Times Out", func(t *testing.T) {
		_, err := queue.Dequeue(ctx, 100*time.Millisecond)
		assert.ErrorIs(t, err, domain.ErrQueueEmpty)
	})

	t.Run("FIFO Order", func(t *testing.T) {
		// 1. Enqueue two jobs
		first := domain.Job{ID: "job-1", Trigger: domain.TriggerIssue, Owner: "o", Repository: "r"}
		second := domain.Job{ID: "job-2", Trigger: domain.TriggerPullRequest, Owner: "o", Repository: "r"}
		require.NoError(t, queue.Enqueue(ctx, first))
		require.NoError(t, queue.Enqueue(ctx, second))

		// 2. Dequeue in arrival order
		got, err := queue.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, "job-1", got.ID)
		assert.Equal(t, domain.TriggerIssue, got.Trigger)

		got, err = queue.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, "job-2", got.ID)
		assert.Equal(t, "o/r", got.FullName())
	})
}

// RunLedgerContract verifies the behaviour shared by Ledger implementations.
func RunLedgerContract(t *testing.T, ledger Ledger) {
	ctx := context.Background()
	repo := "contract/" + time.Now().Format("20060102150405")

	t.Run("Distribution Version Defaults To Sentinel", func(t *testing.T) {
		v, err := ledger.LastDistributionVersion(ctx, repo)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0", v)
	})

	t.Run("Mark Distribution Released", func(t *testing.T) {
		require.NoError(t, ledger.MarkDistributionReleased(ctx, repo, "0.2.0"))
		require.NoError(t, ledger.MarkDistributionReleased(ctx, repo, "0.3.0"))
		v, err := ledger.LastDistributionVersion(ctx, repo)
		require.NoError(t, err)
		assert.Equal(t, "0.3.0", v)
	})

	t.Run("Record And List Cycles", func(t *testing.T) {
		start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		for i, id := range []string{"c1", "c2"} {
			report := &domain.CycleReport{
				ID:         id,
				Repository: repo,
				Trigger:    domain.TriggerAll,
				Intent:     &domain.ReleaseIntent{Kind: domain.IntentPullRequest, Version: "0.3.0"},
				Steps:      []domain.StepResult{{Step: domain.StepGitHub, Status: domain.StepReleased}},
				StartedAt:  start.Add(time.Duration(i) * time.Minute),
				FinishedAt: start.Add(time.Duration(i)*time.Minute + time.Second),
			}
			require.NoError(t, ledger.RecordCycle(ctx, report))
		}

		cycles, err := ledger.RecentCycles(ctx, repo, 10)
		require.NoError(t, err)
		require.Len(t, cycles, 2)
		// Newest first
		assert.Equal(t, "c2", cycles[0].ID)
		assert.Equal(t, "0.3.0", cycles[0].Intent.Version)
		assert.Equal(t, domain.StepReleased, cycles[0].Steps[0].Status)

		limited, err := ledger.RecentCycles(ctx, repo, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})
}
