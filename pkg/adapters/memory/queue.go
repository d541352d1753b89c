// Package memory provides in-process implementations of the queue, ledger and
// locker ports. They back `serve` when no Redis is configured, and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/releasebot/pkg/domain"
)

// Queue implements ports.JobQueue in memory.
// Safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	jobs   []domain.Job
	signal chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{}, 1)}
}

// Enqueue appends job.
func (q *Queue) Enqueue(_ context.Context, job domain.Job) error {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue waits up to timeout for the oldest job.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (domain.Job, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if job, ok := q.pop(); ok {
			return job, nil
		}
		select {
		case <-q.signal:
		case <-timer.C:
			return domain.Job{}, domain.ErrQueueEmpty
		case <-ctx.Done():
			return domain.Job{}, ctx.Err()
		}
	}
}

// Len returns the number of waiting jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *Queue) pop() (domain.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return domain.Job{}, false
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	if len(q.jobs) > 0 {
		// Wake the next waiter.
		select {
		case q.signal <- struct{}{}:
		default:
		}
	}
	return job, true
}
