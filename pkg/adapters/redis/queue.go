// Package redis backs the job queue and the per-repository lock with Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/releasebot/pkg/domain"
)

// DefaultQueue is the list key jobs are pushed to.
const DefaultQueue = "release-bot:jobs"

// Connect opens a client and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*backend.Client, error) {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: cannot reach %s: %w", addr, err)
	}
	return client, nil
}

// Queue implements ports.JobQueue as a Redis list: LPUSH to enqueue, BRPOP to
// dequeue, giving FIFO order across any number of producers and workers.
type Queue struct {
	client *backend.Client
	key    string
}

// QueueOption configures the queue.
type QueueOption func(*Queue)

// WithKey overrides DefaultQueue.
func WithKey(key string) QueueOption {
	return func(q *Queue) {
		if key != "" {
			q.key = key
		}
	}
}

// NewQueue creates a queue on an existing client.
func NewQueue(client *backend.Client, opts ...QueueOption) *Queue {
	q := &Queue{client: client, key: DefaultQueue}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue pushes the job.
func (q *Queue) Enqueue(ctx context.Context, job domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("redis: failed to encode job %s: %w", job.ID, err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("redis: failed to enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// Dequeue pops the oldest job, waiting up to timeout.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (domain.Job, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, backend.Nil) {
		return domain.Job{}, domain.ErrQueueEmpty
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("redis: failed to dequeue: %w", err)
	}
	// res is [key, value]
	var job domain.Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return domain.Job{}, fmt.Errorf("redis: malformed job payload: %w", err)
	}
	return job, nil
}

// Len returns the number of waiting jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
