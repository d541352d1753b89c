package runner_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/releasebot/pkg/adapters/memory"
	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingCycler records every call and can fail on demand.
type countingCycler struct {
	mu       sync.Mutex
	triggers []domain.Trigger
	err      error
	onRun    func(ctx context.Context)
}

func (c *countingCycler) RunCycle(ctx context.Context, trigger domain.Trigger) (*domain.CycleReport, error) {
	if c.onRun != nil {
		c.onRun(ctx)
	}
	c.mu.Lock()
	c.triggers = append(c.triggers, trigger)
	c.mu.Unlock()
	return &domain.CycleReport{Trigger: trigger}, c.err
}

func (c *countingCycler) calls() []domain.Trigger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Trigger(nil), c.triggers...)
}

func TestPoller(t *testing.T) {
	t.Run("Run Once", func(t *testing.T) {
		c := &countingCycler{}
		var seen *domain.CycleReport
		p := runner.NewPoller(c, time.Hour, runner.WithReportHandler(func(r *domain.CycleReport, err error) {
			seen = r
		}))

		report, err := p.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.TriggerAll, report.Trigger)
		assert.Same(t, report, seen)
	})

	t.Run("Loops Until Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		c := &countingCycler{}
		c.onRun = func(context.Context) {
			if len(c.calls()) == 2 {
				cancel()
			}
		}
		p := runner.NewPoller(c, time.Millisecond)

		require.NoError(t, p.Run(ctx))
		assert.Len(t, c.calls(), 3)
	})

	t.Run("Errors Do Not Stop The Loop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		c := &countingCycler{err: errors.New("no release-conf.yaml")}
		var failures atomic.Int32
		p := runner.NewPoller(c, time.Millisecond, runner.WithReportHandler(func(_ *domain.CycleReport, err error) {
			if err != nil && failures.Add(1) == 3 {
				cancel()
			}
		}))

		require.NoError(t, p.Run(ctx))
		assert.EqualValues(t, 3, failures.Load())
	})

	t.Run("Cycle Context Survives Cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var cycleErr error
		c := &countingCycler{onRun: func(cctx context.Context) {
			cancel()
			cycleErr = cctx.Err()
		}}

		require.NoError(t, runner.NewPoller(c, time.Hour).Run(ctx))
		assert.NoError(t, cycleErr)
		assert.Len(t, c.calls(), 1)
	})
}

func TestWorker(t *testing.T) {
	job := func(id, repo string, trigger domain.Trigger) domain.Job {
		return domain.Job{ID: id, Owner: "user-cont", Repository: repo, Trigger: trigger}
	}

	t.Run("Consumes Jobs With Their Trigger", func(t *testing.T) {
		q := memory.NewQueue()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		c := &countingCycler{}
		var built []string
		var mu sync.Mutex
		factory := func(_ context.Context, j domain.Job) (runner.Cycler, error) {
			mu.Lock()
			built = append(built, j.FullName())
			mu.Unlock()
			return c, nil
		}
		var done atomic.Int32
		w := runner.NewWorker(q, factory,
			runner.WithPollTimeout(10*time.Millisecond),
			runner.WithReportHandler(func(*domain.CycleReport, error) {
				if done.Add(1) == 2 {
					cancel()
				}
			}),
		)

		require.NoError(t, q.Enqueue(ctx, job("1", "a", domain.TriggerIssue)))
		require.NoError(t, q.Enqueue(ctx, job("2", "b", domain.TriggerPullRequest)))

		require.NoError(t, w.Run(ctx))
		assert.Equal(t, []domain.Trigger{domain.TriggerIssue, domain.TriggerPullRequest}, c.calls())
		assert.Equal(t, []string{"user-cont/a", "user-cont/b"}, built)
	})

	t.Run("Factory Failure Is Reported", func(t *testing.T) {
		w := runner.NewWorker(memory.NewQueue(), func(context.Context, domain.Job) (runner.Cycler, error) {
			return nil, errors.New("bad credentials")
		})

		report, err := w.Handle(context.Background(), job("1", "a", domain.TriggerIssue))
		assert.Nil(t, report)
		assert.ErrorContains(t, err, "bad credentials")
	})

	t.Run("Locker Serializes Same Repository", func(t *testing.T) {
		var running, peak atomic.Int32
		c := runner.CyclerFunc(func(context.Context, domain.Trigger) (*domain.CycleReport, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return &domain.CycleReport{}, nil
		})
		w := runner.NewWorker(memory.NewQueue(),
			func(context.Context, domain.Job) (runner.Cycler, error) { return c, nil },
			runner.WithLocker(memory.NewLocker(), time.Minute),
		)

		var wg sync.WaitGroup
		for i := range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := w.Handle(context.Background(), job(string(rune('a'+i)), "same", domain.TriggerAll))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, peak.Load())
	})

	t.Run("Lock Failure", func(t *testing.T) {
		locker := memory.NewLocker()
		held, err := locker.Lock(context.Background(), "user-cont/a", time.Minute)
		require.NoError(t, err)
		defer held(context.Background())

		w := runner.NewWorker(memory.NewQueue(),
			func(context.Context, domain.Job) (runner.Cycler, error) { return &countingCycler{}, nil },
			runner.WithLocker(locker, time.Minute),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err = w.Handle(ctx, job("1", "a", domain.TriggerAll))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Concurrency", func(t *testing.T) {
		q := memory.NewQueue()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var running, peak, done atomic.Int32
		c := runner.CyclerFunc(func(context.Context, domain.Trigger) (*domain.CycleReport, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(50 * time.Millisecond)
			running.Add(-1)
			if done.Add(1) == 2 {
				cancel()
			}
			return &domain.CycleReport{}, nil
		})
		w := runner.NewWorker(q,
			func(context.Context, domain.Job) (runner.Cycler, error) { return c, nil },
			runner.WithConcurrency(2),
			runner.WithPollTimeout(10*time.Millisecond),
		)
		require.NoError(t, q.Enqueue(ctx, job("1", "a", domain.TriggerAll)))
		require.NoError(t, q.Enqueue(ctx, job("2", "b", domain.TriggerAll)))

		require.NoError(t, w.Run(ctx))
		assert.EqualValues(t, 2, peak.Load())
	})
}
