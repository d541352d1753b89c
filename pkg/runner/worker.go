package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/ports"
)

// Worker is the queue-consumer driver.
type Worker struct {
	queue   ports.JobQueue
	factory Factory
	settings
}

// NewWorker creates a consumer of queue.
func NewWorker(queue ports.JobQueue, factory Factory, opts ...Option) *Worker {
	return &Worker{
		queue:    queue,
		factory:  factory,
		settings: newSettings(opts),
	}
}

// Run starts the configured number of consumers and blocks until ctx is canceled.
// Jobs already taken are finished before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Worker started", "concurrency", w.concurrency)
	g, ctx := errgroup.WithContext(ctx)
	for i := range w.concurrency {
		g.Go(func() error {
			return w.consume(ctx, i)
		})
	}
	err := g.Wait()
	w.logger.Info("Worker stopped")
	return err
}

func (w *Worker) consume(ctx context.Context, id int) error {
	log := w.logger.With("worker", id)
	for ctx.Err() == nil {
		job, err := w.queue.Dequeue(ctx, w.pollTimeout)
		switch {
		case errors.Is(err, domain.ErrQueueEmpty):
			continue
		case ctx.Err() != nil:
			return nil
		case err != nil:
			log.Warn("Dequeue failed", "err", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		_, _ = w.Handle(ctx, job)
	}
	return nil
}

// Handle runs the cycle for one job. Errors are logged and returned; they never
// stop the consumer.
func (w *Worker) Handle(ctx context.Context, job domain.Job) (*domain.CycleReport, error) {
	log := w.logger.With("job", job.ID, "repository", job.FullName(), "trigger", job.Trigger)
	log.Info("Processing job")

	if w.locker != nil {
		unlock, err := w.locker.Lock(ctx, job.FullName(), w.lockTTL)
		if err != nil {
			err = fmt.Errorf("lock %s: %w", job.FullName(), err)
			log.Error("Could not lock repository", "err", err)
			w.report(nil, err)
			return nil, err
		}
		defer func() {
			if err := unlock(context.Background()); err != nil {
				log.Warn("Could not release repository lock", "err", err)
			}
		}()
	}

	cycler, err := w.factory(ctx, job)
	if err != nil {
		err = fmt.Errorf("build cycle for %s: %w", job.FullName(), err)
		log.Error("Could not prepare cycle", "err", err)
		w.report(nil, err)
		return nil, err
	}

	report, err := cycler.RunCycle(context.WithoutCancel(ctx), job.Trigger)
	switch {
	case err != nil:
		log.Error("Cycle failed", "err", err)
	case report != nil:
		log.Info("Job done", "outcome", report.Outcome())
	}
	w.report(report, err)
	return report, err
}
