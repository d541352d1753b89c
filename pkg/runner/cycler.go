package runner

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/ports"
)

// Cycler runs one release cycle. internal/runtime.Engine implements it.
type Cycler interface {
	RunCycle(ctx context.Context, trigger domain.Trigger) (*domain.CycleReport, error)
}

// CyclerFunc adapts a function to Cycler.
type CyclerFunc func(ctx context.Context, trigger domain.Trigger) (*domain.CycleReport, error)

// RunCycle calls f.
func (f CyclerFunc) RunCycle(ctx context.Context, trigger domain.Trigger) (*domain.CycleReport, error) {
	return f(ctx, trigger)
}

// Factory builds the Cycler for one queued job.
type Factory func(ctx context.Context, job domain.Job) (Cycler, error)

// ReportHandler receives every finished cycle report.
type ReportHandler func(report *domain.CycleReport, err error)

// Default worker settings.
const (
	DefaultPollTimeout = 5 * time.Second
	DefaultLockTTL     = 30 * time.Minute
)

type settings struct {
	logger      *slog.Logger
	onReport    ReportHandler
	concurrency int
	pollTimeout time.Duration
	locker      ports.DistributedLocker
	lockTTL     time.Duration
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		concurrency: 1,
		pollTimeout: DefaultPollTimeout,
		lockTTL:     DefaultLockTTL,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures a Poller or a Worker.
type Option func(*settings)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithReportHandler is called after each cycle, successful or not.
func WithReportHandler(h ReportHandler) Option {
	return func(s *settings) {
		s.onReport = h
	}
}

// WithConcurrency sets the number of worker goroutines. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithPollTimeout bounds each blocking dequeue.
func WithPollTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.pollTimeout = d
		}
	}
}

// WithLocker serializes jobs of the same repository across workers.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(s *settings) {
		s.locker = locker
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func (s settings) report(report *domain.CycleReport, err error) {
	if s.onReport != nil {
		s.onReport(report, err)
	}
}
