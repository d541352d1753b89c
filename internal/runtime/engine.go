package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/releasebot/internal/config"
	"github.com/aretw0/releasebot/internal/scanner"
	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/ports"
)

// Dependencies are the collaborators of the engine.
// PackageIndex, Distribution, Tracker and Brancher are optional.
type Dependencies struct {
	Scanner       *scanner.Scanner
	Registry      ports.ReleaseRegistry
	PackageIndex  ports.PackageIndex
	Distribution  ports.Distribution
	Comments      ports.CommentSink
	ReleaseConfig ports.ReleaseConfigSource
	Tracker       ports.IssueTracker
	Brancher      ports.Brancher
}

// Engine is the release state machine. It runs one cycle at a time; RunCycle
// serializes concurrent callers.
type Engine struct {
	cfg  config.Config
	deps Dependencies

	ledger ports.Ledger
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	machine *machine
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLedger records every cycle and guards the distribution step with the
// last distribution-released version.
func WithLedger(ledger ports.Ledger) Option {
	return func(e *Engine) {
		e.ledger = ledger
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine for the repository described by cfg.
func NewEngine(cfg config.Config, deps Dependencies, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		deps:    deps,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		machine: newMachine(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current machine state.
func (e *Engine) State() domain.CycleState {
	return e.machine.state
}

// cycle carries the per-cycle bookkeeping.
type cycle struct {
	report *domain.CycleReport
	notes  domain.Notes
	state  *domain.ReleaseState
}

// RunCycle runs one full cycle: load the release configuration, discover intents
// and drive every publishing step. The machine always ends at Idle; the working
// directory is removed and the progress notes are flushed as a single comment.
// The returned error reports what stopped the cycle early; step failures are only
// recorded in the report.
func (e *Engine) RunCycle(ctx context.Context, trigger domain.Trigger) (report *domain.CycleReport, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if trigger == "" {
		trigger = domain.TriggerAll
	}
	c := &cycle{report: &domain.CycleReport{
		ID:         uuid.NewString(),
		Repository: e.cfg.FullName(),
		Trigger:    trigger,
		StartedAt:  e.now(),
	}}
	report = c.report

	if e.hooks.OnCycleStart != nil {
		e.hooks.OnCycleStart(ctx, &domain.CycleEvent{Timestamp: c.report.StartedAt, Repository: c.report.Repository, Trigger: trigger})
	}
	e.logger.Debug("cycle started", "cycle", c.report.ID, "trigger", trigger)

	defer func() {
		if r := recover(); r != nil {
			err = domain.CycleFatal(domain.StepCycle, fmt.Errorf("panic: %v", r))
		}
		e.finish(ctx, c, err)
	}()

	conf, err := e.loadReleaseConfig(ctx)
	if err != nil {
		return report, err
	}

	if trigger.Includes(domain.IntentIssue) && conf.TriggerOnIssue {
		if err := e.releasePullRequest(ctx, conf); err != nil {
			e.logAt(err, "release pull request not created", "err", err)
		}
	}

	if trigger.Includes(domain.IntentPullRequest) {
		return report, e.release(ctx, c, conf)
	}
	return report, nil
}

func (e *Engine) loadReleaseConfig(ctx context.Context) (domain.ReleaseConfig, error) {
	raw, err := e.deps.ReleaseConfig.ReleaseConfig(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoReleaseConfig) {
			return domain.ReleaseConfig{}, domain.CycleFatal(domain.StepConfig, err)
		}
		return domain.ReleaseConfig{}, domain.Recoverable(domain.StepConfig, fmt.Errorf("failed to fetch %s: %w", config.ReleaseConfigFile, err))
	}
	conf, err := config.ParseReleaseConfig(raw)
	if err != nil {
		return domain.ReleaseConfig{}, domain.CycleFatal(domain.StepConfig, err)
	}
	return config.Reconcile(conf, e.cfg, e.logger), nil
}

// release drives the publishing steps for the newest merged release pull request.
func (e *Engine) release(ctx context.Context, c *cycle, conf domain.ReleaseConfig) error {
	intent, err := e.discover(ctx)
	if err != nil {
		return err
	}
	if intent == nil {
		e.logger.Debug("no merged release pull request found")
		return nil
	}
	c.report.Intent = intent

	state := domain.NewReleaseState(*intent, conf)
	if state.PackageProject == "" {
		state.PackageProject = e.cfg.RepositoryName
	}
	c.state = state
	if err := e.machine.advance(domain.StateDiscovered); err != nil {
		return domain.CycleFatal(domain.StepCycle, err)
	}
	e.logger.Info("found merged release pull request",
		"version", intent.Version, "commit", intent.SourceReference, "number", intent.Number)

	if err := e.githubStep(ctx, c); err != nil {
		return nil
	}
	if err := e.machine.advance(domain.StateGitHubReleased); err != nil {
		return domain.CycleFatal(domain.StepCycle, err)
	}

	pkg := e.packageStep(ctx, c)
	if state.Completed[domain.StepPackageIndex] {
		if err := e.machine.advance(domain.StatePackageReleased); err != nil {
			return domain.CycleFatal(domain.StepCycle, err)
		}
	}

	if e.distributionStep(ctx, c, pkg) == domain.StepReleased {
		if err := e.machine.advance(domain.StateDistributionReleased); err != nil {
			return domain.CycleFatal(domain.StepCycle, err)
		}
	}
	return nil
}

func (e *Engine) discover(ctx context.Context) (*domain.ReleaseIntent, error) {
	var (
		intent *domain.ReleaseIntent
		err    error
	)
	if e.cfg.Scan.Mode == config.ScanSince {
		intent, err = e.deps.Scanner.ReleasePullRequestsSince(ctx)
	} else {
		intent, err = e.deps.Scanner.NewestReleasePullRequest(ctx)
	}
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, nil
	}
	if _, perr := parseVersion(intent.Version); perr != nil {
		return nil, domain.CycleFatal(domain.StepScan, perr)
	}
	return intent, nil
}

// finish is the unconditional end of every cycle.
func (e *Engine) finish(ctx context.Context, c *cycle, err error) {
	if c.state != nil {
		if cerr := c.state.WorkDir.Close(); cerr != nil {
			e.logger.Warn("failed to remove working directory", "err", cerr)
		}
	}

	if c.report.Intent != nil {
		e.flush(ctx, c.report.Intent.SubjectID, &c.notes)
	}
	c.report.Notes = c.notes.Lines()
	c.notes.Reset()

	c.report.Trail = e.machine.reset()
	c.report.FinishedAt = e.now()
	if err != nil {
		c.report.Err = err.Error()
		e.logAt(err, "cycle aborted", "cycle", c.report.ID, "err", err)
	}

	if e.ledger != nil {
		if lerr := e.ledger.RecordCycle(ctx, c.report); lerr != nil {
			e.logger.Warn("failed to record cycle", "err", lerr)
		}
	}
	if e.hooks.OnCycleEnd != nil {
		e.hooks.OnCycleEnd(ctx, &domain.CycleEvent{
			Timestamp:  c.report.FinishedAt,
			Repository: c.report.Repository,
			Trigger:    c.report.Trigger,
			Report:     c.report,
		})
	}
	e.logger.Debug("cycle finished", "cycle", c.report.ID, "outcome", c.report.Outcome(),
		"duration", c.report.FinishedAt.Sub(c.report.StartedAt))
}

// flush posts the buffered notes as one comment. Failures are logged only.
func (e *Engine) flush(ctx context.Context, subjectID string, notes *domain.Notes) {
	if notes.Empty() || subjectID == "" || e.deps.Comments == nil {
		return
	}
	if err := e.deps.Comments.AddComment(ctx, subjectID, notes.String()); err != nil {
		e.logger.Error("failed to post progress comment", "subject", subjectID, "err", err)
	}
}

func (e *Engine) logAt(err error, msg string, args ...any) {
	switch domain.SeverityOf(err) {
	case domain.SeverityCycleFatal:
		e.logger.Error(msg, args...)
	default:
		e.logger.Warn(msg, args...)
	}
}
