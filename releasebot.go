package releasebot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/shlex"

	"github.com/aretw0/releasebot/internal/config"
	"github.com/aretw0/releasebot/internal/runtime"
	"github.com/aretw0/releasebot/internal/scanner"
	"github.com/aretw0/releasebot/pkg/adapters/fedpkg"
	"github.com/aretw0/releasebot/pkg/adapters/git"
	"github.com/aretw0/releasebot/pkg/adapters/github"
	"github.com/aretw0/releasebot/pkg/adapters/process"
	"github.com/aretw0/releasebot/pkg/adapters/pypi"
	"github.com/aretw0/releasebot/pkg/adapters/sqlite"
	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/observability"
	"github.com/aretw0/releasebot/pkg/persistence/middleware"
	"github.com/aretw0/releasebot/pkg/ports"
	"github.com/aretw0/releasebot/pkg/runner"
)

// Programs the default executor may run.
var defaultTools = []string{"git", "fedpkg", "spectool", "kinit", "python2", "python3", "twine"}

// Bot wires the GitHub, PyPI, Fedora and git adapters into release engines.
type Bot struct {
	cfg    config.Config
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	metrics    *observability.Metrics
	ledger     ports.Ledger
	closeFns   []func() error
	exec       ports.Executor
	httpClient *http.Client
	apiURL     string
}

// Option configures the Bot.
type Option func(*Bot)

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithLifecycleHooks registers extra observability hooks on every engine.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Bot) {
		b.hooks = b.hooks.Merge(hooks)
	}
}

// WithMetrics feeds the Prometheus collectors from every engine.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Bot) {
		b.metrics = m
	}
}

// WithLedger overrides the ledger opened from ledger.path.
func WithLedger(ledger ports.Ledger) Option {
	return func(b *Bot) {
		b.ledger = ledger
	}
}

// WithExecutor replaces the local process runner.
func WithExecutor(exec ports.Executor) Option {
	return func(b *Bot) {
		b.exec = exec
	}
}

// WithHTTPClient sets the transport for GitHub and PyPI.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Bot) {
		b.httpClient = c
	}
}

// WithGitHubAPIURL points the GitHub client at an Enterprise server or a test double.
func WithGitHubAPIURL(url string) Option {
	return func(b *Bot) {
		b.apiURL = url
	}
}

// New validates cfg and prepares shared resources. When ledger.path is set and
// no ledger was injected, the SQLite ledger is opened; Close releases it.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Bot{
		cfg:        cfg,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.exec == nil {
		exec, err := b.newExecutor()
		if err != nil {
			return nil, err
		}
		b.exec = exec
	}

	if b.ledger == nil && cfg.Ledger.Path != "" {
		ledger, err := sqlite.Open(ctx, cfg.Ledger.Path)
		if err != nil {
			return nil, fmt.Errorf("opening ledger: %w", err)
		}
		b.ledger = ledger
		b.closeFns = append(b.closeFns, ledger.Close)
	}
	if b.ledger != nil {
		redact := middleware.NewRedactMiddleware(middleware.DefaultPatterns, cfg.GitHubToken, cfg.Webhook.Secret)
		b.ledger = redact(b.ledger)
	}
	return b, nil
}

// Config returns the bot configuration.
func (b *Bot) Config() config.Config {
	return b.cfg
}

// Ledger returns the configured ledger, or nil.
func (b *Bot) Ledger() ports.Ledger {
	return b.ledger
}

// Close releases resources opened by New.
func (b *Bot) Close() error {
	var errs []error
	for _, fn := range b.closeFns {
		errs = append(errs, fn())
	}
	b.closeFns = nil
	return errors.Join(errs...)
}

// Engine builds the engine for the configured repository. The Poller reuses one
// engine so interrupted scans resume on the next cycle.
func (b *Bot) Engine() (*runtime.Engine, error) {
	return b.engineFor(b.cfg)
}

// Factory builds one engine per queued job, for the repository the job names.
func (b *Bot) Factory() runner.Factory {
	return func(_ context.Context, job domain.Job) (runner.Cycler, error) {
		if job.Owner == "" || job.Repository == "" {
			return nil, fmt.Errorf("%w: job %s names no repository", domain.ErrInvalidConfig, job.ID)
		}
		return b.engineFor(b.cfg.ForRepository(job.Owner, job.Repository))
	}
}

func (b *Bot) engineFor(cfg config.Config) (*runtime.Engine, error) {
	logger := b.logger.With("repository", cfg.FullName())

	client, err := github.New(github.Config{
		Owner:          cfg.RepositoryOwner,
		Repository:     cfg.RepositoryName,
		Token:          cfg.GitHubToken,
		AppID:          cfg.GitHubAppID,
		InstallationID: cfg.GitHubAppInstallationID,
		AppKeyPath:     cfg.GitHubAppCertPath,
		APIURL:         b.apiURL,
	}, github.WithHTTPClient(b.httpClient), github.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	pushUser := cfg.GitHubUsername
	if cfg.UsesGitHubApp() {
		pushUser = ""
	}

	deps := runtime.Dependencies{
		Scanner: scanner.New(client.MergedPullRequests(), client.OpenIssues(), client,
			scanner.WithPageSize(cfg.Scan.PageSize),
			scanner.WithLogger(logger),
		),
		Registry:      client,
		Comments:      client,
		ReleaseConfig: client,
		Tracker:       client,
		PackageIndex: pypi.New(b.exec,
			pypi.WithURL(cfg.PyPI.URL),
			pypi.WithHTTPClient(b.httpClient),
			pypi.WithBuildCommands(cfg.PyPI.BuildCommands...),
			pypi.WithRepository(cfg.PyPI.Repository),
			pypi.WithLogger(logger),
		),
		Distribution: fedpkg.New(b.exec, fedpkg.Config{
			Package:       cfg.RepositoryName,
			FASUsername:   cfg.FASUsername,
			Keytab:        cfg.Keytab,
			Realm:         cfg.Fedora.Realm,
			DefaultBranch: cfg.Fedora.DefaultBranch,
		}, fedpkg.WithLogger(logger)),
		Brancher: git.New(b.exec, git.Config{
			CloneURL: cfg.CloneURL,
			Username: pushUser,
			Tokens:   client.TokenSource(),
		}, git.WithLogger(logger)),
	}

	hooks := observability.LoggingHooks(logger).Merge(b.hooks)
	if b.metrics != nil {
		hooks = hooks.Merge(b.metrics.Hooks())
	}
	opts := []runtime.Option{
		runtime.WithLogger(logger),
		runtime.WithLifecycleHooks(hooks),
	}
	if b.ledger != nil {
		opts = append(opts, runtime.WithLedger(b.ledger))
	}
	return runtime.NewEngine(cfg, deps, opts...), nil
}

func (b *Bot) newExecutor() (*process.Runner, error) {
	tools := append([]string(nil), defaultTools...)
	for _, line := range b.cfg.PyPI.BuildCommands {
		args, err := shlex.Split(line)
		if err != nil || len(args) == 0 {
			return nil, fmt.Errorf("%w: pypi.build_commands entry %q", domain.ErrInvalidConfig, line)
		}
		tools = append(tools, args[0])
	}
	opts := []process.RunnerOption{
		process.WithAllowList(tools...),
		process.WithLogger(b.logger),
	}
	for name, path := range b.cfg.Tools {
		opts = append(opts, process.WithBinary(name, path))
	}
	return process.NewRunner(opts...), nil
}
