// Package cli holds what the release-bot commands do, so cmd/release-bot only
// parses flags.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/releasebot"
	"github.com/aretw0/releasebot/internal/config"
	"github.com/aretw0/releasebot/internal/logging"
	"github.com/aretw0/releasebot/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Options are the global flags.
type Options struct {
	ConfigPath string
	Keytab     string
	Debug      bool

	Stdout io.Writer
	Stderr io.Writer
}

// Env is everything a command needs once the configuration is loaded.
type Env struct {
	Config   config.Config
	Service  config.ServiceEnv
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Stdout   io.Writer
}

// Setup loads the configuration and builds the logger. CLI flags win over
// conf.yaml, which wins over defaults.
func Setup(opts Options) (*Env, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	svc, err := config.LoadServiceEnv()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.ResolvePath(opts.ConfigPath, svc))
	if err != nil {
		return nil, err
	}
	if opts.Keytab != "" {
		cfg.Keytab = opts.Keytab
	}
	if cfg.Redis.Address == "" && os.Getenv("REDIS_SERVICE_HOST") != "" {
		svc.ApplyRedis(&cfg)
	}

	level := logging.ParseLevel(cfg.Log.Level)
	if opts.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(logging.NewHandler(opts.Stderr, level, cfg.Log.Format))

	reg := prometheus.NewRegistry()
	return &Env{
		Config:   cfg,
		Service:  svc,
		Logger:   logger,
		Registry: reg,
		Metrics:  observability.NewMetrics(reg),
		Stdout:   opts.Stdout,
	}, nil
}

// NewBot creates the bot for env. Callers must Close it.
func (e *Env) NewBot(ctx context.Context, opts ...releasebot.Option) (*releasebot.Bot, error) {
	base := []releasebot.Option{
		releasebot.WithLogger(e.Logger),
		releasebot.WithMetrics(e.Metrics),
	}
	return releasebot.New(ctx, e.Config, append(base, opts...)...)
}
