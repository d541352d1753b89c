package cli

import (
	"context"

	"github.com/aretw0/releasebot"
	"github.com/aretw0/releasebot/internal/presentation/tui"
	"github.com/aretw0/releasebot/pkg/runner"
)

// Run drives cycles on a timer until ctx is canceled. With once it runs a
// single cycle and returns its error.
func Run(ctx context.Context, env *Env, once bool) error {
	bot, err := env.NewBot(ctx)
	if err != nil {
		return err
	}
	defer bot.Close()

	engine, err := bot.Engine()
	if err != nil {
		return err
	}
	poller := runner.NewPoller(engine, env.Config.Interval(), runner.WithLogger(env.Logger))

	if once {
		_, err := poller.RunOnce(ctx)
		return err
	}
	if tui.IsTerminal(env.Stdout) {
		tui.PrintBanner(env.Stdout, "polling", env.Config.FullName(), releasebot.BuildVersion())
	}
	return poller.Run(ctx)
}
