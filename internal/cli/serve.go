package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/releasebot"
	webhook "github.com/aretw0/releasebot/internal/adapters/http"
	"github.com/aretw0/releasebot/internal/presentation/tui"
	"github.com/aretw0/releasebot/pkg/adapters/memory"
	"github.com/aretw0/releasebot/pkg/adapters/redis"
	"github.com/aretw0/releasebot/pkg/ports"
	"github.com/aretw0/releasebot/pkg/runner"
)

// jobs is the queue and locker the webhook and the workers share.
type jobs struct {
	queue  ports.JobQueue
	locker ports.DistributedLocker
	inline bool
	close  func() error
}

// openJobs connects to Redis when an address is configured. Without one the
// queue lives in this process and workers run inline with the receiver.
func openJobs(ctx context.Context, env *Env) (*jobs, error) {
	rc := env.Config.Redis
	if rc.Address == "" {
		j := &jobs{queue: memory.NewQueue(), inline: true, close: func() error { return nil }}
		if rc.LockRepository {
			j.locker = memory.NewLocker()
		}
		return j, nil
	}

	client, err := redis.Connect(ctx, rc.Address, rc.Password, rc.DB)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", rc.Address, err)
	}
	j := &jobs{
		queue: redis.NewQueue(client, redis.WithKey(rc.Queue)),
		close: client.Close,
	}
	if rc.LockRepository {
		j.locker = redis.NewLocker(client, "release-bot:")
	}
	return j, nil
}

func (j *jobs) workerOptions(env *Env) []runner.Option {
	opts := []runner.Option{
		runner.WithLogger(env.Logger),
		runner.WithConcurrency(env.Config.Workers),
	}
	if j.locker != nil {
		opts = append(opts, runner.WithLocker(j.locker, time.Duration(env.Config.Redis.LockTTL)*time.Second))
	}
	return opts
}

// Serve runs the webhook receiver until ctx is canceled. Without Redis the
// workers run in the same process.
func Serve(ctx context.Context, env *Env) error {
	j, err := openJobs(ctx, env)
	if err != nil {
		return err
	}
	defer j.close()

	handler := webhook.NewHandler(j.queue,
		webhook.WithSecret(env.Config.Webhook.Secret),
		webhook.WithMetrics(env.Metrics),
		webhook.WithLogger(env.Logger),
	)

	if tui.IsTerminal(env.Stdout) {
		tui.PrintBanner(env.Stdout, "webhook", env.Config.Webhook.Address, releasebot.BuildVersion())
	}

	var worker *runner.Worker
	if j.inline {
		env.Logger.Info("No redis configured, running workers in process")
		bot, err := env.NewBot(ctx)
		if err != nil {
			return err
		}
		defer bot.Close()
		worker = runner.NewWorker(j.queue, bot.Factory(), j.workerOptions(env)...)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webhook.ListenAndServe(ctx, env.Config.Webhook.Address, handler, env.Logger)
	})
	if worker != nil {
		g.Go(func() error {
			return worker.Run(ctx)
		})
	}
	return g.Wait()
}

// Work consumes the Redis queue until ctx is canceled.
func Work(ctx context.Context, env *Env) error {
	if env.Config.Redis.Address == "" {
		return errors.New("worker needs redis.address or REDIS_SERVICE_HOST")
	}
	j, err := openJobs(ctx, env)
	if err != nil {
		return err
	}
	defer j.close()

	bot, err := env.NewBot(ctx)
	if err != nil {
		return err
	}
	defer bot.Close()

	return runner.NewWorker(j.queue, bot.Factory(), j.workerOptions(env)...).Run(ctx)
}
