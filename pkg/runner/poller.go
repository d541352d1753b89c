package runner

import (
	"context"
	"time"

	"github.com/aretw0/releasebot/pkg/domain"
)

// Poller is the timer driver.
type Poller struct {
	cycler   Cycler
	interval time.Duration
	settings
}

// NewPoller creates a timer driver sleeping interval between cycles.
func NewPoller(cycler Cycler, interval time.Duration, opts ...Option) *Poller {
	return &Poller{
		cycler:   cycler,
		interval: interval,
		settings: newSettings(opts),
	}
}

// RunOnce runs a single cycle covering every discovery path.
// The cycle itself is not canceled by ctx.
func (p *Poller) RunOnce(ctx context.Context) (*domain.CycleReport, error) {
	report, err := p.cycler.RunCycle(context.WithoutCancel(ctx), domain.TriggerAll)
	if err != nil {
		p.logger.Error("Cycle failed", "err", err)
	}
	p.report(report, err)
	return report, err
}

// Run loops until ctx is canceled. Cycle errors are logged and the loop goes on.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Polling started", "interval", p.interval)
	for {
		if ctx.Err() != nil {
			break
		}
		_, _ = p.RunOnce(ctx)

		p.logger.Debug("Sleeping until next cycle", "interval", p.interval)
		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
	p.logger.Info("Polling stopped")
	return nil
}
