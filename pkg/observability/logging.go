package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/releasebot/pkg/domain"
)

// LoggingHooks writes one structured line per lifecycle event.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	if logger == nil {
		return domain.LifecycleHooks{}
	}
	return domain.LifecycleHooks{
		OnCycleStart: func(ctx context.Context, e *domain.CycleEvent) {
			logger.DebugContext(ctx, "cycle_start",
				"repository", e.Repository,
				"trigger", e.Trigger,
			)
		},
		OnCycleEnd: func(ctx context.Context, e *domain.CycleEvent) {
			if e.Report == nil {
				return
			}
			attrs := []any{
				"repository", e.Repository,
				"outcome", e.Report.Outcome(),
			}
			if e.Report.Intent != nil {
				attrs = append(attrs, "version", e.Report.Intent.Version)
			}
			if e.Report.Err != "" {
				attrs = append(attrs, "error", e.Report.Err)
				logger.WarnContext(ctx, "cycle_end", attrs...)
				return
			}
			logger.InfoContext(ctx, "cycle_end", attrs...)
		},
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_start", "step", e.Step, "version", e.Version)
		},
		OnStepFinish: func(ctx context.Context, e *domain.StepEvent) {
			if e.Result == nil {
				return
			}
			logger.InfoContext(ctx, "step_finish",
				"step", e.Step,
				"status", e.Result.Status,
				"duration", e.Duration,
			)
		},
		OnBranchFinish: func(ctx context.Context, e *domain.BranchEvent) {
			level := slog.LevelInfo
			if e.Result.Status == domain.BranchFailed {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "branch_finish",
				"branch", e.Result.Branch,
				"status", e.Result.Status,
				"reason", e.Result.Reason,
			)
		},
	}
}
