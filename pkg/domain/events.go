package domain

import (
	"context"
	"time"
)

// CycleEvent is emitted when a cycle starts and when it ends.
type CycleEvent struct {
	Timestamp  time.Time
	Repository string
	Trigger    Trigger
	// Report is only set on cycle end.
	Report *CycleReport
}

// StepEvent is emitted around each publishing step.
type StepEvent struct {
	Timestamp time.Time
	Step      StepID
	Version   string
	// Result is only set when the step finished.
	Result   *StepResult
	Duration time.Duration
}

// BranchEvent is emitted after each distribution branch was processed.
type BranchEvent struct {
	Timestamp time.Time
	Version   string
	Result    BranchResult
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnCycleStart   func(context.Context, *CycleEvent)
	OnCycleEnd     func(context.Context, *CycleEvent)
	OnStepStart    func(context.Context, *StepEvent)
	OnStepFinish   func(context.Context, *StepEvent)
	OnBranchFinish func(context.Context, *BranchEvent)
}

// Merge chains two hook sets so both receive every event.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnCycleStart:   chain(h.OnCycleStart, other.OnCycleStart),
		OnCycleEnd:     chain(h.OnCycleEnd, other.OnCycleEnd),
		OnStepStart:    chain(h.OnStepStart, other.OnStepStart),
		OnStepFinish:   chain(h.OnStepFinish, other.OnStepFinish),
		OnBranchFinish: chain(h.OnBranchFinish, other.OnBranchFinish),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
