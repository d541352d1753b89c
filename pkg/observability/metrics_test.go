package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	hooks.OnCycleEnd(ctx, &domain.CycleEvent{Report: &domain.CycleReport{
		Intent:     &domain.ReleaseIntent{Version: "1.0.0"},
		Steps:      []domain.StepResult{{Step: domain.StepGitHub, Status: domain.StepReleased}},
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
	}})
	hooks.OnCycleEnd(ctx, &domain.CycleEvent{Report: &domain.CycleReport{}})
	hooks.OnCycleEnd(ctx, &domain.CycleEvent{})

	hooks.OnStepFinish(ctx, &domain.StepEvent{
		Step:   domain.StepGitHub,
		Result: &domain.StepResult{Step: domain.StepGitHub, Status: domain.StepReleased},
	})
	hooks.OnStepFinish(ctx, &domain.StepEvent{Step: domain.StepPackageIndex})

	hooks.OnBranchFinish(ctx, &domain.BranchEvent{Result: domain.BranchResult{Branch: "f28", Status: domain.BranchFailed}})
	m.WebhookEvent("issues", "enqueued")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues("idle")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CycleDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Steps.WithLabelValues("github", "released")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Steps))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Branches.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookEvents.WithLabelValues("issues", "enqueued")))
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics(nil)
	m.WebhookEvent("ping", "pong")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `releasebot_webhook_events_total{action="pong",event="ping"} 1`)
}

func TestLoggingHooks(t *testing.T) {
	t.Run("Nil Logger", func(t *testing.T) {
		hooks := observability.LoggingHooks(nil)
		assert.Nil(t, hooks.OnCycleEnd)
	})

	t.Run("Failed Branch Logs Warning", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		hooks := observability.LoggingHooks(logger)

		hooks.OnBranchFinish(context.Background(), &domain.BranchEvent{
			Result: domain.BranchResult{Branch: "f27", Status: domain.BranchFailed, Reason: "push"},
		})
		out := buf.String()
		assert.Contains(t, out, "level=WARN")
		assert.Contains(t, out, "branch=f27")
	})

	t.Run("Cycle Error", func(t *testing.T) {
		var buf bytes.Buffer
		hooks := observability.LoggingHooks(slog.New(slog.NewTextHandler(&buf, nil)))

		hooks.OnCycleEnd(context.Background(), &domain.CycleEvent{
			Repository: "o/r",
			Report:     &domain.CycleReport{Err: "boom"},
		})
		assert.Contains(t, buf.String(), "outcome=error")
		assert.Contains(t, buf.String(), "error=boom")
	})
}
