package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "releasebot"

// Metrics holds the collectors updated by the engine hooks and the webhook receiver.
type Metrics struct {
	registry prometheus.Gatherer

	Cycles        *prometheus.CounterVec
	Steps         *prometheus.CounterVec
	Branches      *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	WebhookEvents *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg uses a fresh private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed release cycles by outcome.",
		}, []string{"outcome"}),
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Publishing steps by step and status.",
		}, []string{"step", "status"}),
		Branches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distribution_branches_total",
			Help:      "Distribution branch updates by status.",
		}, []string{"status"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a release cycle.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800},
		}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by event and action taken.",
		}, []string{"event", "action"}),
	}
	reg.MustRegister(m.Cycles, m.Steps, m.Branches, m.CycleDuration, m.WebhookEvents)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.registry = g
	}
	return m
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCycleEnd: func(_ context.Context, e *domain.CycleEvent) {
			if e.Report == nil {
				return
			}
			m.Cycles.WithLabelValues(e.Report.Outcome()).Inc()
			if !e.Report.StartedAt.IsZero() && !e.Report.FinishedAt.IsZero() {
				m.CycleDuration.Observe(e.Report.FinishedAt.Sub(e.Report.StartedAt).Seconds())
			}
		},
		OnStepFinish: func(_ context.Context, e *domain.StepEvent) {
			if e.Result == nil {
				return
			}
			m.Steps.WithLabelValues(string(e.Step), string(e.Result.Status)).Inc()
		},
		OnBranchFinish: func(_ context.Context, e *domain.BranchEvent) {
			m.Branches.WithLabelValues(string(e.Result.Status)).Inc()
		},
	}
}

// WebhookEvent counts one webhook delivery.
func (m *Metrics) WebhookEvent(event, action string) {
	m.WebhookEvents.WithLabelValues(event, action).Inc()
}

// Handler serves the registry the metrics were registered on.
// When that registry cannot be gathered from, the default one is served.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
