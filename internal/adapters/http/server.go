// Package http is the GitHub webhook receiver. It turns deliveries into queue
// jobs and never runs a cycle itself.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gh "github.com/google/go-github/v66/github"
	"github.com/google/uuid"

	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/observability"
	"github.com/aretw0/releasebot/pkg/ports"
)

// WebhookPath is where GitHub deliveries are accepted.
const WebhookPath = "/webhooks/github"

// Server handles webhook deliveries.
type Server struct {
	queue   ports.JobQueue
	secret  []byte
	metrics *observability.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the server.
type Option func(*Server)

// WithSecret enables X-Hub-Signature-256 verification.
func WithSecret(secret string) Option {
	return func(s *Server) {
		s.secret = []byte(secret)
	}
}

// WithMetrics counts deliveries and exposes GET /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now for job timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewHandler creates the router serving the webhook, health and metrics endpoints.
func NewHandler(queue ports.JobQueue, opts ...Option) http.Handler {
	s := &Server{
		queue:  queue,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Post(WebhookPath, s.Webhook)
	return r
}

// Webhook handles POST /webhooks/github.
func (s *Server) Webhook(w http.ResponseWriter, r *http.Request) {
	event := gh.WebHookType(r)
	delivery := gh.DeliveryID(r)
	log := s.logger.With("event", event, "delivery", delivery)

	payload, err := gh.ValidatePayload(r, s.secret)
	if err != nil {
		log.Warn("Rejected webhook delivery", "err", err)
		s.count(event, "rejected")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	switch event {
	case "ping", "issues", "pull_request":
	default:
		s.count(event, "ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	parsed, err := gh.ParseWebHook(event, payload)
	if err != nil {
		log.Warn("Malformed webhook payload", "err", err)
		s.count(event, "rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed payload"})
		return
	}

	var job *domain.Job
	switch e := parsed.(type) {
	case *gh.PingEvent:
		s.count(event, "pong")
		writeJSON(w, http.StatusOK, map[string]string{"status": "pong"})
		return
	case *gh.IssuesEvent:
		if e.GetAction() == "opened" {
			job = s.newJob(domain.TriggerIssue, e.GetRepo(), e.GetSender(), delivery)
		}
	case *gh.PullRequestEvent:
		if e.GetAction() == "closed" && e.GetPullRequest().GetMerged() {
			job = s.newJob(domain.TriggerPullRequest, e.GetRepo(), e.GetSender(), delivery)
		}
	}
	if job == nil {
		s.count(event, "ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if job.Owner == "" || job.Repository == "" {
		s.count(event, "rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payload has no repository"})
		return
	}

	if err := s.queue.Enqueue(r.Context(), *job); err != nil {
		log.Error("Failed to enqueue job", "err", err, "repository", job.FullName())
		s.count(event, "failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "queue unavailable"})
		return
	}
	log.Info("Enqueued release job", "job", job.ID, "repository", job.FullName(), "trigger", job.Trigger)
	s.count(event, "enqueued")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "job_id": job.ID})
}

func (s *Server) newJob(trigger domain.Trigger, repo *gh.Repository, sender *gh.User, delivery string) *domain.Job {
	return &domain.Job{
		ID:         uuid.NewString(),
		Trigger:    trigger,
		Owner:      repo.GetOwner().GetLogin(),
		Repository: repo.GetName(),
		Sender:     sender.GetLogin(),
		DeliveryID: delivery,
		ReceivedAt: s.now(),
	}
}

func (s *Server) count(event, action string) {
	if s.metrics != nil {
		s.metrics.WebhookEvent(event, action)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ListenAndServe runs handler on addr until ctx is canceled, then shuts down
// with a five second grace period.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Webhook receiver listening", "addr", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		logger.Info("Webhook receiver stopped")
		return nil
	}
}
