package middleware

import (
	"context"
	"regexp"
	"strings"

	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/ports"
)

const mask = "***"

// DefaultPatterns match GitHub tokens and credentials embedded in URLs or headers.
var DefaultPatterns = []string{
	`gh[pousr]_[A-Za-z0-9]{20,}`,
	`github_pat_[A-Za-z0-9_]{20,}`,
	`(?i)(authorization:\s*)(basic|bearer|token)\s+\S+`,
	`https?://[^\s/:@]+:[^\s/@]+@`,
}

type redactMiddleware struct {
	next     ports.Ledger
	patterns []*regexp.Regexp
	secrets  []string
}

// NewRedactMiddleware masks text matching patterns, and every literal secret,
// in the free-text fields of cycle reports before they reach the ledger.
// Command stderr ends up in those fields, so leaked credentials would otherwise
// be stored.
func NewRedactMiddleware(patternStrings []string, secrets ...string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	var literal []string
	for _, s := range secrets {
		if s != "" {
			literal = append(literal, s)
		}
	}
	return func(next ports.Ledger) ports.Ledger {
		return &redactMiddleware{next: next, patterns: patterns, secrets: literal}
	}
}

func (m *redactMiddleware) RecordCycle(ctx context.Context, report *domain.CycleReport) error {
	cloned := *report
	cloned.Err = m.redact(report.Err)

	cloned.Notes = make([]string, len(report.Notes))
	for i, n := range report.Notes {
		cloned.Notes[i] = m.redact(n)
	}
	cloned.Steps = make([]domain.StepResult, len(report.Steps))
	for i, s := range report.Steps {
		s.Detail = m.redact(s.Detail)
		cloned.Steps[i] = s
	}
	cloned.Branches = make(domain.BuildReport, len(report.Branches))
	for i, b := range report.Branches {
		b.Reason = m.redact(b.Reason)
		cloned.Branches[i] = b
	}
	return m.next.RecordCycle(ctx, &cloned)
}

func (m *redactMiddleware) RecentCycles(ctx context.Context, repository string, limit int) ([]domain.CycleReport, error) {
	return m.next.RecentCycles(ctx, repository, limit)
}

func (m *redactMiddleware) LastDistributionVersion(ctx context.Context, repository string) (string, error) {
	return m.next.LastDistributionVersion(ctx, repository)
}

func (m *redactMiddleware) MarkDistributionReleased(ctx context.Context, repository, version string) error {
	return m.next.MarkDistributionReleased(ctx, repository, version)
}

func (m *redactMiddleware) redact(s string) string {
	if s == "" {
		return s
	}
	for _, secret := range m.secrets {
		s = strings.ReplaceAll(s, secret, mask)
	}
	for _, p := range m.patterns {
		s = p.ReplaceAllStringFunc(s, func(match string) string {
			// Keep the scheme or header name so the message stays readable.
			if sub := p.FindStringSubmatch(match); len(sub) > 1 && sub[1] != "" {
				return sub[1] + mask
			}
			if i := strings.Index(match, "://"); i >= 0 {
				return match[:i+3] + mask + "@"
			}
			return mask
		})
	}
	return s
}
