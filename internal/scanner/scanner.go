// Package scanner discovers release intents by walking paginated pull request
// and issue history and matching titles such as "1.2.0 release" or
// "new minor release".
package scanner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/ports"
	"github.com/aretw0/releasebot/pkg/version"
)

// DefaultPageSize matches the page size used against the GitHub GraphQL API.
const DefaultPageSize = 5

const titleSuffix = " release"

// Issue authors must hold one of these associations to trigger a release.
var authorized = map[string]bool{
	"MEMBER":       true,
	"OWNER":        true,
	"COLLABORATOR": true,
}

// VersionSource reports the newest released version.
type VersionSource interface {
	LatestVersion(ctx context.Context) (string, error)
}

type scanKind int

const (
	scanNewestPull scanKind = iota
	scanOpenIssues
)

// progress is what an interrupted scan leaves behind for the retry.
type progress struct {
	cursor  string
	matches []domain.ReleaseIntent
}

// Scanner walks paging sources looking for release titles.
// It is not safe for concurrent use; one engine owns one scanner.
type Scanner struct {
	pulls    ports.PagingSource
	issues   ports.PagingSource
	latest   VersionSource
	pageSize int
	logger   *slog.Logger

	resume        map[scanKind]*progress
	forwardCursor string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCursor seeds the forward cursor, e.g. from a previous process.
func WithCursor(cursor string) Option {
	return func(s *Scanner) {
		s.forwardCursor = cursor
	}
}

// New creates a scanner over merged pull requests and open issues.
// issues may be nil when issue triggers are not used.
func New(pulls, issues ports.PagingSource, latest VersionSource, opts ...Option) *Scanner {
	s := &Scanner{
		pulls:    pulls,
		issues:   issues,
		latest:   latest,
		pageSize: DefaultPageSize,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		resume:   make(map[scanKind]*progress),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MatchTitle applies the release title grammar.
// The trimmed, lower-cased title must end in " release"; the text before it is either a
// semantic version or one of the "new major|minor|patch" keywords, resolved against latest.
func MatchTitle(title, latest string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(title))
	if !strings.HasSuffix(t, titleSuffix) {
		return "", false
	}
	keyword := strings.TrimSpace(strings.TrimSuffix(t, titleSuffix))
	if version.IsKeyword(keyword) {
		v, err := version.Next(latest, keyword)
		if err != nil {
			return "", false
		}
		return v, true
	}
	if version.Valid(keyword) {
		return keyword, true
	}
	return "", false
}

// Cursor returns the forward cursor carried between ReleasePullRequestsSince calls.
func (s *Scanner) Cursor() string {
	return s.forwardCursor
}

// NewestReleasePullRequest walks merged pull requests from the newest toward the oldest
// and returns the first one with a release title. It returns nil when history holds none.
func (s *Scanner) NewestReleasePullRequest(ctx context.Context) (*domain.ReleaseIntent, error) {
	latest, err := s.latest.LatestVersion(ctx)
	if err != nil {
		return nil, domain.Recoverable(domain.StepScan, fmt.Errorf("failed to read latest release: %w", err))
	}

	start := s.takeProgress(scanNewestPull)

	var found *domain.ReleaseIntent
	cursor, err := s.walk(ctx, s.pulls, ports.Backward, start.cursor, func(e ports.Edge) bool {
		if v, ok := s.match(e, latest); ok {
			intent := newIntent(domain.IntentPullRequest, e, v, latest)
			found = &intent
			return true
		}
		return false
	})
	if err != nil {
		s.resume[scanNewestPull] = &progress{cursor: cursor}
		return nil, domain.Recoverable(domain.StepScan, fmt.Errorf("failed to page merged pull requests: %w", err))
	}
	return found, nil
}

// ReleasePullRequestsSince walks merged pull requests newer than the carried cursor and
// returns the first release among them. Without a cursor it anchors on the newest release
// pull request. The cursor advances with every edge seen, including across failures.
func (s *Scanner) ReleasePullRequestsSince(ctx context.Context) (*domain.ReleaseIntent, error) {
	latest, err := s.latest.LatestVersion(ctx)
	if err != nil {
		return nil, domain.Recoverable(domain.StepScan, fmt.Errorf("failed to read latest release: %w", err))
	}

	if s.forwardCursor == "" {
		var anchor *domain.ReleaseIntent
		var anchorCursor string
		_, err := s.walk(ctx, s.pulls, ports.Backward, "", func(e ports.Edge) bool {
			if v, ok := s.match(e, latest); ok {
				intent := newIntent(domain.IntentPullRequest, e, v, latest)
				anchor, anchorCursor = &intent, e.Cursor
				return true
			}
			return false
		})
		if err != nil {
			return nil, domain.Recoverable(domain.StepScan, fmt.Errorf("failed to anchor pull request cursor: %w", err))
		}
		if anchor != nil {
			s.forwardCursor = anchorCursor
			return anchor, nil
		}
		// Nothing released through a pull request yet: walk from the oldest one.
	}

	var found *domain.ReleaseIntent
	cursor, err := s.walk(ctx, s.pulls, ports.Forward, s.forwardCursor, func(e ports.Edge) bool {
		if v, ok := s.match(e, latest); ok {
			intent := newIntent(domain.IntentPullRequest, e, v, latest)
			found = &intent
			return true
		}
		return false
	})
	s.forwardCursor = cursor
	if err != nil {
		return nil, domain.Recoverable(domain.StepScan, fmt.Errorf("failed to page merged pull requests: %w", err))
	}
	return found, nil
}

// OpenReleaseIssue returns the single open release issue raised by an authorized author.
// More than one candidate yields domain.ErrIntentConflict.
func (s *Scanner) OpenReleaseIssue(ctx context.Context) (*domain.ReleaseIntent, error) {
	if s.issues == nil {
		return nil, nil
	}
	latest, err := s.latest.LatestVersion(ctx)
	if err != nil {
		return nil, domain.Recoverable(domain.StepScan, fmt.Errorf("failed to read latest release: %w", err))
	}

	start := s.takeProgress(scanOpenIssues)
	matches := start.matches

	cursor, err := s.walk(ctx, s.issues, ports.Backward, start.cursor, func(e ports.Edge) bool {
		v, ok := s.match(e, latest)
		if !ok {
			return false
		}
		if !authorized[strings.ToUpper(e.AuthorAssociation)] {
			s.logger.Info("ignoring release issue from unauthorized author",
				"issue", e.Number, "author", e.AuthorLogin, "association", e.AuthorAssociation)
			return false
		}
		matches = append(matches, newIntent(domain.IntentIssue, e, v, latest))
		return false
	})
	if err != nil {
		s.resume[scanOpenIssues] = &progress{cursor: cursor, matches: matches}
		return nil, domain.Recoverable(domain.StepScan, fmt.Errorf("failed to page open issues: %w", err))
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		numbers := make([]int, 0, len(matches))
		for _, m := range matches {
			numbers = append(numbers, m.Number)
		}
		slices.Sort(numbers)
		return nil, domain.Recoverable(domain.StepScan, fmt.Errorf("%w: issues %v", domain.ErrIntentConflict, numbers))
	}
}

func (s *Scanner) takeProgress(kind scanKind) progress {
	p, ok := s.resume[kind]
	if !ok {
		return progress{}
	}
	delete(s.resume, kind)
	s.logger.Debug("resuming interrupted scan", "cursor", p.cursor, "matches", len(p.matches))
	return *p
}

func (s *Scanner) match(e ports.Edge, latest string) (string, bool) {
	v, ok := MatchTitle(e.Title, latest)
	if !ok && strings.HasSuffix(strings.ToLower(strings.TrimSpace(e.Title)), titleSuffix) {
		s.logger.Info("release title carries no valid version", "title", e.Title, "number", e.Number)
	}
	return v, ok
}

// walk pages through src in dir starting after (or before) cursor until visit returns true
// or the collection is exhausted. It returns the last cursor seen.
func (s *Scanner) walk(ctx context.Context, src ports.PagingSource, dir ports.Direction, cursor string, visit func(ports.Edge) bool) (string, error) {
	for {
		page, err := src.List(ctx, ports.PageRequest{Direction: dir, Cursor: cursor, Size: s.pageSize})
		if err != nil {
			return cursor, err
		}
		s.logger.Debug("scanned page", "direction", dir, "cursor", cursor, "edges", len(page.Edges))

		edges := page.Edges
		if dir == ports.Backward {
			edges = slices.Clone(edges)
			slices.Reverse(edges)
		}
		for _, e := range edges {
			cursor = e.Cursor
			if visit(e) {
				return cursor, nil
			}
		}
		if len(edges) == 0 || !page.HasMore {
			return cursor, nil
		}
	}
}

func newIntent(kind domain.IntentKind, e ports.Edge, v, latest string) domain.ReleaseIntent {
	ref := e.MergeReference
	if kind == domain.IntentIssue {
		ref = e.SubjectID
	}
	return domain.ReleaseIntent{
		Kind:            kind,
		Version:         v,
		SourceReference: ref,
		SubjectID:       e.SubjectID,
		Number:          e.Number,
		Title:           e.Title,
		PreviousVersion: latest,
		AuthorLogin:     e.AuthorLogin,
		AuthorName:      e.AuthorName,
		AuthorEmail:     e.AuthorEmail,
	}
}
