// Package github talks to GitHub for the release engine: GraphQL for paging
// pull requests and issues and for comments, REST for releases, contents,
// pull requests, labels and users.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v66/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// Default fallbacks for users with a hidden name or email.
const (
	DefaultUserName  = "Release bot"
	DefaultUserEmail = "bot@releasebot.bot"
)

// Config selects the repository and the credentials.
// A complete App triple (AppID, InstallationID, AppKeyPath) takes precedence over Token.
type Config struct {
	Owner      string
	Repository string

	Token string

	AppID          int64
	InstallationID int64
	AppKeyPath     string

	// BaseBranch is the base of release pull requests. Empty means the repository default branch.
	BaseBranch string

	// APIURL overrides https://api.github.com/ (GitHub Enterprise, tests).
	APIURL string
}

// UsesApp reports whether GitHub App credentials are configured.
func (c Config) UsesApp() bool {
	return c.AppID != 0 && c.InstallationID != 0 && c.AppKeyPath != ""
}

// Client implements the engine ports backed by GitHub.
type Client struct {
	cfg    Config
	rest   *gh.Client
	gql    *githubv4.Client
	tokens oauth2.TokenSource
	logger *slog.Logger

	baseBranch string
}

// Option configures the client.
type Option func(*options)

type options struct {
	httpClient  *http.Client
	logger      *slog.Logger
	tokenSource oauth2.TokenSource
}

// WithHTTPClient sets the transport wrapped by the token source.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTokenSource overrides the token source derived from Config.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(o *options) {
		o.tokenSource = ts
	}
}

// New creates a client for cfg.Owner/cfg.Repository.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Owner == "" || cfg.Repository == "" {
		return nil, errors.New("github: owner and repository are required")
	}
	o := &options{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	apiURL := strings.TrimSuffix(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.github.com"
	}
	base, err := url.Parse(apiURL + "/")
	if err != nil {
		return nil, fmt.Errorf("github: invalid api url: %w", err)
	}

	ts := o.tokenSource
	if ts == nil {
		switch {
		case cfg.UsesApp():
			ts, err = NewAppTokenSource(cfg.AppID, cfg.InstallationID, cfg.AppKeyPath,
				WithAppHTTPClient(o.httpClient), WithAppBaseURL(base))
			if err != nil {
				return nil, err
			}
		case cfg.Token != "":
			ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		default:
			return nil, errors.New("github: no credentials configured")
		}
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, o.httpClient)
	httpClient := oauth2.NewClient(ctx, ts)

	rest := gh.NewClient(httpClient)
	rest.BaseURL = base

	return &Client{
		cfg:        cfg,
		rest:       rest,
		gql:        githubv4.NewEnterpriseClient(apiURL+"/graphql", httpClient),
		tokens:     ts,
		logger:     logger,
		baseBranch: cfg.BaseBranch,
	}, nil
}

// FullName returns owner/repository.
func (c *Client) FullName() string {
	return c.cfg.Owner + "/" + c.cfg.Repository
}

// TokenSource returns the credentials used for API calls, for git pushes over HTTPS.
func (c *Client) TokenSource() oauth2.TokenSource {
	return c.tokens
}

// isNotFound reports whether a go-github call failed with 404.
func isNotFound(resp *gh.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var er *gh.ErrorResponse
	return errors.As(err, &er) && er.Response != nil && er.Response.StatusCode == http.StatusNotFound
}
