// Package git prepares release branches in a local clone of the repository.
package git

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/oauth2"

	"github.com/aretw0/releasebot/internal/changelog"
	"github.com/aretw0/releasebot/pkg/ports"
	"github.com/aretw0/releasebot/pkg/version"
)

// Config locates the repository and the push credentials.
type Config struct {
	CloneURL string
	// Username is the basic auth user for pushing; installation tokens use "x-access-token".
	Username string
	// Tokens authenticates clone and push over HTTPS. Nil relies on the ambient git setup.
	Tokens oauth2.TokenSource
}

// Brancher implements ports.Brancher with the git CLI.
type Brancher struct {
	exec    ports.Executor
	cfg     Config
	logger  *slog.Logger
	tempDir string
}

// Option configures the brancher.
type Option func(*Brancher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Brancher) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithTempDir sets the parent of the temporary clone.
func WithTempDir(dir string) Option {
	return func(b *Brancher) {
		b.tempDir = dir
	}
}

// New creates a brancher running git through exec.
func New(exec ports.Executor, cfg Config, opts ...Option) *Brancher {
	b := &Brancher{
		exec:   exec,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PrepareReleaseBranch clones the repository, creates "<version>-release",
// prepends the generated changelog, bumps the version file when there is
// exactly one, commits and pushes.
func (b *Brancher) PrepareReleaseBranch(ctx context.Context, req ports.BranchRequest) (ports.ReleaseBranch, error) {
	rb := ports.ReleaseBranch{Name: req.Version + "-release"}

	env, err := b.authEnv()
	if err != nil {
		return rb, err
	}
	dir, err := os.MkdirTemp(b.tempDir, "release-branch-")
	if err != nil {
		return rb, fmt.Errorf("git: failed to create workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	git := func(msg string, args ...string) (ports.CommandResult, error) {
		return b.exec.Exec(ctx, ports.Command{Dir: dir, Name: "git", Args: args, Env: env, ErrorMessage: msg, Fatal: true})
	}

	if _, err := git("Couldn't clone repository", "clone", b.cfg.CloneURL, "."); err != nil {
		return rb, err
	}
	if _, err := git("Couldn't set committer email", "config", "user.email", req.AuthorEmail); err != nil {
		return rb, err
	}
	if _, err := git("Couldn't set committer name", "config", "user.name", req.AuthorName); err != nil {
		return rb, err
	}

	rb.Changelog = b.logSince(ctx, dir, req.PreviousVersion)

	if _, err := git("Couldn't create branch "+rb.Name, "checkout", "-b", rb.Name); err != nil {
		return rb, err
	}

	var staged []string
	files, err := FindVersionFiles(dir, req.Version)
	if err != nil {
		return rb, fmt.Errorf("git: failed to look for version files: %w", err)
	}
	for name := range files {
		rb.VersionFiles = append(rb.VersionFiles, name)
	}
	slices.Sort(rb.VersionFiles)
	switch len(files) {
	case 0:
		b.logger.Warn("no version files found, not updating version")
	case 1:
		name := rb.VersionFiles[0]
		if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), []byte(files[name]), 0o644); err != nil {
			return rb, err
		}
		rb.VersionUpdated = true
		staged = append(staged, name)
	default:
		b.logger.Warn("multiple version files found, not updating version", "files", rb.VersionFiles)
	}

	ok, err := changelog.Prepend(filepath.Join(dir, changelog.FileName), req.Version, rb.Changelog)
	if err != nil {
		return rb, err
	}
	if ok {
		staged = append(staged, changelog.FileName)
	} else {
		b.logger.Warn("no changelog present in repository", "file", changelog.FileName)
	}

	for _, f := range staged {
		if _, err := git("Can't add "+f, "add", f); err != nil {
			return rb, err
		}
	}
	if _, err := git("Can't commit files", "commit", "--allow-empty", "-m", req.Version+" release"); err != nil {
		return rb, err
	}
	if _, err := git("Can't push branch "+rb.Name+" to origin", "push", "origin", rb.Name); err != nil {
		return rb, err
	}
	b.logger.Info("pushed release branch", "branch", rb.Name, "version_updated", rb.VersionUpdated)
	return rb, nil
}

// logSince returns "* subject" lines of the non-merge commits since the previous release.
func (b *Brancher) logSince(ctx context.Context, dir, previous string) string {
	args := []string{"log", "--no-merges", "--format=* %s"}
	if previous != "" && previous != version.None {
		args = slices.Insert(args, 1, previous+"..HEAD")
	}
	res, err := b.exec.Exec(ctx, ports.Command{Dir: dir, Name: "git", Args: args, ErrorMessage: "Couldn't read git log"})
	log := strings.TrimSpace(res.Stdout)
	if err != nil || !res.Success || log == "" {
		return changelog.Placeholder
	}
	return log
}

// authEnv passes the token to git as an http.extraHeader through environment
// config. It is never written to argv or .git/config.
func (b *Brancher) authEnv() ([]string, error) {
	if b.cfg.Tokens == nil {
		return nil, nil
	}
	tok, err := b.cfg.Tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("git: failed to obtain push token: %w", err)
	}
	user := b.cfg.Username
	if user == "" {
		user = "x-access-token"
	}
	basic := base64.StdEncoding.EncodeToString([]byte(user + ":" + tok.AccessToken))
	return []string{
		"GIT_TERMINAL_PROMPT=0",
		"GIT_CONFIG_COUNT=1",
		"GIT_CONFIG_KEY_0=http.extraHeader",
		"GIT_CONFIG_VALUE_0=Authorization: Basic " + basic,
	}, nil
}
