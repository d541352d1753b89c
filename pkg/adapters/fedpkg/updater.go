// Package fedpkg publishes releases to Fedora dist-git through the fedpkg CLI.
package fedpkg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/ports"
)

// DefaultRealm is the Kerberos realm of the Fedora account system.
const DefaultRealm = "FEDORAPROJECT.ORG"

// ReasonFromScratch marks a branch that could not be fast-forwarded and was
// updated on its own. Branch-specific changelog entries may be lost.
const ReasonFromScratch = "rebuilt from scratch"

// Config identifies the dist-git package and the packager.
type Config struct {
	// Package is the dist-git repository name; the spec file is <Package>.spec.
	Package       string
	FASUsername   string
	Keytab        string
	Realm         string
	DefaultBranch string
}

// Updater implements ports.Distribution. The default branch is updated first;
// every other branch is fast-forwarded to it or, failing that, updated from scratch.
type Updater struct {
	exec    ports.Executor
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
	tempDir string
}

// Option configures the updater.
type Option func(*Updater)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Updater) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithClock overrides the changelog date source.
func WithClock(now func() time.Time) Option {
	return func(u *Updater) {
		u.now = now
	}
}

// WithTempDir sets the parent of the temporary dist-git clone.
func WithTempDir(dir string) Option {
	return func(u *Updater) {
		u.tempDir = dir
	}
}

// New creates an updater running commands through exec.
func New(exec ports.Executor, cfg Config, opts ...Option) *Updater {
	if cfg.Realm == "" {
		cfg.Realm = DefaultRealm
	}
	if cfg.DefaultBranch == "" {
		cfg.DefaultBranch = "master"
	}
	u := &Updater{
		exec:   exec,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Release pushes state's version to the default branch and then to every
// configured branch in order. A default-branch failure aborts the run;
// failures on other branches are recorded in the report only.
func (u *Updater) Release(ctx context.Context, state *domain.ReleaseState) (domain.BuildReport, error) {
	if err := u.initTicket(ctx); err != nil {
		return nil, domain.Recoverable(domain.StepDistribution, err)
	}

	tmp, err := os.MkdirTemp(u.tempDir, "fedpkg-")
	if err != nil {
		return nil, fmt.Errorf("failed to create dist-git workspace: %w", err)
	}
	defer os.RemoveAll(tmp)

	var report domain.BuildReport
	def := u.cfg.DefaultBranch
	abort := func(err error) (domain.BuildReport, error) {
		report = append(report, domain.BranchResult{Branch: def, Status: domain.BranchFailed, Reason: err.Error()})
		return report, domain.BranchFatal(domain.StepDistribution, fmt.Errorf("%w: %w", domain.ErrDefaultBranch, err))
	}

	if err := u.run(ctx, tmp, true, "Cloning fedora repository failed", "fedpkg", "clone", u.cfg.Package); err != nil {
		return abort(err)
	}
	root := filepath.Join(tmp, u.cfg.Package)
	if err := u.run(ctx, root, true, "Switching to "+def+" failed", "fedpkg", "switch-branch", def); err != nil {
		return abort(err)
	}
	if err := u.updatePackage(ctx, root, def, state, true); err != nil {
		return abort(err)
	}
	report = append(report, domain.BranchResult{Branch: def, Status: domain.BranchUpdated})

	for _, branch := range u.branches(state) {
		result := u.updateBranch(ctx, root, branch, state)
		u.logger.Info("fedora branch finished", "branch", branch, "status", result.Status, "reason", result.Reason)
		report = append(report, result)
	}
	return report, nil
}

// branches returns the configured branches without the default one and without duplicates.
func (u *Updater) branches(state *domain.ReleaseState) []string {
	var out []string
	for _, b := range state.DistributionBranches {
		if b == "" || b == u.cfg.DefaultBranch || slices.Contains(out, b) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func (u *Updater) updateBranch(ctx context.Context, root, branch string, state *domain.ReleaseState) domain.BranchResult {
	result := domain.BranchResult{Branch: branch}
	if err := u.run(ctx, root, false, "Switching to "+branch+" failed", "fedpkg", "switch-branch", branch); err != nil {
		result.Status, result.Reason = domain.BranchSkipped, err.Error()
		return result
	}

	merge := u.run(ctx, root, false, fmt.Sprintf("Merging %s to branch %q failed", u.cfg.DefaultBranch, branch),
		"git", "merge", u.cfg.DefaultBranch, "--ff-only")
	if merge != nil {
		u.logger.Debug("fast-forward failed, updating branch from scratch", "branch", branch)
		err := u.updatePackage(ctx, root, branch, state, false)
		switch {
		case errors.Is(err, domain.ErrNoNewSources):
			result.Status, result.Reason = domain.BranchSkipped, err.Error()
		case err != nil:
			result.Status, result.Reason = domain.BranchFailed, err.Error()
		default:
			result.Status, result.Reason = domain.BranchUpdated, ReasonFromScratch
		}
		return result
	}

	if err := u.run(ctx, root, false, fmt.Sprintf("Pushing branch %q to Fedora failed", branch), "fedpkg", "push"); err != nil {
		result.Status, result.Reason = domain.BranchFailed, err.Error()
		return result
	}
	if err := u.run(ctx, root, false, fmt.Sprintf("Building branch %q in Fedora failed", branch), "fedpkg", "build"); err != nil {
		result.Status, result.Reason = domain.BranchFailed, err.Error()
		return result
	}
	result.Status = domain.BranchUpdated
	return result
}

// updatePackage pulls the new upstream sources into the checked out branch,
// rewrites the spec file, then commits, pushes and builds.
func (u *Updater) updatePackage(ctx context.Context, root, branch string, state *domain.ReleaseState, fatal bool) error {
	v := state.Version()
	if err := u.run(ctx, root, fatal, "Retrieving sources for branch "+branch+" failed", "fedpkg", "sources"); err != nil {
		return err
	}

	specPath := filepath.Join(root, u.cfg.Package+".spec")
	if err := u.rewriteSpecFile(specPath, state); err != nil {
		return err
	}

	if err := u.run(ctx, root, fatal, "Spec lint on branch "+branch+" failed", "fedpkg", "lint"); err != nil {
		return err
	}

	before, err := listDir(root)
	if err != nil {
		return err
	}
	specs, err := filepath.Glob(filepath.Join(root, "*.spec"))
	if err != nil {
		return err
	}
	args := append([]string{"-g"}, specs...)
	if err := u.run(ctx, root, fatal, "Retrieving new sources for branch "+branch+" failed", "spectool", args...); err != nil {
		return err
	}
	after, err := listDir(root)
	if err != nil {
		return err
	}

	var added []string
	for _, name := range after {
		if !slices.Contains(before, name) {
			added = append(added, name)
		}
	}
	if len(added) == 0 {
		u.logger.Warn("there are no new sources, not releasing to fedora", "branch", branch)
		return domain.ErrNoNewSources
	}

	steps := []struct {
		msg  string
		name string
		args []string
	}{
		{"Adding new sources on branch " + branch + " failed", "fedpkg", append([]string{"new-sources"}, added...)},
		{"Committing on branch " + branch + " failed", "fedpkg", []string{"commit", "-m", "Update to " + v}},
		{fmt.Sprintf("Pushing branch %q to Fedora failed", branch), "fedpkg", []string{"push"}},
		{fmt.Sprintf("Building branch %q in Fedora failed", branch), "fedpkg", []string{"build"}},
	}
	for _, s := range steps {
		if err := u.run(ctx, root, fatal, s.msg, s.name, s.args...); err != nil {
			return err
		}
	}
	return nil
}

func (u *Updater) rewriteSpecFile(path string, state *domain.ReleaseState) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("no spec file found in dist-git repository: %w", err)
	}
	content := RewriteSpec(string(data), SpecUpdate{
		Version:     state.Version(),
		AuthorName:  state.AuthorName,
		AuthorEmail: state.AuthorEmail,
		Changelog:   state.ChangelogEntries,
		Date:        u.now(),
	})
	return os.WriteFile(path, []byte(content), 0o644)
}

func (u *Updater) initTicket(ctx context.Context) error {
	if u.cfg.FASUsername == "" {
		return fmt.Errorf("%w: fas_username is not configured", domain.ErrNoTicket)
	}
	principal := u.cfg.FASUsername + "@" + u.cfg.Realm
	args := []string{"-R", principal}
	if u.cfg.Keytab != "" {
		if _, err := os.Stat(u.cfg.Keytab); err == nil {
			args = []string{principal, "-k", "-t", u.cfg.Keytab}
		} else {
			u.logger.Warn("keytab not readable, renewing existing ticket", "keytab", u.cfg.Keytab, "err", err)
		}
	}
	if err := u.run(ctx, "", false, "Failed to init kerberos ticket", "kinit", args...); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNoTicket, err)
	}
	return nil
}

// run executes one command. Unsuccessful results become errors either way;
// fatal only changes whether the executor reports it.
func (u *Updater) run(ctx context.Context, dir string, fatal bool, msg, name string, args ...string) error {
	res, err := u.exec.Exec(ctx, ports.Command{
		Dir:          dir,
		Name:         name,
		Args:         args,
		ErrorMessage: msg,
		Fatal:        fatal,
	})
	if err != nil {
		return err
	}
	if !res.Success {
		if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
			return fmt.Errorf("%s: %s", msg, stderr)
		}
		return errors.New(msg)
	}
	return nil
}

func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
