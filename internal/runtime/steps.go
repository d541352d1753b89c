package runtime

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aretw0/releasebot/internal/archive"
	"github.com/aretw0/releasebot/internal/changelog"
	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/ports"
	"github.com/aretw0/releasebot/pkg/version"
)

func parseVersion(v string) (string, error) {
	parsed, err := version.Parse(v)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// stepRun times one step and reports it to the hooks and the cycle report.
type stepRun struct {
	engine  *Engine
	cycle   *cycle
	step    domain.StepID
	started time.Time
}

func (e *Engine) startStep(ctx context.Context, c *cycle, step domain.StepID) *stepRun {
	r := &stepRun{engine: e, cycle: c, step: step, started: e.now()}
	if e.hooks.OnStepStart != nil {
		e.hooks.OnStepStart(ctx, &domain.StepEvent{Timestamp: r.started, Step: step, Version: c.state.Version()})
	}
	return r
}

func (r *stepRun) done(ctx context.Context, status domain.StepStatus, detail string) domain.StepStatus {
	result := domain.StepResult{Step: r.step, Status: status, Detail: detail}
	r.cycle.report.Steps = append(r.cycle.report.Steps, result)
	if status == domain.StepReleased || status == domain.StepSkipped {
		r.cycle.state.MarkCompleted(r.step)
	}

	e := r.engine
	now := e.now()
	if e.hooks.OnStepFinish != nil {
		e.hooks.OnStepFinish(ctx, &domain.StepEvent{
			Timestamp: now,
			Step:      r.step,
			Version:   r.cycle.state.Version(),
			Result:    &result,
			Duration:  now.Sub(r.started),
		})
	}
	switch status {
	case domain.StepFailed:
		e.logger.Error("step failed", "step", r.step, "version", r.cycle.state.Version(), "reason", detail)
	default:
		e.logger.Info("step finished", "step", r.step, "status", status, "version", r.cycle.state.Version())
	}
	return status
}

// errSuperseded stops a cycle whose version was overtaken by an untagged newer release.
var errSuperseded = errors.New("superseded by a newer release")

// githubStep makes sure the release record exists and the released sources are
// unpacked into the working directory. It returns an error when later steps
// cannot run.

func (e *Engine) githubStep(ctx context.Context, c *cycle) error {
	state := c.state
	v := state.Version()
	run := e.startStep(ctx, c, domain.StepGitHub)

	fail := func(format string, err error) error {
		c.notes.Addf("Failed to release %s on GitHub: %v", v, err)
		run.done(ctx, domain.StepFailed, fmt.Sprintf(format, err))
		return domain.Recoverable(domain.StepGitHub, err)
	}

	live, err := e.deps.Registry.LatestVersion(ctx)
	if err != nil {
		return fail("latest release: %v", err)
	}

	var (
		rel     ports.Release
		created bool
	)
	if version.AtLeast(live, v) {
		e.logger.Info("version already released on GitHub", "version", v, "latest", live)
		rel, err = e.deps.Registry.ReleaseByVersion(ctx, v)
		if errors.Is(err, domain.ErrReleaseNotFound) {
			// A newer version was published without ever tagging this one.
			// There is no source tree, so the cycle ends here without a note.
			e.logger.Info("version superseded on GitHub, nothing to publish", "version", v, "latest", live)
			run.done(ctx, domain.StepSkipped, "superseded by "+live)
			return errSuperseded
		}
		if err != nil {
			return fail("release lookup: %v", err)
		}
	} else {
		rel, err = e.deps.Registry.CreateRelease(ctx, ports.ReleaseRequest{
			Version:   v,
			Commitish: state.Commitish,
			Title:     v,
		})
		if err != nil {
			return fail("create release: %v", err)
		}
		created = true
		c.notes.Addf("Released %s on GitHub", v)
	}

	if err := e.fetchSources(ctx, state, rel); err != nil {
		return fail("fetch sources: %v", err)
	}

	if created {
		notes, err := changelog.ReadSection(filepath.Join(state.ProjectRoot, changelog.FileName), v)
		if err == nil {
			err = e.deps.Registry.UpdateReleaseNotes(ctx, rel.ID, notes)
		}
		if err != nil {
			e.logger.Warn("failed to update release notes", "version", v, "err", err)
		}
		run.done(ctx, domain.StepReleased, rel.HTMLURL)
		return nil
	}
	run.done(ctx, domain.StepSkipped, "already released")
	return nil
}

func (e *Engine) fetchSources(ctx context.Context, state *domain.ReleaseState, rel ports.Release) error {
	wd, err := domain.NewWorkDir("release-bot-")
	if err != nil {
		return err
	}
	state.WorkDir = wd

	zip, err := e.deps.Registry.DownloadArchive(ctx, rel, wd.Path)
	if err != nil {
		return err
	}
	root, err := archive.ExtractZip(zip, filepath.Join(wd.Path, "src"))
	if err != nil {
		return err
	}
	state.ProjectRoot = root
	return nil
}

// packageStep publishes to the package index unless it already carries the version.
func (e *Engine) packageStep(ctx context.Context, c *cycle) domain.StepStatus {
	state := c.state
	v := state.Version()
	if !state.Enabled(domain.TargetPackageIndex) || e.deps.PackageIndex == nil {
		c.report.Steps = append(c.report.Steps, domain.StepResult{Step: domain.StepPackageIndex, Status: domain.StepDisabled})
		return domain.StepDisabled
	}
	if !state.Completed[domain.StepGitHub] {
		c.report.Steps = append(c.report.Steps, domain.StepResult{
			Step: domain.StepPackageIndex, Status: domain.StepSkipped, Detail: "github step not completed",
		})
		return domain.StepSkipped
	}
	run := e.startStep(ctx, c, domain.StepPackageIndex)

	live, err := e.deps.PackageIndex.LatestVersion(ctx, state.PackageProject)
	if err != nil {
		c.notes.Addf("Failed to release %s on PyPI: %v", v, err)
		return run.done(ctx, domain.StepFailed, err.Error())
	}
	if version.AtLeast(live, v) {
		e.logger.Info("version already released on PyPI", "version", v, "latest", live)
		return run.done(ctx, domain.StepSkipped, "already released")
	}

	err = e.deps.PackageIndex.BuildAndUpload(ctx, ports.BuildRequest{
		ProjectRoot:    state.ProjectRoot,
		Project:        state.PackageProject,
		Version:        v,
		PythonVersions: state.PythonVersions,
	})
	if err != nil {
		c.notes.Addf("Failed to release %s on PyPI: %v", v, err)
		return run.done(ctx, domain.StepFailed, err.Error())
	}
	c.notes.Addf("Released %s on PyPI", v)
	return run.done(ctx, domain.StepReleased, state.PackageProject)
}

// distributionStep runs only right after a package upload in the same cycle,
// since the distribution has no latest-version oracle.
func (e *Engine) distributionStep(ctx context.Context, c *cycle, pkg domain.StepStatus) domain.StepStatus {
	state := c.state
	v := state.Version()
	if !state.Enabled(domain.TargetDistribution) || e.deps.Distribution == nil {
		c.report.Steps = append(c.report.Steps, domain.StepResult{Step: domain.StepDistribution, Status: domain.StepDisabled})
		return domain.StepDisabled
	}
	if pkg != domain.StepReleased {
		c.report.Steps = append(c.report.Steps, domain.StepResult{
			Step: domain.StepDistribution, Status: domain.StepSkipped, Detail: "package index not released in this cycle",
		})
		return domain.StepSkipped
	}

	if e.ledger != nil {
		last, err := e.ledger.LastDistributionVersion(ctx, c.report.Repository)
		if err != nil {
			e.logger.Warn("failed to read distribution ledger", "err", err)
		} else if version.AtLeast(last, v) {
			c.report.Steps = append(c.report.Steps, domain.StepResult{
				Step: domain.StepDistribution, Status: domain.StepSkipped, Detail: "ledger has " + last,
			})
			return domain.StepSkipped
		}
	}

	run := e.startStep(ctx, c, domain.StepDistribution)
	e.logger.Info("triggering Fedora release", "version", v, "branches", state.DistributionBranches)

	branches, err := e.deps.Distribution.Release(ctx, state)
	c.report.Branches = branches
	for _, b := range branches {
		switch b.Status {
		case domain.BranchUpdated:
			c.notes.Addf("Updated Fedora branch %s to %s", b.Branch, v)
		case domain.BranchFailed:
			c.notes.Addf("Failed to update Fedora branch %s: %s", b.Branch, b.Reason)
		case domain.BranchSkipped:
			c.notes.Addf("Skipped Fedora branch %s: %s", b.Branch, b.Reason)
		}
		if e.hooks.OnBranchFinish != nil {
			e.hooks.OnBranchFinish(ctx, &domain.BranchEvent{Timestamp: e.now(), Version: v, Result: b})
		}
	}
	if err != nil {
		c.notes.Addf("Failed to release %s on Fedora: %v", v, err)
		return run.done(ctx, domain.StepFailed, err.Error())
	}

	c.notes.Addf("Finished Fedora release of %s", v)
	if e.ledger != nil {
		if err := e.ledger.MarkDistributionReleased(ctx, c.report.Repository, v); err != nil {
			e.logger.Warn("failed to record distribution release", "err", err)
		}
	}
	return run.done(ctx, domain.StepReleased, fmt.Sprintf("%d branches updated", len(branches.Updated())))
}
