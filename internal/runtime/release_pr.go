package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/ports"
)

// releasePullRequest turns an open release issue into a release pull request:
// a "<version>-release" branch with the changelog updated, the pull request
// itself, its labels, a comment on the issue and finally closing the issue.
func (e *Engine) releasePullRequest(ctx context.Context, conf domain.ReleaseConfig) error {
	intent, err := e.deps.Scanner.OpenReleaseIssue(ctx)
	if err != nil {
		return err
	}
	if intent == nil {
		return nil
	}
	if e.deps.Tracker == nil || e.deps.Brancher == nil {
		return domain.Recoverable(domain.StepReleasePR, fmt.Errorf("issue #%d requests %s but pull request support is not configured", intent.Number, intent.Version))
	}
	log := e.logger.With("issue", intent.Number, "version", intent.Version)
	log.Info("found open release issue")

	branch := intent.Version + "-release"
	exists, err := e.deps.Tracker.BranchExists(ctx, branch)
	if err != nil {
		return domain.Recoverable(domain.StepReleasePR, err)
	}
	if exists {
		log.Warn("release branch already exists, not creating a pull request", "branch", branch)
		return nil
	}

	name, email, err := e.deps.Tracker.UserContact(ctx, e.cfg.GitHubUsername)
	if err != nil {
		return domain.Recoverable(domain.StepReleasePR, fmt.Errorf("failed to read bot identity: %w", err))
	}

	rb, err := e.deps.Brancher.PrepareReleaseBranch(ctx, ports.BranchRequest{
		Version:         intent.Version,
		PreviousVersion: intent.PreviousVersion,
		AuthorName:      name,
		AuthorEmail:     email,
	})
	if err != nil {
		return domain.Recoverable(domain.StepReleasePR, err)
	}

	pr, err := e.deps.Tracker.OpenPullRequest(ctx, ports.PullRequestRequest{
		Title: intent.Version + " release",
		Head:  rb.Name,
		Body:  pullRequestBody(intent, rb),
	})
	if err != nil {
		return domain.Recoverable(domain.StepReleasePR, err)
	}
	log.Info("created release pull request", "url", pr.HTMLURL)

	if len(conf.Labels) > 0 {
		if err := e.deps.Tracker.AddLabels(ctx, pr.Number, conf.Labels); err != nil {
			log.Warn("failed to label pull request", "err", err)
		}
	}

	var notes domain.Notes
	notes.Addf("I just made a pull request for release %s.", intent.Version)
	notes.Addf("Here's a link to it: %s", pr.HTMLURL)
	e.flush(ctx, intent.SubjectID, &notes)

	if err := e.deps.Tracker.CloseIssue(ctx, intent.Number); err != nil {
		log.Warn("failed to close release issue", "err", err)
	}
	return nil
}

func pullRequestBody(intent *domain.ReleaseIntent, rb ports.ReleaseBranch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fixes #%d\n\n", intent.Number)
	b.WriteString("Hi,\nyou have requested a release PR from me. Here it is!\n")
	fmt.Fprintf(&b, "This is the changelog I created:\n### Changes\n%s\n\n", rb.Changelog)
	fmt.Fprintf(&b, "You can change it by editing `CHANGELOG.md` in the root of this repository "+
		"and pushing to `%s` branch before merging this PR.\n", rb.Name)
	switch {
	case rb.VersionUpdated:
		b.WriteString("I have also updated the `__version__` in file:\n")
	case len(rb.VersionFiles) > 1:
		b.WriteString("There were multiple files where `__version__` was set, " +
			"so I left updating them up to you. These are the files:\n")
	default:
		b.WriteString("I didn't find any files where `__version__` is set.\n")
	}
	for _, f := range rb.VersionFiles {
		fmt.Fprintf(&b, "* %s\n", f)
	}
	return b.String()
}
