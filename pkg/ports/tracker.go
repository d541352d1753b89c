package ports

import "context"

// BranchRequest describes the release branch prepared for an issue-triggered release.
type BranchRequest struct {
	Version         string
	PreviousVersion string
	AuthorName      string
	AuthorEmail     string
}

// ReleaseBranch is a pushed release branch.
type ReleaseBranch struct {
	Name      string
	Changelog string
	// VersionFiles lists every file that sets __version__. The version is only
	// bumped (VersionUpdated) when exactly one was found.
	VersionFiles   []string
	VersionUpdated bool
}

// Brancher prepares and pushes a release branch with an updated changelog.
type Brancher interface {
	PrepareReleaseBranch(ctx context.Context, req BranchRequest) (ReleaseBranch, error)
}

// PullRequest is a created pull request.
type PullRequest struct {
	Number  int
	HTMLURL string
}

// PullRequestRequest describes a pull request to open.
type PullRequestRequest struct {
	Title string
	Head  string
	Body  string
}

// IssueTracker covers the pull request and issue operations of the release-PR flow.
type IssueTracker interface {
	BranchExists(ctx context.Context, branch string) (bool, error)
	OpenPullRequest(ctx context.Context, req PullRequestRequest) (PullRequest, error)
	AddLabels(ctx context.Context, number int, labels []string) error
	CloseIssue(ctx context.Context, number int) error
	// UserContact returns the commit identity of a GitHub user, with bot defaults for hidden fields.
	UserContact(ctx context.Context, login string) (name, email string, err error)
}
