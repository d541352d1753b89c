package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v66/github"

	"github.com/aretw0/releasebot/pkg/ports"
)

// BranchExists reports whether the branch exists on GitHub.
func (c *Client) BranchExists(ctx context.Context, branch string) (bool, error) {
	_, resp, err := c.rest.Repositories.GetBranch(ctx, c.cfg.Owner, c.cfg.Repository, branch, 1)
	if isNotFound(resp, err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("github: unexpected response checking branch %s: %w", branch, err)
	}
	return true, nil
}

// OpenPullRequest opens a maintainer-modifiable pull request against the base branch.
func (c *Client) OpenPullRequest(ctx context.Context, req ports.PullRequestRequest) (ports.PullRequest, error) {
	base, err := c.base(ctx)
	if err != nil {
		return ports.PullRequest{}, err
	}
	c.logger.Debug("opening pull request", "head", req.Head, "base", base)
	pr, _, err := c.rest.PullRequests.Create(ctx, c.cfg.Owner, c.cfg.Repository, &gh.NewPullRequest{
		Title:               gh.String(req.Title),
		Head:                gh.String(req.Head),
		Base:                gh.String(base),
		Body:                gh.String(req.Body),
		MaintainerCanModify: gh.Bool(true),
	})
	if err != nil {
		return ports.PullRequest{}, fmt.Errorf("github: failed to create pull request: %w", err)
	}
	return ports.PullRequest{Number: pr.GetNumber(), HTMLURL: pr.GetHTMLURL()}, nil
}

// AddLabels puts labels on an issue or pull request.
func (c *Client) AddLabels(ctx context.Context, number int, labels []string) error {
	if _, _, err := c.rest.Issues.AddLabelsToIssue(ctx, c.cfg.Owner, c.cfg.Repository, number, labels); err != nil {
		return fmt.Errorf("github: failed to label #%d: %w", number, err)
	}
	return nil
}

// CloseIssue closes the issue.
func (c *Client) CloseIssue(ctx context.Context, number int) error {
	_, _, err := c.rest.Issues.Edit(ctx, c.cfg.Owner, c.cfg.Repository, number, &gh.IssueRequest{State: gh.String("closed")})
	if err != nil {
		return fmt.Errorf("github: failed to close issue #%d: %w", number, err)
	}
	c.logger.Debug("closed issue", "number", number)
	return nil
}

// UserContact returns the public name and email of login, falling back to the bot defaults.
func (c *Client) UserContact(ctx context.Context, login string) (string, string, error) {
	user, _, err := c.rest.Users.Get(ctx, login)
	if err != nil {
		return "", "", fmt.Errorf("github: failed to read user %s: %w", login, err)
	}
	name, email := user.GetName(), user.GetEmail()
	if name == "" {
		name = DefaultUserName
	}
	if email == "" {
		email = DefaultUserEmail
	}
	return name, email, nil
}

func (c *Client) base(ctx context.Context) (string, error) {
	if c.baseBranch != "" {
		return c.baseBranch, nil
	}
	repo, _, err := c.rest.Repositories.Get(ctx, c.cfg.Owner, c.cfg.Repository)
	if err != nil {
		return "", fmt.Errorf("github: failed to read repository: %w", err)
	}
	c.baseBranch = repo.GetDefaultBranch()
	return c.baseBranch, nil
}
