package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	gh "github.com/google/go-github/v66/github"

	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/ports"
	"github.com/aretw0/releasebot/pkg/version"
)

// ReleaseConfigPath is where the repository keeps its release configuration.
const ReleaseConfigPath = "release-conf.yaml"

// maxArchiveRedirects bounds the zipball redirect chain.
const maxArchiveRedirects = 3

// LatestVersion returns the tag of the latest published release (drafts and
// pre-releases excluded), or version.None when the repository has none.
func (c *Client) LatestVersion(ctx context.Context) (string, error) {
	rel, resp, err := c.rest.Repositories.GetLatestRelease(ctx, c.cfg.Owner, c.cfg.Repository)
	if isNotFound(resp, err) {
		c.logger.Debug("there is no github release")
		return version.None, nil
	}
	if err != nil {
		return "", fmt.Errorf("github: failed to read latest release: %w", err)
	}
	return releaseVersion(rel), nil
}

// CreateRelease publishes a non-draft release tagged with req.Version.
func (c *Client) CreateRelease(ctx context.Context, req ports.ReleaseRequest) (ports.Release, error) {
	c.logger.Debug("creating github release", "version", req.Version, "commitish", req.Commitish)
	rel, _, err := c.rest.Repositories.CreateRelease(ctx, c.cfg.Owner, c.cfg.Repository, &gh.RepositoryRelease{
		TagName:         gh.String(req.Version),
		TargetCommitish: gh.String(req.Commitish),
		Name:            gh.String(req.Title),
		Draft:           gh.Bool(false),
		Prerelease:      gh.Bool(false),
	})
	if err != nil {
		return ports.Release{}, fmt.Errorf("github: failed to create release %s: %w", req.Version, err)
	}
	return toRelease(rel), nil
}

// ReleaseByVersion looks a release up by tag.
func (c *Client) ReleaseByVersion(ctx context.Context, v string) (ports.Release, error) {
	rel, resp, err := c.rest.Repositories.GetReleaseByTag(ctx, c.cfg.Owner, c.cfg.Repository, v)
	if isNotFound(resp, err) {
		return ports.Release{}, fmt.Errorf("%w: %s", domain.ErrReleaseNotFound, v)
	}
	if err != nil {
		return ports.Release{}, fmt.Errorf("github: failed to read release %s: %w", v, err)
	}
	return toRelease(rel), nil
}

// UpdateReleaseNotes replaces the release body.
func (c *Client) UpdateReleaseNotes(ctx context.Context, id int64, text string) error {
	_, _, err := c.rest.Repositories.EditRelease(ctx, c.cfg.Owner, c.cfg.Repository, id, &gh.RepositoryRelease{
		Body: gh.String(text),
	})
	if err != nil {
		return fmt.Errorf("github: failed to update release notes: %w", err)
	}
	return nil
}

// DownloadArchive saves the zipball of rel as <dir>/<repository>-<version>.zip.
func (c *Client) DownloadArchive(ctx context.Context, rel ports.Release, dir string) (string, error) {
	src := rel.ArchiveURL
	if src == "" {
		u, _, err := c.rest.Repositories.GetArchiveLink(ctx, c.cfg.Owner, c.cfg.Repository, gh.Zipball,
			&gh.RepositoryContentGetOptions{Ref: rel.Version}, maxArchiveRedirects)
		if err != nil {
			return "", fmt.Errorf("github: failed to resolve archive of %s: %w", rel.Version, err)
		}
		src = u.String()
	}

	req, err := c.rest.NewRequest(http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.zip", c.cfg.Repository, rel.Version))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	c.logger.Debug("downloading release archive", "url", src)
	if _, err := c.rest.Do(ctx, req, f); err != nil {
		return "", fmt.Errorf("github: failed to download %s: %w", src, err)
	}
	return path, f.Close()
}

// ReleaseConfig fetches release-conf.yaml from the default branch.
func (c *Client) ReleaseConfig(ctx context.Context) ([]byte, error) {
	c.logger.Debug("fetching release configuration", "path", ReleaseConfigPath)
	file, _, resp, err := c.rest.Repositories.GetContents(ctx, c.cfg.Owner, c.cfg.Repository, ReleaseConfigPath, nil)
	if isNotFound(resp, err) {
		return nil, fmt.Errorf("%w: %s has no %s", domain.ErrNoReleaseConfig, c.FullName(), ReleaseConfigPath)
	}
	if err != nil {
		return nil, fmt.Errorf("github: failed to fetch %s: %w", ReleaseConfigPath, err)
	}
	if file == nil {
		return nil, errors.New("github: " + ReleaseConfigPath + " is not a file")
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("github: failed to decode %s: %w", ReleaseConfigPath, err)
	}
	return []byte(content), nil
}

func releaseVersion(rel *gh.RepositoryRelease) string {
	if tag := rel.GetTagName(); tag != "" {
		return tag
	}
	return rel.GetName()
}

func toRelease(rel *gh.RepositoryRelease) ports.Release {
	return ports.Release{
		ID:         rel.GetID(),
		Version:    releaseVersion(rel),
		ArchiveURL: rel.GetZipballURL(),
		HTMLURL:    rel.GetHTMLURL(),
	}
}
