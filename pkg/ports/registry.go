package ports

import (
	"context"

	"github.com/aretw0/releasebot/pkg/domain"
)

// Release is a release record as reported by the registry.
type Release struct {
	ID         int64
	Version    string
	ArchiveURL string
	HTMLURL    string
}

// ReleaseRequest describes a release to create.
type ReleaseRequest struct {
	Version   string
	Commitish string
	Title     string
}

// ReleaseRegistry is the source-hosting release record.
type ReleaseRegistry interface {
	// LatestVersion returns the newest released version, or version.None when nothing was released.
	LatestVersion(ctx context.Context) (string, error)
	CreateRelease(ctx context.Context, req ReleaseRequest) (Release, error)
	// ReleaseByVersion returns domain.ErrReleaseNotFound when no release carries the version tag.
	ReleaseByVersion(ctx context.Context, version string) (Release, error)
	UpdateReleaseNotes(ctx context.Context, id int64, text string) error
	// DownloadArchive stores the release source archive under dir and returns the file path.
	DownloadArchive(ctx context.Context, rel Release, dir string) (string, error)
}

// BuildRequest describes a package build from an extracted source tree.
type BuildRequest struct {
	ProjectRoot    string
	Project        string
	Version        string
	PythonVersions []int
}

// PackageIndex is the package index the project publishes to.
type PackageIndex interface {
	// LatestVersion returns the newest published version of project, or version.None.
	LatestVersion(ctx context.Context, project string) (string, error)
	BuildAndUpload(ctx context.Context, req BuildRequest) error
}

// Distribution pushes a release into the distribution packaging branches.
type Distribution interface {
	Release(ctx context.Context, state *domain.ReleaseState) (domain.BuildReport, error)
}

// CommentSink receives the batched progress notes of a cycle.
type CommentSink interface {
	AddComment(ctx context.Context, subjectID, body string) error
}

// ReleaseConfigSource fetches the raw release-conf.yaml of the repository.
// It returns domain.ErrNoReleaseConfig when the file does not exist.
type ReleaseConfigSource interface {
	ReleaseConfig(ctx context.Context) ([]byte, error)
}
