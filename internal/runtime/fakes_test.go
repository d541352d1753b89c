package runtime_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/ports"
	"github.com/aretw0/releasebot/pkg/version"
)

// pageSource serves a fixed list of edges in a single page.
type pageSource struct {
	edges []ports.Edge
	err   error
	calls int
}

func (p *pageSource) List(context.Context, ports.PageRequest) (ports.Page, error) {
	p.calls++
	if p.err != nil {
		return ports.Page{}, p.err
	}
	return ports.Page{Edges: p.edges}, nil
}

func releasePR(title string) *pageSource {
	return &pageSource{edges: []ports.Edge{
		{Title: "Fix docs", Cursor: "c0", SubjectID: "PR_0", Number: 1, MergeReference: "aaa"},
		{Title: title, Cursor: "c1", SubjectID: "PR_1", Number: 2, MergeReference: "bbb",
			AuthorName: "Jane Doe", AuthorEmail: "jane@example.com"},
	}}
}

type fakeRegistry struct {
	mu        sync.Mutex
	latest    string
	latestErr error
	createErr error
	created   []ports.ReleaseRequest
	lookups   []string
	notes     map[int64]string
	downloads int
	changelog string
	// untagged versions were never released on GitHub, even below latest.
	untagged map[string]bool
}

func newRegistry(latest string) *fakeRegistry {
	return &fakeRegistry{latest: latest, notes: make(map[int64]string)}
}

func (r *fakeRegistry) LatestVersion(context.Context) (string, error) {
	return r.latest, r.latestErr
}

func (r *fakeRegistry) CreateRelease(_ context.Context, req ports.ReleaseRequest) (ports.Release, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return ports.Release{}, r.createErr
	}
	r.created = append(r.created, req)
	return ports.Release{ID: 99, Version: req.Version, ArchiveURL: "https://example.com/" + req.Version + ".zip"}, nil
}

func (r *fakeRegistry) ReleaseByVersion(_ context.Context, v string) (ports.Release, error) {
	r.lookups = append(r.lookups, v)
	if version.Compare(v, r.latest) > 0 || r.untagged[v] {
		return ports.Release{}, domain.ErrReleaseNotFound
	}
	return ports.Release{ID: 98, Version: v}, nil
}

func (r *fakeRegistry) UpdateReleaseNotes(_ context.Context, id int64, text string) error {
	r.notes[id] = text
	return nil
}

func (r *fakeRegistry) DownloadArchive(_ context.Context, rel ports.Release, dir string) (string, error) {
	r.downloads++
	path := filepath.Join(dir, "source.zip")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	w := zip.NewWriter(f)
	files := map[string]string{
		"project-" + rel.Version + "/setup.py":     "from setuptools import setup\nsetup()\n",
		"project-" + rel.Version + "/CHANGELOG.md": r.changelog,
	}
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			return "", err
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			return "", err
		}
	}
	return path, w.Close()
}

type fakeIndex struct {
	latest  string
	err     error
	uploads []ports.BuildRequest
	queried int
}

func (i *fakeIndex) LatestVersion(context.Context, string) (string, error) {
	i.queried++
	return i.latest, nil
}

func (i *fakeIndex) BuildAndUpload(_ context.Context, req ports.BuildRequest) error {
	if _, err := os.Stat(filepath.Join(req.ProjectRoot, "setup.py")); err != nil {
		return err
	}
	i.uploads = append(i.uploads, req)
	return i.err
}

type fakeDistribution struct {
	calls  int
	report domain.BuildReport
	err    error
	seen   *domain.ReleaseState
}

func (d *fakeDistribution) Release(_ context.Context, state *domain.ReleaseState) (domain.BuildReport, error) {
	d.calls++
	d.seen = state
	return d.report, d.err
}

type comment struct {
	subject string
	body    string
}

type fakeComments struct {
	posted []comment
}

func (c *fakeComments) AddComment(_ context.Context, subject, body string) error {
	c.posted = append(c.posted, comment{subject, body})
	return nil
}

type fakeConfigSource struct {
	data []byte
	err  error
}

func (f fakeConfigSource) ReleaseConfig(context.Context) ([]byte, error) {
	return f.data, f.err
}

type fakeTracker struct {
	existing map[string]bool
	opened   []ports.PullRequestRequest
	labels   map[int][]string
	closed   []int
}

func (t *fakeTracker) BranchExists(_ context.Context, branch string) (bool, error) {
	return t.existing[branch], nil
}

func (t *fakeTracker) OpenPullRequest(_ context.Context, req ports.PullRequestRequest) (ports.PullRequest, error) {
	t.opened = append(t.opened, req)
	return ports.PullRequest{Number: 42, HTMLURL: "https://github.com/o/r/pull/42"}, nil
}

func (t *fakeTracker) AddLabels(_ context.Context, number int, labels []string) error {
	if t.labels == nil {
		t.labels = make(map[int][]string)
	}
	t.labels[number] = labels
	return nil
}

func (t *fakeTracker) CloseIssue(_ context.Context, number int) error {
	t.closed = append(t.closed, number)
	return nil
}

func (t *fakeTracker) UserContact(context.Context, string) (string, string, error) {
	return "Release Bot", "bot@example.com", nil
}

type fakeBrancher struct {
	requests []ports.BranchRequest
	err      error
}

func (b *fakeBrancher) PrepareReleaseBranch(_ context.Context, req ports.BranchRequest) (ports.ReleaseBranch, error) {
	b.requests = append(b.requests, req)
	if b.err != nil {
		return ports.ReleaseBranch{}, b.err
	}
	return ports.ReleaseBranch{
		Name:           req.Version + "-release",
		Changelog:      "* Add feature\n* Fix bug",
		VersionFiles:   []string{"pkg/__init__.py"},
		VersionUpdated: true,
	}, nil
}
