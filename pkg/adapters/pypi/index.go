// Package pypi publishes Python packages: it reads the latest version from the
// PyPI JSON API and builds and uploads distributions with setup.py and twine.
package pypi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/shlex"

	"github.com/aretw0/releasebot/pkg/ports"
	"github.com/aretw0/releasebot/pkg/version"
)

// DefaultURL is the public package index.
const DefaultURL = "https://pypi.org"

var (
	// ErrNoSetupPy is returned when the project root carries no setup.py.
	ErrNoSetupPy = errors.New("cannot find setup.py")
	// ErrNoDistributions is returned when the build left dist/ empty.
	ErrNoDistributions = errors.New("no distributions to upload")
)

// Index implements ports.PackageIndex.
type Index struct {
	exec   ports.Executor
	client *http.Client
	url    string

	buildCommands []string
	repository    string
	logger        *slog.Logger
}

// Option configures the index.
type Option func(*Index)

// WithURL overrides DefaultURL for version lookups.
func WithURL(url string) Option {
	return func(i *Index) {
		if url != "" {
			i.url = strings.TrimSuffix(url, "/")
		}
	}
}

// WithHTTPClient sets the client for version lookups.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Index) {
		i.client = c
	}
}

// WithBuildCommands replaces the default setup.py builds. Each command is a
// shell-like string such as "python3 -m build".
func WithBuildCommands(cmds ...string) Option {
	return func(i *Index) {
		i.buildCommands = cmds
	}
}

// WithRepository uploads to another repository URL instead of PyPI.
func WithRepository(url string) Option {
	return func(i *Index) {
		i.repository = url
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New creates an index that runs its builds through exec.
func New(exec ports.Executor, opts ...Option) *Index {
	i := &Index{
		exec:   exec,
		client: http.DefaultClient,
		url:    DefaultURL,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

type projectInfo struct {
	Info struct {
		Version string `json:"version"`
	} `json:"info"`
}

// LatestVersion returns info.version of project, or version.None when the
// project does not exist yet.
func (i *Index) LatestVersion(ctx context.Context, project string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/pypi/%s/json", i.url, project), nil)
	if err != nil {
		return "", err
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pypi: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		i.logger.Debug("pypi project does not exist yet", "project", project)
		return version.None, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("pypi: unexpected status %d for %s: %s", resp.StatusCode, project, strings.TrimSpace(string(body)))
	}

	var info projectInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("pypi: invalid response for %s: %w", project, err)
	}
	return info.Info.Version, nil
}

// BuildAndUpload builds an sdist and a wheel per Python version and uploads
// everything in dist/ with twine.
func (i *Index) BuildAndUpload(ctx context.Context, req ports.BuildRequest) error {
	root := req.ProjectRoot
	if _, err := os.Stat(filepath.Join(root, "setup.py")); err != nil {
		return fmt.Errorf("%w in %s", ErrNoSetupPy, root)
	}
	i.logger.Debug("about to release on PyPI", "project", req.Project, "version", req.Version)

	builds, err := i.builds(req.PythonVersions)
	if err != nil {
		return err
	}
	for _, b := range builds {
		if err := i.run(ctx, root, b.msg, b.argv); err != nil {
			return err
		}
	}

	files, err := filepath.Glob(filepath.Join(root, "dist", "*"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return ErrNoDistributions
	}
	args := []string{"twine", "upload"}
	if i.repository != "" {
		args = append(args, "--repository-url", i.repository)
	}
	i.logger.Debug("uploading distributions", "files", files)
	return i.run(ctx, root, "Cannot upload python distribution", append(args, files...))
}

type build struct {
	msg  string
	argv []string
}

func (i *Index) builds(pythons []int) ([]build, error) {
	if len(i.buildCommands) > 0 {
		out := make([]build, 0, len(i.buildCommands))
		for _, c := range i.buildCommands {
			argv, err := shlex.Split(c)
			if err != nil || len(argv) == 0 {
				return nil, fmt.Errorf("pypi: invalid build command %q: %v", c, err)
			}
			out = append(out, build{msg: "Build command failed", argv: argv})
		}
		return out, nil
	}

	out := []build{{msg: "Cannot build sdist", argv: []string{"python3", "setup.py", "sdist"}}}
	for _, v := range pythons {
		if v != 2 && v != 3 {
			return nil, fmt.Errorf("pypi: unsupported python version %d", v)
		}
		out = append(out, build{
			msg:  fmt.Sprintf("Cannot build wheel for python %d", v),
			argv: []string{fmt.Sprintf("python%d", v), "setup.py", "bdist_wheel"},
		})
	}
	return out, nil
}

func (i *Index) run(ctx context.Context, dir, msg string, argv []string) error {
	_, err := i.exec.Exec(ctx, ports.Command{
		Dir:          dir,
		Name:         argv[0],
		Args:         argv[1:],
		ErrorMessage: msg,
		Fatal:        true,
	})
	return err
}
