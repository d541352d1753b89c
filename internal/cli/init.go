package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/releasebot/internal/config"
	"github.com/aretw0/releasebot/pkg/domain"
)

// ErrFileExists is returned by Init when a template would overwrite a file.
var ErrFileExists = errors.New("file already exists")

type confTemplate struct {
	RepositoryName  string `yaml:"repository_name"`
	RepositoryOwner string `yaml:"repository_owner"`
	GitHubToken     string `yaml:"github_token"`
	GitHubUsername  string `yaml:"github_username"`
	RefreshInterval int    `yaml:"refresh_interval"`
	FASUsername     string `yaml:"fas_username"`
	Keytab          string `yaml:"keytab"`
	PyPIProject     string `yaml:"pypi_project"`
	Ledger          struct {
		Path string `yaml:"path"`
	} `yaml:"ledger"`
	Webhook struct {
		Address string `yaml:"address"`
		Secret  string `yaml:"secret"`
	} `yaml:"webhook"`
}

// Templates returns conf.yaml and release-conf.yaml starters.
func Templates(owner, name string) (map[string][]byte, error) {
	conf := confTemplate{
		RepositoryName:  name,
		RepositoryOwner: owner,
		GitHubToken:     "<personal access token>",
		RefreshInterval: 180,
	}
	conf.Ledger.Path = "release-bot.db"
	conf.Webhook.Address = ":8080"

	release := domain.DefaultReleaseConfig()
	release.PyPIProject = name
	release.FedoraBranches = []string{"f39", "f40"}
	release.Labels = []string{"release"}

	out := make(map[string][]byte, 2)
	for file, v := range map[string]any{"conf.yaml": conf, config.ReleaseConfigFile: release} {
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", file, err)
		}
		out[file] = data
	}
	return out, nil
}

// Init writes the templates into dir. Existing files are kept unless force is set.
func Init(w io.Writer, dir, owner, name string, force bool) error {
	files, err := Templates(owner, name)
	if err != nil {
		return err
	}
	names := []string{"conf.yaml", config.ReleaseConfigFile}
	if !force {
		for _, file := range names {
			path := filepath.Join(dir, file)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%w: %s", ErrFileExists, path)
			}
		}
	}
	for _, file := range names {
		path := filepath.Join(dir, file)
		if err := os.WriteFile(path, files[file], 0o600); err != nil {
			return err
		}
		fmt.Fprintf(w, "wrote %s\n", path)
	}
	return nil
}
