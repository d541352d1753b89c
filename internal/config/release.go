package config

import (
	"fmt"
	"log/slog"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/releasebot/pkg/domain"
)

// ReleaseConfigFile is the repository-level configuration file name.
const ReleaseConfigFile = "release-conf.yaml"

// ParseReleaseConfig decodes release-conf.yaml content on top of domain.DefaultReleaseConfig.
// Scalars are coerced: branch names become strings, python versions integers.
func ParseReleaseConfig(data []byte) (domain.ReleaseConfig, error) {
	conf := domain.DefaultReleaseConfig()

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return conf, fmt.Errorf("%w: %s is not valid YAML: %v", domain.ErrInvalidConfig, ReleaseConfigFile, err)
	}
	if raw == nil {
		return conf, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		Result:           &conf,
	})
	if err != nil {
		return conf, err
	}
	if err := dec.Decode(raw); err != nil {
		return conf, fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, ReleaseConfigFile, err)
	}

	for _, v := range conf.PythonVersions {
		if v != 2 && v != 3 {
			return conf, fmt.Errorf("%w: unsupported python version %d", domain.ErrInvalidConfig, v)
		}
	}
	if len(conf.PythonVersions) == 0 {
		conf.PythonVersions = []int{3}
	}
	return conf, nil
}

// Reconcile disables features whose bot-level prerequisites are missing.
func Reconcile(conf domain.ReleaseConfig, cfg Config, logger *slog.Logger) domain.ReleaseConfig {
	if conf.TriggerOnIssue && cfg.GitHubUsername == "" {
		logger.Warn("can't trigger on issue if 'github_username' is not known, disabling")
		conf.TriggerOnIssue = false
	}
	if conf.Fedora && cfg.FASUsername == "" {
		logger.Warn("can't release to Fedora if 'fas_username' is not known, disabling")
		conf.Fedora = false
	}
	if conf.PyPIProject == "" {
		conf.PyPIProject = cfg.PyPIProject
	}
	return conf
}
