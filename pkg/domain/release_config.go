package domain

// ReleaseConfig is the repository-level release configuration (release-conf.yaml).
type ReleaseConfig struct {
	PyPI           bool     `yaml:"pypi"`
	PyPIProject    string   `yaml:"pypi_project"`
	Fedora         bool     `yaml:"fedora"`
	FedoraBranches []string `yaml:"fedora_branches"`
	PythonVersions []int    `yaml:"python_versions"`
	Changelog      []string `yaml:"changelog"`
	AuthorName     string   `yaml:"author_name"`
	AuthorEmail    string   `yaml:"author_email"`
	TriggerOnIssue bool     `yaml:"trigger_on_issue"`
	Labels         []string `yaml:"labels"`
}

// DefaultReleaseConfig returns the values used for keys missing from release-conf.yaml.
func DefaultReleaseConfig() ReleaseConfig {
	return ReleaseConfig{
		PyPI:           true,
		PythonVersions: []int{3},
	}
}
