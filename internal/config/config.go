// Package config loads the bot configuration (conf.yaml), the per-repository
// release configuration (release-conf.yaml) and the service environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/aretw0/releasebot/pkg/domain"
)

// Environment variable prefix for conf.yaml overrides.
const envPrefix = "RELEASE_BOT"

// Scan modes.
const (
	ScanNewest = "newest"
	ScanSince  = "since"
)

// Config is the bot configuration. It is passed by value into every component.
type Config struct {
	RepositoryName  string `mapstructure:"repository_name"`
	RepositoryOwner string `mapstructure:"repository_owner"`
	GitHubToken     string `mapstructure:"github_token"`
	GitHubUsername  string `mapstructure:"github_username"`

	// GitHub App deployment.
	GitHubAppID             int64  `mapstructure:"github_app_id"`
	GitHubAppInstallationID int64  `mapstructure:"github_app_installation_id"`
	GitHubAppCertPath       string `mapstructure:"github_app_cert_path"`

	// RefreshInterval is the pause between polling cycles, in seconds.
	RefreshInterval int    `mapstructure:"refresh_interval"`
	Keytab          string `mapstructure:"keytab"`
	FASUsername     string `mapstructure:"fas_username"`
	PyPIProject     string `mapstructure:"pypi_project"`
	CloneURL        string `mapstructure:"clone_url"`

	Scan    ScanConfig        `mapstructure:"scan"`
	Fedora  FedoraConfig      `mapstructure:"fedora"`
	PyPI    PyPIConfig        `mapstructure:"pypi"`
	Webhook WebhookConfig     `mapstructure:"webhook"`
	Redis   RedisConfig       `mapstructure:"redis"`
	Ledger  LedgerConfig      `mapstructure:"ledger"`
	Log     LogConfig         `mapstructure:"log"`
	Tools   map[string]string `mapstructure:"tools"`
	Workers int               `mapstructure:"workers"`
}

type ScanConfig struct {
	PageSize int    `mapstructure:"page_size"`
	Mode     string `mapstructure:"mode"`
}

type FedoraConfig struct {
	DefaultBranch string `mapstructure:"default_branch"`
	Realm         string `mapstructure:"realm"`
}

type PyPIConfig struct {
	URL string `mapstructure:"url"`
	// BuildCommands replace the setup.py sdist/bdist_wheel defaults when set.
	BuildCommands []string `mapstructure:"build_commands"`
	// Repository is passed to twine --repository-url when set.
	Repository string `mapstructure:"repository"`
}

type WebhookConfig struct {
	Address string `mapstructure:"address"`
	Secret  string `mapstructure:"secret"`
}

type RedisConfig struct {
	Address        string `mapstructure:"address"`
	Password       string `mapstructure:"password"`
	DB             int    `mapstructure:"db"`
	Queue          string `mapstructure:"queue"`
	LockRepository bool   `mapstructure:"lock_repository"`
	// LockTTL bounds how long a repository lock may be held, in seconds.
	LockTTL int `mapstructure:"lock_ttl"`
}

type LedgerConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"repository_name":            "",
	"repository_owner":           "",
	"github_token":               "",
	"github_username":            "",
	"github_app_id":              0,
	"github_app_installation_id": 0,
	"github_app_cert_path":       "",
	"refresh_interval":           180,
	"keytab":                     "",
	"fas_username":               "",
	"pypi_project":               "",
	"clone_url":                  "",
	"scan.page_size":             5,
	"scan.mode":                  ScanNewest,
	"fedora.default_branch":      "master",
	"fedora.realm":               "FEDORAPROJECT.ORG",
	"pypi.url":                   "https://pypi.org",
	"pypi.repository":            "",
	"webhook.address":            ":8080",
	"webhook.secret":             "",
	"redis.address":              "",
	"redis.password":             "",
	"redis.db":                   0,
	"redis.queue":                "release-bot:jobs",
	"redis.lock_repository":      false,
	"redis.lock_ttl":             1800,
	"ledger.path":                "",
	"log.level":                  "info",
	"log.format":                 "text",
	"workers":                    1,
}

// Loader reads conf.yaml with environment overrides.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader. Every key can be overridden through
// RELEASE_BOT_<KEY>, with dots replaced by underscores.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return &Loader{v: v}
}

// Load reads the configuration file at path and validates it.
func (l *Loader) Load(path string) (Config, error) {
	l.v.SetConfigFile(path)
	l.v.SetConfigType("yaml")
	if err := l.v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.CloneURL == "" {
		cfg.CloneURL = fmt.Sprintf("https://github.com/%s/%s.git", cfg.RepositoryOwner, cfg.RepositoryName)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load is a shorthand for NewLoader().Load(path).
func Load(path string) (Config, error) {
	return NewLoader().Load(path)
}

// Validate checks required keys and value ranges.
func (c Config) Validate() error {
	var missing []string
	if c.RepositoryName == "" {
		missing = append(missing, "repository_name")
	}
	if c.RepositoryOwner == "" {
		missing = append(missing, "repository_owner")
	}
	if c.GitHubToken == "" && !c.UsesGitHubApp() {
		missing = append(missing, "github_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidConfig, strings.Join(missing, ", "))
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("%w: refresh_interval must be positive", domain.ErrInvalidConfig)
	}
	if c.Scan.Mode != ScanNewest && c.Scan.Mode != ScanSince {
		return fmt.Errorf("%w: scan.mode must be %q or %q", domain.ErrInvalidConfig, ScanNewest, ScanSince)
	}
	return nil
}

// UsesGitHubApp reports whether the full GitHub App triple is configured.
func (c Config) UsesGitHubApp() bool {
	return c.GitHubAppID != 0 && c.GitHubAppInstallationID != 0 && c.GitHubAppCertPath != ""
}

// Interval returns RefreshInterval as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Second
}

// FullName returns owner/name.
func (c Config) FullName() string {
	return c.RepositoryOwner + "/" + c.RepositoryName
}

// ForRepository returns a copy of c pointed at another repository of the same installation.
// Settings that name the configured repository's artifacts do not carry over.
func (c Config) ForRepository(owner, name string) Config {
	out := c
	out.RepositoryOwner = owner
	out.RepositoryName = name
	out.CloneURL = fmt.Sprintf("https://github.com/%s/%s.git", owner, name)
	if owner != c.RepositoryOwner || name != c.RepositoryName {
		out.PyPIProject = ""
	}
	return out
}

// DefaultPath returns the conf.yaml location used when neither a flag nor CONF_PATH is given.
func DefaultPath() string {
	if _, err := os.Stat("conf.yaml"); err == nil {
		return "conf.yaml"
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "conf.yaml"
	}
	return filepath.Join(dir, "release-bot", "conf.yaml")
}

// ResolvePath picks the configuration file: explicit flag, then CONF_PATH, then DefaultPath.
func ResolvePath(flag string, env ServiceEnv) string {
	switch {
	case flag != "":
		return flag
	case env.ConfPath != "":
		return env.ConfPath
	default:
		return DefaultPath()
	}
}
