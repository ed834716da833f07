// Package config holds the static policy and wiring configuration for the
// registry automation jobs. Everything is read from the environment once at
// startup; the loaded Config is treated as read-only afterwards.
package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// TitlePattern matches "Registration|Update|Remove: <domain>.<sld>" and
	// captures the action type, the domain label and the suffix.
	TitlePattern = `^(Registration|Update|Remove):\s+([A-Za-z0-9-]+)\.(.+)$`

	// FilePathPattern matches the only file layout a PR may touch.
	FilePathPattern = `^whois/[^/]+\.json$`

	// MaxFileCount is the number of changed files a PR may contain.
	MaxFileCount = 1
)

var (
	// TitleRegex is the compiled TitlePattern.
	TitleRegex = regexp.MustCompile(TitlePattern)

	// FilePathRegex is the compiled FilePathPattern.
	FilePathRegex = regexp.MustCompile(FilePathPattern)
)

// Config holds all application configuration.
type Config struct {
	GitHub  GitHubConfig
	Sources SourcesConfig
	PDNS    PDNSConfig
	Logging LoggingConfig
}

// GitHubConfig holds repository identity, credentials and label names.
type GitHubConfig struct {
	Repository string `envconfig:"GITHUB_REPOSITORY" default:"PublicFreeSuffix/PublicFreeSuffix"`
	Token      string `envconfig:"MY_GITHUB_TOKEN"`

	// GitHub App credentials. When both are set the client authenticates as
	// an App installation instead of using the static token.
	AppID          int64  `envconfig:"GITHUB_APP_ID"`
	AppPrivateKey  string `envconfig:"GITHUB_APP_PRIVATE_KEY"`
	InstallationID int64  `envconfig:"GITHUB_APP_INSTALLATION_ID"`

	LabelPassed string `envconfig:"LABEL_VALIDATION_PASSED" default:"validation-passed"`
	LabelFailed string `envconfig:"LABEL_VALIDATION_FAILED" default:"validation-failed"`
}

// SourcesConfig holds the local data source paths and the cache policy for
// the reserved word list and the SLD registry.
type SourcesConfig struct {
	ReservedWordsPath string        `envconfig:"RESERVED_WORDS_PATH" default:"reserved_words.txt"`
	SLDListPath       string        `envconfig:"SLD_LIST_PATH" default:"public_sld_list.json"`
	CacheDir          string        `envconfig:"SOURCE_CACHE_DIR" default:"."`
	CacheTTL          time.Duration `envconfig:"SOURCE_CACHE_TTL" default:"24h"`
}

// PDNSConfig holds the PowerDNS Admin API endpoint and credentials.
type PDNSConfig struct {
	BaseURL string        `envconfig:"PDA_API_URL"`
	APIKey  string        `envconfig:"PDA_API_KEY"`
	Timeout time.Duration `envconfig:"PDA_API_TIMEOUT" default:"30s"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level     string `envconfig:"LOG_LEVEL" default:"info"`
	Format    string `envconfig:"LOG_FORMAT" default:"json"`
	Output    string `envconfig:"LOG_OUTPUT" default:"stdout"`
	AddSource bool   `envconfig:"LOG_ADD_SOURCE" default:"false"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return &cfg, nil
}

// Owner returns the owner half of the configured repository.
func (g GitHubConfig) Owner() string {
	owner, _ := splitRepository(g.Repository)
	return owner
}

// Repo returns the repository-name half of the configured repository.
func (g GitHubConfig) Repo() string {
	_, repo := splitRepository(g.Repository)
	return repo
}

// HasCredentials reports whether any GitHub auth mode is configured.
func (g GitHubConfig) HasCredentials() bool {
	return g.Token != "" || (g.AppID != 0 && g.AppPrivateKey != "")
}

// ValidatePDNS checks that the DNS sync job has the credentials it needs.
func (c *Config) ValidatePDNS() error {
	if c.PDNS.BaseURL == "" {
		return fmt.Errorf("PDA_API_URL environment variable is required")
	}
	if c.PDNS.APIKey == "" {
		return fmt.Errorf("PDA_API_KEY environment variable is required")
	}
	return nil
}

func splitRepository(repository string) (owner, repo string) {
	for i := 0; i < len(repository); i++ {
		if repository[i] == '/' {
			return repository[:i], repository[i+1:]
		}
	}
	return repository, ""
}
