// Package config loads the voiceops server configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	SCM        SCMConfig        `yaml:"scm"`
	Builds     BuildsConfig     `yaml:"builds"`
	TestRunner TestRunnerConfig `yaml:"testrunner"`
	Audit      AuditConfig      `yaml:"audit"`
	NATS       NATSConfig       `yaml:"nats"`
	Webhooks   WebhooksConfig   `yaml:"webhooks"`
	Users      []UserConfig     `yaml:"users"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// ShutdownTimeout bounds how long in-flight requests may drain.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // json or text
	Service string `yaml:"service"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SCMConfig selects and configures the source-control backend.
type SCMConfig struct {
	Provider         string        `yaml:"provider"` // local, github or gitlab
	Owner            string        `yaml:"owner"`
	Repo             string        `yaml:"repo"`
	Token            string        `yaml:"token"`
	BaseURL          string        `yaml:"base_url"`
	DefaultPRTarget  string        `yaml:"default_pr_target"`
	RecentCommitDays int           `yaml:"recent_commit_days"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
}

// BuildsConfig configures the simulated CI.
type BuildsConfig struct {
	ProgressInterval time.Duration `yaml:"progress_interval"`
	CIBaseURL        string        `yaml:"ci_base_url"`
}

// TestRunnerConfig configures the container test step of orchestration.
// An empty image keeps the stub runner.
type TestRunnerConfig struct {
	Image   string        `yaml:"image"`
	Command []string      `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

// AuditConfig controls audit record retention.
type AuditConfig struct {
	RetentionDays   int           `yaml:"retention_days"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// NATSConfig enables publishing audit events. An empty URL disables it.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// WebhooksConfig holds webhook verification secrets.
type WebhooksConfig struct {
	GitHubSecret string `yaml:"github_secret"`
	GitLabSecret string `yaml:"gitlab_secret"`
}

// UserConfig is a user seeded into the directory on startup.
type UserConfig struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	FullName string `yaml:"full_name"`
	Role     string `yaml:"role"`
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "json",
			Service: "voiceops",
		},
		Database: DatabaseConfig{
			Path: "voiceops.db",
		},
		SCM: SCMConfig{
			Provider:         "local",
			DefaultPRTarget:  "develop",
			RecentCommitDays: 1,
			CacheTTL:         time.Minute,
		},
		Builds: BuildsConfig{
			ProgressInterval: 250 * time.Millisecond,
			CIBaseURL:        "http://mock-jenkins.company.com",
		},
		TestRunner: TestRunnerConfig{
			Timeout: 10 * time.Minute,
		},
		Audit: AuditConfig{
			RetentionDays:   30,
			CleanupInterval: 24 * time.Hour,
		},
		NATS: NATSConfig{
			Subject: "voiceops.commands",
		},
	}
}

// Load reads and parses the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Substitute environment variables
	data = envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(varName)))
	})

	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.SCM.Provider {
	case "local":
	case "github", "gitlab":
		if c.SCM.Owner == "" || c.SCM.Repo == "" {
			return fmt.Errorf("scm: %s provider requires owner and repo", c.SCM.Provider)
		}
	default:
		return fmt.Errorf("scm: unknown provider %q", c.SCM.Provider)
	}

	if c.Builds.ProgressInterval <= 0 {
		return fmt.Errorf("builds: progress_interval must be positive")
	}
	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit: retention_days must be positive")
	}
	if c.Audit.CleanupInterval <= 0 {
		return fmt.Errorf("audit: cleanup_interval must be positive")
	}
	if c.SCM.CacheTTL <= 0 {
		return fmt.Errorf("scm: cache_ttl must be positive")
	}
	if c.TestRunner.Timeout < 0 {
		return fmt.Errorf("testrunner: timeout must not be negative")
	}
	for _, u := range c.Users {
		if u.Username == "" {
			return fmt.Errorf("users: entry without username")
		}
	}
	return nil
}

// CommitWindow is how far back ListRecentCommits looks for safety analysis.
func (c *Config) CommitWindow() time.Duration {
	return time.Duration(c.SCM.RecentCommitDays) * 24 * time.Hour
}
