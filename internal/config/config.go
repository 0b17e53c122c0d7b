package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Project is the immutable configuration for one supervised project.
type Project struct {
	Name         string        `mapstructure:"name"`
	RepoPath     string        `mapstructure:"repo_path"`
	Branch       string        `mapstructure:"branch"`
	Script       string        `mapstructure:"script"`
	GitHubRepo   string        `mapstructure:"github_repo"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	StartupGrace time.Duration `mapstructure:"startup_grace"`
}

// Config is the full autowatch configuration, loaded once at startup.
type Config struct {
	LogDir        string        `mapstructure:"log_dir"`
	DBPath        string        `mapstructure:"db_path"`
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	FetchInterval time.Duration `mapstructure:"fetch_interval"`
	Anthropic     Anthropic     `mapstructure:"anthropic"`
	Projects      []Project     `mapstructure:"projects"`
}

// Anthropic holds optional settings for LLM failure summaries.
type Anthropic struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Load reads the effective configuration from viper and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants on the loaded configuration.
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	if c.FetchInterval <= 0 {
		return fmt.Errorf("fetch_interval must be positive, got %s", c.FetchInterval)
	}
	seen := make(map[string]bool, len(c.Projects))
	for i := range c.Projects {
		if err := c.Projects[i].Validate(); err != nil {
			return fmt.Errorf("project %d: %w", i, err)
		}
		if seen[c.Projects[i].Name] {
			return fmt.Errorf("duplicate project name %q", c.Projects[i].Name)
		}
		seen[c.Projects[i].Name] = true
	}
	return nil
}

// Validate checks invariants on a single project entry.
func (p *Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.RepoPath == "" {
		return fmt.Errorf("repo_path is required")
	}
	if p.Script == "" {
		return fmt.Errorf("script is required")
	}
	if p.Branch == "" {
		return fmt.Errorf("branch is required")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", p.MaxRetries)
	}
	if p.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be >= 0, got %s", p.RetryDelay)
	}
	if p.StartupGrace < 0 {
		return fmt.Errorf("startup_grace must be >= 0, got %s", p.StartupGrace)
	}
	return nil
}
