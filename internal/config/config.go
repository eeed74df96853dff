package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up at the repository root
const FileName = ".deployit.yml"

// Config represents the deployit configuration
type Config struct {
	Remote    string              `yaml:"remote"`
	Branch    string              `yaml:"branch"`
	LogDepth  int                 `yaml:"log_depth"`
	Timeout   Duration            `yaml:"timeout"`
	MatchMode string              `yaml:"match_mode"`
	Artisan   string              `yaml:"artisan"`
	Composer  string              `yaml:"composer"`
	NPM       string              `yaml:"npm"`
	Watch     map[string]Patterns `yaml:"watch"`
	Steps     []Step              `yaml:"steps"`
	GitHub    GitHubConfig        `yaml:"github"`
	History   HistoryConfig       `yaml:"history"`
}

// Step is an extra command-line action added to a preset
type Step struct {
	Name    string   `yaml:"name"`
	Run     string   `yaml:"run"`
	Message string   `yaml:"message"`
	After   string   `yaml:"after"`
	Before  string   `yaml:"before"`
	Watch   Patterns `yaml:"watch"`
	// Presets limits the step to the named presets; empty means all
	Presets []string `yaml:"presets"`
}

// AppliesTo reports whether the step belongs in preset
func (s Step) AppliesTo(preset string) bool {
	if len(s.Presets) == 0 {
		return true
	}
	for _, p := range s.Presets {
		if p == preset {
			return true
		}
	}
	return false
}

// GitHubConfig configures the deployment notification
type GitHubConfig struct {
	Owner       string `yaml:"owner"`
	Repo        string `yaml:"repo"`
	Environment string `yaml:"environment"`
	TokenEnv    string `yaml:"token_env"`
	BaseURL     string `yaml:"base_url"`
}

// Enabled reports whether both owner and repo are set
func (g GitHubConfig) Enabled() bool {
	return g.Owner != "" && g.Repo != ""
}

// TokenEnvName returns the environment variable the API token is read from
func (g GitHubConfig) TokenEnvName() string {
	if g.TokenEnv == "" {
		return "GITHUB_TOKEN"
	}
	return g.TokenEnv
}

// Token reads the API token from the configured environment variable
func (g GitHubConfig) Token() string {
	return os.Getenv(g.TokenEnvName())
}

// HistoryConfig configures the run history database
type HistoryConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Remote:    "origin",
		Branch:    "master",
		LogDepth:  10,
		Timeout:   Duration(5 * time.Minute),
		MatchMode: "exact",
		Artisan:   "php artisan",
		Composer:  "composer",
		NPM:       "npm",
		Watch:     map[string]Patterns{},
		GitHub: GitHubConfig{
			Environment: "production",
			TokenEnv:    "GITHUB_TOKEN",
		},
		History: HistoryConfig{
			Path: filepath.Join(".deployit", "history.db"),
		},
	}
}

// Load loads configuration from FileName in repoRoot.
// Returns the default config if the file doesn't exist.
func Load(repoRoot string) (*Config, error) {
	return LoadFile(filepath.Join(repoRoot, FileName))
}

// LoadFile loads configuration from path over the defaults
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Watch == nil {
		cfg.Watch = map[string]Patterns{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values that yaml decoding can't
func (c *Config) Validate() error {
	var errs []error
	if c.LogDepth < 1 {
		errs = append(errs, fmt.Errorf("log_depth must be at least 1, got %d", c.LogDepth))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative"))
	}
	switch strings.ToLower(c.MatchMode) {
	case "", "exact", "prefix":
	default:
		errs = append(errs, fmt.Errorf("match_mode must be exact or prefix, got %q", c.MatchMode))
	}

	seen := make(map[string]bool)
	for i, step := range c.Steps {
		switch {
		case step.Name == "":
			errs = append(errs, fmt.Errorf("steps[%d]: name is required", i))
		case seen[step.Name]:
			errs = append(errs, fmt.Errorf("steps[%d]: duplicate step '%s'", i, step.Name))
		}
		seen[step.Name] = true
		if strings.TrimSpace(step.Run) == "" {
			errs = append(errs, fmt.Errorf("steps[%d]: run is required", i))
		}
		if step.After != "" && step.Before != "" {
			errs = append(errs, fmt.Errorf("steps[%d]: after and before are mutually exclusive", i))
		}
	}
	return errors.Join(errs...)
}

// WatchRules returns the watch map in the shape the action registry takes
func (c *Config) WatchRules() map[string][]string {
	rules := make(map[string][]string, len(c.Watch))
	for name, patterns := range c.Watch {
		rules[name] = []string(patterns)
	}
	return rules
}

// ResolvePath makes a relative path from the config absolute against repoRoot
func ResolvePath(repoRoot, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoRoot, path)
}
