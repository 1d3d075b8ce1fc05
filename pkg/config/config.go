package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App     AppConfig     `yaml:"app"`
	Planner PlannerConfig `yaml:"planner"`
	Memory  MemoryConfig  `yaml:"memory"`
	Logs    LogsConfig    `yaml:"logs"`
}

type AppConfig struct {
	Name      string `yaml:"name"`
	Workspace string `yaml:"workspace"`
}

type PlannerConfig struct {
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url,omitempty"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Retries        int    `yaml:"retries"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type MemoryConfig struct {
	Path string `yaml:"path"`
}

type LogsConfig struct {
	Dir           string `yaml:"dir"`
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// Default returns a usable configuration without any file present.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:      "deskpilot",
			Workspace: "workspace",
		},
		Planner: PlannerConfig{
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			Retries:        3,
			TimeoutSeconds: 15,
		},
		Memory: MemoryConfig{Path: "deskpilot.db"},
		Logs: LogsConfig{
			Dir:           "logs",
			ScreenshotDir: "screenshots",
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is
// not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Planner.Retries <= 0 {
		cfg.Planner.Retries = 3
	}
	if cfg.Planner.TimeoutSeconds <= 0 {
		cfg.Planner.TimeoutSeconds = 15
	}
	return cfg, nil
}

// APIKey resolves the planner API key from the configured environment
// variable. Empty means offline mode.
func (c *Config) APIKey() string {
	if c.Planner.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Planner.APIKeyEnv)
}

// PlannerTimeout returns the per-attempt planner timeout.
func (c *Config) PlannerTimeout() time.Duration {
	return time.Duration(c.Planner.TimeoutSeconds) * time.Second
}
