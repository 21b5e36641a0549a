// Package config loads the .ipe/config.yaml settings file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ipe/pkg/workflow"
)

// Config represents the .ipe/config.yaml structure.
type Config struct {
	// DefaultModel is used when a request names none. One of opus, sonnet,
	// haiku, or a full model id.
	DefaultModel string `yaml:"default_model,omitempty"`
	// CacheTTLSeconds bounds how long cached agent responses stay valid.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds,omitempty"`
	// BaseBranch is the branch workflow worktrees cut from.
	BaseBranch string `yaml:"base_branch,omitempty"`
	// WebhookAddr is the listen address for the webhook trigger.
	WebhookAddr string `yaml:"webhook_addr,omitempty"`
	// QueueDir is where the cron trigger picks up dropped payload files.
	QueueDir string `yaml:"queue_dir,omitempty"`
}

// CacheTTL returns the configured TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		DefaultModel:    workflow.DefaultModel,
		CacheTTLSeconds: 86400,
		BaseBranch:      "main",
		WebhookAddr:     ":8787",
		QueueDir:        ".ipe/queue",
	}
}

// Load reads path and merges it over the defaults. A missing file returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) //nolint:gosec // config path resolved under the repo root
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if file.DefaultModel != "" {
		cfg.DefaultModel = file.DefaultModel
	}
	if file.CacheTTLSeconds > 0 {
		cfg.CacheTTLSeconds = file.CacheTTLSeconds
	}
	if file.BaseBranch != "" {
		cfg.BaseBranch = file.BaseBranch
	}
	if file.WebhookAddr != "" {
		cfg.WebhookAddr = file.WebhookAddr
	}
	if file.QueueDir != "" {
		cfg.QueueDir = file.QueueDir
	}
	return cfg, nil
}

// BuildYAML renders a config as a commented starter file for init.
func BuildYAML(cfg Config) string {
	return fmt.Sprintf(`# ipe settings. Every key is optional; omitted keys use the defaults below.
default_model: %s
cache_ttl_seconds: %d
base_branch: %s
webhook_addr: "%s"
queue_dir: %s
`, cfg.DefaultModel, cfg.CacheTTLSeconds, cfg.BaseBranch, cfg.WebhookAddr, cfg.QueueDir)
}
