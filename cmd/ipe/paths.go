package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// ipeDir is the per-repo settings directory name.
const ipeDir = ".ipe"

// Paths holds all resolved ipe state file paths.
// Use ResolvePaths() to populate this struct with defaults + env overrides.
type Paths struct {
	IPEHome     string // ~/.ipe or IPE_HOME
	PIDPath     string // ipe.pid or IPE_PID_PATH
	StateDBPath string // state.db or IPE_DB_PATH
	CacheDir    string // cache/ or IPE_CACHE_DIR
}

// ResolvePaths returns all ipe paths, respecting env var overrides.
// Environment variables:
//   - IPE_HOME: base directory for all ipe state (default: ~/.ipe)
//   - IPE_PID_PATH: serve daemon PID file (default: $IPE_HOME/ipe.pid)
//   - IPE_DB_PATH: event log database (default: $IPE_HOME/state.db)
//   - IPE_CACHE_DIR: agent response cache root (default: $IPE_HOME/cache)
//
// If IPE_HOME is set, it becomes the base for all default paths. Specific
// env vars override both the default and the IPE_HOME base.
func ResolvePaths() (*Paths, error) {
	home, err := resolveIPEHome()
	if err != nil {
		return nil, err
	}

	return &Paths{
		IPEHome:     home,
		PIDPath:     resolvePathWithEnv("IPE_PID_PATH", home, "ipe.pid"),
		StateDBPath: resolvePathWithEnv("IPE_DB_PATH", home, "state.db"),
		CacheDir:    resolvePathWithEnv("IPE_CACHE_DIR", home, "cache"),
	}, nil
}

// resolveIPEHome returns the ipe home directory from IPE_HOME or ~/.ipe.
func resolveIPEHome() (string, error) {
	if v := os.Getenv("IPE_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ipeDir), nil
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}
