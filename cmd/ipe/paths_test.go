package main

import (
	"path/filepath"
	"testing"
)

func TestResolvePathsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("IPE_HOME", home)
	t.Setenv("IPE_PID_PATH", "")
	t.Setenv("IPE_DB_PATH", "")
	t.Setenv("IPE_CACHE_DIR", "")

	paths, err := ResolvePaths()
	if err != nil {
		t.Fatalf("ResolvePaths: %v", err)
	}

	if paths.IPEHome != home {
		t.Errorf("IPEHome = %q, want %q", paths.IPEHome, home)
	}
	if paths.PIDPath != filepath.Join(home, "ipe.pid") {
		t.Errorf("PIDPath = %q", paths.PIDPath)
	}
	if paths.StateDBPath != filepath.Join(home, "state.db") {
		t.Errorf("StateDBPath = %q", paths.StateDBPath)
	}
	if paths.CacheDir != filepath.Join(home, "cache") {
		t.Errorf("CacheDir = %q", paths.CacheDir)
	}
}

func TestResolvePathsSpecificOverridesWin(t *testing.T) {
	home := t.TempDir()
	t.Setenv("IPE_HOME", home)
	t.Setenv("IPE_DB_PATH", "/custom/state.db")
	t.Setenv("IPE_PID_PATH", "/custom/ipe.pid")
	t.Setenv("IPE_CACHE_DIR", "/custom/cache")

	paths, err := ResolvePaths()
	if err != nil {
		t.Fatalf("ResolvePaths: %v", err)
	}

	if paths.StateDBPath != "/custom/state.db" {
		t.Errorf("StateDBPath = %q", paths.StateDBPath)
	}
	if paths.PIDPath != "/custom/ipe.pid" {
		t.Errorf("PIDPath = %q", paths.PIDPath)
	}
	if paths.CacheDir != "/custom/cache" {
		t.Errorf("CacheDir = %q", paths.CacheDir)
	}
}
