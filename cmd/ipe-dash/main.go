// Package main implements the ipe-dash live KPI dashboard.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
)

// resolveDBPath mirrors the ipe CLI's path resolution: IPE_DB_PATH wins,
// then $IPE_HOME/state.db, then ~/.ipe/state.db.
func resolveDBPath() (string, error) {
	if v := os.Getenv("IPE_DB_PATH"); v != "" {
		return v, nil
	}
	if v := os.Getenv("IPE_HOME"); v != "" {
		return filepath.Join(v, "state.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".ipe", "state.db"), nil
}

func main() {
	dbPath, err := resolveDBPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(newModel(dbPath), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running dashboard: %v\n", err)
		os.Exit(1)
	}
}
