package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"ipe/pkg/config"

	"github.com/spf13/cobra"
)

// Tool status constants.
const (
	statusOK      = "OK"
	statusMissing = "MISSING"
)

// toolDef describes an external binary ipe shells out to.
type toolDef struct {
	Name      string   // human-readable name
	Category  string   // grouping: core, infra
	CheckCmd  string   // binary to run for version check
	CheckArgs []string // args for version check
	Required  bool     // false means the tool is only needed for infra workflows
}

// toolResult holds the outcome of checking a single tool.
type toolResult struct {
	Name     string
	Category string
	Status   string
	Version  string
}

// defaultToolDefs is the canonical list of external tools ipe invokes.
// Tests may override this variable to control what gets checked.
var defaultToolDefs = []toolDef{ //nolint:gochecknoglobals // mutable for test injection
	{Name: "git", Category: "core", CheckCmd: "git", CheckArgs: []string{"--version"}, Required: true},
	{Name: "claude", Category: "core", CheckCmd: "claude", CheckArgs: []string{"--version"}, Required: true},
	{Name: "terraform", Category: "infra", CheckCmd: "terraform", CheckArgs: []string{"version"}},
	{Name: "packer", Category: "infra", CheckCmd: "packer", CheckArgs: []string{"version"}},
	{Name: "aws", Category: "infra", CheckCmd: "aws", CheckArgs: []string{"--version"}},
}

// checkTool runs the version check for a single tool definition.
func checkTool(def toolDef) toolResult {
	r := toolResult{Name: def.Name, Category: def.Category}

	path, err := exec.LookPath(def.CheckCmd)
	if err != nil {
		r.Status = statusMissing
		return r
	}

	cmd := exec.CommandContext(context.Background(), path, def.CheckArgs...) //nolint:gosec // args from trusted toolDef table
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.Status = statusOK
		r.Version = "(version unknown)"
		return r
	}

	r.Status = statusOK
	r.Version = parseVersion(string(out))
	return r
}

// parseVersion extracts a compact version string from command output:
// first line, trimmed, truncated.
func parseVersion(raw string) string {
	lines := strings.SplitN(strings.TrimSpace(raw), "\n", 2)
	if len(lines) == 0 {
		return "(unknown)"
	}
	v := strings.TrimSpace(lines[0])
	if len(v) > 60 {
		v = v[:60] + "..."
	}
	return v
}

// checkAllTools checks every tool in the given slice.
func checkAllTools(defs []toolDef) []toolResult {
	results := make([]toolResult, len(defs))
	for i, def := range defs {
		results[i] = checkTool(def)
	}
	return results
}

// missingRequired returns the names of required tools that are missing.
func missingRequired(defs []toolDef, results []toolResult) []string {
	var names []string
	for i, r := range results {
		if r.Status != statusOK && defs[i].Required {
			names = append(names, r.Name)
		}
	}
	return names
}

// formatToolTable writes a human-readable table of tool check results to w.
func formatToolTable(w io.Writer, results []toolResult) {
	fmt.Fprintf(w, "%-12s %-10s %-10s %s\n", "Tool", "Category", "Status", "Version")
	fmt.Fprintf(w, "%-12s %-10s %-10s %s\n", "----", "--------", "------", "-------")
	for _, r := range results {
		ver := r.Version
		if r.Status == statusMissing {
			ver = "-"
		}
		fmt.Fprintf(w, "%-12s %-10s %-10s %s\n", r.Name, r.Category, r.Status, ver)
	}
	fmt.Fprintln(w)
}

// newInitCmd creates the "ipe init" subcommand.
func newInitCmd() *cobra.Command {
	var (
		projectRoot string
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Check tool availability and generate .ipe/config.yaml",
		Long: `Verifies the external tools ipe shells out to (git, claude, terraform,
packer, aws) and writes a starter .ipe/config.yaml plus the cron queue
directory. Missing infra tools are reported but only block infra workflows.

Use --force to overwrite an existing .ipe/config.yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), projectRoot, force)
		},
	}

	cmd.Flags().StringVar(&projectRoot, "project-root", ".", "project root directory for config generation")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing .ipe/config.yaml")

	return cmd
}

// runInit is the core logic for the init command, separated for testability.
func runInit(w io.Writer, projectRoot string, force bool) error {
	results := checkAllTools(defaultToolDefs)
	formatToolTable(w, results)

	if missing := missingRequired(defaultToolDefs, results); len(missing) > 0 {
		return fmt.Errorf("required tools missing: %s", strings.Join(missing, ", "))
	}

	configPath := filepath.Join(projectRoot, ipeDir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", configPath)
	}

	if err := os.MkdirAll(filepath.Join(projectRoot, ipeDir, "queue"), 0o750); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(config.BuildYAML(config.Default())), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintf(w, "Wrote %s\n", configPath)
	return nil
}
