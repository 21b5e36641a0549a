// Package worktree manages isolated git worktrees for workflow execution.
// Each workflow instance gets a dedicated checkout so concurrent runs never
// touch the same files. Ad-hoc worktrees live under trees/, workflow-managed
// ones under .worktrees/; the latter are identified structurally by the
// presence of an io/terraform subdirectory.
package worktree

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Isolation roots, relative to the repo root.
const (
	// TreesDir holds ad-hoc worktrees created by operators.
	TreesDir = "trees"

	// ManagedDir holds workflow-managed worktrees keyed by instance id.
	ManagedDir = ".worktrees"

	// InfraSubdir must exist beneath a managed worktree for it to be
	// recognized as workflow-isolated.
	InfraSubdir = "io/terraform"

	// BranchPrefix is the git branch prefix for workflow worktrees.
	BranchPrefix = "wf/"
)

// opNamePattern restricts operation names to safe path components.
var opNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidateOpName rejects operation names that could escape the isolation
// root via path traversal or separators.
func ValidateOpName(name string) error {
	if !opNamePattern.MatchString(name) {
		return fmt.Errorf("invalid operation name %q", name)
	}
	return nil
}

// CommandRunner abstracts command execution for testability.
// Production implementation uses os/exec; tests provide a mock.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Entry is one parsed line group from `git worktree list --porcelain`.
type Entry struct {
	Path   string
	Branch string
}

// Manager creates, detects, and destroys git worktrees beneath a single
// isolation root.
type Manager struct {
	repoRoot string
	root     string // TreesDir or ManagedDir
	runner   CommandRunner
}

// NewManager returns a Manager rooted at repoRoot using the given isolation
// root, usually TreesDir or ManagedDir.
func NewManager(repoRoot, isolationRoot string, runner CommandRunner) *Manager {
	return &Manager{
		repoRoot: repoRoot,
		root:     isolationRoot,
		runner:   runner,
	}
}

// RepoRoot resolves the enclosing git repository root. A missing repo is a
// fatal setup failure for any workflow.
func RepoRoot(ctx context.Context, runner CommandRunner) (string, error) {
	out, err := runner.Run(ctx, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("locate git root: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Create makes a worktree for opName checked out from branch and returns its
// path. An existing directory for the same operation name is treated as
// reuse, never overwritten. Any failure of the underlying git command is
// fatal and propagated.
func (m *Manager) Create(ctx context.Context, opName, branch string) (string, error) {
	if err := ValidateOpName(opName); err != nil {
		return "", err
	}

	rootDir := filepath.Join(m.repoRoot, m.root)
	if err := os.MkdirAll(rootDir, 0o750); err != nil {
		return "", fmt.Errorf("create isolation root %s: %w", rootDir, err)
	}

	path := filepath.Join(rootDir, opName)
	if _, err := os.Stat(path); err == nil {
		// Reuse: one worktree per operation name, ever.
		return path, nil
	}

	_, err := m.runner.Run(ctx, "git", "-C", m.repoRoot,
		"worktree", "add", path, branch,
	)
	if err != nil {
		return "", fmt.Errorf("worktree add %s: %w", opName, err)
	}
	return path, nil
}

// CreateFromBase makes a worktree for opName on a fresh branch
// (BranchPrefix + opName) cut from base. This is the form workflow instances
// use: checking out base directly would collide with the main checkout, so
// each instance gets its own branch. Reuse and failure semantics match
// Create.
func (m *Manager) CreateFromBase(ctx context.Context, opName, base string) (path, branch string, err error) {
	if err := ValidateOpName(opName); err != nil {
		return "", "", err
	}

	rootDir := filepath.Join(m.repoRoot, m.root)
	if err := os.MkdirAll(rootDir, 0o750); err != nil {
		return "", "", fmt.Errorf("create isolation root %s: %w", rootDir, err)
	}

	path = filepath.Join(rootDir, opName)
	branch = BranchPrefix + opName
	if _, err := os.Stat(path); err == nil {
		return path, branch, nil
	}

	_, err = m.runner.Run(ctx, "git", "-C", m.repoRoot,
		"worktree", "add", path, "-b", branch, base,
	)
	if err != nil {
		return "", "", fmt.Errorf("worktree add %s: %w", opName, err)
	}
	return path, branch, nil
}

// Cleanup force-removes the worktree for opName and prunes stale references.
// It is idempotent: a missing directory is a no-op. Removal failures are
// logged, never fatal — cleanup is best-effort.
func (m *Manager) Cleanup(ctx context.Context, opName string) {
	path := filepath.Join(m.repoRoot, m.root, opName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return
	}

	if _, err := m.runner.Run(ctx, "git", "-C", m.repoRoot,
		"worktree", "remove", path, "--force",
	); err != nil {
		log.Printf("warning: worktree remove %s: %v", path, err)
		// git refused; take the directory down ourselves so the op name frees up.
		_ = os.RemoveAll(path)
	}

	if _, err := m.runner.Run(ctx, "git", "-C", m.repoRoot, "worktree", "prune"); err != nil {
		log.Printf("warning: worktree prune: %v", err)
	}
}

// List parses `git worktree list --porcelain` into entries.
func (m *Manager) List(ctx context.Context) ([]Entry, error) {
	out, err := m.runner.Run(ctx, "git", "-C", m.repoRoot,
		"worktree", "list", "--porcelain",
	)
	if err != nil {
		return nil, fmt.Errorf("worktree list: %w", err)
	}
	return parsePorcelain(string(out)), nil
}

// parsePorcelain splits porcelain output into entries. Each stanza starts
// with a "worktree <path>" line; "branch refs/heads/<name>" is optional
// (detached HEADs have none).
func parsePorcelain(out string) []Entry {
	var entries []Entry
	var cur *Entry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "worktree "):
			if cur != nil {
				entries = append(entries, *cur)
			}
			cur = &Entry{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "branch refs/heads/") && cur != nil:
			cur.Branch = strings.TrimPrefix(line, "branch refs/heads/")
		case line == "" && cur != nil:
			entries = append(entries, *cur)
			cur = nil
		}
	}
	if cur != nil {
		entries = append(entries, *cur)
	}
	return entries
}

// DetectCurrent reports whether dir sits inside any listed worktree and, if
// so, which one. Detection is always recomputed from git, never cached. The
// main checkout (first porcelain stanza) does not count as a worktree.
func (m *Manager) DetectCurrent(ctx context.Context, dir string) (bool, string, error) {
	entries, err := m.List(ctx)
	if err != nil {
		return false, "", err
	}
	if len(entries) <= 1 {
		return false, "", nil
	}

	resolved, err := resolvePath(dir)
	if err != nil {
		return false, "", fmt.Errorf("resolve %s: %w", dir, err)
	}

	for _, e := range entries[1:] {
		wt, err := resolvePath(e.Path)
		if err != nil {
			continue
		}
		if pathContains(wt, resolved) {
			return true, e.Path, nil
		}
	}
	return false, "", nil
}

// IsManagedWorktree reports whether path is a workflow-managed worktree:
// its resolved form contains the managed isolation-root segment AND the
// infra subdirectory exists beneath it. The check is structural, so any
// path satisfying both conditions qualifies even if this manager never
// created it.
func IsManagedWorktree(path string) bool {
	resolved, err := resolvePath(path)
	if err != nil {
		resolved = filepath.Clean(path)
	}

	if !containsSegment(resolved, ManagedDir) {
		return false
	}

	// Stat the same resolved tree the segment check examined, so a symlinked
	// path cannot satisfy the two conditions against different trees.
	info, err := os.Stat(filepath.Join(resolved, filepath.FromSlash(InfraSubdir)))
	return err == nil && info.IsDir()
}

// resolvePath returns the absolute, symlink-resolved form of p. When the
// path does not exist on disk, the absolute form is returned unresolved.
func resolvePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// pathContains reports whether child equals parent or is nested beneath it.
// Comparison is case-sensitive on cleaned absolute paths.
func pathContains(parent, child string) bool {
	if parent == child {
		return true
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}

// containsSegment reports whether path has seg as a whole path component.
func containsSegment(path, seg string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == seg {
			return true
		}
	}
	return false
}
