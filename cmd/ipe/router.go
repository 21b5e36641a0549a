package main

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"ipe/pkg/agent"
	"ipe/pkg/cache"
	"ipe/pkg/config"
	"ipe/pkg/dispatch"
	"ipe/pkg/infra"
	"ipe/pkg/workflow"
	"ipe/pkg/worktree"
)

// loadConfig reads .ipe/config.yaml from the current repo, falling back to
// defaults when the repo or file is absent.
func loadConfig(ctx context.Context) (config.Config, string, error) {
	root, err := worktree.RepoRoot(ctx, &worktree.ExecCommandRunner{})
	if err != nil {
		// Outside a git repo: defaults only, no repo root.
		return config.Default(), "", nil
	}
	cfg, err := config.Load(filepath.Join(root, ipeDir, "config.yaml"))
	return cfg, root, err
}

// buildRouter assembles the dispatch router from resolved paths and config.
// db may be nil for one-shot invocations that skip event logging.
func buildRouter(ctx context.Context, cfg config.Config, paths *Paths, db *sql.DB) (*dispatch.Router, error) {
	root, err := worktree.RepoRoot(ctx, &worktree.ExecCommandRunner{})
	if err != nil {
		return nil, fmt.Errorf("ipe must run inside a git repository: %w", err)
	}

	wt := worktree.NewManager(root, worktree.ManagedDir, &worktree.ExecCommandRunner{})
	store := cache.NewStore(paths.CacheDir, cfg.CacheTTL())

	r := dispatch.New(
		dispatch.Config{BaseBranch: cfg.BaseBranch, DefaultTTL: cfg.CacheTTL()},
		db,
		wt,
		store,
		&agent.ClaudeInvoker{},
		map[workflow.Type]dispatch.Phases{
			workflow.TypeApp:   dispatch.AppPhases{},
			workflow.TypeInfra: dispatch.InfraPhases{Runner: &infra.ExecCommandRunner{}},
		},
	)

	if err := r.InitSchema(ctx); err != nil {
		return nil, err
	}
	return r, nil
}
