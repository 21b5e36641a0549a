package main

import (
	"fmt"

	"ipe/pkg/worktree"

	"github.com/spf13/cobra"
)

// newWorktreeCmd creates the "ipe worktree" command group.
func newWorktreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worktree",
		Short: "Manage isolated git worktrees",
	}

	cmd.AddCommand(
		newWorktreeCreateCmd(),
		newWorktreeListCmd(),
		newWorktreeCleanupCmd(),
		newWorktreeDetectCmd(),
	)

	return cmd
}

// adhocManager returns a Manager rooted at trees/ for operator-driven use.
func adhocManager(cmd *cobra.Command) (*worktree.Manager, error) {
	runner := &worktree.ExecCommandRunner{}
	root, err := worktree.RepoRoot(cmd.Context(), runner)
	if err != nil {
		return nil, fmt.Errorf("must run inside a git repository: %w", err)
	}
	return worktree.NewManager(root, worktree.TreesDir, runner), nil
}

func newWorktreeCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <operation> <branch>",
		Short: "Create (or reuse) an ad-hoc worktree checked out at branch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := adhocManager(cmd)
			if err != nil {
				return err
			}
			path, err := m.Create(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newWorktreeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List git worktrees for this repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := adhocManager(cmd)
			if err != nil {
				return err
			}
			entries, err := m.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range entries {
				managed := ""
				if worktree.IsManagedWorktree(e.Path) {
					managed = "  [managed]"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s%s\n", e.Path, e.Branch, managed)
			}
			return nil
		},
	}
}

func newWorktreeCleanupCmd() *cobra.Command {
	var managed bool

	cmd := &cobra.Command{
		Use:   "cleanup <operation>",
		Short: "Remove an operation's worktree and prune stale registrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := &worktree.ExecCommandRunner{}
			root, err := worktree.RepoRoot(cmd.Context(), runner)
			if err != nil {
				return fmt.Errorf("must run inside a git repository: %w", err)
			}

			isolationRoot := worktree.TreesDir
			if managed {
				isolationRoot = worktree.ManagedDir
			}
			m := worktree.NewManager(root, isolationRoot, runner)
			m.Cleanup(cmd.Context(), args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "cleaned up %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&managed, "managed", false, "target the workflow-managed isolation root")

	return cmd
}

func newWorktreeDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Report whether the current directory is inside an isolated worktree",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := adhocManager(cmd)
			if err != nil {
				return err
			}
			inside, path, err := m.DetectCurrent(cmd.Context(), ".")
			if err != nil {
				return err
			}
			if !inside {
				fmt.Fprintln(cmd.OutOrStdout(), "not inside an isolated worktree")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inside worktree %s\n", path)
			return nil
		},
	}
}
