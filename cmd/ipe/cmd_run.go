package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// newRunCmd creates the "ipe run" subcommand: one-shot classify and dispatch.
func newRunCmd() *cobra.Command {
	var noLog bool

	cmd := &cobra.Command{
		Use:   "run <text>...",
		Short: "Classify a request and dispatch its workflow",
		Long: `Classifies free-form text into a workflow command, provisions (or reuses)
the instance worktree, and runs the command's phases with a memoized agent.
Prints the structured outcome as JSON.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text := strings.Join(args, " ")

			cfg, _, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			paths, err := ResolvePaths()
			if err != nil {
				return err
			}

			db := openStateDB(paths, noLog)
			if db != nil {
				defer func() { _ = db.Close() }()
			}

			router, err := buildRouter(ctx, cfg, paths, db)
			if err != nil {
				return err
			}

			out, err := router.Route(ctx, text)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().BoolVar(&noLog, "no-log", false, "skip the event log database")

	return cmd
}

// openStateDB opens the event log, or returns nil when logging is disabled
// or the database cannot be opened. Routing works without it.
func openStateDB(paths *Paths, noLog bool) *sql.DB {
	if noLog {
		return nil
	}
	if err := os.MkdirAll(paths.IPEHome, 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "warning: create state dir: %v (event logging off)\n", err)
		return nil
	}
	db, err := openDB(paths.StateDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (event logging off)\n", err)
		return nil
	}
	return db
}
