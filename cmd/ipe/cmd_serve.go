package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"ipe/pkg/trigger"

	"github.com/spf13/cobra"
)

// newServeCmd creates the "ipe serve" subcommand: the trigger daemon.
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook and cron trigger daemon",
		Long: `Serves the GitHub webhook endpoint and watches the cron queue directory,
routing every accepted payload through the workflow dispatcher. Writes a
PID file so 'ipe stop' can shut it down.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, repoRoot, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.WebhookAddr = addr
			}

			paths, err := ResolvePaths()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(paths.IPEHome, 0o750); err != nil {
				return fmt.Errorf("create state dir: %w", err)
			}

			status, pid, err := DaemonStatus(paths.PIDPath)
			if err != nil {
				return err
			}
			if status == StatusRunning {
				return fmt.Errorf("ipe serve already running (PID %d)", pid)
			}

			db, err := openDB(paths.StateDBPath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			router, err := buildRouter(cmd.Context(), cfg, paths, db)
			if err != nil {
				return err
			}

			if err := WritePIDFile(paths.PIDPath, os.Getpid()); err != nil {
				return err
			}
			ctx, cleanup := SetupSignalHandler(cmd.Context(), paths.PIDPath)
			defer cleanup()

			schedule, err := trigger.LoadSchedule(filepath.Join(repoRoot, ipeDir, "schedule.toml"))
			if err != nil {
				return err
			}

			queueDir := cfg.QueueDir
			if !filepath.IsAbs(queueDir) && repoRoot != "" {
				queueDir = filepath.Join(repoRoot, queueDir)
			}

			cron := trigger.NewCron(router, queueDir, schedule)
			go func() {
				// A startup failure (queue dir creation) must not pass
				// silently while the webhook keeps serving.
				if err := cron.Run(ctx); err != nil {
					log.Printf("warning: cron trigger stopped: %v", err)
				}
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "ipe serve listening on %s (PID %d)\n", cfg.WebhookAddr, os.Getpid())

			return trigger.NewWebhook(router).Serve(ctx, cfg.WebhookAddr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "webhook listen address (overrides config)")

	return cmd
}
