package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStatusCmd creates the "ipe status" subcommand.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show trigger daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return err
			}

			status, pid, err := DaemonStatus(paths.PIDPath)
			if err != nil {
				return err
			}

			switch status {
			case StatusRunning:
				fmt.Fprintf(cmd.OutOrStdout(), "running (PID %d)\n", pid)
			case StatusStale:
				fmt.Fprintf(cmd.OutOrStdout(), "stale PID file (PID %d is dead)\n", pid)
			case StatusStopped:
				fmt.Fprintln(cmd.OutOrStdout(), "stopped")
			}
			return nil
		},
	}
}
