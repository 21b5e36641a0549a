package main

import (
	"fmt"
	"time"

	"ipe/pkg/cache"

	"github.com/spf13/cobra"
)

// newCacheCmd creates the "ipe cache" command group.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the agent response cache",
	}

	cmd.AddCommand(newCacheStatsCmd(), newCacheClearCmd())

	return cmd
}

// openCacheStore builds a Store from the resolved paths and repo config.
func openCacheStore(cmd *cobra.Command) (*cache.Store, error) {
	cfg, _, err := loadConfig(cmd.Context())
	if err != nil {
		return nil, err
	}
	paths, err := ResolvePaths()
	if err != nil {
		return nil, err
	}
	return cache.NewStore(paths.CacheDir, cfg.CacheTTL()), nil
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <instance-id>",
		Short: "Show entry count and size for an instance's cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCacheStore(cmd)
			if err != nil {
				return err
			}

			stats := store.Stats(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "entries: %d\n", stats.Entries)
			fmt.Fprintf(cmd.OutOrStdout(), "bytes:   %d\n", stats.TotalBytes)
			if !stats.Oldest.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "oldest:  %s\n", stats.Oldest.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clear <instance-id>",
		Short: "Delete cached responses for an instance",
		Long:  "Deletes an instance's cached agent responses. With --older-than only\nentries past the given age are removed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCacheStore(cmd)
			if err != nil {
				return err
			}

			removed := store.Clear(args[0], olderThan)
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", removed)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "only remove entries older than this age (0 = all)")

	return cmd
}
