package main

import (
	"fmt"

	"ipe/internal/appversion"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root ipe command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ipe",
		Short:         "Isolated workflow dispatcher for app and infra pipelines",
		Long:          "ipe routes natural-language requests to isolated AI developer workflows.\nEach workflow instance runs in its own git worktree with a memoized agent.",
		Version:       fmt.Sprintf("ipe %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newInitCmd(),
		newRunCmd(),
		newServeCmd(),
		newStatusCmd(),
		newStopCmd(),
		newWorktreeCmd(),
		newCacheCmd(),
		newKPICmd(),
		newSkillCmd(),
	)

	return cmd
}
