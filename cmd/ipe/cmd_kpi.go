package main

import (
	"fmt"
	"os"
	"time"

	"ipe/pkg/kpi"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// newKPICmd creates the "ipe kpi" subcommand.
func newKPICmd() *cobra.Command {
	var (
		window   time.Duration
		markdown bool
	)

	cmd := &cobra.Command{
		Use:   "kpi",
		Short: "Report workflow throughput and cache effectiveness",
		Long: `Builds a report from the event log: dispatch counts, success rate,
cache hit rate, and a per-command breakdown. Styled output on a terminal,
markdown when piped or with --markdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return err
			}

			reader, err := kpi.NewReader(paths.StateDBPath)
			if err != nil {
				return err
			}
			defer func() { _ = reader.Close() }()

			rep, err := reader.Build(cmd.Context(), window)
			if err != nil {
				return err
			}

			if markdown || !isatty.IsTerminal(os.Stdout.Fd()) {
				fmt.Fprint(cmd.OutOrStdout(), kpi.RenderMarkdown(rep))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), kpi.RenderTerminal(rep))
			return nil
		},
	}

	cmd.Flags().DurationVar(&window, "window", 24*time.Hour, "report window")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "force markdown output")

	return cmd
}
