package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ipe/pkg/skill"

	"github.com/spf13/cobra"
)

// newSkillCmd creates the "ipe skill" command group: prompt generators for
// reusable analysis tasks.
func newSkillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skill",
		Short: "Render reusable analysis prompts",
	}

	cmd.AddCommand(newSkillTerraformCmd(), newSkillPackerCmd())

	return cmd
}

func newSkillTerraformCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "terraform-module <dir>",
		Short: "Render the Terraform module analysis prompt for a module directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			matches, err := filepath.Glob(filepath.Join(dir, "*.tf"))
			if err != nil {
				return fmt.Errorf("scan module dir %s: %w", dir, err)
			}
			if len(matches) == 0 {
				return fmt.Errorf("no .tf files in %s", dir)
			}

			files := make([]string, len(matches))
			for i, m := range matches {
				files[i] = filepath.Base(m)
			}

			fmt.Fprint(cmd.OutOrStdout(), skill.TerraformModuleAnalysis(dir, files))
			return nil
		},
	}
}

func newSkillPackerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "packer-log [file]",
		Short: "Render the Packer build log analysis prompt",
		Long:  "Reads a Packer build log from the given file (or stdin) and renders the\nanalysis prompt with the log tail embedded.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data, err = os.ReadFile(args[0]) //nolint:gosec // operator-supplied log path
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			if strings.TrimSpace(string(data)) == "" {
				return fmt.Errorf("empty build log")
			}

			fmt.Fprint(cmd.OutOrStdout(), skill.PackerLogAnalysis(string(data)))
			return nil
		},
	}
}
