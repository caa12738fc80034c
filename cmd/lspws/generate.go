package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lspws/internal/pipeline"
)

var generateCheck bool

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate workspace.json",
	Long: `Generate workspace.json from the metadata document, resolving
dependencies first when the model changed.

Examples:
  lspws generate            # Regenerate when inputs changed
  lspws generate --force    # Regenerate unconditionally
  lspws generate --check    # Fail when workspace.json is out of date`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&generateCheck, "check", false, "Print a diff and fail when workspace.json differs from the metadata")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if !generateCheck {
		return runTasks(cmd, pipeline.TaskGenerateDocument)
	}

	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	diff, err := e.pipeline().Check()
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "workspace.json is up to date")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), diff)
	return fmt.Errorf("%s is out of date; run 'lspws generate'", e.cfg.WorkspaceFile)
}
