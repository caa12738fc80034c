package main

import (
	"github.com/spf13/cobra"

	"lspws/internal/pipeline"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete and recreate the staging directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTasks(cmd, pipeline.TaskCleanStaging)
	},
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Resolve dependencies and write the metadata document",
	Long: `Resolve every subdivision's compile classpath, stage the jars and their
sources, register the Android platform and write build/lsp-metadata.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTasks(cmd, pipeline.TaskResolve)
	},
}

var editorConfigCmd = &cobra.Command{
	Use:   "editor-config",
	Short: "Generate editor task and launch configurations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTasks(cmd, pipeline.TaskEditorConfig)
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(editorConfigCmd)
}
