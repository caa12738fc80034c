package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"lspws/internal/editorconfig"
	"lspws/internal/gradle"
	"lspws/internal/pipeline"
)

var (
	syncNoExport bool
	syncClean    bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Export the Gradle model and regenerate everything",
	Long: `Run the Gradle model export, then resolve dependencies and generate
workspace.json and the editor files.

Examples:
  lspws sync                # Export and regenerate
  lspws sync --no-export    # Regenerate from the last exported model
  lspws sync --clean        # Restage every jar`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncNoExport, "no-export", false, "Skip the Gradle model export")
	syncCmd.Flags().BoolVar(&syncClean, "clean", false, "Clean the staging directory first")
	rootCmd.AddCommand(syncCmd)
}

// exporter runs the model export of the project's Gradle build.
func (e *env) exporter() *gradle.Exporter {
	return gradle.NewExporter(
		e.projectDir,
		e.path(e.cfg.ModelFile),
		filepath.Join(e.path(e.cfg.BuildDir), editorconfig.InitScriptName),
		gradle.NewExecRunner(10*time.Minute),
		e.logger,
	)
}

func (e *env) exportModel(cmd *cobra.Command) error {
	script, err := editorconfig.NewGenerator(e.logger).InitScript()
	if err != nil {
		return err
	}
	return e.exporter().Export(cmd.Context(), script)
}

func runSync(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, stop := signalContext()
	defer stop()
	cmd.SetContext(ctx)

	if !syncNoExport {
		if err := e.exportModel(cmd); err != nil {
			return err
		}
	}

	names := []string{pipeline.TaskEditorConfig}
	if syncClean {
		names = append([]string{pipeline.TaskCleanStaging}, names...)
	}
	results, err := e.pipeline().Run(ctx, names...)
	printResults(cmd.OutOrStdout(), results)
	return err
}
