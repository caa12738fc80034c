package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"lspws/internal/config"
	"lspws/internal/editorconfig"
	"lspws/internal/errors"
	"lspws/internal/gradle"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default lspws.toml",
	Long: `Write lspws.toml to the project root with the default settings and any
overrides given as flags or LSPWS_* environment variables. An existing
configuration file is kept unless --force is given.`,
	RunE: runInit,
}

var initScriptOutput string

var initScriptCmd = &cobra.Command{
	Use:   "init-script",
	Short: "Write the Gradle init script that exports the project model",
	Long: `Write the Gradle init script that registers the lspwsExportModel task.

Examples:
  lspws init-script
  ./gradlew --init-script build/lsp-model.init.gradle lspwsExportModel`,
	RunE: runInitScript,
}

func init() {
	initScriptCmd.Flags().StringVarP(&initScriptOutput, "output", "o", "", "Output path (default: <buildDir>/lsp-model.init.gradle)")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(initScriptCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	if existing := config.Find(dir); existing != "" && !forceFlag {
		fmt.Fprintf(w, "Configuration already exists: %s\n", existing)
		fmt.Fprintln(w, "\nRun 'lspws init --force' to overwrite.")
		return nil
	}

	cfg, err := config.LoadConfig(dir, "", cmd.Flags())
	if err != nil {
		return err
	}
	path := filepath.Join(dir, config.FileName+".toml")
	if err := cfg.Save(path); err != nil {
		return errors.New(errors.IOFailure, "failed to write "+path, err)
	}
	fmt.Fprintf(w, "Wrote %s\n", path)
	return nil
}

func runInitScript(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	exporter := e.exporter()
	if initScriptOutput != "" {
		abs, err := filepath.Abs(initScriptOutput)
		if err != nil {
			return errors.New(errors.InternalError, "invalid output path", err)
		}
		exporter.InitScript = abs
	}

	script, err := editorconfig.NewGenerator(e.logger).InitScript()
	if err != nil {
		return err
	}
	if err := exporter.WriteInitScript(script); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Wrote %s\n\nExport the model with:\n  ./%s", exporter.InitScript, gradle.WrapperName())
	for _, a := range exporter.Args() {
		fmt.Fprintf(w, " %s", a)
	}
	fmt.Fprintln(w)
	return nil
}
