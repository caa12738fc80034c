package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"lspws/internal/config"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect lspws configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after applying lspws.toml, LSPWS_* environment
variables and flags.

Examples:
  lspws config show                  # TOML
  lspws config show --format json    # JSON`,
	RunE: runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Run:   runConfigEnv,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format (toml, json)")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	w := cmd.OutOrStdout()
	switch configFormat {
	case "json":
		return printJSON(w, e.cfg)
	case "toml":
		if e.configFile != "" {
			fmt.Fprintf(w, "# Source: %s\n", e.configFile)
		} else {
			fmt.Fprintln(w, "# Source: defaults (no config file found)")
		}
		return e.cfg.Encode(w)
	default:
		return fmt.Errorf("unsupported format: %s", configFormat)
	}
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	keys := config.Keys()
	sort.Strings(keys)
	w := cmd.OutOrStdout()
	for _, key := range keys {
		env := config.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		fmt.Fprintf(w, "%-36s %s\n", env, key)
	}
}
