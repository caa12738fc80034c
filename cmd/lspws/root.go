package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"lspws/internal/config"
	"lspws/internal/errors"
	"lspws/internal/ledger"
	"lspws/internal/pipeline"
	"lspws/internal/slogutil"
	"lspws/internal/version"
)

var (
	projectDirFlag string
	configFlag     string
	verbosity      int
	quiet          bool
	forceFlag      bool
)

var rootCmd = &cobra.Command{
	Use:   "lspws",
	Short: "Kotlin LSP workspace generator for Gradle Android builds",
	Long: `lspws turns an exported Gradle project model into the workspace.json
document read by the Kotlin language server, staging every library jar
and its sources and registering the Android platform.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("lspws version {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&projectDirFlag, "project-dir", "", "Project root (default: current directory)")
	pf.StringVar(&configFlag, "config", "", "Configuration file (default: lspws.{toml,yaml,json} in the project root)")
	pf.CountVarP(&verbosity, "verbose", "v", "Verbose output (repeatable)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Suppress log output")
	pf.BoolVar(&forceFlag, "force", false, "Run tasks even when their outputs are up to date (init: overwrite lspws.toml)")

	// Names must match config.FlagKeys.
	pf.Bool("include-tests", false, "Include test classpaths")
	pf.Int("compile-sdk", 0, "Android platform version (default: detected)")
	pf.String("kotlin-version", "", "Kotlin version (default: detected)")
	pf.String("archiver", "", "Platform sources archiver: auto, jar or builtin")
	pf.String("workspace-file", "", "Output workspace document")
	pf.String("model", "", "Project model exported by Gradle")
	pf.String("log-format", "", "Log format: human or json")
	pf.String("application-id", "", "Application id used in editor files")
	pf.String("launch-activity", "", "Launcher activity simple name")
}

// env is what every command needs: the project, its configuration and a
// logger.
type env struct {
	projectDir string
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
	ledger     *ledger.Store
	getenv     func(string) string
}

func projectDir() (string, error) {
	dir := projectDirFlag
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", errors.New(errors.InternalError, "failed to get current directory", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.New(errors.InternalError, "invalid project directory", err)
	}
	return abs, nil
}

// newLogger logs to stderr. -v and -q win over the configured level.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	return slogutil.NewLogger(w, level, cfg.Logging.Format)
}

// setup loads the configuration and opens the ledger when it is enabled.
func setup(cmd *cobra.Command) (*env, error) {
	dir, err := projectDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(dir, configFlag, cmd.Flags())
	if err != nil {
		return nil, err
	}

	e := &env{
		projectDir: dir,
		configFile: configFlag,
		cfg:        cfg,
		logger:     newLogger(cfg, os.Stderr),
		getenv:     os.Getenv,
	}
	if e.configFile == "" {
		e.configFile = config.Find(dir)
	}

	if cfg.Ledger.Enabled {
		store, err := ledger.Open(cfg.Path(dir, cfg.Ledger.Path), e.logger)
		if err != nil {
			e.logger.Warn("Run ledger unavailable", "error", err)
		} else {
			e.ledger = store
		}
	}
	return e, nil
}

func (e *env) close() {
	if e.ledger != nil {
		if err := e.ledger.Close(); err != nil {
			e.logger.Warn("Failed to close run ledger", "error", err)
		}
	}
}

func (e *env) pipeline() *pipeline.Pipeline {
	return pipeline.New(e.projectDir, e.cfg, pipeline.Options{
		Force:      forceFlag,
		Ledger:     e.ledger,
		ConfigFile: e.configFile,
		Getenv:     e.getenv,
	}, e.logger)
}

// path resolves a configured path against the project directory.
func (e *env) path(p string) string {
	return e.cfg.Path(e.projectDir, p)
}

// runTasks runs names and prints a summary.
func runTasks(cmd *cobra.Command, names ...string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, stop := signalContext()
	defer stop()

	results, err := e.pipeline().Run(ctx, names...)
	printResults(cmd.OutOrStdout(), results)
	return err
}

// signalContext is cancelled on SIGINT and SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	fixes := errors.GetSuggestedFixes(errors.CodeOf(err))
	if len(fixes) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSuggested fixes:")
	for _, fix := range fixes {
		fmt.Fprintf(w, "  %s\n    %s\n", fix.Description, fix.Command)
	}
}
