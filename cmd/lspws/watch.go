package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"lspws/internal/pipeline"
	"lspws/internal/watcher"
)

var watchExport bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate workspace.json when build inputs change",
	Long: `Poll the settings and build scripts, the version catalog,
local.properties and the project model, and regenerate workspace.json and
the editor files after each change. Requires autoRegenerate.

With --export, a change to a build script first re-runs the Gradle model
export.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchExport, "export", false, "Re-export the Gradle model when build scripts change")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if !e.cfg.AutoRegenerate {
		fmt.Fprintln(cmd.OutOrStdout(), "autoRegenerate is off; nothing to watch")
		return nil
	}

	ctx, stop := signalContext()
	defer stop()
	cmd.SetContext(ctx)

	p := e.pipeline()
	tasks := []string{pipeline.TaskGenerateDocument}
	if e.cfg.Editor.Generate {
		tasks = append(tasks, pipeline.TaskEditorConfig)
	}
	modelFile := e.path(e.cfg.ModelFile)

	var mu sync.Mutex
	regenerate := func(events []watcher.Event) {
		mu.Lock()
		defer mu.Unlock()

		if watchExport && touchesBuildScripts(events, modelFile) {
			if err := e.exportModel(cmd); err != nil {
				e.logger.Error("Model export failed", "error", err)
				return
			}
		}
		results, err := p.Run(ctx, tasks...)
		printResults(cmd.OutOrStdout(), results)
		if err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Error("Regeneration failed", "error", err)
		}
	}

	regenerate(nil)

	config := watcher.DefaultConfig()
	config.PollInterval = time.Duration(e.cfg.Watch.PollIntervalMs) * time.Millisecond
	config.Debounce = time.Duration(e.cfg.Watch.DebounceMs) * time.Millisecond
	config.Files = append(config.Files, modelFile)

	w := watcher.New(e.projectDir, config, e.logger, regenerate)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// touchesBuildScripts reports whether any event is for a Gradle script.
func touchesBuildScripts(events []watcher.Event, modelFile string) bool {
	for _, ev := range events {
		if ev.Path == modelFile {
			continue
		}
		if strings.HasSuffix(ev.Path, ".gradle") || strings.HasSuffix(ev.Path, ".gradle.kts") || strings.HasSuffix(ev.Path, ".toml") {
			return true
		}
	}
	return false
}
