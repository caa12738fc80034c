// Package pipeline runs the generation tasks in dependency order, skipping
// tasks whose outputs are newer than their inputs and were produced with
// the current options.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"lspws/internal/config"
	"lspws/internal/ledger"
	"lspws/internal/outcome"
	"lspws/internal/staging"
)

// Task names.
const (
	TaskCleanStaging     = "clean-staging"
	TaskResolve          = "resolve-dependencies"
	TaskGenerateDocument = "generate-workspace-document"
	TaskEditorConfig     = "generate-editor-config"
)

// Stats summarizes what a task produced.
type Stats struct {
	Modules       int
	Libraries     int
	KotlinVersion string
}

// Task is one step of the pipeline.
type Task struct {
	Name        string
	Description string
	DependsOn   []string
	Inputs      func() []string
	Outputs     func() []string
	// Enabled reports whether the task applies to the current
	// configuration; disabled tasks are skipped.
	Enabled func() bool
	// Options returns the configuration the outputs depend on. A change
	// since the last successful run makes the task out of date.
	Options func() any
	// Stale reports outputs that are unusable even though they are newer
	// than the inputs.
	Stale  func() bool
	Action func(ctx context.Context, report *outcome.Report) (Stats, error)
}

// Result is the outcome of one task execution.
type Result struct {
	Task         string
	Skipped      bool
	Stats        Stats
	Degradations []outcome.Degradation
	RunID        string
}

// Options controls a pipeline.
type Options struct {
	// Force runs tasks even when they are up to date.
	Force bool
	// Ledger records each run when set.
	Ledger *ledger.Store
	// Getenv is consulted for SDK and repository locations.
	Getenv func(string) string
	// ConfigFile is treated as an input of every task when set.
	ConfigFile string
}

// Pipeline holds the tasks of one project.
type Pipeline struct {
	ProjectDir string
	Config     *config.Config
	Options    Options

	tasks  map[string]*Task
	order  []string
	logger *slog.Logger
}

// New creates the pipeline for the project in projectDir.
func New(projectDir string, cfg *config.Config, opts Options, logger *slog.Logger) *Pipeline {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	p := &Pipeline{
		ProjectDir: projectDir,
		Config:     cfg,
		Options:    opts,
		tasks:      make(map[string]*Task),
		logger:     logger,
	}
	p.register(p.cleanStagingTask())
	p.register(p.resolveTask())
	p.register(p.generateDocumentTask())
	p.register(p.editorConfigTask())
	return p
}

func (p *Pipeline) register(t *Task) {
	p.tasks[t.Name] = t
	p.order = append(p.order, t.Name)
}

// Tasks returns the registered tasks in registration order.
func (p *Pipeline) Tasks() []*Task {
	out := make([]*Task, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.tasks[name])
	}
	return out
}

// Plan returns the tasks needed for names, dependencies first, each once.
func (p *Pipeline) Plan(names ...string) ([]*Task, error) {
	var plan []*Task
	visited := make(map[string]bool)
	visiting := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		if visiting[name] {
			return fmt.Errorf("task cycle at %s", name)
		}
		t, ok := p.tasks[name]
		if !ok {
			return fmt.Errorf("unknown task %q", name)
		}
		visiting[name] = true
		for _, dep := range t.DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		plan = append(plan, t)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// Run executes names and their dependencies in order. The first failing
// task stops the run; results of the tasks before it are returned with the
// error. The build directory is locked for the length of the run.
func (p *Pipeline) Run(ctx context.Context, names ...string) ([]Result, error) {
	plan, err := p.Plan(names...)
	if err != nil {
		return nil, err
	}

	lock, err := staging.AcquireLock(p.path(p.Config.BuildDir))
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	results := make([]Result, 0, len(plan))
	for _, t := range plan {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := p.execute(ctx, t)
		results = append(results, res)
		if err != nil {
			return results, fmt.Errorf("%s: %w", t.Name, err)
		}
	}
	return results, nil
}

func (p *Pipeline) execute(ctx context.Context, t *Task) (Result, error) {
	run := ledger.NewRun(t.Name)
	res := Result{Task: t.Name, RunID: run.ID}

	if t.Enabled != nil && !t.Enabled() {
		p.logger.Info("Task disabled", "task", t.Name)
		res.Skipped = true
		run.Skip()
		p.record(run)
		return res, nil
	}

	if p.upToDate(t) {
		p.logger.Info("Task up to date", "task", t.Name)
		res.Skipped = true
		run.Skip()
		p.record(run)
		return res, nil
	}

	p.logger.Info("Running task", "task", t.Name)
	report := &outcome.Report{}
	stats, err := t.Action(ctx, report)

	res.Stats = stats
	res.Degradations = report.Items()
	run.Modules = stats.Modules
	run.Libraries = stats.Libraries
	run.KotlinVersion = stats.KotlinVersion
	run.Finish(err, res.Degradations)
	p.record(run)

	if err != nil {
		p.logger.Error("Task failed", "task", t.Name, "error", err)
		return res, err
	}
	p.writeStamp(t)
	if len(res.Degradations) > 0 {
		p.logger.Warn("Task finished with degradations", "task", t.Name, "count", len(res.Degradations), "stages", report.Stages())
	}
	p.logger.Info("Task finished", "task", t.Name, "duration", run.Duration())
	return res, nil
}

func (p *Pipeline) upToDate(t *Task) bool {
	if p.Options.Force || t.Outputs == nil {
		return false
	}
	if !UpToDate(p.inputs(t), t.Outputs()) {
		return false
	}
	if t.Stale != nil && t.Stale() {
		p.logger.Debug("Task outputs are stale", "task", t.Name)
		return false
	}
	if !p.optionsCurrent(t) {
		p.logger.Debug("Task options changed", "task", t.Name)
		return false
	}
	return true
}

func (p *Pipeline) inputs(t *Task) []string {
	var in []string
	if t.Inputs != nil {
		in = t.Inputs()
	}
	if p.Options.ConfigFile != "" {
		in = append(in, p.Options.ConfigFile)
	}
	return in
}

func (p *Pipeline) record(run *ledger.Run) {
	if p.Options.Ledger == nil {
		return
	}
	if err := p.Options.Ledger.Record(run); err != nil {
		p.logger.Warn("Failed to record run", "task", run.Task, "error", err)
	}
}

// path resolves a configured path against the project directory.
func (p *Pipeline) path(configured string) string {
	return p.Config.Path(p.ProjectDir, configured)
}
