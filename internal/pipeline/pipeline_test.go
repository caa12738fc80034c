package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lspws/internal/config"
	"lspws/internal/errors"
	"lspws/internal/ledger"
	"lspws/internal/slogutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// newProject writes a one-module project model whose app depends on a
// single jar.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	jar := filepath.Join(dir, "libs", "foo-1.0.jar")
	writeFile(t, jar, "jar")
	writeFile(t, filepath.Join(dir, "gradle", "libs.versions.toml"), "[versions]\nkotlin = \"2.1.0\"\n")

	m := map[string]any{
		"rootName": "demo",
		"rootDir":  dir,
		"projects": []map[string]any{
			{"path": ":", "name": "demo"},
			{"path": ":app", "name": "app", "dir": "app", "configurations": []map[string]any{
				{"name": "compileClasspath", "canBeResolved": true, "artifacts": []map[string]any{
					{"group": "com.example", "name": "foo", "version": "1.0", "file": jar},
				}},
			}},
		},
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "build", "lsp-model.json"), string(data))
	return dir
}

func newTestPipeline(t *testing.T, dir string, store *ledger.Store) *Pipeline {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.SourcesArchiver = "builtin"
	cfg.GradleUserHome = filepath.Join(dir, "no-gradle-home")
	cfg.MavenLocal = filepath.Join(dir, "no-m2")
	return New(dir, cfg, Options{
		Ledger: store,
		Getenv: func(string) string { return "" },
	}, slogutil.NewDiscardLogger())
}

func taskNames(results []Result) []string {
	var names []string
	for _, r := range results {
		names = append(names, fmt.Sprintf("%s:%v", r.Task, r.Skipped))
	}
	return names
}

func TestPlan(t *testing.T) {
	p := newTestPipeline(t, t.TempDir(), nil)

	plan, err := p.Plan(TaskEditorConfig, TaskResolve)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{TaskResolve, TaskGenerateDocument, TaskEditorConfig}
	if len(plan) != len(want) {
		t.Fatalf("Plan() has %d tasks, want %d", len(plan), len(want))
	}
	for i, task := range plan {
		if task.Name != want[i] {
			t.Errorf("Plan()[%d] = %s, want %s", i, task.Name, want[i])
		}
	}

	if _, err := p.Plan("assembleDebug"); err == nil {
		t.Error("unknown task should fail")
	}
	if len(p.Tasks()) != 4 {
		t.Errorf("Tasks() = %d, want 4", len(p.Tasks()))
	}
}

func TestRunGeneratesWorkspace(t *testing.T) {
	dir := newProject(t)
	p := newTestPipeline(t, dir, nil)
	ctx := context.Background()

	results, err := p.Run(ctx, TaskGenerateDocument)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 2 || results[0].Skipped || results[1].Skipped {
		t.Fatalf("results = %v", taskNames(results))
	}
	if results[0].Stats.Modules != 1 || results[0].Stats.Libraries != 1 {
		t.Errorf("resolve stats = %+v", results[0].Stats)
	}
	if results[0].Stats.KotlinVersion != "2.1.0" {
		t.Errorf("KotlinVersion = %q", results[0].Stats.KotlinVersion)
	}

	data, err := os.ReadFile(filepath.Join(dir, "workspace.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Modules []struct {
			Name string `json:"name"`
		} `json:"modules"`
		Libraries []struct {
			Name string `json:"name"`
		} `json:"libraries"`
		Sdks []any `json:"sdks"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Modules) != 1 || doc.Modules[0].Name != "app.main" {
		t.Errorf("modules = %+v", doc.Modules)
	}
	if len(doc.Libraries) != 1 || doc.Libraries[0].Name != "Gradle: com.example:foo:1.0" {
		t.Errorf("libraries = %+v", doc.Libraries)
	}
	if len(doc.Sdks) != 0 {
		t.Errorf("sdks = %v, want none without an SDK", doc.Sdks)
	}
	if _, err := os.Stat(filepath.Join(dir, "build", ".lsp-temp", "foo-1.0.jar")); err != nil {
		t.Errorf("jar was not staged: %v", err)
	}

	// Nothing changed: both tasks are up to date.
	results, err = p.Run(ctx, TaskGenerateDocument)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if !r.Skipped {
			t.Errorf("%s should be up to date", r.Task)
		}
	}

	// A newer model invalidates resolution and everything after it.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "build", "lsp-model.json"), future, future); err != nil {
		t.Fatal(err)
	}
	results, err = p.Run(ctx, TaskGenerateDocument)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Skipped {
		t.Errorf("resolve should rerun after the model changed: %v", taskNames(results))
	}

	p.Options.Force = true
	results, err = p.Run(ctx, TaskResolve)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Skipped {
		t.Error("forced task should run")
	}
}

func TestRunMissingModel(t *testing.T) {
	store, err := ledger.Open(filepath.Join(t.TempDir(), ledger.DefaultPath), slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	p := newTestPipeline(t, t.TempDir(), store)
	_, err = p.Run(context.Background(), TaskGenerateDocument)
	if !errors.Is(err, errors.ModelMissing) {
		t.Fatalf("Run() error = %v, want MODEL_MISSING", err)
	}

	runs, err := store.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Task != TaskResolve || runs[0].Status != ledger.StatusFailed {
		t.Errorf("ledger runs = %+v", runs)
	}
}

func TestRunRecordsLedger(t *testing.T) {
	dir := newProject(t)
	store, err := ledger.Open(filepath.Join(dir, "build", ledger.DefaultPath), slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	p := newTestPipeline(t, dir, store)
	if _, err := p.Run(context.Background(), TaskResolve); err != nil {
		t.Fatal(err)
	}
	runs, err := store.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %+v", runs)
	}
	// A library without sources and an unconfigured SDK are normal.
	if runs[0].Status != ledger.StatusSucceeded || runs[0].Degraded != 0 || runs[0].Libraries != 1 || runs[0].KotlinVersion != "2.1.0" {
		t.Errorf("run = %+v", runs[0])
	}

	// An SDK without the target platform is a degradation.
	sdk := t.TempDir()
	p.Options.Getenv = func(k string) string {
		if k == "ANDROID_HOME" {
			return sdk
		}
		return ""
	}
	if _, err := p.Run(context.Background(), TaskResolve); err != nil {
		t.Fatal(err)
	}
	runs, err = store.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %+v", runs)
	}
	var degraded *ledger.Run
	for _, r := range runs {
		if r.Status == ledger.StatusDegraded {
			degraded = r
		}
	}
	if degraded == nil || degraded.Degraded == 0 {
		t.Fatalf("runs = %+v, want one degraded run", runs)
	}
	full, err := store.Get(degraded.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(full.Degradations) != degraded.Degraded {
		t.Errorf("degradations = %d, want %d", len(full.Degradations), degraded.Degraded)
	}
}

func TestCheck(t *testing.T) {
	dir := newProject(t)
	p := newTestPipeline(t, dir, nil)
	if _, err := p.Run(context.Background(), TaskGenerateDocument); err != nil {
		t.Fatal(err)
	}

	diff, err := p.Check()
	if err != nil {
		t.Fatal(err)
	}
	if diff != "" {
		t.Errorf("fresh workspace should match, diff:\n%s", diff)
	}

	writeFile(t, filepath.Join(dir, "workspace.json"), "{}\n")
	diff, err = p.Check()
	if err != nil {
		t.Fatal(err)
	}
	if diff == "" {
		t.Error("modified workspace should differ")
	}
}

func TestEditorConfigTask(t *testing.T) {
	dir := newProject(t)
	p := newTestPipeline(t, dir, nil)
	p.Config.Editor.ApplicationID = "com.example.vscodetest"

	results, err := p.Run(context.Background(), TaskEditorConfig)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 || results[2].Skipped {
		t.Fatalf("results = %v", taskNames(results))
	}
	if _, err := os.Stat(filepath.Join(dir, ".vscode", "tasks.json")); err != nil {
		t.Errorf("tasks.json missing: %v", err)
	}

	p.Config.Editor.Generate = false
	p.Options.Force = true
	results, err = p.Run(context.Background(), TaskEditorConfig)
	if err != nil {
		t.Fatal(err)
	}
	if !results[2].Skipped {
		t.Error("disabled editor task should be skipped")
	}
}

func TestCleanStaging(t *testing.T) {
	dir := newProject(t)
	p := newTestPipeline(t, dir, nil)
	stale := filepath.Join(dir, "build", ".lsp-temp", "old-1.0.jar")
	writeFile(t, stale, "old")

	if _, err := p.Run(context.Background(), TaskCleanStaging); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("staged file should be removed")
	}
	if info, err := os.Stat(filepath.Dir(stale)); err != nil || !info.IsDir() {
		t.Error("staging directory should be recreated")
	}
}

func TestRunAfterCleanRestages(t *testing.T) {
	dir := newProject(t)
	p := newTestPipeline(t, dir, nil)
	ctx := context.Background()
	staged := filepath.Join(dir, "build", ".lsp-temp", "foo-1.0.jar")

	if _, err := p.Run(ctx, TaskGenerateDocument); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(ctx, TaskCleanStaging); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Fatal("clean should remove the staged jar")
	}

	results, err := p.Run(ctx, TaskGenerateDocument)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Task != TaskResolve || results[0].Skipped {
		t.Errorf("resolve should rerun when staged roots are gone: %v", taskNames(results))
	}
	if _, err := os.Stat(staged); err != nil {
		t.Errorf("jar was not staged again: %v", err)
	}

	results, err = p.Run(ctx, TaskGenerateDocument)
	if err != nil {
		t.Fatal(err)
	}
	if !results[0].Skipped {
		t.Errorf("restaged roots should be up to date: %v", taskNames(results))
	}
}

func TestRunRerunsWhenOptionsChange(t *testing.T) {
	dir := newProject(t)
	p := newTestPipeline(t, dir, nil)
	ctx := context.Background()
	p.Config.Editor.ApplicationID = "com.example.app"

	if _, err := p.Run(ctx, TaskEditorConfig); err != nil {
		t.Fatal(err)
	}

	p.Config.Editor.ApplicationID = "org.changed.app"
	results, err := p.Run(ctx, TaskEditorConfig)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 || results[2].Skipped {
		t.Fatalf("editor task should rerun after the application id changed: %v", taskNames(results))
	}
	if !results[0].Skipped || !results[1].Skipped {
		t.Errorf("resolve and generate do not depend on editor options: %v", taskNames(results))
	}
	data, err := os.ReadFile(filepath.Join(dir, ".vscode", "tasks.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "org.changed.app") {
		t.Errorf("tasks.json does not use the new application id:\n%s", data)
	}

	p.Config.IncludeTestDependencies = !p.Config.IncludeTestDependencies
	results, err = p.Run(ctx, TaskResolve)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Skipped {
		t.Error("resolve should rerun after includeTestDependencies changed")
	}
}

func TestUpToDate(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	writeFile(t, in, "in")
	writeFile(t, out, "out")
	past := time.Now().Add(-time.Hour)

	if err := os.Chtimes(in, past, past); err != nil {
		t.Fatal(err)
	}
	if !UpToDate([]string{in}, []string{out}) {
		t.Error("output newer than input should be up to date")
	}
	if UpToDate([]string{in}, nil) {
		t.Error("no outputs is never up to date")
	}
	if UpToDate([]string{in}, []string{filepath.Join(dir, "missing")}) {
		t.Error("missing output is not up to date")
	}
	if !UpToDate([]string{filepath.Join(dir, "missing-input")}, []string{out}) {
		t.Error("missing inputs are ignored")
	}
	if err := os.Chtimes(out, past.Add(-time.Minute), past.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	if UpToDate([]string{in}, []string{out}) {
		t.Error("output older than input is stale")
	}
}
