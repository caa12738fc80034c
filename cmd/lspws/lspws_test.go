package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lspws/internal/config"
	"lspws/internal/errors"
	"lspws/internal/outcome"
	"lspws/internal/pipeline"
	"lspws/internal/slogutil"
	"lspws/internal/watcher"
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

func testEnv(t *testing.T, vars map[string]string) *env {
	t.Helper()
	return &env{
		projectDir: t.TempDir(),
		cfg:        config.DefaultConfig(),
		logger:     slogutil.NewDiscardLogger(),
		getenv:     func(k string) string { return vars[k] },
	}
}

func checkByName(resp *DoctorResponse, name string) (DoctorCheck, bool) {
	for _, c := range resp.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return DoctorCheck{}, false
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	printResults(&buf, []pipeline.Result{
		{Task: pipeline.TaskResolve, Stats: pipeline.Stats{Modules: 2, Libraries: 5, KotlinVersion: "2.0.21"},
			Degradations: []outcome.Degradation{{Stage: outcome.StageSources, Subject: "com.example:lib:1.0", Reason: "no sources jar"}}},
		{Task: pipeline.TaskGenerateDocument, Skipped: true},
		{Task: pipeline.TaskEditorConfig},
	})
	out := buf.String()

	for _, want := range []string{
		"2 modules, 5 libraries, kotlin 2.0.21, 1 degraded",
		"sources com.example:lib:1.0: no sources jar",
		"generate-workspace-document",
		"skipped",
		"✓ generate-editor-config",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, errors.New(errors.MetadataMissing, "metadata not found", nil))
	out := buf.String()

	if !strings.Contains(out, "METADATA_MISSING") {
		t.Errorf("output missing code:\n%s", out)
	}
	if !strings.Contains(out, "lspws process") {
		t.Errorf("output missing suggested fix:\n%s", out)
	}

	buf.Reset()
	printError(&buf, os.ErrPermission)
	if strings.Contains(buf.String(), "Suggested fixes") {
		t.Errorf("plain errors should have no suggestions:\n%s", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := parseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("parseFormat(json) = %q, %v", f, err)
	}
	if _, err := parseFormat("xml"); err == nil {
		t.Error("parseFormat(xml) should fail")
	}
}

func TestTouchesBuildScripts(t *testing.T) {
	model := "/p/build/lsp-model.json"
	tests := []struct {
		name   string
		events []watcher.Event
		want   bool
	}{
		{"none", nil, false},
		{"model only", []watcher.Event{{Path: model}}, false},
		{"kts", []watcher.Event{{Path: "/p/app/build.gradle.kts"}}, true},
		{"groovy settings", []watcher.Event{{Path: model}, {Path: "/p/settings.gradle"}}, true},
		{"catalog", []watcher.Event{{Path: "/p/gradle/libs.versions.toml"}}, true},
		{"local.properties", []watcher.Event{{Path: "/p/local.properties"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := touchesBuildScripts(tt.events, model); got != tt.want {
				t.Errorf("touchesBuildScripts() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiagnoseMissingModel(t *testing.T) {
	e := testEnv(t, nil)
	resp := diagnose(context.Background(), e)

	if resp.Healthy {
		t.Error("Healthy = true without a model")
	}
	if c, ok := checkByName(resp, "model"); !ok || c.Status != checkFail {
		t.Errorf("model check = %+v", c)
	}
	if c, ok := checkByName(resp, "sdk"); !ok || c.Status != checkWarn {
		t.Errorf("sdk check = %+v", c)
	}
	if c, ok := checkByName(resp, "compileSdk"); !ok || !strings.HasPrefix(c.Message, "36") {
		t.Errorf("compileSdk check = %+v", c)
	}
}

func TestDiagnose(t *testing.T) {
	sdk := t.TempDir()
	writeFile(t, filepath.Join(sdk, "platforms", "android-34", "android.jar"), "jar")
	writeFile(t, filepath.Join(sdk, "platforms", "android-34", "android-stubs-src.jar"), "src")

	e := testEnv(t, map[string]string{"ANDROID_HOME": sdk})
	writeFile(t, filepath.Join(e.projectDir, "build", "lsp-model.json"), `{"rootName": "demo", "rootDir": "`+filepath.ToSlash(e.projectDir)+`", "projects": [`+
		`{"path": ":", "name": "demo", "dir": "."}, `+
		`{"path": ":app", "name": "app", "dir": "app", "compileSdk": 34}]}`)
	writeFile(t, filepath.Join(e.projectDir, "gradle", "libs.versions.toml"), "[versions]\nkotlin = \"2.1.0\"\n")

	resp := diagnose(context.Background(), e)

	if !resp.Healthy {
		t.Errorf("Healthy = false: %+v", resp.Checks)
	}
	want := map[string]string{
		"model":      "demo: 1 subdivisions",
		"compileSdk": "34 (model)",
		"platform":   "android.jar",
		"sources":    "stubs android-stubs-src.jar",
		"kotlin":     "2.1.0 (catalog)",
	}
	for name, msg := range want {
		c, ok := checkByName(resp, name)
		if !ok {
			t.Errorf("missing check %s", name)
			continue
		}
		if c.Status != checkOK || !strings.Contains(c.Message, msg) {
			t.Errorf("%s = %+v, want ok containing %q", name, c, msg)
		}
	}
	if c, _ := checkByName(resp, "workspace"); c.Status != checkWarn {
		t.Errorf("workspace = %+v, want warn before generation", c)
	}
}

func TestNewLoggerVerbosity(t *testing.T) {
	defer func() { verbosity, quiet = 0, false }()
	cfg := config.DefaultConfig()

	var buf bytes.Buffer
	newLogger(cfg, &buf).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug logged at info level: %q", buf.String())
	}

	verbosity = 1
	newLogger(cfg, &buf).Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug not logged with -v: %q", buf.String())
	}

	buf.Reset()
	verbosity, quiet = 0, true
	newLogger(cfg, &buf).Error("silenced")
	if buf.Len() != 0 {
		t.Errorf("quiet still logged: %q", buf.String())
	}
}
