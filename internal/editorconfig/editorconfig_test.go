package editorconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"lspws/internal/errors"
	"lspws/internal/slogutil"
)

func testOptions(dir string) Options {
	return Options{
		Directory:        dir,
		TasksJSON:        true,
		LaunchJSON:       true,
		ApplicationID:    "com.example.vscodetest",
		LauncherActivity: "MainActivity",
	}
}

func TestGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".vscode")
	g := NewGenerator(slogutil.NewDiscardLogger())

	written, err := g.Generate(testOptions(dir))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("written = %v, want tasks.json and launch.json", written)
	}

	for _, path := range written {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		text := string(data)
		if strings.Contains(text, "{{") {
			t.Errorf("%s has unsubstituted placeholders", filepath.Base(path))
		}
		if !json.Valid(data) {
			t.Errorf("%s is not valid JSON", filepath.Base(path))
		}
	}

	tasks, _ := os.ReadFile(filepath.Join(dir, "tasks.json"))
	if !strings.Contains(string(tasks), "com.example.vscodetest/com.example.vscodetest.MainActivity") {
		t.Errorf("tasks.json does not launch the main activity:\n%s", tasks)
	}
}

func TestGenerateSelection(t *testing.T) {
	dir := t.TempDir()
	o := testOptions(dir)
	o.LaunchJSON = false

	written, err := NewGenerator(slogutil.NewDiscardLogger()).Generate(o)
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 1 || filepath.Base(written[0]) != "tasks.json" {
		t.Errorf("written = %v", written)
	}
	if _, err := os.Stat(filepath.Join(dir, "launch.json")); !os.IsNotExist(err) {
		t.Error("launch.json should not be generated")
	}
	if got := o.Outputs(); len(got) != 1 || got[0] != filepath.Join(dir, "tasks.json") {
		t.Errorf("Outputs() = %v", got)
	}
}

func TestMissingTemplate(t *testing.T) {
	g := &Generator{
		FS:     fstest.MapFS{TasksTemplate: &fstest.MapFile{Data: []byte(`{"id":"{{APPLICATION_ID}}"}`)}},
		logger: slogutil.NewDiscardLogger(),
	}
	written, err := g.Generate(testOptions(t.TempDir()))
	if !errors.Is(err, errors.TemplateMissing) {
		t.Fatalf("error = %v, want TEMPLATE_MISSING", err)
	}
	if len(written) != 1 {
		t.Errorf("written = %v, want tasks.json only", written)
	}
	if _, err := g.InitScript(); !errors.Is(err, errors.TemplateMissing) {
		t.Errorf("InitScript() error = %v", err)
	}
}

func TestInitScript(t *testing.T) {
	data, err := NewGenerator(slogutil.NewDiscardLogger()).InitScript()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"lspwsExportModel", "lsp-model.json", "compileSdk"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("init script missing %q", want)
		}
	}
}
