package model

import (
	"os"
	"path/filepath"
	"testing"

	"lspws/internal/errors"
)

const sampleJSON = `{
  "rootName": "vscodetest",
  "rootDir": "/work/vscodetest",
  "projects": [
    {"path": ":", "name": "vscodetest", "dir": "."},
    {
      "path": ":feature:login",
      "name": "login",
      "dir": "feature/login",
      "configurations": [
        {"name": "compileOnly", "dependencies": [{"group": "com.example", "name": "foo", "version": "1.0"}]},
        {"name": "compileClasspath", "canBeResolved": true,
         "artifacts": [{"group": "com.example", "name": "foo", "version": "1.0", "file": "/cache/foo-1.0.jar"}]}
      ]
    },
    {"path": ":app", "name": "app", "dir": "app", "compileSdk": 35}
  ]
}`

const sampleYAML = `
rootName: single
rootDir: /work/single
projects:
  - path: ":"
    name: single
    configurations:
      - name: compileClasspath
        canBeResolved: true
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.RootName != "vscodetest" {
		t.Errorf("RootName = %q", m.RootName)
	}
	if len(m.Projects) != 3 {
		t.Fatalf("len(Projects) = %d, want 3", len(m.Projects))
	}
	if m.Projects[2].CompileSdk != 35 {
		t.Errorf("CompileSdk = %d, want 35", m.Projects[2].CompileSdk)
	}

	y, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse(yaml) error = %v", err)
	}
	if !y.Projects[0].Configurations[0].CanBeResolved {
		t.Error("CanBeResolved should be true")
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no projects", `{"rootName": "x", "projects": []}`},
		{"bad path", `{"projects": [{"path": "app"}]}`},
		{"duplicate path", `{"projects": [{"path": ":a"}, {"path": ":a"}]}`},
		{"not a document", `[1, 2`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if !errors.Is(err, errors.ModelInvalid) {
				t.Errorf("Parse() error = %v, want MODEL_INVALID", err)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "build", "lsp-model.json"))
	if !errors.Is(err, errors.ModelMissing) {
		t.Errorf("Load() error = %v, want MODEL_MISSING", err)
	}
}

func TestLoadDefaultsRootDir(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "build", "lsp-model.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("projects:\n  - path: \":\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.RootDir != root {
		t.Errorf("RootDir = %q, want %q", m.RootDir, root)
	}
}

func TestSubdivisions(t *testing.T) {
	m, _ := Parse([]byte(sampleJSON))
	subs := m.Subdivisions()
	if len(subs) != 2 {
		t.Fatalf("len(Subdivisions) = %d, want 2", len(subs))
	}
	if subs[0].Path != ":app" || subs[1].Path != ":feature:login" {
		t.Errorf("Subdivisions order = %s, %s", subs[0].Path, subs[1].Path)
	}

	single, _ := Parse([]byte(sampleYAML))
	if s := single.Subdivisions(); len(s) != 1 || s[0].Path != ":" {
		t.Errorf("single-project Subdivisions = %+v", s)
	}
}

func TestModuleBaseName(t *testing.T) {
	m, _ := Parse([]byte(sampleJSON))
	tests := []struct {
		path string
		want string
	}{
		{":", "vscodetest"},
		{":app", "app"},
		{":feature:login", "feature:login"},
	}
	for _, tt := range tests {
		if got := m.ModuleBaseName(tt.path); got != tt.want {
			t.Errorf("ModuleBaseName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestProjectDir(t *testing.T) {
	m, _ := Parse([]byte(sampleJSON))
	if got := m.ProjectDir(m.Projects[1]); got != filepath.Join("/work/vscodetest", "feature/login") {
		t.Errorf("ProjectDir() = %q", got)
	}
	if got := m.ProjectDir(Project{Path: ":lib:core"}); got != filepath.Join("/work/vscodetest", "lib", "core") {
		t.Errorf("ProjectDir(no dir) = %q", got)
	}
}

func TestCompileOnly(t *testing.T) {
	m, _ := Parse([]byte(sampleJSON))
	login := m.Projects[1]
	set := login.CompileOnly()
	if !set["com.example:foo"] {
		t.Errorf("CompileOnly() = %v, want com.example:foo", set)
	}
	app := m.Projects[2]
	if len(app.CompileOnly()) != 0 {
		t.Error("app has no compile-only dependencies")
	}
	if _, ok := login.Configuration("compileClasspath"); !ok {
		t.Error("Configuration(compileClasspath) not found")
	}
}

func TestCoordinateFromFile(t *testing.T) {
	tests := []struct {
		file string
		want Coordinate
	}{
		{"/x/activity-compose-1.10.1.jar", Coordinate{Unknown, "activity-compose", "1.10.1"}},
		{"/x/kotlin-stdlib-2.0.21-RC.jar", Coordinate{Unknown, "kotlin-stdlib", "2.0.21-RC"}},
		{"/x/local.jar", Coordinate{Unknown, "local", Unknown}},
	}
	for _, tt := range tests {
		if got := CoordinateFromFile(tt.file); got != tt.want {
			t.Errorf("CoordinateFromFile(%q) = %+v, want %+v", tt.file, got, tt.want)
		}
	}
}

func TestArtifactCoordinate(t *testing.T) {
	a := Artifact{Name: "core", File: "/x/core-1.2.0.aar"}
	c := a.Coordinate()
	if c.Group != Unknown || c.Version != "1.2.0" {
		t.Errorf("Coordinate() = %+v", c)
	}
	if c.String() != "unknown:core:1.2.0" {
		t.Errorf("String() = %q", c.String())
	}
}

func TestParseCoordinate(t *testing.T) {
	c, err := ParseCoordinate("com.example:bar:2.0")
	if err != nil || c.GA() != "com.example:bar" {
		t.Errorf("ParseCoordinate() = %+v, %v", c, err)
	}
	if _, err := ParseCoordinate("com.example:bar"); err == nil {
		t.Error("expected error for two-part coordinate")
	}
}
