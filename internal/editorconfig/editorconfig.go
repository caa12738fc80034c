// Package editorconfig renders the editor task and launch files and the
// Gradle init script that exports the project model.
package editorconfig

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lspws/internal/errors"
)

//go:embed templates
var embedded embed.FS

// Templates holds the embedded resources rooted at their file names.
var Templates fs.FS = mustSub(embedded, "templates")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Template names.
const (
	TasksTemplate  = "tasks.json.tmpl"
	LaunchTemplate = "launch.json.tmpl"
	InitScriptName = "lsp-model.init.gradle"
)

// Placeholders substituted into templates.
const (
	PlaceholderApplicationID = "{{APPLICATION_ID}}"
	PlaceholderMainActivity  = "{{MAIN_ACTIVITY}}"
)

// Options selects and parameterizes the generated files.
type Options struct {
	Directory        string
	TasksJSON        bool
	LaunchJSON       bool
	ApplicationID    string
	LauncherActivity string
}

// MainActivity returns the fully qualified launcher activity.
func (o Options) MainActivity() string {
	return o.ApplicationID + "." + o.LauncherActivity
}

// Outputs lists the files Generate writes for o.
func (o Options) Outputs() []string {
	var out []string
	if o.TasksJSON {
		out = append(out, filepath.Join(o.Directory, "tasks.json"))
	}
	if o.LaunchJSON {
		out = append(out, filepath.Join(o.Directory, "launch.json"))
	}
	return out
}

// Generator writes editor integration files from templates.
type Generator struct {
	FS     fs.FS
	logger *slog.Logger
}

// NewGenerator creates a generator over the embedded templates.
func NewGenerator(logger *slog.Logger) *Generator {
	return &Generator{FS: Templates, logger: logger}
}

// Render loads a template and substitutes the application placeholders.
func (g *Generator) Render(name string, o Options) ([]byte, error) {
	data, err := fs.ReadFile(g.FS, name)
	if err != nil {
		return nil, errors.New(errors.TemplateMissing, fmt.Sprintf("template %s not found", name), err)
	}
	r := strings.NewReplacer(
		PlaceholderApplicationID, o.ApplicationID,
		PlaceholderMainActivity, o.MainActivity(),
	)
	return []byte(r.Replace(string(data))), nil
}

// Generate writes the selected files into o.Directory and returns their
// paths. A missing template aborts generation.
func (g *Generator) Generate(o Options) ([]string, error) {
	if err := os.MkdirAll(o.Directory, 0755); err != nil {
		return nil, errors.New(errors.IOFailure, "failed to create "+o.Directory, err)
	}

	var written []string
	for _, f := range []struct {
		enabled  bool
		template string
		name     string
	}{
		{o.TasksJSON, TasksTemplate, "tasks.json"},
		{o.LaunchJSON, LaunchTemplate, "launch.json"},
	} {
		if !f.enabled {
			continue
		}
		content, err := g.Render(f.template, o)
		if err != nil {
			return written, err
		}
		path := filepath.Join(o.Directory, f.name)
		if err := os.WriteFile(path, content, 0644); err != nil {
			return written, errors.New(errors.IOFailure, "failed to write "+f.name, err)
		}
		g.logger.Info("Generated editor file", "path", path)
		written = append(written, path)
	}
	return written, nil
}

// InitScript returns the Gradle init script that exports the project model.
func (g *Generator) InitScript() ([]byte, error) {
	data, err := fs.ReadFile(g.FS, InitScriptName)
	if err != nil {
		return nil, errors.New(errors.TemplateMissing, "init script not found", err)
	}
	return data, nil
}
