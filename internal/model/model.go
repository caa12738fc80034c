// Package model describes the build's project graph as exported by the host
// build: projects, their configurations, and the artifacts each configuration
// resolved to.
package model

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"lspws/internal/errors"
)

// RootPath is the path of the root project.
const RootPath = ":"

// Unknown fills coordinate parts that cannot be determined.
const Unknown = "unknown"

// Model is the exported project graph.
type Model struct {
	RootName       string    `yaml:"rootName" json:"rootName"`
	RootDir        string    `yaml:"rootDir" json:"rootDir"`
	GradleUserHome string    `yaml:"gradleUserHome,omitempty" json:"gradleUserHome,omitempty"`
	Projects       []Project `yaml:"projects" json:"projects"`
}

// Project is one project subdivision.
type Project struct {
	Path           string          `yaml:"path" json:"path"`
	Name           string          `yaml:"name" json:"name"`
	Dir            string          `yaml:"dir" json:"dir"`
	CompileSdk     int             `yaml:"compileSdk,omitempty" json:"compileSdk,omitempty"`
	Configurations []Configuration `yaml:"configurations" json:"configurations"`
}

// Configuration is a named dependency set of a project.
type Configuration struct {
	Name            string       `yaml:"name" json:"name"`
	CanBeResolved   bool         `yaml:"canBeResolved" json:"canBeResolved"`
	Dependencies    []Dependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Artifacts       []Artifact   `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
	ResolutionError string       `yaml:"resolutionError,omitempty" json:"resolutionError,omitempty"`
}

// Dependency is a declared dependency.
type Dependency struct {
	Group   string `yaml:"group" json:"group"`
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version,omitempty" json:"version,omitempty"`
}

// GA returns group:name.
func (d Dependency) GA() string {
	return d.Group + ":" + d.Name
}

// Artifact is one resolved file of a configuration.
type Artifact struct {
	Group   string `yaml:"group" json:"group"`
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
	File    string `yaml:"file" json:"file"`
}

// Load reads a model document. JSON documents are accepted as YAML.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ModelMissing, fmt.Sprintf("project model %s not found", path), err)
		}
		return nil, errors.New(errors.IOFailure, "failed to read project model", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if m.RootDir == "" {
		m.RootDir = filepath.Dir(filepath.Dir(path))
	}
	return m, nil
}

// Parse decodes a model document.
func Parse(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.New(errors.ModelInvalid, "failed to parse project model", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks structural requirements of the model.
func (m *Model) Validate() error {
	if len(m.Projects) == 0 {
		return errors.New(errors.ModelInvalid, "project model has no projects", nil)
	}
	seen := make(map[string]bool, len(m.Projects))
	for _, p := range m.Projects {
		if !strings.HasPrefix(p.Path, ":") {
			return errors.New(errors.ModelInvalid, fmt.Sprintf("project path %q must start with ':'", p.Path), nil)
		}
		if seen[p.Path] {
			return errors.New(errors.ModelInvalid, fmt.Sprintf("duplicate project path %q", p.Path), nil)
		}
		seen[p.Path] = true
	}
	return nil
}

// Subdivisions returns the projects that produce modules, sorted by path.
// Non-root projects are used when any exist; a single-project build yields
// its root.
func (m *Model) Subdivisions() []Project {
	var subs []Project
	for _, p := range m.Projects {
		if p.Path != RootPath {
			subs = append(subs, p)
		}
	}
	if len(subs) == 0 {
		subs = append(subs, m.Projects...)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Path < subs[j].Path })
	return subs
}

// ModuleBaseName derives a module name from a project path: the root maps to
// the root project's name, everything else loses its leading ':'.
func (m *Model) ModuleBaseName(projectPath string) string {
	if projectPath == RootPath {
		if m.RootName != "" {
			return m.RootName
		}
		return filepath.Base(m.RootDir)
	}
	return strings.TrimPrefix(projectPath, ":")
}

// ProjectDir returns the absolute directory of p.
func (m *Model) ProjectDir(p Project) string {
	if p.Dir == "" {
		rel := strings.ReplaceAll(strings.TrimPrefix(p.Path, ":"), ":", string(filepath.Separator))
		return filepath.Join(m.RootDir, rel)
	}
	if filepath.IsAbs(p.Dir) {
		return p.Dir
	}
	return filepath.Join(m.RootDir, p.Dir)
}

// Configuration returns the named configuration.
func (p *Project) Configuration(name string) (*Configuration, bool) {
	for i := range p.Configurations {
		if p.Configurations[i].Name == name {
			return &p.Configurations[i], true
		}
	}
	return nil, false
}

// CompileOnly returns group:name keys declared in any configuration whose name
// contains "compileOnly".
func (p *Project) CompileOnly() map[string]bool {
	set := make(map[string]bool)
	for _, c := range p.Configurations {
		if !strings.Contains(strings.ToLower(c.Name), "compileonly") {
			continue
		}
		for _, d := range c.Dependencies {
			set[d.GA()] = true
		}
	}
	return set
}

// AllDependencies iterates declared dependencies of every project.
func (m *Model) AllDependencies(fn func(p Project, c Configuration, d Dependency) bool) {
	for _, p := range m.Projects {
		for _, c := range p.Configurations {
			for _, d := range c.Dependencies {
				if !fn(p, c, d) {
					return
				}
			}
		}
	}
}
