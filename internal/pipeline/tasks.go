package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"lspws/internal/android"
	"lspws/internal/catalog"
	"lspws/internal/editorconfig"
	"lspws/internal/errors"
	"lspws/internal/model"
	"lspws/internal/outcome"
	"lspws/internal/resolve"
	"lspws/internal/staging"
	"lspws/internal/workspace"
)

func (p *Pipeline) cache() *staging.Cache {
	return staging.New(p.path(p.Config.StagingDir), p.logger)
}

func (p *Pipeline) cleanStagingTask() *Task {
	return &Task{
		Name:        TaskCleanStaging,
		Description: "Delete and recreate the staging directory",
		Action: func(_ context.Context, _ *outcome.Report) (Stats, error) {
			if err := p.cache().Clean(); err != nil {
				return Stats{}, errors.New(errors.IOFailure, "failed to clean staging directory", err)
			}
			return Stats{}, nil
		},
	}
}

// BuildInputs lists the files whose change invalidates the resolved
// dependencies.
func (p *Pipeline) BuildInputs() []string {
	return []string{
		p.path(p.Config.ModelFile),
		filepath.Join(p.ProjectDir, android.LocalPropertiesFile),
		filepath.Join(p.ProjectDir, catalog.CatalogFile),
	}
}

func (p *Pipeline) resolveTask() *Task {
	return &Task{
		Name:        TaskResolve,
		Description: "Resolve dependencies and write the metadata document",
		Inputs:      p.BuildInputs,
		Outputs: func() []string {
			return []string{p.path(p.Config.MetadataFile)}
		},
		Options: p.resolveOptions,
		Stale:   p.stagedRootsMissing,
		Action:  p.resolveDependencies,
	}
}

// resolveOptions is everything besides the build inputs that changes the
// metadata document.
func (p *Pipeline) resolveOptions() any {
	env := make(map[string]string)
	for _, name := range append([]string{"GRADLE_USER_HOME"}, android.SDKEnvVars...) {
		env[name] = p.Options.Getenv(name)
	}
	return struct {
		ModelFile       string
		StagingDir      string
		IncludeTests    bool
		CopyJars        bool
		CompileSdk      int
		KotlinVersion   string
		SourcesArchiver string
		GradleUserHome  string
		MavenLocal      string
		Env             map[string]string
	}{
		ModelFile:       p.path(p.Config.ModelFile),
		StagingDir:      p.path(p.Config.StagingDir),
		IncludeTests:    p.Config.IncludeTestDependencies,
		CopyJars:        p.Config.CopyJarsToStaging,
		CompileSdk:      p.Config.CompileSdk,
		KotlinVersion:   p.Config.KotlinVersion,
		SourcesArchiver: p.Config.SourcesArchiver,
		GradleUserHome:  p.Config.GradleUserHome,
		MavenLocal:      p.Config.MavenLocal,
		Env:             env,
	}
}

// stagedRootsMissing reports whether the metadata names a library root that
// no longer exists, as after cleaning the staging directory.
func (p *Pipeline) stagedRootsMissing() bool {
	md, err := workspace.ReadMetadata(p.path(p.Config.MetadataFile))
	if err != nil {
		return true
	}
	for _, lib := range md.Libraries {
		for _, root := range lib.Roots {
			if _, err := os.Stat(root.Path); err != nil {
				p.logger.Debug("Library root missing", "library", lib.Name, "path", root.Path)
				return true
			}
		}
	}
	return false
}

func (p *Pipeline) resolveDependencies(ctx context.Context, report *outcome.Report) (Stats, error) {
	m, err := model.Load(p.path(p.Config.ModelFile))
	if err != nil {
		return Stats{}, err
	}

	assembler, err := p.newAssembler(m, report)
	if err != nil {
		return Stats{}, err
	}
	md, err := assembler.Assemble(ctx, m)
	if err != nil {
		return Stats{}, err
	}
	if err := workspace.WriteMetadata(p.path(p.Config.MetadataFile), md); err != nil {
		return Stats{}, err
	}

	stats := Stats{Modules: len(md.Modules), Libraries: len(md.Libraries)}
	if kv, ok := catalog.KotlinVersion(p.Config.KotlinVersion, m.RootDir, m); ok {
		stats.KotlinVersion = kv.Version
		p.logger.Debug("Kotlin version", "version", kv.Version, "source", kv.Source)
	} else {
		p.logger.Warn("Could not detect the Kotlin version; set kotlinVersion in the configuration")
	}
	p.logger.Info("Wrote metadata", "path", p.path(p.Config.MetadataFile), "modules", stats.Modules, "libraries", stats.Libraries)
	return stats, nil
}

func (p *Pipeline) newAssembler(m *model.Model, report *outcome.Report) (*workspace.Assembler, error) {
	archiver, err := android.NewArchiver(p.Config.SourcesArchiver)
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "invalid sourcesArchiver", err)
	}

	cache := p.cache()
	opts := resolve.Options{
		IncludeTests:  p.Config.IncludeTestDependencies,
		CopyToStaging: p.Config.CopyJarsToStaging,
	}
	sources := resolve.NewSourcesLocator(p.repositories(m), p.logger)
	collector := resolve.NewCollector(resolve.ModelResolver{}, cache, sources, opts, report, p.logger)
	locator := android.NewLocator(cache, archiver, p.Config.CopyJarsToStaging, report, p.logger)

	a := workspace.NewAssembler(collector, locator, report, p.logger)
	a.CompileSdk = p.Config.CompileSdk
	a.Getenv = p.Options.Getenv
	return a, nil
}

func (p *Pipeline) repositories(m *model.Model) resolve.LocalRepositories {
	repos := resolve.DefaultLocalRepositories(p.Options.Getenv)
	if m.GradleUserHome != "" {
		repos.GradleUserHome = m.GradleUserHome
	}
	if p.Config.GradleUserHome != "" {
		repos.GradleUserHome = p.Config.GradleUserHome
	}
	if p.Config.MavenLocal != "" {
		repos.MavenLocal = p.Config.MavenLocal
	}
	return repos
}

func (p *Pipeline) generateDocumentTask() *Task {
	return &Task{
		Name:        TaskGenerateDocument,
		Description: "Generate workspace.json from the metadata document",
		DependsOn:   []string{TaskResolve},
		Inputs: func() []string {
			return []string{p.path(p.Config.MetadataFile)}
		},
		Outputs: func() []string {
			return []string{p.path(p.Config.WorkspaceFile)}
		},
		Action: func(_ context.Context, _ *outcome.Report) (Stats, error) {
			doc, err := p.Document()
			if err != nil {
				return Stats{}, err
			}
			path := p.path(p.Config.WorkspaceFile)
			if err := workspace.WriteDocument(path, doc); err != nil {
				return Stats{}, err
			}
			p.logger.Info("Generated workspace.json", "path", path)
			return Stats{Modules: len(doc.Modules), Libraries: len(doc.Libraries)}, nil
		},
	}
}

// Document builds the workspace document from the current metadata.
func (p *Pipeline) Document() (*workspace.Document, error) {
	md, err := workspace.ReadMetadata(p.path(p.Config.MetadataFile))
	if err != nil {
		return nil, err
	}
	doc := workspace.Build(md)
	if err := workspace.Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Check compares the workspace file on disk with the document the current
// metadata produces and returns a unified diff, empty when they match.
func (p *Pipeline) Check() (string, error) {
	doc, err := p.Document()
	if err != nil {
		return "", err
	}
	regenerated, err := workspace.Encode(doc)
	if err != nil {
		return "", errors.New(errors.InternalError, "failed to encode workspace document", err)
	}
	path := p.path(p.Config.WorkspaceFile)
	current, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return "", errors.New(errors.IOFailure, "failed to read "+filepath.Base(path), err)
	}
	return workspace.Diff(current, regenerated, filepath.Base(path))
}

// EditorOptions returns the editor file options of the configuration.
func (p *Pipeline) EditorOptions() editorconfig.Options {
	e := p.Config.Editor
	return editorconfig.Options{
		Directory:        p.path(e.Directory),
		TasksJSON:        e.TasksJSON,
		LaunchJSON:       e.LaunchJSON,
		ApplicationID:    e.ApplicationID,
		LauncherActivity: e.LauncherActivity,
	}
}

func (p *Pipeline) editorConfigTask() *Task {
	return &Task{
		Name:        TaskEditorConfig,
		Description: "Generate editor task and launch configurations",
		DependsOn:   []string{TaskGenerateDocument},
		Enabled: func() bool {
			return p.Config.Editor.Generate
		},
		Outputs: func() []string {
			return p.EditorOptions().Outputs()
		},
		Options: func() any {
			return p.EditorOptions()
		},
		Action: func(_ context.Context, _ *outcome.Report) (Stats, error) {
			_, err := editorconfig.NewGenerator(p.logger).Generate(p.EditorOptions())
			return Stats{}, err
		},
	}
}
