package workspace

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"

	"lspws/internal/android"
	"lspws/internal/model"
	"lspws/internal/outcome"
	"lspws/internal/resolve"
)

// sourceDirs are emitted for every module whether or not they exist.
var sourceDirs = []SourceRoot{
	{Path: "src/main/java", Type: SourceRootJava},
	{Path: "src/main/kotlin", Type: SourceRootJava},
	{Path: "src/main/resources", Type: SourceRootResource},
}

// Assembler builds the metadata document from a project model.
type Assembler struct {
	Collector *resolve.Collector
	Platform  *android.Locator
	Report    *outcome.Report
	// CompileSdk overrides platform version detection when positive.
	CompileSdk int
	Getenv     func(string) string
	logger     *slog.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(collector *resolve.Collector, platform *android.Locator, report *outcome.Report, logger *slog.Logger) *Assembler {
	return &Assembler{
		Collector: collector,
		Platform:  platform,
		Report:    report,
		logger:    logger,
	}
}

// Assemble resolves every subdivision of m and describes it as a module. A
// cancelled context is the only error; everything else degrades into the
// report.
func (a *Assembler) Assemble(ctx context.Context, m *model.Model) (*Metadata, error) {
	getenv := a.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	sdk := outcome.Record(a.Report, outcome.StageSDK, "android-sdk", android.FindSDK(m.RootDir, getenv))
	detected := android.DetectCompileSdk(ctx, a.CompileSdk, m)
	a.logger.Debug("Platform version", "compileSdk", detected.CompileSdk, "source", detected.Source)
	if !sdk.Present {
		a.logger.Info("No Android SDK configured", "reason", sdk.Reason)
	}

	var platform *resolve.Library
	if sdk.Present && a.Platform != nil {
		res := a.Platform.Library(ctx, android.Platform{SDKPath: sdk.Value, CompileSdk: detected.CompileSdk})
		if res.Present {
			platform = &res.Value
		}
	}

	all := make(map[string]resolve.Library)
	md := &Metadata{
		AndroidSdk: sdk.OrElse(""),
		CompileSdk: strconv.Itoa(detected.CompileSdk),
	}

	for _, p := range m.Subdivisions() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		libs, err := a.Collector.Collect(ctx, &p)
		if err != nil {
			return nil, err
		}
		resolve.ApplyScopes(libs, p.CompileOnly())
		for name, lib := range libs {
			all[name] = lib
		}
		md.Modules = append(md.Modules, a.module(m, p, libs, platform))
		a.logger.Info("Processed module", "project", p.Path, "libraries", len(libs))
	}

	if platform != nil {
		all[platform.Name] = *platform
	}
	for _, name := range resolve.SortedNames(all) {
		md.Libraries = append(md.Libraries, LibraryEntry(all[name]))
	}
	return md, nil
}

func (a *Assembler) module(m *model.Model, p model.Project, libs map[string]resolve.Library, platform *resolve.Library) Module {
	deps := make([]Dependency, 0, len(libs)+3)
	if platform != nil {
		deps = append(deps, Dependency{Type: DependencyLibrary, Name: platform.Name, Scope: resolve.ScopeProvided})
	}
	for _, name := range resolve.SortedNames(libs) {
		deps = append(deps, Dependency{Type: DependencyLibrary, Name: name, Scope: libs[name].Scope})
	}
	deps = append(deps,
		Dependency{Type: DependencyModuleSource},
		Dependency{Type: DependencyInheritedSdk},
	)

	root := ContentPath(m, p)
	roots := make([]SourceRoot, 0, len(sourceDirs))
	for _, sd := range sourceDirs {
		roots = append(roots, SourceRoot{Path: root + "/" + sd.Path, Type: sd.Type})
	}

	return Module{
		Name:         ModuleName(m, p.Path),
		Dependencies: deps,
		ContentRoots: []ContentRoot{{
			Path:             root,
			ExcludedPatterns: []string{},
			ExcludedUrls:     []string{},
			SourceRoots:      roots,
		}},
		Facets: []any{},
	}
}

// ModuleName returns the emitted module name for a project path.
func ModuleName(m *model.Model, projectPath string) string {
	return m.ModuleBaseName(projectPath) + ModuleSuffix
}

// ContentPath returns the project directory relative to the workspace root.
func ContentPath(m *model.Model, p model.Project) string {
	rel, err := filepath.Rel(m.RootDir, m.ProjectDir(p))
	if err != nil || rel == "." {
		return Placeholder
	}
	return Placeholder + "/" + filepath.ToSlash(rel)
}

// LibraryEntry describes lib for the library table.
func LibraryEntry(lib resolve.Library) Library {
	roots := []LibraryRoot{{Path: lib.Binary}}
	if lib.Sources != "" {
		roots = append(roots, LibraryRoot{Path: lib.Sources, Type: SourcesRootType})
	}
	c := lib.Coordinate
	return Library{
		Name:  resolve.LibraryName(c),
		Type:  LibraryType,
		Roots: roots,
		Properties: LibraryProperties{Attributes: LibraryAttributes{
			GroupID:     c.Group,
			ArtifactID:  c.Name,
			Version:     c.Version,
			BaseVersion: c.Version,
		}},
	}
}
