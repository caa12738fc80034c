// Package workspace assembles the module and library description of a build
// and writes it in the form the Kotlin language server reads.
package workspace

// Placeholder stands for the workspace root in every emitted path that is
// relative to the project.
const Placeholder = "<WORKSPACE>"

// Dependency entry types.
const (
	DependencyLibrary      = "library"
	DependencyModuleSource = "moduleSource"
	DependencyInheritedSdk = "inheritedSdk"
)

// Source root types.
const (
	SourceRootJava     = "java-source"
	SourceRootResource = "java-resource"
)

// ModuleSuffix is appended to every module name.
const ModuleSuffix = ".main"

// LibraryType tags every library entry.
const LibraryType = "java-imported"

// SourcesRootType tags the source root of a library.
const SourcesRootType = "SOURCES"

// SdkType tags the platform SDK entry.
const SdkType = "Android"

// Dependency is one entry of a module's dependency list. Sentinel entries
// carry only a type.
type Dependency struct {
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	Scope string `json:"scope,omitempty"`
}

// SourceRoot is a source or resource directory of a content root.
type SourceRoot struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// ContentRoot is a module directory.
type ContentRoot struct {
	Path             string       `json:"path"`
	ExcludedPatterns []string     `json:"excludedPatterns"`
	ExcludedUrls     []string     `json:"excludedUrls"`
	SourceRoots      []SourceRoot `json:"sourceRoots"`
}

// Module describes one project subdivision.
type Module struct {
	Name         string        `json:"name"`
	Dependencies []Dependency  `json:"dependencies"`
	ContentRoots []ContentRoot `json:"contentRoots"`
	Facets       []any         `json:"facets"`
}

// LibraryRoot is a binary or source archive of a library.
type LibraryRoot struct {
	Path string `json:"path"`
	Type string `json:"type,omitempty"`
}

// LibraryAttributes identify a library's coordinate.
type LibraryAttributes struct {
	GroupID     string `json:"groupId"`
	ArtifactID  string `json:"artifactId"`
	Version     string `json:"version"`
	BaseVersion string `json:"baseVersion"`
}

// LibraryProperties wraps the attributes block.
type LibraryProperties struct {
	Attributes LibraryAttributes `json:"attributes"`
}

// Library is one entry of the global library table.
type Library struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Roots      []LibraryRoot     `json:"roots"`
	Properties LibraryProperties `json:"properties"`
}

// Sdk describes the platform SDK.
type Sdk struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Version        string `json:"version"`
	HomePath       string `json:"homePath"`
	AdditionalData string `json:"additionalData"`
}

// KotlinSettings is the per-module compiler settings block. Only Module
// varies between blocks.
type KotlinSettings struct {
	Name                             string   `json:"name"`
	SourceRoots                      []string `json:"sourceRoots"`
	ConfigFileItems                  []string `json:"configFileItems"`
	Module                           string   `json:"module"`
	UseProjectSettings               bool     `json:"useProjectSettings"`
	ImplementedModuleNames           []string `json:"implementedModuleNames"`
	DependsOnModuleNames             []string `json:"dependsOnModuleNames"`
	AdditionalVisibleModuleNames     []string `json:"additionalVisibleModuleNames"`
	ProductionOutputPath             *string  `json:"productionOutputPath"`
	TestOutputPath                   *string  `json:"testOutputPath"`
	SourceSetNames                   []string `json:"sourceSetNames"`
	IsTestModule                     bool     `json:"isTestModule"`
	ExternalProjectID                string   `json:"externalProjectId"`
	IsHmppEnabled                    bool     `json:"isHmppEnabled"`
	PureKotlinSourceFolders          []string `json:"pureKotlinSourceFolders"`
	Kind                             string   `json:"kind"`
	CompilerArguments                any      `json:"compilerArguments"`
	AdditionalArguments              any      `json:"additionalArguments"`
	ScriptTemplates                  any      `json:"scriptTemplates"`
	ScriptTemplatesClasspath         any      `json:"scriptTemplatesClasspath"`
	OutputDirectoryForJsLibraryFiles any      `json:"outputDirectoryForJsLibraryFiles"`
	TargetPlatform                   any      `json:"targetPlatform"`
	ExternalSystemRunTasks           []string `json:"externalSystemRunTasks"`
	Version                          int      `json:"version"`
	FlushNeeded                      bool     `json:"flushNeeded"`
}

// NewKotlinSettings returns the settings block for module.
func NewKotlinSettings(module string) KotlinSettings {
	return KotlinSettings{
		Name:                         "Kotlin",
		SourceRoots:                  []string{},
		ConfigFileItems:              []string{},
		Module:                       module,
		UseProjectSettings:           true,
		ImplementedModuleNames:       []string{},
		DependsOnModuleNames:         []string{},
		AdditionalVisibleModuleNames: []string{},
		SourceSetNames:               []string{},
		IsHmppEnabled:                true,
		PureKotlinSourceFolders:      []string{},
		Kind:                         "default",
		ExternalSystemRunTasks:       []string{},
		Version:                      5,
	}
}

// Document is the final workspace document.
type Document struct {
	Modules        []Module         `json:"modules"`
	Libraries      []Library        `json:"libraries"`
	Sdks           []Sdk            `json:"sdks"`
	KotlinSettings []KotlinSettings `json:"kotlinSettings"`
}

// Metadata is the intermediate document handed from dependency resolution to
// document generation.
type Metadata struct {
	Modules    []Module  `json:"modules"`
	Libraries  []Library `json:"libraries"`
	AndroidSdk string    `json:"androidSdk"`
	CompileSdk string    `json:"compileSdk"`
}
