package workspace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"lspws/internal/android"
	"lspws/internal/errors"
	"lspws/internal/model"
	"lspws/internal/resolve"
)

// UnknownCompileSdk is written when no platform version is known.
const UnknownCompileSdk = "0"

// UnmarshalJSON accepts compileSdk as a string or a number.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	type plain Metadata
	var raw struct {
		plain
		CompileSdk json.RawMessage `json:"compileSdk"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metadata(raw.plain)
	m.CompileSdk = UnknownCompileSdk
	if len(raw.CompileSdk) == 0 || string(raw.CompileSdk) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.CompileSdk, &s); err == nil {
		if s != "" {
			m.CompileSdk = s
		}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw.CompileSdk, &n); err != nil {
		return fmt.Errorf("compileSdk: %w", err)
	}
	m.CompileSdk = n.String()
	return nil
}

// WriteMetadata writes md to path.
func WriteMetadata(path string, md *Metadata) error {
	data, err := encode(md, "  ")
	if err != nil {
		return errors.New(errors.InternalError, "failed to encode metadata", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return errors.New(errors.IOFailure, "failed to write "+filepath.Base(path), err)
	}
	return nil
}

// ReadMetadata reads a metadata document written by WriteMetadata.
func ReadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.MetadataMissing, fmt.Sprintf("metadata %s not found", path), err)
		}
		return nil, errors.New(errors.IOFailure, "failed to read metadata", err)
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, errors.New(errors.IOFailure, "failed to parse metadata", err)
	}
	return &md, nil
}

// Build composes the workspace document from metadata. Libraries are
// deduplicated by name, the last entry winning, and sorted.
func Build(md *Metadata) *Document {
	byName := make(map[string]Library, len(md.Libraries))
	for _, lib := range md.Libraries {
		byName[lib.Name] = lib
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	doc := &Document{
		Modules:        md.Modules,
		Libraries:      make([]Library, 0, len(names)),
		Sdks:           []Sdk{},
		KotlinSettings: make([]KotlinSettings, 0, len(md.Modules)),
	}
	if doc.Modules == nil {
		doc.Modules = []Module{}
	}
	for _, name := range names {
		doc.Libraries = append(doc.Libraries, byName[name])
	}
	if md.AndroidSdk != "" && md.CompileSdk != UnknownCompileSdk && md.CompileSdk != "" {
		doc.Sdks = append(doc.Sdks, Sdk{
			Name:           "Android API " + md.CompileSdk,
			Type:           SdkType,
			Version:        md.CompileSdk,
			HomePath:       md.AndroidSdk,
			AdditionalData: "",
		})
	}
	for _, mod := range doc.Modules {
		doc.KotlinSettings = append(doc.KotlinSettings, NewKotlinSettings(mod.Name))
	}
	return doc
}

// Validate checks the document's referential and ordering rules: library
// names are unique and sorted, every library dependency names a library, and
// each dependency list is an optional platform entry, libraries by name, then
// the module source and inherited SDK sentinels.
func Validate(doc *Document) error {
	var problems []string

	known := make(map[string]bool, len(doc.Libraries))
	for i, lib := range doc.Libraries {
		if known[lib.Name] {
			problems = append(problems, fmt.Sprintf("library %q listed twice", lib.Name))
		}
		known[lib.Name] = true
		if i > 0 && doc.Libraries[i-1].Name > lib.Name {
			problems = append(problems, fmt.Sprintf("library %q out of order", lib.Name))
		}
		if want := resolve.LibraryName(model.Coordinate{
			Group:   lib.Properties.Attributes.GroupID,
			Name:    lib.Properties.Attributes.ArtifactID,
			Version: lib.Properties.Attributes.Version,
		}); want != lib.Name {
			problems = append(problems, fmt.Sprintf("library %q attributes name %q", lib.Name, want))
		}
	}

	if len(doc.Sdks) > 1 {
		problems = append(problems, fmt.Sprintf("%d sdks, want at most one", len(doc.Sdks)))
	}

	for _, mod := range doc.Modules {
		problems = append(problems, validateDependencies(mod, known)...)
	}

	if len(problems) > 0 {
		return errors.New(errors.InternalError, "workspace document is inconsistent", fmt.Errorf("%s", strings.Join(problems, "; ")))
	}
	return nil
}

func validateDependencies(mod Module, known map[string]bool) []string {
	var problems []string
	deps := mod.Dependencies
	n := len(deps)
	if n < 2 || deps[n-2].Type != DependencyModuleSource || deps[n-1].Type != DependencyInheritedSdk {
		return []string{fmt.Sprintf("module %q must end with moduleSource and inheritedSdk", mod.Name)}
	}

	libs := deps[:n-2]
	if len(libs) > 0 && strings.HasPrefix(libs[0].Name, resolve.NamePrefix+android.PlatformGroup+":"+android.PlatformGroup+":") {
		if libs[0].Scope != resolve.ScopeProvided {
			problems = append(problems, fmt.Sprintf("module %q platform entry must be provided", mod.Name))
		}
		if !known[libs[0].Name] {
			problems = append(problems, fmt.Sprintf("module %q references unknown library %q", mod.Name, libs[0].Name))
		}
		libs = libs[1:]
	}
	for i, d := range libs {
		if d.Type != DependencyLibrary {
			problems = append(problems, fmt.Sprintf("module %q has %s entry before its sentinels", mod.Name, d.Type))
			continue
		}
		if !known[d.Name] {
			problems = append(problems, fmt.Sprintf("module %q references unknown library %q", mod.Name, d.Name))
		}
		if d.Scope != resolve.ScopeCompile && d.Scope != resolve.ScopeProvided {
			problems = append(problems, fmt.Sprintf("module %q library %q has scope %q", mod.Name, d.Name, d.Scope))
		}
		if i > 0 && libs[i-1].Name > d.Name {
			problems = append(problems, fmt.Sprintf("module %q library %q out of order", mod.Name, d.Name))
		}
	}
	return problems
}

// Encode renders doc as 4-space indented JSON. Paths keep their angle
// brackets.
func Encode(doc *Document) ([]byte, error) {
	return encode(doc, "    ")
}

func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDocument writes doc to path.
func WriteDocument(path string, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return errors.New(errors.InternalError, "failed to encode workspace document", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return errors.New(errors.IOFailure, "failed to write "+filepath.Base(path), err)
	}
	return nil
}

// Diff returns a unified diff from the current file content to the
// regenerated one, or "" when they are equal.
func Diff(current, regenerated []byte, name string) (string, error) {
	if bytes.Equal(current, regenerated) {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(current)),
		B:        difflib.SplitLines(string(regenerated)),
		FromFile: name,
		ToFile:   name + " (regenerated)",
		Context:  3,
	})
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
