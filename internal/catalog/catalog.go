// Package catalog reads the Gradle version catalog.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"lspws/internal/model"
)

// CatalogFile is the default catalog location below the root project.
const CatalogFile = "gradle/libs.versions.toml"

// KotlinGroup is the group of the Kotlin standard library.
const KotlinGroup = "org.jetbrains.kotlin"

// Catalog is a version catalog as written in libs.versions.toml. Entries are
// either a plain string or a table, so they are decoded loosely.
type Catalog struct {
	Versions  map[string]any `toml:"versions"`
	Libraries map[string]any `toml:"libraries"`
	Plugins   map[string]any `toml:"plugins"`
}

// Load parses a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return &c, nil
}

// Version returns the named entry of the [versions] table. Rich versions
// resolve to their strictly, require or prefer constraint.
func (c *Catalog) Version(name string) (string, bool) {
	return versionValue(c.Versions[name])
}

func versionValue(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, val != ""
	case map[string]any:
		for _, key := range []string{"strictly", "require", "prefer"} {
			if s, ok := val[key].(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// kotlinVersionKeys are the [versions] names commonly used for Kotlin.
var kotlinVersionKeys = []string{"kotlin", "kotlinVersion", "kotlin-version"}

// KotlinVersion returns the Kotlin version declared in the catalog: a
// [versions] entry named kotlin, or the version of a Kotlin plugin alias.
func (c *Catalog) KotlinVersion() (string, bool) {
	for _, key := range kotlinVersionKeys {
		if v, ok := c.Version(key); ok {
			return v, true
		}
	}
	for _, p := range c.Plugins {
		table, ok := p.(map[string]any)
		if !ok {
			continue
		}
		id, _ := table["id"].(string)
		if !strings.HasPrefix(id, KotlinGroup+".") {
			continue
		}
		if v, ok := c.reference(table["version"]); ok {
			return v, true
		}
	}
	return "", false
}

// reference resolves a version that is a literal, a rich version, or a
// { ref = "name" } pointer into [versions].
func (c *Catalog) reference(v any) (string, bool) {
	if table, ok := v.(map[string]any); ok {
		if ref, ok := table["ref"].(string); ok {
			return c.Version(ref)
		}
	}
	return versionValue(v)
}

// Sources of a detected Kotlin version.
const (
	SourceConfig  = "config"
	SourceCatalog = "catalog"
	SourceModel   = "model"
)

// Detection is a Kotlin version and where it was found.
type Detection struct {
	Version string
	Source  string
}

// KotlinVersion detects the Kotlin version of a build: an explicit value,
// the version catalog under rootDir, then the declared version of any
// kotlin-stdlib dependency in the model. ok is false when none is known.
func KotlinVersion(explicit, rootDir string, m *model.Model) (Detection, bool) {
	if explicit != "" {
		return Detection{Version: explicit, Source: SourceConfig}, true
	}
	if c, err := Load(filepath.Join(rootDir, CatalogFile)); err == nil {
		if v, ok := c.KotlinVersion(); ok {
			return Detection{Version: v, Source: SourceCatalog}, true
		}
	}
	if m == nil {
		return Detection{}, false
	}
	var found string
	m.AllDependencies(func(_ model.Project, _ model.Configuration, d model.Dependency) bool {
		if d.Group == KotlinGroup && strings.HasPrefix(d.Name, "kotlin-stdlib") && d.Version != "" {
			found = d.Version
			return false
		}
		return true
	})
	if found == "" {
		return Detection{}, false
	}
	return Detection{Version: found, Source: SourceModel}, true
}
