// Package resolve turns a project's configurations into libraries: resolved
// binaries, normalized through the staging cache, paired with source archives
// where one can be found.
package resolve

import (
	"sort"

	"lspws/internal/model"
)

// Scopes of a library dependency.
const (
	ScopeCompile  = "compile"
	ScopeProvided = "provided"
)

// NamePrefix prefixes every library display name.
const NamePrefix = "Gradle: "

// Library is one resolved dependency.
type Library struct {
	Name       string
	Binary     string
	Sources    string
	Scope      string
	Coordinate model.Coordinate
}

// LibraryName returns the display name for a coordinate.
func LibraryName(c model.Coordinate) string {
	return NamePrefix + c.String()
}

// NewLibrary creates a compile-scoped library for c.
func NewLibrary(c model.Coordinate, binary, sources string) Library {
	return Library{
		Name:       LibraryName(c),
		Binary:     binary,
		Sources:    sources,
		Scope:      ScopeCompile,
		Coordinate: c,
	}
}

// SortedNames returns the keys of libs in order.
func SortedNames(libs map[string]Library) []string {
	names := make([]string, 0, len(libs))
	for name := range libs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
