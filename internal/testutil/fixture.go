// Package testutil provides fixture projects and golden file comparison.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// Placeholder stands for the fixture's working copy in fixture inputs and
// golden files.
const Placeholder = "$FIXTURE"

// textExts are the fixture files Placeholder is expanded in.
var textExts = map[string]bool{
	".json":       true,
	".properties": true,
	".toml":       true,
	".gradle":     true,
	".kts":        true,
}

// FixtureContext holds information about a loaded fixture.
type FixtureContext struct {
	// Name is the fixture directory name under testdata/fixtures
	Name string

	// Root is the absolute path to the fixture directory
	Root string

	// Dir is a writable copy of Root/project with Placeholder expanded
	Dir string

	// ExpectedDir is the path to the expected/ directory
	ExpectedDir string
}

// LoadFixture copies a fixture project into a temporary directory, failing
// the test on error.
func LoadFixture(t *testing.T, name string) *FixtureContext {
	t.Helper()

	root := filepath.Join(getFixturesRoot(t), name)
	project := filepath.Join(root, "project")
	if _, err := os.Stat(project); os.IsNotExist(err) {
		t.Fatalf("Fixture project not found: %s", project)
	}

	dir := t.TempDir()
	if err := copyTree(project, dir); err != nil {
		t.Fatalf("Failed to copy fixture %s: %v", name, err)
	}

	return &FixtureContext{
		Name:        name,
		Root:        root,
		Dir:         dir,
		ExpectedDir: filepath.Join(root, "expected"),
	}
}

// ExpectedPath returns the path to a golden file within the fixture.
func (f *FixtureContext) ExpectedPath(name string) string {
	return filepath.Join(f.ExpectedDir, name)
}

// getFixturesRoot returns the absolute path to testdata/fixtures/.
func getFixturesRoot(t *testing.T) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// Navigate from internal/testutil to project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	fixturesRoot := filepath.Join(projectRoot, "testdata", "fixtures")

	if _, err := os.Stat(fixturesRoot); os.IsNotExist(err) {
		t.Fatalf("Fixtures root not found: %s", fixturesRoot)
	}

	return fixturesRoot
}

// AvailableFixtures returns the fixtures that have a project directory.
func AvailableFixtures(t *testing.T) []string {
	t.Helper()

	root := getFixturesRoot(t)
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("Failed to read fixtures directory: %v", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || isHiddenDir(entry.Name()) {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, entry.Name(), "project")); err == nil {
			names = append(names, entry.Name())
		}
	}
	return names
}

// ForEachFixture runs fn against a fresh copy of every fixture.
func ForEachFixture(t *testing.T, fn func(t *testing.T, fixture *FixtureContext)) {
	t.Helper()

	names := AvailableFixtures(t)
	if len(names) == 0 {
		t.Skip("No fixtures available")
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			fn(t, LoadFixture(t, name))
		})
	}
}

func isHiddenDir(name string) bool {
	return len(name) > 0 && name[0] == '.'
}

// copyTree copies src into dst, expanding Placeholder in text files.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if textExts[filepath.Ext(path)] {
			data = []byte(strings.ReplaceAll(string(data), Placeholder, filepath.ToSlash(dst)))
		}
		return os.WriteFile(target, data, 0o644)
	})
}
