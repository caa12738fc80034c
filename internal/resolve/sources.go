package resolve

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lspws/internal/model"
	"lspws/internal/outcome"
)

// SourcesClassifier is the classifier of source archives.
const SourcesClassifier = "sources"

// Repository resolves a classifier variant of a coordinate, the way a
// detached dependency request for g:a:v:classifier@jar would.
type Repository interface {
	ResolveClassifier(c model.Coordinate, classifier string) (string, error)
}

// ErrNotInRepository is returned when a repository has no such artifact.
var ErrNotInRepository = fmt.Errorf("artifact not in repository")

// LocalRepositories looks up artifacts in the Gradle module cache and the
// Maven local repository.
type LocalRepositories struct {
	GradleUserHome string
	MavenLocal     string
}

// DefaultLocalRepositories returns the standard locations under the user's
// home directory, honoring GRADLE_USER_HOME.
func DefaultLocalRepositories(getenv func(string) string) LocalRepositories {
	home, _ := os.UserHomeDir()
	gradle := getenv("GRADLE_USER_HOME")
	if gradle == "" && home != "" {
		gradle = filepath.Join(home, ".gradle")
	}
	var m2 string
	if home != "" {
		m2 = filepath.Join(home, ".m2", "repository")
	}
	return LocalRepositories{GradleUserHome: gradle, MavenLocal: m2}
}

// ResolveClassifier implements Repository.
func (r LocalRepositories) ResolveClassifier(c model.Coordinate, classifier string) (string, error) {
	if c.Group == model.Unknown || c.Version == model.Unknown {
		return "", ErrNotInRepository
	}
	want := fmt.Sprintf("%s-%s-%s.jar", c.Name, c.Version, classifier)

	if r.GradleUserHome != "" {
		// modules-2/files-2.1/<group>/<name>/<version>/<sha1>/<file>
		pattern := filepath.Join(r.GradleUserHome, "caches", "modules-2", "files-2.1", c.Group, c.Name, c.Version, "*", want)
		matches, err := filepath.Glob(pattern)
		if err == nil && len(matches) > 0 {
			sort.Strings(matches)
			return matches[0], nil
		}
	}
	if r.MavenLocal != "" {
		groupPath := filepath.Join(strings.Split(c.Group, ".")...)
		candidate := filepath.Join(r.MavenLocal, groupPath, c.Name, c.Version, want)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", ErrNotInRepository
}

// SourcesLocator finds the source archive paired with a binary.
type SourcesLocator struct {
	Repository Repository
	logger     *slog.Logger
}

// NewSourcesLocator creates a locator backed by repo. repo may be nil, in
// which case only the directory search is used.
func NewSourcesLocator(repo Repository, logger *slog.Logger) *SourcesLocator {
	return &SourcesLocator{Repository: repo, logger: logger}
}

// Locate tries the repository first, then searches beside binary. Failures
// of either strategy only mean "not found".
func (l *SourcesLocator) Locate(c model.Coordinate, binary string) outcome.Result[string] {
	if l.Repository != nil {
		path, err := l.Repository.ResolveClassifier(c, SourcesClassifier)
		if err == nil && path != "" {
			return outcome.Of(path)
		}
		if err != nil && err != ErrNotInRepository {
			l.logger.Debug("Sources resolution failed", "coordinate", c.String(), "error", err)
		}
	}
	if path := searchBeside(c, binary); path != "" {
		return outcome.Of(path)
	}
	return outcome.NotFound[string]("no sources archive found")
}

// searchBeside looks in the binary's directory, and for Gradle cache entries
// in the sibling hash directories of the same version, for an exact
// <name>-<version>-sources.<ext> file first and any <name>-*sources*.jar/zip
// after that.
func searchBeside(c model.Coordinate, binary string) string {
	if binary == "" {
		return ""
	}
	dirs := []string{filepath.Dir(binary)}
	if siblings, err := filepath.Glob(filepath.Join(filepath.Dir(filepath.Dir(binary)), "*")); err == nil && inGradleCache(binary) {
		sort.Strings(siblings)
		dirs = append(dirs, siblings...)
	}

	exact := c.Name + "-" + c.Version + "-" + SourcesClassifier + "."
	var loose string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !isArchive(e.Name()) {
				continue
			}
			name := e.Name()
			if strings.HasPrefix(name, exact) {
				return filepath.Join(dir, name)
			}
			if loose == "" && strings.HasPrefix(name, c.Name+"-") && strings.Contains(name, SourcesClassifier) {
				loose = filepath.Join(dir, name)
			}
		}
	}
	return loose
}

func inGradleCache(path string) bool {
	return strings.Contains(filepath.ToSlash(path), "/caches/modules-2/files-2.1/")
}

func isArchive(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".jar" || ext == ".zip"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
