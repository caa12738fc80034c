// Package staging holds normalized copies of binary and source archives.
//
// The staging directory is an mtime-addressed cache: a staged file is fresh
// while its modification time is not older than the file it was produced
// from. The cache assumes a single writer. Two generation runs against the
// same directory at once are not supported; writes go through a temporary
// file and a rename so an interrupted run never leaves a truncated archive
// under a final name.
package staging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lspws/internal/model"
	"lspws/internal/outcome"
)

// Cache is a staging directory.
type Cache struct {
	Dir    string
	logger *slog.Logger
	// OnStage is called after a file was written into the cache.
	OnStage func(name, source string)
}

// New creates a cache rooted at dir. The directory is created lazily.
func New(dir string, logger *slog.Logger) *Cache {
	return &Cache{Dir: dir, logger: logger}
}

// JarName is the staged file name of a binary archive.
func JarName(artifact, version string) string {
	return artifact + "-" + version + ".jar"
}

// SourcesJarName is the staged file name of a source archive.
func SourcesJarName(artifact, version string) string {
	return artifact + "-" + version + "-sources.jar"
}

// Path returns the absolute staged path for name.
func (c *Cache) Path(name string) string {
	return filepath.Join(c.Dir, name)
}

// Ensure creates the staging directory.
func (c *Cache) Ensure() error {
	return os.MkdirAll(c.Dir, 0755)
}

// Clean deletes and recreates the staging directory.
func (c *Cache) Clean() error {
	if _, err := os.Stat(c.Dir); err == nil {
		if err := os.RemoveAll(c.Dir); err != nil {
			return fmt.Errorf("failed to delete staging directory: %w", err)
		}
		c.logger.Info("Deleted staging directory", "path", c.Dir)
	}
	if err := c.Ensure(); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	c.logger.Info("Created staging directory", "path", c.Dir)
	return nil
}

// IsStale reports whether staged must be regenerated from source: it is
// missing or its modification time is older than source's.
func IsStale(staged, source string) (bool, error) {
	st, err := os.Stat(staged)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return true, err
	}
	src, err := os.Stat(source)
	if err != nil {
		return true, err
	}
	return st.ModTime().Before(src.ModTime()), nil
}

// StageCopy copies source into the cache as name unless the staged copy is
// fresh. It returns the staged path.
func (c *Cache) StageCopy(source, name string) (string, error) {
	target := c.Path(name)
	stale, err := IsStale(target, source)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	if !stale {
		return target, nil
	}

	in, err := os.Open(source)
	if err != nil {
		return "", err
	}
	defer func() { _ = in.Close() }()

	if err := c.writeAtomic(target, in); err != nil {
		return "", err
	}
	c.logger.Debug("Staged file", "source", source, "target", target)
	if c.OnStage != nil {
		c.OnStage(name, source)
	}
	return target, nil
}

// Normalize turns a resolved binary into the file the workspace refers to.
// Android archives are always unpacked into the cache; when that fails the
// result falls back to the original file. Plain archives are copied when
// copyToStaging is set and referenced in place otherwise.
func (c *Cache) Normalize(file string, coord model.Coordinate, copyToStaging bool) outcome.Result[string] {
	name := JarName(coord.Name, coord.Version)
	if strings.EqualFold(filepath.Ext(file), ".aar") {
		staged, err := c.StageAAR(file, name)
		if err != nil {
			c.logger.Warn("Failed to process AAR", "file", filepath.Base(file), "error", err)
			return outcome.Fallback(file, "aar extraction failed", err)
		}
		return outcome.Of(staged)
	}
	if !copyToStaging {
		return outcome.Of(file)
	}
	staged, err := c.StageCopy(file, name)
	if err != nil {
		c.logger.Warn("Failed to stage archive", "file", filepath.Base(file), "error", err)
		return outcome.Fallback(file, "staging copy failed", err)
	}
	return outcome.Of(staged)
}

func (c *Cache) writeAtomic(target string, r io.Reader) error {
	if err := c.Ensure(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.Dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
