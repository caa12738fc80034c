package staging

import (
	"fmt"
	"os"

	"github.com/klauspost/compress/zip"
)

// ClassesEntry is the plain archive embedded in an Android archive.
const ClassesEntry = "classes.jar"

// ErrNoClassesJar is returned for Android archives without a classes.jar.
var ErrNoClassesJar = fmt.Errorf("no %s entry", ClassesEntry)

// StageAAR extracts the classes.jar payload of aar into the cache as name.
// The staged file is byte-identical to the embedded entry. A fresh staged
// file is reused.
func (c *Cache) StageAAR(aar, name string) (string, error) {
	target := c.Path(name)
	stale, err := IsStale(target, aar)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	if !stale {
		return target, nil
	}

	zr, err := zip.OpenReader(aar)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", aar, err)
	}
	defer func() { _ = zr.Close() }()

	var entry *zip.File
	for _, f := range zr.File {
		if f.Name == ClassesEntry {
			entry = f
			break
		}
	}
	if entry == nil {
		return "", ErrNoClassesJar
	}

	rc, err := entry.Open()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", ClassesEntry, err)
	}
	defer func() { _ = rc.Close() }()

	if err := c.writeAtomic(target, rc); err != nil {
		return "", err
	}
	c.logger.Info("Processed AAR", "aar", aar, "jar", name)
	if c.OnStage != nil {
		c.OnStage(name, aar)
	}
	return target, nil
}
