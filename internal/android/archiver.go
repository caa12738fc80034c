package android

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// Archiver kinds accepted by NewArchiver.
const (
	ArchiverAuto    = "auto"
	ArchiverJar     = "jar"
	ArchiverBuiltin = "builtin"
)

// Archiver packs a directory tree into a jar.
type Archiver interface {
	Name() string
	// Archive writes the contents of dir to dest. dest is replaced only
	// when the archive was written completely.
	Archive(ctx context.Context, dir, dest string) error
}

// NewArchiver returns the archiver for kind. "auto" prefers the JDK's jar
// tool and falls back to the builtin writer when jar is not on PATH.
func NewArchiver(kind string) (Archiver, error) {
	switch kind {
	case ArchiverAuto, "":
		if path, err := exec.LookPath("jar"); err == nil {
			return &JarTool{Path: path}, nil
		}
		return &ZipArchiver{}, nil
	case ArchiverJar:
		return &JarTool{Path: "jar"}, nil
	case ArchiverBuiltin:
		return &ZipArchiver{}, nil
	default:
		return nil, fmt.Errorf("unknown archiver %q", kind)
	}
}

// JarTool runs the external jar command.
type JarTool struct {
	Path string
}

func (j *JarTool) Name() string { return ArchiverJar }

func (j *JarTool) Archive(ctx context.Context, dir, dest string) error {
	tmp, err := tempSibling(dest)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, j.Path, "cf", tmp, "-C", dir, ".")
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("jar cf failed: %w: %s", err, out)
	}
	return replace(tmp, dest)
}

// ZipArchiver writes the archive in process.
type ZipArchiver struct{}

func (z *ZipArchiver) Name() string { return ArchiverBuiltin }

func (z *ZipArchiver) Archive(ctx context.Context, dir, dest string) error {
	tmp, err := tempSibling(dest)
	if err != nil {
		return err
	}
	if err := writeZip(ctx, dir, tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return replace(tmp, dest)
}

func writeZip(ctx context.Context, dir, target string) error {
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, src)
		_ = src.Close()
		return err
	})

	closeErr := zw.Close()
	fileErr := f.Close()
	if walkErr != nil {
		return walkErr
	}
	if closeErr != nil {
		return closeErr
	}
	return fileErr
}

func tempSibling(dest string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}

func replace(tmp, dest string) error {
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
