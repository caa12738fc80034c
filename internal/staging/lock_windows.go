//go:build windows

package staging

import (
	"os"
	"path/filepath"
	"strconv"

	"lspws/internal/errors"
)

// LockFile is the name of the run lock inside the build directory.
const LockFile = "lsp-workspace.lock"

// Lock marks a running generation. Windows has no advisory flock, so the
// lock only records the PID and never refuses a second run.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock writes the lock file in dir.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.New(errors.IOFailure, "failed to create "+dir, err)
	}
	path := filepath.Join(dir, LockFile)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.New(errors.IOFailure, "failed to open lock file", err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = file.Close()
		return nil, errors.New(errors.IOFailure, "failed to write lock file", err)
	}
	return &Lock{path: path, file: file}, nil
}

// Release removes the lock file.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = l.file.Close()
	_ = os.Remove(l.path)
}
