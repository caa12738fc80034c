//go:build !windows

package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"lspws/internal/errors"
)

// LockFile is the name of the run lock inside the build directory.
const LockFile = "lsp-workspace.lock"

// Lock is an exclusive lock held for the length of one generation run.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the run lock in dir without blocking. It fails with a
// Locked error when another process holds it.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.New(errors.IOFailure, "failed to create "+dir, err)
	}
	path := filepath.Join(dir, LockFile)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.New(errors.IOFailure, "failed to open lock file", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		msg := "workspace generation is already running"
		if content, readErr := os.ReadFile(path); readErr == nil && len(content) > 0 {
			msg = fmt.Sprintf("%s (PID %s)", msg, strings.TrimSpace(string(content)))
		}
		return nil, errors.New(errors.Locked, msg, err)
	}

	unlock := func(err error) (*Lock, error) {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, errors.New(errors.IOFailure, "failed to write lock file", err)
	}
	if err := file.Truncate(0); err != nil {
		return unlock(err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		return unlock(err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		return unlock(err)
	}

	return &Lock{path: path, file: file}, nil
}

// Release drops the lock and removes the lock file.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	_ = os.Remove(l.path)
}
