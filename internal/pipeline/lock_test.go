//go:build !windows

package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"lspws/internal/errors"
	"lspws/internal/staging"
)

func TestRunRefusesWhileLocked(t *testing.T) {
	dir := newProject(t)
	p := newTestPipeline(t, dir, nil)

	lock, err := staging.AcquireLock(filepath.Join(dir, "build"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.Run(context.Background(), TaskResolve); !errors.Is(err, errors.Locked) {
		t.Fatalf("Run() error = %v, want %s", err, errors.Locked)
	}

	lock.Release()
	if _, err := p.Run(context.Background(), TaskResolve); err != nil {
		t.Fatalf("Run() after release error = %v", err)
	}
}
