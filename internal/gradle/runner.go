package gradle

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// Runner abstracts command execution for testability.
type Runner interface {
	// LookPath checks if a binary exists in PATH.
	LookPath(name string) (string, error)

	// Run executes a command in dir and returns its output.
	Run(ctx context.Context, dir, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct {
	// Timeout for each command execution.
	Timeout time.Duration
}

// NewExecRunner creates a runner with the given timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	return &ExecRunner{Timeout: timeout}
}

// LookPath checks if a binary exists in PATH.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes a command and returns its output.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()), err
}
