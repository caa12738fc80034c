// Package ledger records generation runs and their degradations in a local
// SQLite database.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"lspws/internal/outcome"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusDegraded  = "degraded"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Run is one task execution.
type Run struct {
	ID            string
	Task          string
	Status        string
	StartedAt     time.Time
	FinishedAt    *time.Time
	Modules       int
	Libraries     int
	Degraded      int
	KotlinVersion string
	Error         string

	Degradations []outcome.Degradation
}

// NewRun starts a run of task.
func NewRun(task string) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Task:      task,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
}

// Finish sets the final status from the task error and the degradations
// recorded while it ran.
func (r *Run) Finish(err error, degradations []outcome.Degradation) {
	now := time.Now()
	r.FinishedAt = &now
	r.Degradations = degradations
	r.Degraded = len(degradations)
	switch {
	case err != nil:
		r.Status = StatusFailed
		r.Error = err.Error()
	case len(degradations) > 0:
		r.Status = StatusDegraded
	default:
		r.Status = StatusSucceeded
	}
}

// Skip marks the run as skipped because its outputs were current.
func (r *Run) Skip() {
	now := time.Now()
	r.FinishedAt = &now
	r.Status = StatusSkipped
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
