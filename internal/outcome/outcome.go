// Package outcome models recoverable failures as values.
//
// A generation run never aborts on a degradable failure. Instead the stage
// returns an absent Result carrying the reason, and records a Degradation in
// the run's Report so the finished output can be inspected as
// degraded-but-complete.
package outcome

import (
	"fmt"
	"sort"
	"sync"
)

// Stage identifies where a degradation happened.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageExtract Stage = "extract"
	StageSources Stage = "sources"
	StageArchive Stage = "archive"
	StageSDK     Stage = "sdk"
)

// Result is a value that may be absent for a recorded reason.
type Result[T any] struct {
	Value   T
	Present bool
	Reason  string
	Err     error
	// NotFound marks an absence that is a normal answer, such as a library
	// published without sources. It is never recorded as a degradation.
	NotFound bool
}

// Of returns a present result.
func Of[T any](v T) Result[T] {
	return Result[T]{Value: v, Present: true}
}

// Absent returns a result with no value.
func Absent[T any](reason string, err error) Result[T] {
	return Result[T]{Reason: reason, Err: err}
}

// NotFound returns an absent result for something that legitimately does
// not exist.
func NotFound[T any](reason string) Result[T] {
	return Result[T]{Reason: reason, NotFound: true}
}

// Fallback returns a result carrying a substitute value together with the
// reason the preferred value could not be produced.
func Fallback[T any](v T, reason string, err error) Result[T] {
	return Result[T]{Value: v, Present: true, Reason: reason, Err: err}
}

// Degraded reports whether the result is a fallback or absent for a reason
// other than not found.
func (r Result[T]) Degraded() bool {
	if r.NotFound {
		return false
	}
	return !r.Present || r.Reason != ""
}

// OrElse returns the value if present, otherwise def.
func (r Result[T]) OrElse(def T) T {
	if r.Present {
		return r.Value
	}
	return def
}

// Degradation is one recoverable failure.
type Degradation struct {
	Stage   Stage  `json:"stage"`
	Subject string `json:"subject"`
	Reason  string `json:"reason"`
	Err     error  `json:"-"`
}

func (d Degradation) String() string {
	if d.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", d.Stage, d.Subject, d.Reason, d.Err)
	}
	return fmt.Sprintf("%s %s: %s", d.Stage, d.Subject, d.Reason)
}

// Report collects degradations for one run. The zero value is ready to use.
type Report struct {
	mu    sync.Mutex
	items []Degradation
}

// Add records a degradation.
func (r *Report) Add(stage Stage, subject, reason string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Degradation{Stage: stage, Subject: subject, Reason: reason, Err: err})
}

// Record adds the result's reason when it is degraded and returns the result
// unchanged. NotFound results are not recorded.
func Record[T any](r *Report, stage Stage, subject string, res Result[T]) Result[T] {
	if r != nil && res.Degraded() {
		r.Add(stage, subject, res.Reason, res.Err)
	}
	return res
}

// Items returns a copy of all degradations in insertion order.
func (r *Report) Items() []Degradation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Degradation, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of degradations.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// ByStage returns degradation counts per stage.
func (r *Report) ByStage() map[Stage]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Stage]int)
	for _, d := range r.items {
		counts[d.Stage]++
	}
	return counts
}

// Stages returns the stages that have degradations, sorted.
func (r *Report) Stages() []Stage {
	counts := r.ByStage()
	stages := make([]Stage, 0, len(counts))
	for s := range counts {
		stages = append(stages, s)
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i] < stages[j] })
	return stages
}
