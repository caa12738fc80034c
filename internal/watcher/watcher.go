// Package watcher polls the build inputs of a project and reports changes in
// debounced batches.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ChangeHandler is called with each debounced batch of changes.
type ChangeHandler func(events []Event)

// Config contains watcher configuration
type Config struct {
	PollInterval time.Duration
	Debounce     time.Duration
	// Files are watched paths, relative to the root unless absolute.
	Files []string
	// BuildFileNames are matched by base name anywhere below the root.
	BuildFileNames []string
	// SkipDirs are directory names never descended into.
	SkipDirs []string
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		PollInterval: time.Second,
		Debounce:     500 * time.Millisecond,
		Files: []string{
			"gradle/libs.versions.toml",
			"local.properties",
		},
		BuildFileNames: []string{
			"settings.gradle",
			"settings.gradle.kts",
			"build.gradle",
			"build.gradle.kts",
		},
		SkipDirs: []string{".git", ".gradle", ".idea", ".vscode", "build", "node_modules"},
	}
}

// Watcher polls a project tree.
type Watcher struct {
	root     string
	config   Config
	logger   *slog.Logger
	handler  ChangeHandler
	snapshot map[string]time.Time
	batch    *Debouncer
}

// New creates a watcher for the project at root.
func New(root string, config Config, logger *slog.Logger, handler ChangeHandler) *Watcher {
	w := &Watcher{
		root:    root,
		config:  config,
		logger:  logger,
		handler: handler,
	}
	w.batch = NewDebouncer(config.Debounce, w.emit)
	return w
}

// Run polls until ctx is done. The first scan only records the current
// state. Pending events are dropped on return.
func (w *Watcher) Run(ctx context.Context) error {
	interval := w.config.PollInterval
	if interval <= 0 {
		interval = time.Second
	}

	w.snapshot = w.Scan()
	w.logger.Info("Watching build inputs", "root", w.root, "files", len(w.snapshot), "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer w.batch.Stop()

	for {
		select {
		case <-ticker.C:
			w.Poll()
		case <-ctx.Done():
			w.logger.Info("Watcher stopped")
			return ctx.Err()
		}
	}
}

// Poll compares the tree with the previous scan and queues any changes.
func (w *Watcher) Poll() {
	current := w.Scan()
	events := Diff(w.snapshot, current, time.Now())
	w.snapshot = current
	for _, e := range events {
		w.logger.Debug("Build input changed", "path", e.Path, "type", e.Type.String())
		w.batch.Add(e)
	}
	if len(events) > 0 {
		w.logger.Debug("Changes pending", "paths", w.batch.Pending())
	}
}

// Flush delivers pending events immediately.
func (w *Watcher) Flush() {
	w.batch.Flush()
}

func (w *Watcher) emit(events []Event) {
	if w.handler != nil {
		w.handler(events)
	}
}

// Scan returns the modification times of every watched file that exists.
func (w *Watcher) Scan() map[string]time.Time {
	files := make(map[string]time.Time)
	for _, path := range w.config.Files {
		if !filepath.IsAbs(path) {
			path = filepath.Join(w.root, path)
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files[path] = info.ModTime()
		}
	}

	names := make(map[string]bool, len(w.config.BuildFileNames))
	for _, n := range w.config.BuildFileNames {
		names[n] = true
	}
	skip := make(map[string]bool, len(w.config.SkipDirs))
	for _, d := range w.config.SkipDirs {
		skip[d] = true
	}
	if len(names) == 0 {
		return files
	}

	_ = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != w.root && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !names[d.Name()] {
			return nil
		}
		if info, err := d.Info(); err == nil {
			files[path] = info.ModTime()
		}
		return nil
	})
	return files
}

// Diff returns the changes from before to after, sorted by path.
func Diff(before, after map[string]time.Time, now time.Time) []Event {
	var events []Event
	for path, mtime := range after {
		prev, ok := before[path]
		switch {
		case !ok:
			events = append(events, Event{Type: EventCreate, Path: path, Timestamp: now})
		case !prev.Equal(mtime):
			events = append(events, Event{Type: EventModify, Path: path, Timestamp: now})
		}
	}
	for path := range before {
		if _, ok := after[path]; !ok {
			events = append(events, Event{Type: EventDelete, Path: path, Timestamp: now})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events
}
