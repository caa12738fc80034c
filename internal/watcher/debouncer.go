package watcher

import (
	"sort"
	"sync"
	"time"
)

// Debouncer holds changes until no new change has arrived for the quiet
// period, then delivers them as one batch with one event per path.
// Batches are delivered one at a time: a batch that becomes due while the
// handler is still busy waits for it.
type Debouncer struct {
	quiet   time.Duration
	deliver func([]Event)

	mu      sync.Mutex
	pending map[string]Event
	timer   *time.Timer
	stopped bool

	deliverMu sync.Mutex
}

// NewDebouncer creates a debouncer that passes batches to deliver.
func NewDebouncer(quiet time.Duration, deliver func([]Event)) *Debouncer {
	return &Debouncer{
		quiet:   quiet,
		deliver: deliver,
		pending: make(map[string]Event),
	}
}

// Add queues e and restarts the quiet period. Adds after Stop are ignored.
func (d *Debouncer) Add(e Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if prev, ok := d.pending[e.Path]; ok {
		merged, keep := coalesce(prev, e)
		if !keep {
			delete(d.pending, e.Path)
		} else {
			d.pending[e.Path] = merged
		}
	} else {
		d.pending[e.Path] = e
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.Flush)
}

// coalesce folds a later event for the same path into an earlier one. A
// file created and deleted within one batch drops out.
func coalesce(prev, next Event) (Event, bool) {
	switch {
	case prev.Type == EventCreate && next.Type == EventDelete:
		return Event{}, false
	case prev.Type == EventCreate:
		next.Type = EventCreate
	case prev.Type == EventDelete && next.Type == EventCreate:
		next.Type = EventModify
	}
	return next, true
}

// Pending returns the number of paths waiting for delivery.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush delivers the pending batch now, sorted by path.
func (d *Debouncer) Flush() {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	batch := d.take()
	if len(batch) > 0 && d.deliver != nil {
		d.deliver(batch)
	}
}

func (d *Debouncer) take() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.stopped || len(d.pending) == 0 {
		return nil
	}
	batch := make([]Event, 0, len(d.pending))
	for _, e := range d.pending {
		batch = append(batch, e)
	}
	d.pending = make(map[string]Event)
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	return batch
}

// Stop drops pending changes and ignores later ones.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = make(map[string]Event)
}
