package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.eventType.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want 1s", config.PollInterval)
	}
	if config.Debounce != 500*time.Millisecond {
		t.Errorf("Debounce = %v, want 500ms", config.Debounce)
	}
	want := map[string]bool{"settings.gradle.kts": false, "build.gradle.kts": false}
	for _, n := range config.BuildFileNames {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, found := range want {
		if !found {
			t.Errorf("BuildFileNames missing %s", n)
		}
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "settings.gradle.kts"), "")
	writeFile(t, filepath.Join(root, "app", "build.gradle.kts"), "")
	writeFile(t, filepath.Join(root, "feature", "login", "build.gradle"), "")
	writeFile(t, filepath.Join(root, "gradle", "libs.versions.toml"), "")
	writeFile(t, filepath.Join(root, "app", "build", "build.gradle"), "")
	writeFile(t, filepath.Join(root, "app", "src", "Main.kt"), "")

	w := New(root, DefaultConfig(), testLogger(), nil)
	files := w.Scan()

	for _, rel := range []string{
		"settings.gradle.kts",
		"app/build.gradle.kts",
		"feature/login/build.gradle",
		"gradle/libs.versions.toml",
	} {
		if _, ok := files[filepath.Join(root, rel)]; !ok {
			t.Errorf("Scan() missing %s", rel)
		}
	}
	if _, ok := files[filepath.Join(root, "app", "build", "build.gradle")]; ok {
		t.Error("Scan() should skip build output directories")
	}
	if len(files) != 4 {
		t.Errorf("len(Scan()) = %d, want 4", len(files))
	}
}

func TestDiff(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Second)
	before := map[string]time.Time{"a": t0, "b": t0, "c": t0}
	after := map[string]time.Time{"a": t0, "b": t1, "d": t1}

	events := Diff(before, after, t1)
	want := []struct {
		path string
		typ  EventType
	}{
		{"b", EventModify},
		{"c", EventDelete},
		{"d", EventCreate},
	}
	if len(events) != len(want) {
		t.Fatalf("Diff() = %v, want %d events", events, len(want))
	}
	for i, w := range want {
		if events[i].Path != w.path || events[i].Type != w.typ {
			t.Errorf("events[%d] = %s %s, want %s %s", i, events[i].Type, events[i].Path, w.typ, w.path)
		}
	}

	if got := Diff(before, before, t1); len(got) != 0 {
		t.Errorf("Diff() of identical snapshots = %v, want none", got)
	}
}

func TestPollBatchesChanges(t *testing.T) {
	root := t.TempDir()
	script := filepath.Join(root, "app", "build.gradle.kts")
	writeFile(t, script, "android {}")

	var got []Event
	var mu sync.Mutex
	config := DefaultConfig()
	config.Debounce = time.Hour
	w := New(root, config, testLogger(), func(events []Event) {
		mu.Lock()
		got = events
		mu.Unlock()
	})
	w.snapshot = w.Scan()

	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(script, later, later); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "local.properties"), "sdk.dir=/sdk")

	w.Poll()
	w.Flush()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("handler received %d events, want 2: %v", len(got), got)
	}
	if got[0].Path != script || got[0].Type != EventModify {
		t.Errorf("got[0] = %s %s, want modify %s", got[0].Type, got[0].Path, script)
	}
	if got[1].Type != EventCreate {
		t.Errorf("got[1].Type = %s, want create", got[1].Type)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	w := New(t.TempDir(), DefaultConfig(), testLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestDebouncerDeliversAfterQuietPeriod(t *testing.T) {
	var received []Event
	var mu sync.Mutex

	d := NewDebouncer(50*time.Millisecond, func(events []Event) {
		mu.Lock()
		received = events
		mu.Unlock()
	})

	d.Add(Event{Type: EventCreate, Path: "settings.gradle.kts"})
	d.Add(Event{Type: EventModify, Path: "app/build.gradle.kts"})
	d.Add(Event{Type: EventDelete, Path: "local.properties"})

	if d.Pending() != 3 {
		t.Errorf("Pending() = %d, want 3", d.Pending())
	}

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 {
		t.Fatalf("received %d events, want 3", len(received))
	}
	if received[0].Path != "app/build.gradle.kts" || received[2].Path != "settings.gradle.kts" {
		t.Errorf("batch should be sorted by path: %v", received)
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	tests := []struct {
		name   string
		events []EventType
		want   []EventType
	}{
		{"repeated modify", []EventType{EventModify, EventModify}, []EventType{EventModify}},
		{"created then modified", []EventType{EventCreate, EventModify}, []EventType{EventCreate}},
		{"created then deleted", []EventType{EventCreate, EventDelete}, nil},
		{"deleted then recreated", []EventType{EventDelete, EventCreate}, []EventType{EventModify}},
		{"modified then deleted", []EventType{EventModify, EventDelete}, []EventType{EventDelete}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Event
			d := NewDebouncer(time.Hour, func(events []Event) { got = events })
			for _, typ := range tt.events {
				d.Add(Event{Type: typ, Path: "build.gradle"})
			}
			d.Flush()

			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want types %v", got, tt.want)
			}
			for i, typ := range tt.want {
				if got[i].Type != typ {
					t.Errorf("got[%d].Type = %s, want %s", i, got[i].Type, typ)
				}
			}
		})
	}
}

func TestDebouncerStop(t *testing.T) {
	var called bool
	var mu sync.Mutex

	d := NewDebouncer(50*time.Millisecond, func([]Event) {
		mu.Lock()
		called = true
		mu.Unlock()
	})
	d.Add(Event{Type: EventCreate, Path: "build.gradle"})
	d.Stop()
	d.Add(Event{Type: EventModify, Path: "build.gradle"})
	d.Flush()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	if called {
		t.Error("nothing should be delivered after Stop")
	}
	mu.Unlock()

	if d.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 after Stop", d.Pending())
	}
}

func TestDebouncerFlush(t *testing.T) {
	var received []Event

	d := NewDebouncer(time.Hour, func(events []Event) { received = events })
	d.Add(Event{Type: EventCreate, Path: "build.gradle"})
	d.Flush()

	if len(received) != 1 {
		t.Errorf("received %d events, want 1", len(received))
	}
	if d.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 after Flush", d.Pending())
	}
}

func TestDebouncerEmptyFlush(t *testing.T) {
	called := false
	d := NewDebouncer(10*time.Millisecond, func([]Event) { called = true })
	d.Flush()

	if called {
		t.Error("an empty batch should not be delivered")
	}
}

func TestDebouncerDeliversOneBatchAtATime(t *testing.T) {
	var mu sync.Mutex
	var active, maxActive, batches int

	d := NewDebouncer(time.Hour, func([]Event) {
		mu.Lock()
		active++
		batches++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d.Add(Event{Type: EventModify, Path: filepath.Join("m", string(rune('a'+i)), "build.gradle")})
			d.Flush()
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if maxActive != 1 {
		t.Errorf("%d batches were delivered concurrently", maxActive)
	}
	if batches == 0 {
		t.Error("no batch was delivered")
	}
}
