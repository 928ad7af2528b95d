package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"aster/internal/config"
	"aster/internal/errors"
	"aster/internal/manifest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewCollapsesNestedRoots(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "res"), 0o755); err != nil {
		t.Fatal(err)
	}

	// The default manifest watches res plus ".", so res collapses into
	// the scan root.
	w, err := New(root, manifest.Default(), config.DefaultConfig(), testLogger(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(w.roots) != 1 {
		t.Fatalf("roots = %v, want just the scan root", w.roots)
	}
	if w.roots[0] != w.scanRoot {
		t.Errorf("roots[0] = %q, want %q", w.roots[0], w.scanRoot)
	}
}

func TestNewSkipsMissingSourceRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "res"), 0o755); err != nil {
		t.Fatal(err)
	}

	man := &manifest.Manifest{Version: 1, ResRoot: "res", SourceRoots: []string{"src"}}
	w, err := New(root, man, config.DefaultConfig(), testLogger(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(w.roots) != 1 {
		t.Fatalf("roots = %v, want only res", w.roots)
	}
	if filepath.Base(w.roots[0]) != "res" {
		t.Errorf("roots[0] = %q, want the res root", w.roots[0])
	}
}

func TestNewRejectsAllRootsMissing(t *testing.T) {
	man := &manifest.Manifest{Version: 1, ResRoot: "res", SourceRoots: []string{"src"}}
	_, err := New(t.TempDir(), man, config.DefaultConfig(), testLogger(), nil)
	if err == nil {
		t.Fatal("expected error when no watchable roots exist")
	}
	if !errors.IsCode(err, errors.ScanRootInvalid) {
		t.Errorf("error code = %v, want ScanRootInvalid", errors.CodeOf(err))
	}
}

func TestNewDefaultsDebounce(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "res"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Watch.DebounceMs = 0
	w, err := New(root, manifest.Default(), cfg, testLogger(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if w.debounce != 250*time.Millisecond {
		t.Errorf("debounce = %v, want 250ms", w.debounce)
	}
}

func TestIgnorePath(t *testing.T) {
	tests := []struct {
		rel  string
		want bool
	}{
		{"res/values/strings.xml", false},
		{"src/Main.java", false},
		{"aster.toml", false},
		{".aster/aster.db", true},
		{".git/HEAD", true},
		{"app/.gradle/cache.bin", true},
		{"build/generated/R.java", true},
		{"node_modules/pkg/index.js", true},
		{"src/Main.java~", true},
		{"res/values/strings.xml.tmp", true},
		{"res/values/.strings.xml.swp", true},
		{"notes.log", true},
		{".DS_Store", true},
		{".", true},
	}
	for _, tt := range tests {
		if got := ignorePath(tt.rel); got != tt.want {
			t.Errorf("ignorePath(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestDebouncerBatchesAndSorts(t *testing.T) {
	var (
		mu      sync.Mutex
		batches [][]string
	)
	d := newDebouncer(30*time.Millisecond, func(paths []string) {
		mu.Lock()
		batches = append(batches, paths)
		mu.Unlock()
	})

	d.add("res/values/b.xml")
	d.add("res/values/a.xml")
	d.add("res/values/b.xml")

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	want := []string{"res/values/a.xml", "res/values/b.xml"}
	if !reflect.DeepEqual(batches[0], want) {
		t.Errorf("batch = %v, want %v", batches[0], want)
	}
}

func TestDebouncerCancel(t *testing.T) {
	var called bool
	var mu sync.Mutex

	d := newDebouncer(30*time.Millisecond, func([]string) {
		mu.Lock()
		called = true
		mu.Unlock()
	})
	d.add("res/values/strings.xml")
	d.cancel()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if called {
		t.Error("emit should not run after cancel")
	}
	if d.pendingCount() != 0 {
		t.Errorf("pendingCount = %d, want 0", d.pendingCount())
	}
}

func TestDebouncerFlush(t *testing.T) {
	var (
		mu      sync.Mutex
		batches [][]string
	)
	d := newDebouncer(10*time.Second, func(paths []string) {
		mu.Lock()
		batches = append(batches, paths)
		mu.Unlock()
	})

	d.add("res/values/strings.xml")
	d.flush()

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	if d.pendingCount() != 0 {
		t.Errorf("pendingCount = %d, want 0", d.pendingCount())
	}
}

func TestDebouncerFlushEmpty(t *testing.T) {
	var called bool
	var mu sync.Mutex

	d := newDebouncer(30*time.Millisecond, func([]string) {
		mu.Lock()
		called = true
		mu.Unlock()
	})
	d.flush()

	mu.Lock()
	defer mu.Unlock()
	if called {
		t.Error("emit should not run with nothing pending")
	}
}

// startWatch is the shared setup for the end-to-end tests: it builds a
// watcher over root, establishes the watches, and runs the event loop in
// the background. Watches are live when it returns.
func startWatch(t *testing.T, root string, batches chan []string) (stop func()) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Watch.DebounceMs = 30
	w, err := New(root, manifest.Default(), cfg, testLogger(), func(changed []string) {
		batches <- changed
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fsw, d, err := w.start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.loop(ctx, fsw, d)
	}()

	return func() {
		cancel()
		<-done
		d.cancel()
		fsw.Close()
	}
}

func waitBatch(t *testing.T, batches <-chan []string) []string {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for change batch")
		return nil
	}
}

func containsPath(batch []string, path string) bool {
	for _, p := range batch {
		if p == path {
			return true
		}
	}
	return false
}

func TestWatchEmitsChangedBatch(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "res", "values"), 0o755); err != nil {
		t.Fatal(err)
	}

	batches := make(chan []string, 4)
	stop := startWatch(t, root, batches)
	defer stop()

	path := filepath.Join(root, "res", "values", "strings.xml")
	if err := os.WriteFile(path, []byte("<resources/>\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	batch := waitBatch(t, batches)
	if !containsPath(batch, "res/values/strings.xml") {
		t.Errorf("batch = %v, want it to contain res/values/strings.xml", batch)
	}
}

func TestWatchSeesNewDirectories(t *testing.T) {
	root := t.TempDir()
	resDir := filepath.Join(root, "res")
	if err := os.MkdirAll(filepath.Join(resDir, "values"), 0o755); err != nil {
		t.Fatal(err)
	}

	batches := make(chan []string, 4)
	stop := startWatch(t, root, batches)
	defer stop()

	newDir := filepath.Join(resDir, "values-de")
	if err := os.Mkdir(newDir, 0o755); err != nil {
		t.Fatal(err)
	}

	// Receiving the first batch proves the create event was processed,
	// which is when the new directory joined the watch.
	first := waitBatch(t, batches)
	if !containsPath(first, "res/values-de") {
		t.Fatalf("batch = %v, want it to contain res/values-de", first)
	}

	inner := filepath.Join(newDir, "strings.xml")
	if err := os.WriteFile(inner, []byte("<resources/>\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	second := waitBatch(t, batches)
	if !containsPath(second, "res/values-de/strings.xml") {
		t.Errorf("batch = %v, want it to contain res/values-de/strings.xml", second)
	}
}
