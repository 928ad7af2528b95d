package watcher

import (
	"sort"
	"sync"
	"time"
)

// debouncer collects changed paths and emits them as one sorted,
// deduplicated batch after a quiet period with no new additions.
type debouncer struct {
	delay time.Duration
	emit  func([]string)

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}

	// emitMu serializes batches: one that settles while the handler is
	// still running waits for it.
	emitMu sync.Mutex
}

func newDebouncer(delay time.Duration, emit func([]string)) *debouncer {
	return &debouncer{
		delay:   delay,
		emit:    emit,
		pending: make(map[string]struct{}),
	}
}

// add records a change and restarts the quiet-period timer.
func (d *debouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[path] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// fire takes the pending batch and emits it.
func (d *debouncer) fire() {
	d.mu.Lock()
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	batch := make([]string, 0, len(d.pending))
	for p := range d.pending {
		batch = append(batch, p)
	}
	d.pending = make(map[string]struct{})
	d.timer = nil
	d.mu.Unlock()

	sort.Strings(batch)

	d.emitMu.Lock()
	defer d.emitMu.Unlock()
	d.emit(batch)
}

// flush emits any pending batch immediately.
func (d *debouncer) flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.fire()
}

// cancel drops any pending batch without emitting it.
func (d *debouncer) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = make(map[string]struct{})
}

// pendingCount returns the number of paths awaiting emission.
func (d *debouncer) pendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
