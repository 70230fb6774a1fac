// Package trigger watches the small mtime-stamped files the external
// rotary-encoder bridge writes to signal a "skip" (force-next) or menu
// event. Trigger files are the lowest-common-denominator IPC: the encoder
// runs as a separate process (sometimes on different hardware entirely),
// so tvargenta only ever polls, never calls into it.
package trigger

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Watcher polls a single trigger file's mtime and exposes a one-shot
// edge: Consume returns true exactly once per mtime bump, regardless of
// how many times the file changed between polls.
type Watcher struct {
	path string

	mu       sync.Mutex
	lastSeen time.Time
	pending  bool
}

// New creates a Watcher for the trigger file at dir/name. The file need
// not exist yet; Poll treats a missing file as "no event".
func New(dir, name string) *Watcher {
	return &Watcher{path: filepath.Join(dir, name)}
}

// Poll checks the trigger file's mtime and raises the pending edge if it
// advanced since the last poll. Safe to call from the background loop on
// every wake.
func (w *Watcher) Poll() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}
	mtime := info.ModTime()

	w.mu.Lock()
	defer w.mu.Unlock()
	if mtime.After(w.lastSeen) {
		w.lastSeen = mtime
		w.pending = true
	}
}

// Consume returns whether an unconsumed edge is pending and clears it.
// This is the one-shot semantics the force-next flag and /api/should_reload
// both rely on.
func (w *Watcher) Consume() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.pending {
		return false
	}
	w.pending = false
	return true
}
