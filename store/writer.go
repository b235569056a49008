package store

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultDebounce is the snapshot write coalescing window.
const DefaultDebounce = 250 * time.Millisecond

// Writer is the debounce layer in front of the store. Enqueue replaces
// any not-yet-written pending snapshot for the same key (latest wins)
// and arms a short timer; the actual Save happens off the caller's
// goroutine. Persistence failures are logged and suppressed.
type Writer struct {
	store    *Store
	debounce time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	pending map[string]*Snapshot
	timer   *time.Timer

	// serializes Save calls against each other
	writeMu sync.Mutex
}

func NewWriter(store *Store, debounce time.Duration, log *slog.Logger) *Writer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Writer{
		store:    store,
		debounce: debounce,
		log:      log,
		pending:  make(map[string]*Snapshot),
	}
}

// Enqueue schedules a snapshot write, re-arming the timer so the write
// lands one quiet debounce window after the last mutation. Never blocks
// on I/O.
func (w *Writer) Enqueue(snapshot *Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[snapshot.Key] = snapshot
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.write)
	} else {
		w.timer.Reset(w.debounce)
	}
}

// Flush forces the pending write and waits for it, bounded by ctx. Used
// at shutdown: an expired ctx abandons the wait, never the write.
func (w *Writer) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.write()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) write() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	batch := w.pending
	w.pending = make(map[string]*Snapshot)
	w.mu.Unlock()

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	for _, snapshot := range batch {
		if err := w.store.Save(snapshot); err != nil {
			w.log.Warn("session snapshot not saved", "key", snapshot.Key, "error", err)
		}
	}
}
