// Package persist writes workspace state in the background.
//
// Writes are best-effort: the in-memory state is authoritative for the running
// process and a failed write is logged and counted, never reported to the
// caller that scheduled it. Flush is the one place where a write error is
// returned, so shutdown paths can tell the user their last edits were lost.
package persist

import (
	"context"
	"sync"
	"time"

	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/logger"
	"github.com/seicologia/agenda/internal/overrides"
)

// Saver is the storage side of the writer; storage.Provider satisfies it.
type Saver interface {
	SaveState(overrides.State) error
}

// Writer debounces state snapshots: only the latest snapshot scheduled within
// the delay is written.
type Writer struct {
	saver   Saver
	delay   time.Duration
	metrics *Metrics

	mu      sync.Mutex
	pending *overrides.State
	timer   *time.Timer
	closed  bool

	// saveMu is held from taking a snapshot until its write returns, so an
	// older snapshot never lands after a newer one.
	saveMu sync.Mutex
}

func NewWriter(saver Saver, delay time.Duration, metrics *Metrics) *Writer {
	if delay <= 0 {
		delay = constants.DefaultDebounce
	}
	return &Writer{saver: saver, delay: delay, metrics: metrics}
}

// Schedule records st as the next snapshot to write and re-arms the timer.
// It is a no-op after Close.
func (w *Writer) Schedule(st overrides.State) {
	snapshot := st.Clone()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		logger.Warn("State scheduled after writer was closed; dropping")
		return
	}
	if w.pending != nil {
		w.metrics.observeCoalesced()
	}
	w.pending = &snapshot
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.fire)
}

// Pending reports whether a snapshot is waiting for the timer.
func (w *Writer) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending != nil
}

func (w *Writer) take() *overrides.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	st := w.pending
	w.pending = nil
	return st
}

func (w *Writer) fire() {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()
	st := w.take()
	if st == nil {
		return
	}
	if err := w.save(*st); err != nil {
		logger.Error("Failed to persist workspace state", "error", err)
	}
}

// save must be called with saveMu held.
func (w *Writer) save(st overrides.State) error {
	start := time.Now()
	err := w.saver.SaveState(st)
	w.metrics.observeWrite(err, time.Since(start))
	if err == nil {
		logger.Debug("Persisted workspace state",
			"sessions", len(st.Sessions), "extras", len(st.Extras), "payments", len(st.Payments))
	}
	return err
}

// Flush writes the pending snapshot now and waits for any in-flight write.
// When ctx ends first the write keeps running in the background.
func (w *Writer) Flush(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		w.saveMu.Lock()
		defer w.saveMu.Unlock()
		st := w.take()
		if st == nil {
			done <- nil
			return
		}
		done <- w.save(*st)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further snapshots and flushes the pending one. It returns only
// once no write is running, so the saver can be closed right after; if ctx
// ends first Close still waits and then reports ctx.Err.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	err := w.Flush(ctx)

	w.saveMu.Lock()
	defer w.saveMu.Unlock()
	if st := w.take(); st != nil {
		if serr := w.save(*st); serr != nil {
			logger.Error("Failed to persist workspace state", "error", serr)
			if err == nil {
				err = serr
			}
		}
	}
	return err
}
