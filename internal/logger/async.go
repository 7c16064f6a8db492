package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes buffered log records on shutdown.
type Closer interface {
	Close()
}

// nopCloser is returned in synchronous mode.
type nopCloser struct{}

func (nopCloser) Close() {}

// recordQueue is the buffer shared by an AsyncHandler and every view
// derived from it via WithAttrs/WithGroup: one channel, one worker pool,
// one drop counter, no matter how many views exist.
type recordQueue struct {
	ch      chan queued
	wg      sync.WaitGroup
	dropped atomic.Int64
}

// queued pairs a record with the handler view that enqueued it, so
// request-scoped attributes survive the hop onto the worker goroutines.
type queued struct {
	sink slog.Handler
	rec  slog.Record
}

// AsyncHandler decouples log emission from I/O: Handle enqueues and
// returns, worker goroutines do the writing. When the buffer is full the
// record is dropped rather than stalling the caller.
type AsyncHandler struct {
	inner slog.Handler
	q     *recordQueue
}

// NewAsyncHandler starts workers goroutines draining a buffer of the given
// capacity in front of inner.
func NewAsyncHandler(inner slog.Handler, buffer, workers int) *AsyncHandler {
	q := &recordQueue{ch: make(chan queued, buffer)}
	for range workers {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for item := range q.ch {
				_ = item.sink.Handle(context.Background(), item.rec)
			}
		}()
	}
	return &AsyncHandler{inner: inner, q: q}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record, or drops it when the buffer is full.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.q.ch <- queued{sink: h.inner, rec: rec.Clone()}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a view over the same queue whose records carry attrs.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), q: h.q}
}

// WithGroup returns a view over the same queue scoped to the named group.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), q: h.q}
}

// DroppedCount reports how many records were discarded on a full buffer.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.q.dropped.Load()
}

// Close stops intake and blocks until the workers have written every
// record still in the buffer.
func (h *AsyncHandler) Close() {
	close(h.q.ch)
	h.q.wg.Wait()
}
