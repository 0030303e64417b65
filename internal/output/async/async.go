package async

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/sigflow/internal/model"
	"github.com/crimson-sun/sigflow/internal/output"
)

const (
	defaultBufferSize   = 256
	defaultDrainTimeout = 5 * time.Second
)

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 256.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithOnError sets the callback invoked with the record whose delivery to
// the inner sink failed. Default: logs a warning keyed by request_id.
func WithOnError(f func(rec model.AuditRecord, err error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write return immediately (dropping the record) when
// the buffer is full, instead of blocking. Only for secondary sinks; the
// canonical CSV log must never be wrapped this way.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// Stats counts what happened to the records handed to Write.
type Stats struct {
	Delivered uint64
	Failed    uint64
	Dropped   uint64
}

// Async moves a slow secondary sink (webhook, remote store) off the
// request path. A background goroutine drains a buffered channel into the
// wrapped sink; its errors go to errFunc instead of the caller.
type Async struct {
	inner      output.AuditSink
	ch         chan model.AuditRecord
	done       chan struct{}
	errFunc    func(model.AuditRecord, error)
	bufSize    int
	dropOnFull bool
	closeOnce  sync.Once

	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// New wraps a sink in an async channel-based writer. The drain goroutine
// starts immediately.
func New(inner output.AuditSink, opts ...Option) *Async {
	a := &Async{
		inner:   inner,
		bufSize: defaultBufferSize,
		errFunc: logFailure,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan model.AuditRecord, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write queues rec. It blocks while the buffer is full unless
// WithDropOnFull was given.
func (a *Async) Write(_ context.Context, rec model.AuditRecord) error {
	if a.dropOnFull {
		select {
		case a.ch <- rec:
		default:
			slog.Warn("async audit buffer full, dropping record",
				"request_id", rec.RequestID, "sample_index", rec.SampleIndex)
		}
		return nil
	}
	a.ch <- rec
	return nil
}

// Stats returns the delivery counters so far.
func (a *Async) Stats() Stats {
	return Stats{
		Delivered: a.delivered.Load(),
		Failed:    a.failed.Load(),
		Dropped:   a.dropped.Load(),
	}
}

// Close stops accepting records, waits for the drain (bounded by a
// timeout), then closes the inner sink.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.ch)
		select {
		case <-a.done:
		case <-time.After(defaultDrainTimeout):
			slog.Warn("async audit sink drain timed out", "pending", len(a.ch))
		}
		st := a.Stats()
		slog.Debug("async audit sink closed",
			"delivered", st.Delivered, "failed", st.Failed, "dropped", st.Dropped)
		err = a.inner.Close()
	})
	return err
}

func (a *Async) drain() {
	defer close(a.done)
	for rec := range a.ch {
		if err := a.inner.Write(context.Background(), rec); err != nil {
			a.failed.Add(1)
			a.errFunc(rec, err)
			continue
		}
		a.delivered.Add(1)
	}
}

func logFailure(rec model.AuditRecord, err error) {
	slog.Warn("async audit sink write error",
		"request_id", rec.RequestID, "sample_index", rec.SampleIndex, "error", err)
}
