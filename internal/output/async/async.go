// Package async moves slow outputs, such as a webhook, off the request path.
package async

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/leafdoc/internal/model"
	"github.com/crimson-sun/leafdoc/internal/output"
)

const (
	defaultBufferSize   = 256
	defaultDrainTimeout = 5 * time.Second
)

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the queue capacity. Default: 256.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDrainTimeout bounds how long Close waits for queued diagnoses.
// Default: 5s.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) { a.drainTimeout = d }
}

// Async queues diagnoses and delivers them to the wrapped output from a
// single background goroutine. Write never blocks: when the queue is full
// the diagnosis is dropped and counted.
type Async struct {
	inner        output.Output
	ch           chan model.Diagnosis
	done         chan struct{}
	errFunc      func(error)
	bufSize      int
	drainTimeout time.Duration
	dropped      atomic.Int64
	ctx          context.Context // canceled when the drain times out
	cancel       context.CancelFunc

	mu     sync.RWMutex // guards closed against concurrent Write
	closed bool
}

// New wraps inner and starts the delivery goroutine.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		errFunc:      func(err error) { slog.Warn("async output write error", "error", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan model.Diagnosis, a.bufSize)
	a.done = make(chan struct{})
	a.ctx, a.cancel = context.WithCancel(context.Background())
	go a.drain()
	return a
}

// Write queues d. It returns nil even when d is dropped.
func (a *Async) Write(_ context.Context, d model.Diagnosis) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return nil
	}
	select {
	case a.ch <- d:
	default:
		a.dropped.Add(1)
		slog.Warn("async output queue full, dropping diagnosis", "id", d.ID, "label", d.Label)
	}
	return nil
}

// Dropped returns how many diagnoses were discarded.
func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

// Close stops accepting diagnoses, waits for the queue to drain (bounded by
// the drain timeout), then closes the inner output. Safe to call twice.
//
// On timeout the in-flight Write's context is canceled, the rest of the
// queue is dropped, and the inner output is closed by the delivery goroutine
// once that Write returns. Close and Write never run concurrently on the
// inner output.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	t := time.NewTimer(a.drainTimeout)
	defer t.Stop()
	select {
	case <-a.done:
		a.cancel()
		return a.inner.Close()
	case <-t.C:
	}

	slog.Warn("async output drain timed out", "pending", len(a.ch))
	a.cancel()
	go func() {
		<-a.done
		if err := a.inner.Close(); err != nil {
			a.errFunc(err)
		}
	}()
	return nil
}

func (a *Async) drain() {
	defer close(a.done)
	for d := range a.ch {
		if a.ctx.Err() != nil {
			a.dropped.Add(1)
			continue
		}
		if err := a.inner.Write(a.ctx, d); err != nil {
			a.errFunc(err)
		}
	}
}
