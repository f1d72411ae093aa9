package services

import (
	"context"
	"sync"

	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
)

type queuedRecord struct {
	ctx    context.Context
	record *logrecord.Record
}

// AsyncWriter hands records to a single background goroutine through a
// bounded queue. Enqueue never blocks.
type AsyncWriter struct {
	persist func(ctx context.Context, record *logrecord.Record)
	queue   chan queuedRecord

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsyncWriter(size int, persist func(ctx context.Context, record *logrecord.Record)) *AsyncWriter {
	if size < 1 {
		size = 1
	}
	w := &AsyncWriter{
		persist: persist,
		queue:   make(chan queuedRecord, size),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *AsyncWriter) run() {
	defer w.wg.Done()
	for item := range w.queue {
		eventLogQueueDepth.Set(float64(len(w.queue)))
		w.persist(item.ctx, item.record)
	}
}

// Enqueue reports false when the queue is full or the writer is closed.
func (w *AsyncWriter) Enqueue(ctx context.Context, record *logrecord.Record) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.queue <- queuedRecord{ctx: context.WithoutCancel(ctx), record: record}:
		eventLogQueueDepth.Set(float64(len(w.queue)))
		return true
	default:
		return false
	}
}

func (w *AsyncWriter) Len() int {
	return len(w.queue)
}

// Close stops accepting records and waits until the queue is drained or ctx
// is done.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
