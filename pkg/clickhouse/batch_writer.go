package clickhouse

import (
	"context"
	"sync"
	"time"

	"brandpulse/pkg/logger"
)

// FlushFunc writes one batch. It is called without the writer's lock held.
type FlushFunc[T any] func(ctx context.Context, batch []T) error

// BatchWriterConfig configures a BatchWriter
type BatchWriterConfig[T any] struct {
	FlushFunc FlushFunc[T]
	TableName string
	// MaxBatchSize rows trigger an inline flush and cap each insert (500)
	MaxBatchSize int
	// MaxAge is the flush loop period (5s)
	MaxAge time.Duration
	// MaxBuffered bounds rows kept across failed flushes (10 batches).
	// Beyond it the oldest rows are dropped.
	MaxBuffered int
}

// BatchWriter collects rows in memory and inserts them in batches, since
// ClickHouse handles few large inserts far better than many small ones.
// Rows from a failed insert stay buffered and are retried on the next flush.
type BatchWriter[T any] struct {
	cfg BatchWriterConfig[T]
	log *logger.Logger

	mu      sync.Mutex
	buffer  []T
	dropped int64
	running bool
	stop    chan struct{}
	done    chan struct{}

	// flushMu serializes inserts so retried rows keep their order
	flushMu sync.Mutex
}

// NewBatchWriter applies defaults to cfg
func NewBatchWriter[T any](cfg BatchWriterConfig[T]) *BatchWriter[T] {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 500
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 5 * time.Second
	}
	if cfg.MaxBuffered < cfg.MaxBatchSize {
		cfg.MaxBuffered = 10 * cfg.MaxBatchSize
	}
	return &BatchWriter[T]{
		cfg: cfg,
		log: logger.Get().With("component", "batch_writer", "table", cfg.TableName),
	}
}

// Add buffers rows and flushes inline once a full batch is waiting
func (w *BatchWriter[T]) Add(ctx context.Context, rows ...T) error {
	w.mu.Lock()
	w.buffer = append(w.buffer, rows...)
	w.trimLocked()
	full := len(w.buffer) >= w.cfg.MaxBatchSize
	w.mu.Unlock()

	if !full {
		return nil
	}
	return w.Flush(ctx)
}

// Flush inserts everything buffered, MaxBatchSize rows at a time. On
// failure the unwritten rows go back to the front of the buffer.
func (w *BatchWriter[T]) Flush(ctx context.Context) error {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	pending := w.buffer
	w.buffer = nil
	w.mu.Unlock()

	for len(pending) > 0 {
		n := min(len(pending), w.cfg.MaxBatchSize)
		start := time.Now()
		if err := w.cfg.FlushFunc(ctx, pending[:n]); err != nil {
			w.requeue(pending)
			w.log.Errorw("Batch insert failed, rows kept for retry", "rows", len(pending), "error", err, "took", time.Since(start))
			return err
		}
		w.log.Debugw("Batch inserted", "rows", n, "took", time.Since(start))
		pending = pending[n:]
	}
	return nil
}

// requeue puts failed rows ahead of anything added meanwhile
func (w *BatchWriter[T]) requeue(rows []T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer = append(append(make([]T, 0, len(rows)+len(w.buffer)), rows...), w.buffer...)
	w.trimLocked()
}

func (w *BatchWriter[T]) trimLocked() {
	over := len(w.buffer) - w.cfg.MaxBuffered
	if over <= 0 {
		return
	}
	w.buffer = append([]T(nil), w.buffer[over:]...)
	w.dropped += int64(over)
	w.log.Warnw("Batch buffer full, dropped oldest rows", "dropped", over, "total_dropped", w.dropped)
}

// Start runs the periodic flush loop until ctx ends or Stop is called.
// Either way the loop makes a final flush before exiting.
func (w *BatchWriter[T]) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stop = make(chan struct{})
	w.done = make(chan struct{})

	go w.loop(ctx, w.stop, w.done)
	w.log.Infow("Batch writer started", "max_batch", w.cfg.MaxBatchSize, "max_age", w.cfg.MaxAge)
}

func (w *BatchWriter[T]) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.cfg.MaxAge)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if w.BufferSize() > 0 {
				_ = w.Flush(ctx)
			}
		case <-ctx.Done():
			w.finalFlush()
			return
		case <-stop:
			w.finalFlush()
			return
		}
	}
}

func (w *BatchWriter[T]) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.MaxAge)
	defer cancel()
	if err := w.Flush(ctx); err != nil {
		w.log.Errorw("Final flush failed", "rows", w.BufferSize(), "error", err)
	}
}

// Stop ends the loop and waits for its final flush, or for ctx
func (w *BatchWriter[T]) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stop)
	done := w.done
	w.mu.Unlock()

	select {
	case <-done:
		w.log.Info("Batch writer stopped")
		return nil
	case <-ctx.Done():
		w.log.Warn("Batch writer stop timed out")
		return ctx.Err()
	}
}

// BufferSize is the number of rows not yet written
func (w *BatchWriter[T]) BufferSize() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}

// Dropped is the number of rows discarded because the buffer was full
func (w *BatchWriter[T]) Dropped() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Running reports whether the flush loop is active
func (w *BatchWriter[T]) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
