package workers

import (
	"context"
	"sync"
	"time"

	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
)

// Worker is a periodic background job. The scheduler calls Run once per
// Interval while Enabled reports true.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
	Interval() time.Duration
	Enabled() bool
}

// HealthReporter is implemented by workers that embed BaseWorker
type HealthReporter interface {
	Health() WorkerHealth
	RecordRun(duration time.Duration)
	RecordError(err error, duration time.Duration)
}

// WorkerHealth is a snapshot of a worker's run history
type WorkerHealth struct {
	Enabled             bool
	LastRun             time.Time
	LastSuccess         time.Time
	LastError           error
	RunCount            int64
	ErrorCount          int64
	ConsecutiveFailures int
	AvgDuration         time.Duration
}

// BaseWorker carries the name, schedule and run history a worker needs.
// Embed it and implement Run.
type BaseWorker struct {
	name     string
	interval time.Duration
	enabled  bool
	log      *logger.Logger

	mu    sync.RWMutex
	stats WorkerHealth
	total time.Duration
}

// NewBaseWorker creates a new base worker
func NewBaseWorker(name string, interval time.Duration, enabled bool) *BaseWorker {
	return &BaseWorker{
		name:     name,
		interval: interval,
		enabled:  enabled,
		log:      logger.Get().With("worker", name),
	}
}

func (w *BaseWorker) Name() string            { return w.name }
func (w *BaseWorker) Interval() time.Duration { return w.interval }
func (w *BaseWorker) Enabled() bool           { return w.enabled }
func (w *BaseWorker) Log() *logger.Logger     { return w.log }

// Health returns a copy of the run history
func (w *BaseWorker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()

	h := w.stats
	h.Enabled = w.enabled
	if h.RunCount > 0 {
		h.AvgDuration = w.total / time.Duration(h.RunCount)
	}
	return h
}

// RecordRun records a successful run and resets the failure streak
func (w *BaseWorker) RecordRun(duration time.Duration) {
	w.record(duration, nil)
}

// RecordError records a failed run
func (w *BaseWorker) RecordError(err error, duration time.Duration) {
	w.record(duration, err)
}

func (w *BaseWorker) record(duration time.Duration, err error) {
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.stats.LastRun = now
	w.stats.RunCount++
	w.stats.LastError = err
	w.total += duration

	if err != nil {
		w.stats.ErrorCount++
		w.stats.ConsecutiveFailures++
		return
	}
	w.stats.LastSuccess = now
	w.stats.ConsecutiveFailures = 0
}

// HealthCheck turns a worker's run history into a readiness probe. The
// probe fails once the worker has failed maxFailures runs in a row. A
// disabled worker is always healthy.
func HealthCheck(r HealthReporter, maxFailures int) func(ctx context.Context) error {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return func(ctx context.Context) error {
		h := r.Health()
		if !h.Enabled || h.ConsecutiveFailures < maxFailures {
			return nil
		}
		return errors.Wrapf(h.LastError, "%d consecutive failed runs", h.ConsecutiveFailures)
	}
}
