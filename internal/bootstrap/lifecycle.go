package bootstrap

import (
	"context"
	"sync"
	"time"

	chclient "brandpulse/internal/adapters/clickhouse"
	"brandpulse/internal/adapters/kafka"
	pgclient "brandpulse/internal/adapters/postgres"
	redisclient "brandpulse/internal/adapters/redis"
	"brandpulse/internal/api"
	"brandpulse/internal/api/stream"
	chrepo "brandpulse/internal/repository/clickhouse"
	"brandpulse/internal/workers"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
)

// Lifecycle manages graceful shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 150 * time.Second,
	}
}

// ShutdownTargets lists what to stop. Nil entries are skipped.
type ShutdownTargets struct {
	HTTPServer     *api.Server
	Scheduler      *workers.Scheduler
	StreamHub      *stream.Hub
	ReviewConsumer *kafka.Consumer
	MentionBuffer  *chrepo.BufferedMentionArchive
	KafkaProducer  *kafka.Producer
	PG             *pgclient.Client
	CH             *chclient.Client
	Redis          *redisclient.Client
	ErrorTracker   errors.Tracker
}

// Shutdown performs coordinated cleanup in dependency order:
// 1. No new requests accepted
// 2. Monitor runs finish cleanly
// 3. Kafka consumer unblocks before waiting for goroutines
// 4. Producer closes after the last run has published
// 5. Errors and logs flushed
// 6. Database connections last
func (l *Lifecycle) Shutdown(wg *sync.WaitGroup, t ShutdownTargets, log *logger.Logger) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	log.Info("[1/7] Stopping HTTP server...")
	if t.HTTPServer != nil {
		httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 15*time.Second)
		if err := t.HTTPServer.Shutdown(httpCtx); err != nil {
			log.Errorw("HTTP server shutdown failed", "error", err)
		}
		httpCancel()
	}
	if t.StreamHub != nil {
		t.StreamHub.Close()
	}

	log.Info("[2/7] Stopping background workers...")
	if t.Scheduler != nil && t.Scheduler.IsRunning() {
		if err := t.Scheduler.Stop(); err != nil {
			log.Errorw("Workers shutdown failed", "error", err)
		} else {
			log.Info("✓ Workers stopped")
		}
	}

	// Critical: close the consumer BEFORE waiting, this unblocks ReadMessage()
	log.Info("[3/7] Closing Kafka consumer...")
	if t.ReviewConsumer != nil {
		if err := t.ReviewConsumer.Close(); err != nil {
			log.Errorw("Kafka consumer close failed", "error", err)
		}
	}

	log.Info("[4/7] Waiting for goroutines...")
	l.waitForGoroutines(wg, 10*time.Second, log)

	if t.MentionBuffer != nil {
		flushCtx, flushCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		if err := t.MentionBuffer.Stop(flushCtx); err != nil {
			log.Errorw("Mention archive flush failed", "error", err)
		}
		flushCancel()
	}

	log.Info("[5/7] Closing Kafka producer...")
	if t.KafkaProducer != nil {
		if err := t.KafkaProducer.Close(); err != nil {
			log.Errorw("Kafka producer close failed", "error", err)
		} else {
			log.Info("✓ Kafka producer closed")
		}
	}

	log.Info("[6/7] Flushing error tracker and logs...")
	l.flushErrorTracker(shutdownCtx, t.ErrorTracker, log)
	_ = logger.Sync()

	log.Info("[7/7] Closing database connections...")
	l.closeDatabases(t.PG, t.CH, t.Redis, log)

	log.Info("✅ Graceful shutdown complete")
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("✓ All goroutines finished")
	case <-time.After(timeout):
		log.Warnw("⚠ Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

// flushErrorTracker flushes the error tracker (Sentry, etc.)
func (l *Lifecycle) flushErrorTracker(ctx context.Context, tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Errorw("Error tracker flush failed", "error", err)
	}
}

// closeDatabases closes all database connections
func (l *Lifecycle) closeDatabases(
	pgClient *pgclient.Client,
	chClient *chclient.Client,
	redisClient *redisclient.Client,
	log *logger.Logger,
) {
	var errs errors.MultiError

	if pgClient != nil {
		errs.Add(errors.Wrap(pgClient.Close(), "postgres"))
	}
	if chClient != nil {
		errs.Add(errors.Wrap(chClient.Close(), "clickhouse"))
	}
	if redisClient != nil {
		errs.Add(errors.Wrap(redisClient.Close(), "redis"))
	}

	if err := errs.ToError(); err != nil {
		log.Errorw("Database close errors", "error", err)
	} else {
		log.Info("✓ Database connections closed")
	}
}
