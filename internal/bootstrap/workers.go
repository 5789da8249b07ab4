package bootstrap

import (
	"brandpulse/internal/adapters/kafka"
	"brandpulse/internal/consumers"
	"brandpulse/internal/workers"
	"brandpulse/internal/workers/monitor"
)

// ===== Phase 8: Background =====

// MustInitBackground creates the worker scheduler and Kafka consumers
func (c *Container) MustInitBackground() {
	c.Background.WorkerScheduler = provideWorkers(c)

	if c.Config.Kafka.Enabled() && c.Services.Alerts != nil {
		c.Adapters.ReviewConsumer = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:    c.Config.Kafka.Brokers,
			GroupID:    c.Config.Kafka.GroupID,
			Topic:      kafka.TopicReviewsCompleted,
			FromLatest: c.Config.Kafka.FromLatest,
		})
		c.Background.ReviewSvc = consumers.NewReviewConsumer(c.Adapters.ReviewConsumer, c.Services.Alerts, c.Log)
		c.Log.Infow("✓ Review consumer initialized", "topic", kafka.TopicReviewsCompleted, "group", c.Config.Kafka.GroupID)
	}

	c.Log.Info("✓ Background workers initialized")
}

// monitorFailureLimit is how many failed monitor runs in a row mark the
// service unready
const monitorFailureLimit = 3

// provideWorkers registers the periodic workers with the scheduler
func provideWorkers(c *Container) *workers.Scheduler {
	scheduler := workers.NewScheduler()

	var locker monitor.Locker
	if c.Redis != nil {
		locker = c.Redis
	}
	var publisher monitor.RunPublisher
	if c.Adapters.EventPublisher != nil {
		publisher = c.Adapters.EventPublisher
	}

	cfg := c.Config.Monitor
	brandMonitor := monitor.NewBrandMonitor(c.Services.Engine, locker, publisher, monitor.Config{
		Brands:       cfg.Brands,
		Interval:     cfg.Interval,
		MaxDocuments: cfg.MaxDocuments,
		DaysBack:     cfg.DaysBack,
		Enabled:      cfg.Enabled,
	})
	scheduler.RegisterWorker(brandMonitor)

	if brandMonitor.Enabled() {
		if c.Application.HealthHandler != nil {
			c.Application.HealthHandler.Register(brandMonitor.Name(), workers.HealthCheck(brandMonitor, monitorFailureLimit))
		}
		c.Log.Infow("Brand monitor enabled", "brands", cfg.Brands, "interval", cfg.Interval)
	}

	return scheduler
}
