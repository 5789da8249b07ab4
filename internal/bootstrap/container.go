package bootstrap

import (
	"context"
	"sync"

	chclient "brandpulse/internal/adapters/clickhouse"
	"brandpulse/internal/adapters/config"
	"brandpulse/internal/adapters/kafka"
	pgclient "brandpulse/internal/adapters/postgres"
	redisclient "brandpulse/internal/adapters/redis"
	"brandpulse/internal/adapters/telegram"
	"brandpulse/internal/api"
	"brandpulse/internal/api/health"
	"brandpulse/internal/api/stream"
	"brandpulse/internal/consumers"
	"brandpulse/internal/domain/alert"
	"brandpulse/internal/domain/document"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/sentiment"
	"brandpulse/internal/events"
	chrepo "brandpulse/internal/repository/clickhouse"
	alertservice "brandpulse/internal/services/alert"
	approvalservice "brandpulse/internal/services/approval"
	riskservice "brandpulse/internal/services/risk"
	workflowservice "brandpulse/internal/services/workflow"
	"brandpulse/internal/workers"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
	"brandpulse/pkg/templates"
)

// Container holds all application dependencies and their lifecycle.
// Components are organized in initialization order. Every store and
// broker is optional: a zero-config container runs NewsAPI + lexicon +
// rules entirely in memory.
type Container struct {
	Version string

	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker
	Templates    *templates.Registry

	// Infrastructure Layer (Data stores), nil when not configured
	PG    *pgclient.Client
	CH    *chclient.Client
	Redis *redisclient.Client

	Repos       *Repositories
	Adapters    *Adapters
	Services    *Services
	Application *Application
	Background  *Background

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Repositories groups all domain repositories
type Repositories struct {
	Alerts        alert.Repository
	Mentions      sentiment.Repository
	DocumentCache document.Cache

	// MentionBuffer batches archive writes in server mode
	MentionBuffer *chrepo.BufferedMentionArchive
}

// Adapters groups all external adapters
type Adapters struct {
	KafkaProducer  *kafka.Producer
	ReviewConsumer *kafka.Consumer
	EventPublisher *events.Publisher

	TelegramBot   *telegram.Bot
	Notifications *telegram.NotificationService

	Source    document.Source
	Scorer    sentiment.Scorer
	Generator response.Generator
}

// Services groups the domain services
type Services struct {
	Aggregator *riskservice.Aggregator
	Policy     *approvalservice.PolicyEngine
	Alerts     *alertservice.Service
	Engine     *workflowservice.Engine
}

// Application groups application layer components
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
	StreamHub     *stream.Hub
}

// Background groups all background processing components
type Background struct {
	WorkerScheduler *workers.Scheduler
	ReviewSvc       *consumers.ReviewConsumer
}

// NewContainer creates a new dependency container
func NewContainer(version string) *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Version:     version,
		Repos:       &Repositories{},
		Adapters:    &Adapters{},
		Services:    &Services{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInitCore initializes everything a single analysis needs: config,
// stores, adapters and the workflow engine. The CLI stops here.
func (c *Container) MustInitCore() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitRepositories()
	c.MustInitAdapters()
	c.MustInitServices()
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitRepositories()
	c.MustInitMentionBuffer()
	c.MustInitAdapters()
	c.MustInitApplication()
	c.MustInitServices()
	c.MustInitServer()
	c.MustInitBackground()
}

// Start starts the HTTP server, consumers and workers
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	if c.Repos.MentionBuffer != nil {
		c.Repos.MentionBuffer.Start(c.Context)
	}

	if c.Background.ReviewSvc != nil {
		c.WG.Add(1)
		go func() {
			defer c.WG.Done()
			if err := c.Background.ReviewSvc.Start(c.Context); err != nil && c.Context.Err() == nil {
				c.Log.Errorw("Review consumer failed", "error", err)
			}
		}()
		c.Log.Info("✓ Review consumer started")
	}

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}

	c.Log.Info("✓ All systems operational")
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	c.Cancel()

	c.Lifecycle.Shutdown(c.WG, ShutdownTargets{
		HTTPServer:     c.Application.HTTPServer,
		Scheduler:      c.Background.WorkerScheduler,
		StreamHub:      c.Application.StreamHub,
		ReviewConsumer: c.Adapters.ReviewConsumer,
		MentionBuffer:  c.Repos.MentionBuffer,
		KafkaProducer:  c.Adapters.KafkaProducer,
		PG:             c.PG,
		CH:             c.CH,
		Redis:          c.Redis,
		ErrorTracker:   c.ErrorTracker,
	}, c.Log)
}

// Close releases what MustInitCore opened. Used by one-shot commands.
func (c *Container) Close() {
	c.Cancel()
	c.Lifecycle.Shutdown(c.WG, ShutdownTargets{
		KafkaProducer: c.Adapters.KafkaProducer,
		PG:            c.PG,
		CH:            c.CH,
		Redis:         c.Redis,
		ErrorTracker:  c.ErrorTracker,
	}, c.Log)
}
