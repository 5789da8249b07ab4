package bootstrap

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"brandpulse/internal/adapters/ai"
	chclient "brandpulse/internal/adapters/clickhouse"
	"brandpulse/internal/adapters/config"
	errnoop "brandpulse/internal/adapters/errors/noop"
	"brandpulse/internal/adapters/errors/sentry"
	"brandpulse/internal/adapters/kafka"
	"brandpulse/internal/adapters/newsapi"
	pgclient "brandpulse/internal/adapters/postgres"
	redisclient "brandpulse/internal/adapters/redis"
	"brandpulse/internal/adapters/telegram"
	"brandpulse/internal/api"
	"brandpulse/internal/api/health"
	"brandpulse/internal/api/stream"
	"brandpulse/internal/domain/alert"
	"brandpulse/internal/domain/approval"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/sentiment"
	"brandpulse/internal/domain/workflow"
	"brandpulse/internal/events"
	"brandpulse/internal/metrics"
	chrepo "brandpulse/internal/repository/clickhouse"
	pgrepo "brandpulse/internal/repository/postgres"
	redisrepo "brandpulse/internal/repository/redis"
	alertservice "brandpulse/internal/services/alert"
	approvalservice "brandpulse/internal/services/approval"
	recommendationservice "brandpulse/internal/services/recommendation"
	riskservice "brandpulse/internal/services/risk"
	sentimentservice "brandpulse/internal/services/sentiment"
	workflowservice "brandpulse/internal/services/workflow"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
	"brandpulse/pkg/templates"
)

const (
	scorerLexicon  = "lexicon"
	generatorRules = "rules"
)

// ===== Phase 1: Config & Logging =====

// MustInitConfig loads configuration and sets up logging and error tracking
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic(errors.Wrap(err, "failed to load config"))
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic(errors.Wrap(err, "failed to init logger"))
	}
	c.Log = logger.Get()
	c.Log.Infow("Starting Brandpulse", "version", c.Version, "env", cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Version, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)

	c.Templates, err = templates.WithOverrides(cfg.App.TemplatesDir)
	if err != nil {
		c.Log.Fatalf("Failed to load templates: %v", err)
	}
	if cfg.App.TemplatesDir != "" {
		c.Log.Infow("Template overrides loaded", "dir", cfg.App.TemplatesDir)
	}
	metrics.Init()
}

func provideErrorTracker(cfg *config.Config, version string, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, version)
	if err != nil {
		log.Warnw("Sentry init failed, error tracking disabled", "error", err)
		return errnoop.New()
	}

	log.Infow("✓ Error tracking enabled", "provider", cfg.ErrorTracking.Provider)
	return tracker
}

// ===== Phase 2: Infrastructure =====

// MustInitInfrastructure connects the configured stores
func (c *Container) MustInitInfrastructure() {
	var err error

	if c.Config.Postgres.Enabled() {
		c.PG, err = pgclient.NewClient(c.Config.Postgres)
		if err != nil {
			c.Log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		if err := c.PG.EnsureSchema(c.Context); err != nil {
			c.Log.Fatalf("Failed to prepare PostgreSQL schema: %v", err)
		}
		c.Log.Info("✓ PostgreSQL connected")
	}

	if c.Config.ClickHouse.Enabled() {
		c.CH, err = chclient.NewClient(c.Config.ClickHouse)
		if err != nil {
			c.Log.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
		if err := c.CH.EnsureSchema(c.Context); err != nil {
			c.Log.Fatalf("Failed to prepare ClickHouse schema: %v", err)
		}
		c.Log.Info("✓ ClickHouse connected")
	}

	if c.Config.Redis.Enabled() {
		c.Redis, err = redisclient.NewClient(c.Config.Redis)
		if err != nil {
			c.Log.Fatalf("Failed to connect to Redis: %v", err)
		}
		c.Log.Info("✓ Redis connected")
	}

	provideStoreCollector(c.PG, c.CH, c.Log)
}

func provideStoreCollector(pg *pgclient.Client, ch *chclient.Client, log *logger.Logger) {
	if pg == nil && ch == nil {
		return
	}
	collector := metrics.NewStoreCollector(log, pgDB(pg), chConn(ch))
	if err := prometheus.Register(collector); err != nil {
		log.Warnw("Store metrics collector not registered", "error", err)
	}
}

// ===== Phase 3: Repositories =====

// MustInitRepositories creates the repositories for the connected stores
func (c *Container) MustInitRepositories() {
	if c.PG != nil {
		c.Repos.Alerts = pgrepo.NewAlertRepository(c.PG.DB())
	}
	if c.CH != nil {
		c.Repos.Mentions = chrepo.NewMentionRepository(c.CH.Conn())
	}
	if c.Redis != nil {
		c.Repos.DocumentCache = redisrepo.NewDocumentCache(c.Redis, c.Config.Redis.FallbackTTL)
	}
	c.Log.Info("✓ Repositories initialized")
}

// MustInitMentionBuffer puts a batch writer in front of the mention archive
func (c *Container) MustInitMentionBuffer() {
	if c.Repos.Mentions == nil {
		return
	}
	c.Repos.MentionBuffer = chrepo.NewBufferedMentionArchive(
		c.Repos.Mentions,
		c.Config.ClickHouse.BatchSize,
		c.Config.ClickHouse.FlushInterval,
	)
	c.Repos.Mentions = c.Repos.MentionBuffer
	c.Log.Info("✓ Mention archive buffering enabled")
}

// ===== Phase 4: Adapters =====

// MustInitAdapters creates the document source, AI adapters and brokers
func (c *Container) MustInitAdapters() {
	cfg := c.Config

	if cfg.Kafka.Enabled() {
		c.Adapters.KafkaProducer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
		})
		c.Adapters.EventPublisher = events.NewPublisher(c.Adapters.KafkaProducer, cfg.App.Name, c.Log)
		c.Log.Infow("✓ Kafka producer initialized", "brokers", cfg.Kafka.Brokers)
	}

	if cfg.Telegram.Enabled() {
		bot, err := telegram.NewBot(telegram.Config{
			Token:      cfg.Telegram.BotToken,
			Debug:      cfg.App.Debug,
			MaxRetries: 2,
		}, c.Log)
		if err != nil {
			c.Log.Fatalf("Failed to create Telegram bot: %v", err)
		}
		c.Adapters.TelegramBot = bot
		c.Adapters.Notifications = telegram.NewNotificationService(bot, c.Templates, cfg.Telegram.ChatID, c.Log)
		c.Log.Info("✓ Telegram notifications enabled")
	}

	if cfg.NewsAPI.APIKey == "" {
		c.Log.Warn("NEWS_API_KEY is empty, every collection will report the source unavailable")
	}
	c.Adapters.Source = newsapi.NewClient(cfg.NewsAPI)

	var err error
	c.Adapters.Scorer, err = provideScorer(c.Context, cfg.AI, c.redisClient(), c.Templates)
	if err != nil {
		c.Log.Fatalf("Failed to create sentiment scorer: %v", err)
	}
	c.Adapters.Generator, err = provideGenerator(c.Context, cfg.AI, c.redisClient(), c.Templates)
	if err != nil {
		c.Log.Fatalf("Failed to create response generator: %v", err)
	}

	c.Log.Infow("✓ Adapters initialized",
		"scorer", cfg.AI.ScorerProvider,
		"generator", cfg.AI.Provider,
	)
}

// provideCompleter builds the chat completer for a provider. The rate
// limiter is shared across replicas when Redis is available.
func provideCompleter(ctx context.Context, cfg config.AIConfig, provider ai.ProviderName, rdb *goredis.Client) (ai.Completer, error) {
	limiter := ai.NewRateLimiter(provider, cfg.RequestsPerMinute, rdb)

	switch provider {
	case ai.ProviderNameOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, errors.Wrap(errors.ErrInvalidInput, "OPENAI_API_KEY is required")
		}
		return ai.NewOpenAICompleter(cfg.OpenAIKey, cfg.OpenAIModel, limiter, 60*time.Second)
	case ai.ProviderNameGemini:
		if cfg.GeminiKey == "" {
			return nil, errors.Wrap(errors.ErrInvalidInput, "GEMINI_API_KEY is required")
		}
		return ai.NewGeminiCompleter(ctx, cfg.GeminiKey, cfg.GeminiModel, limiter)
	}
	return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown AI provider %q", provider)
}

func provideBudget(cfg config.AIConfig, c ai.Completer) *ai.Budget {
	return ai.NewBudget(ai.NewTiktokenCounter(c.Model()), cfg.PromptTokenBudget)
}

func provideScorer(ctx context.Context, cfg config.AIConfig, rdb *goredis.Client, reg *templates.Registry) (sentiment.Scorer, error) {
	name := ai.NormalizeProviderName(cfg.ScorerProvider)
	if name == "" || name == scorerLexicon {
		return sentimentservice.NewLexiconScorer(), nil
	}

	completer, err := provideCompleter(ctx, cfg, name, rdb)
	if err != nil {
		return nil, err
	}
	return sentimentservice.NewLLMScorer(completer, provideBudget(cfg, completer), reg, cfg.Temperature, cfg.MaxOutputTokens), nil
}

func provideGenerator(ctx context.Context, cfg config.AIConfig, rdb *goredis.Client, reg *templates.Registry) (response.Generator, error) {
	name := ai.NormalizeProviderName(cfg.Provider)
	if name == "" || name == generatorRules {
		return recommendationservice.NewRulesGenerator(reg), nil
	}

	completer, err := provideCompleter(ctx, cfg, name, rdb)
	if err != nil {
		return nil, err
	}
	return recommendationservice.NewLLMGenerator(completer, provideBudget(cfg, completer), reg, recommendationservice.LLMConfig{
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}), nil
}

// ===== Phase 5: Application =====

// MustInitApplication creates health checks and the live stream hub
func (c *Container) MustInitApplication() {
	c.Application.HealthHandler = provideHealthHandler(c)
	c.Application.StreamHub = stream.NewHub(c.Log)
	c.Log.Info("✓ Application layer initialized")
}

func provideHealthHandler(c *Container) *health.Handler {
	h := health.New(c.Log, c.Config.App.Name, c.Version)
	if c.PG != nil {
		h.Register("postgres", c.PG.Health)
	}
	if c.CH != nil {
		h.Register("clickhouse", c.CH.Health)
	}
	if c.Redis != nil {
		h.Register("redis", c.Redis.Health)
	}
	return h
}

// ===== Phase 6: Domain Services =====

// MustInitServices creates the risk, approval and alert services and the
// workflow engine that sequences them
func (c *Container) MustInitServices() {
	cfg := c.Config

	c.Services.Aggregator = riskservice.NewAggregator(riskservice.Config{
		SevereNegativeThreshold: cfg.Workflow.SevereNegativeThreshold,
		ModerateBoundary:        cfg.Workflow.ModerateBoundary,
		SevereBoundary:          cfg.Workflow.SevereBoundary,
		NegativeRatioWeight:     cfg.Workflow.NegativeRatioWeight,
		IndicatorWeight:         cfg.Workflow.IndicatorWeight,
	})

	policy, err := providePolicy(cfg.Approval)
	if err != nil {
		c.Log.Fatalf("Failed to create approval policy: %v", err)
	}
	c.Services.Policy = policy

	if c.Repos.Alerts != nil {
		c.Services.Alerts = alertservice.NewService(c.Repos.Alerts, c.eventPublisher(), c.notifier())
		c.Log.Info("✓ Alert service initialized")
	} else {
		c.Log.Warn("PostgreSQL disabled: reviews, escalations and publishing are skipped")
	}

	c.Services.Engine, err = workflowservice.New(workflowservice.Config{
		EscalationCeiling:   cfg.Workflow.EscalationCeiling,
		StageTimeout:        cfg.Workflow.StageTimeout,
		CollectTimeout:      cfg.Workflow.CollectTimeout,
		ScoreTimeout:        cfg.Workflow.ScoreTimeout,
		GenerateTimeout:     cfg.Workflow.GenerateTimeout,
		DispatchTimeout:     cfg.Workflow.DispatchTimeout,
		CancelGrace:         cfg.Workflow.CancelGrace,
		ScoringBatchSize:    cfg.Workflow.ScoringBatchSize,
		ScoringConcurrency:  cfg.Workflow.ScoringConcurrency,
		ApprovalConcurrency: cfg.Workflow.ApprovalConcurrency,
		MonitorInterval:     c.monitorInterval(),
	}, c.engineDeps())
	if err != nil {
		c.Log.Fatalf("Failed to create workflow engine: %v", err)
	}

	c.Log.Info("✓ Workflow engine initialized")
}

func providePolicy(cfg config.ApprovalConfig) (*approvalservice.PolicyEngine, error) {
	base := approvalservice.DefaultConfig()
	base.LowThreshold = cfg.AutoApproveCeiling
	base.HighThreshold = cfg.HumanReviewFloor
	base.RejectQualityFloor = cfg.RejectQualityFloor
	base.BusinessHoursStart = cfg.BusinessHoursStart
	base.BusinessHoursEnd = cfg.BusinessHoursEnd
	base.HighVisibilityPlatforms = cfg.HighVisibilityPlatforms

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "timezone %q", cfg.Timezone)
	}
	base.Location = loc

	if cfg.PolicyFile != "" {
		base, err = approvalservice.LoadPolicyFile(cfg.PolicyFile, base)
		if err != nil {
			return nil, err
		}
	}

	return approvalservice.NewPolicyEngine(base)
}

// engineDeps assembles the engine collaborators. Optional interfaces stay
// untyped nil when their backing component is disabled.
func (c *Container) engineDeps() workflowservice.Deps {
	deps := workflowservice.Deps{
		Source:    c.Adapters.Source,
		Scorer:    c.Adapters.Scorer,
		Assessor:  c.Services.Aggregator,
		Generator: c.Adapters.Generator,
		Policy:    c.Services.Policy,
		Tracker:   c.ErrorTracker,
	}

	if c.Repos.DocumentCache != nil {
		deps.Fallback = c.Repos.DocumentCache
		deps.Cache = c.Repos.DocumentCache
	}
	if c.Repos.Mentions != nil {
		deps.Archive = c.Repos.Mentions
	}
	if c.Services.Alerts != nil {
		var (
			publisher approval.Publisher   = c.Services.Alerts
			reviews   approval.ReviewQueue = c.Services.Alerts
			escalator alert.Escalator      = c.Services.Alerts
		)
		deps.Publisher, deps.Reviews, deps.Escalator = publisher, reviews, escalator
	}
	if c.Application.StreamHub != nil {
		var observer workflow.Observer = c.Application.StreamHub
		deps.Observer = observer
	}

	return deps
}

// ===== Phase 7: HTTP =====

// MustInitServer creates the HTTP server
func (c *Container) MustInitServer() {
	var alerts api.AlertService
	if c.Services.Alerts != nil {
		alerts = c.Services.Alerts
	}

	c.Application.HTTPServer = api.NewServer(
		api.ServerConfig{
			Port:         c.Config.HTTP.Port,
			ServiceName:  c.Config.App.Name,
			Version:      c.Version,
			Debug:        c.Config.App.Debug,
			ReadTimeout:  c.Config.HTTP.ReadTimeout,
			WriteTimeout: c.Config.HTTP.WriteTimeout,
		},
		c.Application.HealthHandler,
		c.Services.Engine,
		alerts,
		c.Application.StreamHub,
		c.Log,
	)
	c.Log.Info("✓ HTTP server initialized")
}

// Helpers keeping optional components out of interface values when disabled

func (c *Container) redisClient() *goredis.Client {
	if c.Redis == nil {
		return nil
	}
	return c.Redis.Client()
}

func (c *Container) eventPublisher() alertservice.EventPublisher {
	if c.Adapters.EventPublisher == nil {
		return nil
	}
	return c.Adapters.EventPublisher
}

func (c *Container) notifier() alertservice.Notifier {
	if c.Adapters.Notifications == nil {
		return nil
	}
	return c.Adapters.Notifications
}

func (c *Container) monitorInterval() time.Duration {
	if c.Config.Monitor.Enabled && len(c.Config.Monitor.Brands) > 0 {
		return c.Config.Monitor.Interval
	}
	return 0
}

func pgDB(pg *pgclient.Client) *sqlx.DB {
	if pg == nil {
		return nil
	}
	return pg.DB()
}

func chConn(ch *chclient.Client) driver.Conn {
	if ch == nil {
		return nil
	}
	return ch.Conn()
}
