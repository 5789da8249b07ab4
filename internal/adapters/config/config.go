package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"brandpulse/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Workflow      WorkflowConfig
	Approval      ApprovalConfig
	NewsAPI       NewsAPIConfig
	AI            AIConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Telegram      TelegramConfig
	ErrorTracking ErrorTrackingConfig
	Monitor       MonitorConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"brandpulse"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
	// TemplatesDir holds *.tmpl files that replace the built-in ones by ID
	TemplatesDir string `envconfig:"TEMPLATES_DIR"`
}

type HTTPConfig struct {
	Port            int           `envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

// WorkflowConfig holds engine routing thresholds and stage limits.
// The risk weights and thresholds are tunable defaults, not validated constants.
type WorkflowConfig struct {
	EscalationCeiling       float64 `envconfig:"WORKFLOW_ESCALATION_CEILING" default:"0.8"`
	SevereNegativeThreshold float64 `envconfig:"RISK_SEVERE_NEGATIVE_THRESHOLD" default:"-0.5"`
	ModerateBoundary        float64 `envconfig:"RISK_MODERATE_BOUNDARY" default:"0.3"`
	SevereBoundary          float64 `envconfig:"RISK_SEVERE_BOUNDARY" default:"0.6"`
	NegativeRatioWeight     float64 `envconfig:"RISK_NEGATIVE_RATIO_WEIGHT" default:"0.6"`
	IndicatorWeight         float64 `envconfig:"RISK_INDICATOR_WEIGHT" default:"0.4"`

	// StageTimeout applies to every adapter call unless a per-stage value is set
	StageTimeout    time.Duration `envconfig:"WORKFLOW_STAGE_TIMEOUT" default:"30s"`
	CollectTimeout  time.Duration `envconfig:"WORKFLOW_COLLECT_TIMEOUT"`
	ScoreTimeout    time.Duration `envconfig:"WORKFLOW_SCORE_TIMEOUT"`
	GenerateTimeout time.Duration `envconfig:"WORKFLOW_GENERATE_TIMEOUT"`
	DispatchTimeout time.Duration `envconfig:"WORKFLOW_DISPATCH_TIMEOUT" default:"10s"`
	CancelGrace     time.Duration `envconfig:"WORKFLOW_CANCEL_GRACE" default:"2s"`

	ScoringBatchSize    int `envconfig:"WORKFLOW_SCORING_BATCH_SIZE" default:"5"`
	ScoringConcurrency  int `envconfig:"WORKFLOW_SCORING_CONCURRENCY" default:"4"`
	ApprovalConcurrency int `envconfig:"WORKFLOW_APPROVAL_CONCURRENCY" default:"4"`
}

type ApprovalConfig struct {
	AutoApproveCeiling float64 `envconfig:"APPROVAL_AUTO_APPROVE_CEILING" default:"0.3"`
	HumanReviewFloor   float64 `envconfig:"APPROVAL_HUMAN_REVIEW_FLOOR" default:"0.7"`
	RejectQualityFloor float64 `envconfig:"APPROVAL_REJECT_QUALITY_FLOOR" default:"0.2"`
	// PolicyFile optionally overrides weights and contextual rules (YAML)
	PolicyFile              string   `envconfig:"APPROVAL_POLICY_FILE"`
	Timezone                string   `envconfig:"APPROVAL_TIMEZONE" default:"UTC"`
	BusinessHoursStart      int      `envconfig:"APPROVAL_BUSINESS_HOURS_START" default:"9"`
	BusinessHoursEnd        int      `envconfig:"APPROVAL_BUSINESS_HOURS_END" default:"17"`
	HighVisibilityPlatforms []string `envconfig:"APPROVAL_HIGH_VISIBILITY_PLATFORMS" default:"linkedin,news,television"`
}

type NewsAPIConfig struct {
	APIKey            string        `envconfig:"NEWS_API_KEY"`
	BaseURL           string        `envconfig:"NEWS_API_BASE_URL" default:"https://newsapi.org"`
	Language          string        `envconfig:"NEWS_API_LANGUAGE" default:"en"`
	RequestsPerMinute int           `envconfig:"NEWS_API_REQUESTS_PER_MINUTE" default:"30"`
	Timeout           time.Duration `envconfig:"NEWS_API_TIMEOUT" default:"10s"`
	MaxRetries        int           `envconfig:"NEWS_API_MAX_RETRIES" default:"1"`
}

type AIConfig struct {
	// Provider selects the generator: rules | openai | gemini
	Provider string `envconfig:"AI_PROVIDER" default:"rules"`
	// ScorerProvider selects the sentiment scorer: lexicon | openai | gemini
	ScorerProvider    string  `envconfig:"SCORER_PROVIDER" default:"lexicon"`
	OpenAIKey         string  `envconfig:"OPENAI_API_KEY"`
	OpenAIModel       string  `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	GeminiKey         string  `envconfig:"GEMINI_API_KEY"`
	GeminiModel       string  `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	Temperature       float64 `envconfig:"AI_TEMPERATURE" default:"0.2"`
	MaxOutputTokens   int     `envconfig:"AI_MAX_OUTPUT_TOKENS" default:"2048"`
	PromptTokenBudget int     `envconfig:"AI_PROMPT_TOKEN_BUDGET" default:"6000"`
	RequestsPerMinute int     `envconfig:"AI_REQUESTS_PER_MINUTE" default:"60"`
}

// Stores below are optional: an empty host disables the component.

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"brandpulse"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"brandpulse"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) Enabled() bool { return c.Host != "" }

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"brandpulse"`
	// Mentions are buffered by the server and flushed in batches
	BatchSize     int           `envconfig:"CLICKHOUSE_BATCH_SIZE" default:"500"`
	FlushInterval time.Duration `envconfig:"CLICKHOUSE_FLUSH_INTERVAL" default:"5s"`
}

func (c ClickHouseConfig) Enabled() bool { return c.Host != "" }

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	// FallbackTTL is how long a brand's last good document batch stays usable
	FallbackTTL time.Duration `envconfig:"REDIS_FALLBACK_TTL" default:"72h"`
}

func (c RedisConfig) Enabled() bool { return c.Host != "" }

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers  []string `envconfig:"KAFKA_BROKERS"`
	ClientID string   `envconfig:"KAFKA_CLIENT_ID" default:"brandpulse"`
	// GroupID is the consumer group for reviews.completed
	GroupID string `envconfig:"KAFKA_GROUP_ID" default:"brandpulse-reviews"`
	// FromLatest makes a new consumer group skip reviews completed before it existed
	FromLatest bool `envconfig:"KAFKA_FROM_LATEST" default:"false"`
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `envconfig:"TELEGRAM_ALERT_CHAT_ID"`
}

func (c TelegramConfig) Enabled() bool { return c.BotToken != "" && c.ChatID != 0 }

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// MonitorConfig drives the autonomous brand monitor worker
type MonitorConfig struct {
	Enabled      bool          `envconfig:"MONITOR_ENABLED" default:"false"`
	Brands       []string      `envconfig:"MONITOR_BRANDS"`
	Interval     time.Duration `envconfig:"MONITOR_INTERVAL" default:"300s"`
	MaxDocuments int           `envconfig:"MONITOR_MAX_DOCUMENTS" default:"10"`
	DaysBack     int           `envconfig:"MONITOR_DAYS_BACK" default:"7"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects threshold combinations the engine cannot route with
func (c *Config) Validate() error {
	var errs errors.ValidationErrors

	w := c.Workflow
	if w.EscalationCeiling < 0 || w.EscalationCeiling > 1 {
		errs = append(errs, errors.NewValidationError("WORKFLOW_ESCALATION_CEILING", "must be in [0,1]", w.EscalationCeiling))
	}
	if w.SevereNegativeThreshold < -1 || w.SevereNegativeThreshold > 0 {
		errs = append(errs, errors.NewValidationError("RISK_SEVERE_NEGATIVE_THRESHOLD", "must be in [-1,0]", w.SevereNegativeThreshold))
	}
	if !(0 < w.ModerateBoundary && w.ModerateBoundary < w.SevereBoundary && w.SevereBoundary < 1) {
		errs = append(errs, errors.NewValidationError("RISK_MODERATE_BOUNDARY", "boundaries must satisfy 0 < moderate < severe < 1",
			fmt.Sprintf("%v/%v", w.ModerateBoundary, w.SevereBoundary)))
	}
	if w.StageTimeout <= 0 {
		errs = append(errs, errors.NewValidationError("WORKFLOW_STAGE_TIMEOUT", "must be positive", w.StageTimeout))
	}
	if w.ScoringBatchSize <= 0 || w.ScoringConcurrency <= 0 || w.ApprovalConcurrency <= 0 {
		errs = append(errs, errors.NewValidationError("WORKFLOW_*_CONCURRENCY", "batch size and concurrency must be positive", nil))
	}

	a := c.Approval
	if !(0 <= a.AutoApproveCeiling && a.AutoApproveCeiling <= a.HumanReviewFloor && a.HumanReviewFloor <= 1) {
		errs = append(errs, errors.NewValidationError("APPROVAL_AUTO_APPROVE_CEILING", "thresholds must satisfy 0 <= auto <= review <= 1",
			fmt.Sprintf("%v/%v", a.AutoApproveCeiling, a.HumanReviewFloor)))
	}
	if a.BusinessHoursStart < 0 || a.BusinessHoursEnd > 24 || a.BusinessHoursStart >= a.BusinessHoursEnd {
		errs = append(errs, errors.NewValidationError("APPROVAL_BUSINESS_HOURS_START", "invalid business hours window",
			fmt.Sprintf("%d-%d", a.BusinessHoursStart, a.BusinessHoursEnd)))
	}
	if _, err := time.LoadLocation(a.Timezone); err != nil {
		errs = append(errs, errors.NewValidationError("APPROVAL_TIMEZONE", err.Error(), a.Timezone))
	}

	return errs.ToError()
}

// Timeout returns the per-stage timeout, falling back to StageTimeout
func (w WorkflowConfig) Timeout(stage time.Duration) time.Duration {
	if stage > 0 {
		return stage
	}
	return w.StageTimeout
}
