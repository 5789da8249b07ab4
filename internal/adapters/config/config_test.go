package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandpulse/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.8, cfg.Workflow.EscalationCeiling)
	assert.Equal(t, 0.3, cfg.Approval.AutoApproveCeiling)
	assert.Equal(t, 0.7, cfg.Approval.HumanReviewFloor)
	assert.Equal(t, 30*time.Second, cfg.Workflow.StageTimeout)
	assert.Equal(t, 2*time.Second, cfg.Workflow.CancelGrace)
	assert.Equal(t, []string{"linkedin", "news", "television"}, cfg.Approval.HighVisibilityPlatforms)
	assert.Equal(t, 300*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, "lexicon", cfg.AI.ScorerProvider)
	assert.Equal(t, "rules", cfg.AI.Provider)

	assert.False(t, cfg.Postgres.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Telegram.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("MONITOR_BRANDS", "Acme,Globex")
	t.Setenv("WORKFLOW_SCORE_TIMEOUT", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"Acme", "Globex"}, cfg.Monitor.Brands)
	assert.Equal(t, 45*time.Second, cfg.Workflow.Timeout(cfg.Workflow.ScoreTimeout))
	assert.Equal(t, 30*time.Second, cfg.Workflow.Timeout(cfg.Workflow.CollectTimeout))
}

func TestLoad_RejectsInvertedThresholds(t *testing.T) {
	t.Setenv("APPROVAL_AUTO_APPROVE_CEILING", "0.8")
	t.Setenv("APPROVAL_HUMAN_REVIEW_FLOOR", "0.4")

	_, err := Load()
	require.Error(t, err)

	var verrs errors.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "APPROVAL_AUTO_APPROVE_CEILING", verrs[0].Field)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := Load()
		require.NoError(t, err)
		return *cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"escalation ceiling above one", func(c *Config) { c.Workflow.EscalationCeiling = 1.2 }, "WORKFLOW_ESCALATION_CEILING"},
		{"negative escalation ceiling", func(c *Config) { c.Workflow.EscalationCeiling = -0.1 }, "WORKFLOW_ESCALATION_CEILING"},
		{"positive severe threshold", func(c *Config) { c.Workflow.SevereNegativeThreshold = 0.1 }, "RISK_SEVERE_NEGATIVE_THRESHOLD"},
		{"boundaries out of order", func(c *Config) { c.Workflow.ModerateBoundary = 0.7 }, "RISK_MODERATE_BOUNDARY"},
		{"zero stage timeout", func(c *Config) { c.Workflow.StageTimeout = 0 }, "WORKFLOW_STAGE_TIMEOUT"},
		{"zero concurrency", func(c *Config) { c.Workflow.ScoringConcurrency = 0 }, "WORKFLOW_*_CONCURRENCY"},
		{"empty business hours", func(c *Config) { c.Approval.BusinessHoursEnd = c.Approval.BusinessHoursStart }, "APPROVAL_BUSINESS_HOURS_START"},
		{"unknown timezone", func(c *Config) { c.Approval.Timezone = "Mars/Olympus" }, "APPROVAL_TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidRequest)

			var verrs errors.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestValidate_ZeroEscalationCeiling(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Workflow.EscalationCeiling = 0
	assert.NoError(t, cfg.Validate())
}
