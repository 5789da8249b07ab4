package workflowservice

import "time"

// Config holds routing thresholds and stage limits for the engine
type Config struct {
	// EscalationCeiling routes runs whose crisis score exceeds it straight to crisis escalation.
	// Zero escalates every non-zero score; values outside [0,1] fall back to the default.
	EscalationCeiling float64

	StageTimeout    time.Duration
	CollectTimeout  time.Duration
	ScoreTimeout    time.Duration
	GenerateTimeout time.Duration
	DispatchTimeout time.Duration
	// CancelGrace is how long an in-flight adapter call may take to return after cancellation
	CancelGrace time.Duration

	ScoringBatchSize    int
	ScoringConcurrency  int
	ApprovalConcurrency int

	// MonitorInterval, when set, is announced as the next autonomous cycle
	MonitorInterval time.Duration
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		EscalationCeiling:   0.8,
		StageTimeout:        30 * time.Second,
		DispatchTimeout:     10 * time.Second,
		CancelGrace:         2 * time.Second,
		ScoringBatchSize:    5,
		ScoringConcurrency:  4,
		ApprovalConcurrency: 4,
	}
}

func (c Config) timeout(stage time.Duration) time.Duration {
	if stage > 0 {
		return stage
	}
	return c.StageTimeout
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.EscalationCeiling < 0 || c.EscalationCeiling > 1 {
		c.EscalationCeiling = d.EscalationCeiling
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = d.StageTimeout
	}
	if c.DispatchTimeout <= 0 {
		c.DispatchTimeout = d.DispatchTimeout
	}
	if c.CancelGrace <= 0 {
		c.CancelGrace = d.CancelGrace
	}
	if c.ScoringBatchSize <= 0 {
		c.ScoringBatchSize = d.ScoringBatchSize
	}
	if c.ScoringConcurrency <= 0 {
		c.ScoringConcurrency = d.ScoringConcurrency
	}
	if c.ApprovalConcurrency <= 0 {
		c.ApprovalConcurrency = d.ApprovalConcurrency
	}
	return c
}
