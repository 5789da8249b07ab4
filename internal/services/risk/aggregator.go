package riskservice

import (
	"math"

	"brandpulse/internal/domain/risk"
	"brandpulse/internal/domain/sentiment"
)

// Config holds aggregation thresholds. Boundary values belong to the lower bucket.
type Config struct {
	SevereNegativeThreshold float64
	ModerateBoundary        float64
	SevereBoundary          float64
	NegativeRatioWeight     float64
	IndicatorWeight         float64
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		SevereNegativeThreshold: -0.5,
		ModerateBoundary:        0.3,
		SevereBoundary:          0.6,
		NegativeRatioWeight:     0.6,
		IndicatorWeight:         0.4,
	}
}

// Aggregator reduces sentiment annotations to a crisis assessment.
// It holds no state between calls and is safe for concurrent use.
type Aggregator struct {
	cfg Config
}

// NewAggregator creates an aggregator
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Assess computes the crisis signal over a complete annotation set.
// An empty set yields a zero, low-level assessment.
func (a *Aggregator) Assess(annotations []sentiment.Annotation) risk.Assessment {
	total := len(annotations)
	result := risk.Assessment{
		CrisisLevel:      risk.LevelLow,
		TotalAnnotations: total,
	}
	if total == 0 {
		return result
	}

	for _, ann := range annotations {
		switch ann.Label {
		case sentiment.LabelNegative:
			result.NegativeCount++
		case sentiment.LabelPositive:
			result.PositiveCount++
		default:
			result.NeutralCount++
		}
		if ann.Score <= a.cfg.SevereNegativeThreshold {
			result.CrisisIndicatorCount++
		}
	}

	result.NegativeSentimentRatio = float64(result.NegativeCount) / float64(total)
	indicatorShare := math.Min(1, float64(result.CrisisIndicatorCount)/float64(total))

	score := a.cfg.NegativeRatioWeight*result.NegativeSentimentRatio + a.cfg.IndicatorWeight*indicatorShare
	result.CrisisScore = clamp01(score)
	result.CrisisLevel = a.LevelFor(result.CrisisScore)
	result.RequiresImmediateAttention = result.CrisisScore > a.cfg.SevereBoundary ||
		(result.CrisisIndicatorCount > 0 && result.NegativeSentimentRatio > 0.5)

	return result
}

// LevelFor buckets a crisis score
func (a *Aggregator) LevelFor(score float64) risk.Level {
	switch {
	case score <= a.cfg.ModerateBoundary:
		return risk.LevelLow
	case score <= a.cfg.SevereBoundary:
		return risk.LevelModerate
	default:
		return risk.LevelSevere
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
