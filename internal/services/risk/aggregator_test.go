package riskservice

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandpulse/internal/domain/risk"
	"brandpulse/internal/domain/sentiment"
)

func ann(label sentiment.Label, score float64) sentiment.Annotation {
	return sentiment.Annotation{Label: label, Score: score}
}

func repeat(n int, a sentiment.Annotation) []sentiment.Annotation {
	out := make([]sentiment.Annotation, n)
	for i := range out {
		out[i] = a
		out[i].DocumentID = fmt.Sprintf("doc-%d", i)
	}
	return out
}

func TestAggregator_Empty(t *testing.T) {
	agg := NewAggregator(DefaultConfig())

	for _, input := range [][]sentiment.Annotation{nil, {}} {
		got := agg.Assess(input)
		assert.Equal(t, 0.0, got.CrisisScore)
		assert.Equal(t, risk.LevelLow, got.CrisisLevel)
		assert.False(t, got.RequiresImmediateAttention)
		assert.Equal(t, 0.0, got.NegativeSentimentRatio)
		assert.Equal(t, 0, got.CrisisIndicatorCount)
	}
}

func TestAggregator_TenDocumentScenario(t *testing.T) {
	agg := NewAggregator(DefaultConfig())

	annotations := []sentiment.Annotation{ann(sentiment.LabelPositive, 0.5)}
	annotations = append(annotations, repeat(7, ann(sentiment.LabelNeutral, 0))...)
	annotations = append(annotations,
		ann(sentiment.LabelNegative, -0.6),
		ann(sentiment.LabelNegative, -0.4),
	)
	require.Len(t, annotations, 10)

	got := agg.Assess(annotations)

	assert.InDelta(t, 0.2, got.NegativeSentimentRatio, 1e-9)
	assert.Equal(t, 1, got.CrisisIndicatorCount)
	assert.InDelta(t, 0.16, got.CrisisScore, 1e-9)
	assert.Equal(t, risk.LevelLow, got.CrisisLevel)
	assert.False(t, got.RequiresImmediateAttention)
	assert.Equal(t, 1, got.PositiveCount)
	assert.Equal(t, 7, got.NeutralCount)
	assert.Equal(t, 2, got.NegativeCount)
}

func TestAggregator_Cases(t *testing.T) {
	agg := NewAggregator(DefaultConfig())

	tests := []struct {
		name       string
		input      []sentiment.Annotation
		wantScore  float64
		wantLevel  risk.Level
		wantCount  int
		wantAttend bool
	}{
		{
			name:      "all neutral",
			input:     repeat(5, ann(sentiment.LabelNeutral, 0)),
			wantScore: 0,
			wantLevel: risk.LevelLow,
		},
		{
			name:       "all severe negative",
			input:      repeat(4, ann(sentiment.LabelNegative, -0.9)),
			wantScore:  1.0,
			wantLevel:  risk.LevelSevere,
			wantCount:  4,
			wantAttend: true,
		},
		{
			name:      "mild negatives only count toward ratio",
			input:     repeat(3, ann(sentiment.LabelNegative, -0.2)),
			wantScore: 0.6,
			wantLevel: risk.LevelModerate,
		},
		{
			name: "indicator with majority negative requires attention",
			input: append(
				repeat(2, ann(sentiment.LabelNegative, -0.2)),
				ann(sentiment.LabelNegative, -0.5),
				ann(sentiment.LabelPositive, 0.8),
			),
			// ratio 0.75, indicators 1/4
			wantScore:  0.6*0.75 + 0.4*0.25,
			wantLevel:  risk.LevelModerate,
			wantCount:  1,
			wantAttend: true,
		},
		{
			name: "threshold is inclusive",
			input: []sentiment.Annotation{
				ann(sentiment.LabelNegative, -0.5),
				ann(sentiment.LabelNeutral, 0),
			},
			wantScore: 0.6*0.5 + 0.4*0.5,
			wantLevel: risk.LevelModerate,
			wantCount: 1,
		},
		{
			name: "very negative score on non-negative label still counts as indicator",
			input: []sentiment.Annotation{
				ann(sentiment.LabelNeutral, -0.7),
				ann(sentiment.LabelPositive, 0.4),
			},
			wantScore: 0.4 * 0.5,
			wantLevel: risk.LevelLow,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := agg.Assess(tt.input)
			assert.InDelta(t, tt.wantScore, got.CrisisScore, 1e-9)
			assert.Equal(t, tt.wantLevel, got.CrisisLevel)
			assert.Equal(t, tt.wantCount, got.CrisisIndicatorCount)
			assert.Equal(t, tt.wantAttend, got.RequiresImmediateAttention)
		})
	}
}

func TestAggregator_LevelBoundaries(t *testing.T) {
	agg := NewAggregator(DefaultConfig())

	assert.Equal(t, risk.LevelLow, agg.LevelFor(0))
	assert.Equal(t, risk.LevelLow, agg.LevelFor(0.29))
	assert.Equal(t, risk.LevelLow, agg.LevelFor(0.3))
	assert.Equal(t, risk.LevelModerate, agg.LevelFor(0.30001))
	assert.Equal(t, risk.LevelModerate, agg.LevelFor(0.6))
	assert.Equal(t, risk.LevelSevere, agg.LevelFor(0.60001))
	assert.Equal(t, risk.LevelSevere, agg.LevelFor(1))
}

func TestAggregator_AttentionAboveSevereBoundary(t *testing.T) {
	agg := NewAggregator(DefaultConfig())

	// ratio 1.0, no indicators: score 0.6 exactly, moderate, no attention
	got := agg.Assess(repeat(5, ann(sentiment.LabelNegative, -0.3)))
	assert.InDelta(t, 0.6, got.CrisisScore, 1e-9)
	assert.Equal(t, risk.LevelModerate, got.CrisisLevel)
	assert.False(t, got.RequiresImmediateAttention)
}

func TestAggregator_CustomConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SevereNegativeThreshold = -0.3
	agg := NewAggregator(cfg)

	got := agg.Assess([]sentiment.Annotation{ann(sentiment.LabelNegative, -0.4), ann(sentiment.LabelNeutral, 0)})
	assert.Equal(t, 1, got.CrisisIndicatorCount)
}

func TestAggregator_RangeProperty(t *testing.T) {
	agg := NewAggregator(DefaultConfig())
	rng := rand.New(rand.NewSource(42))
	labels := []sentiment.Label{sentiment.LabelPositive, sentiment.LabelNeutral, sentiment.LabelNegative}

	for i := 0; i < 500; i++ {
		n := rng.Intn(30)
		input := make([]sentiment.Annotation, n)
		for j := range input {
			input[j] = ann(labels[rng.Intn(len(labels))], rng.Float64()*2-1)
		}

		got := agg.Assess(input)

		require.GreaterOrEqual(t, got.CrisisScore, 0.0)
		require.LessOrEqual(t, got.CrisisScore, 1.0)
		require.Equal(t, agg.LevelFor(got.CrisisScore), got.CrisisLevel)
		require.Equal(t, n, got.PositiveCount+got.NeutralCount+got.NegativeCount)
		require.Equal(t, got, agg.Assess(input), "assessment must be deterministic")
	}
}
