package approvalservice

import (
	"fmt"
	"math"
	"strings"
	"time"

	"brandpulse/internal/domain/approval"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/risk"
	"brandpulse/pkg/errors"
)

// Weights of the composite approval risk. They must sum to 1.
type Weights struct {
	QualityDeficit          float64 `yaml:"quality_deficit"`
	SentimentUrgency        float64 `yaml:"sentiment_urgency"`
	ViralityPotential       float64 `yaml:"virality_potential"`
	ContentRisk             float64 `yaml:"content_risk"`
	CrisisIndicatorPresence float64 `yaml:"crisis_indicator_presence"`
}

func (w Weights) of(f approval.Factor) float64 {
	switch f {
	case approval.FactorQualityDeficit:
		return w.QualityDeficit
	case approval.FactorSentimentUrgency:
		return w.SentimentUrgency
	case approval.FactorViralityPotential:
		return w.ViralityPotential
	case approval.FactorContentRisk:
		return w.ContentRisk
	case approval.FactorCrisisIndicatorPresence:
		return w.CrisisIndicatorPresence
	}
	return 0
}

func (w Weights) sum() float64 {
	return w.QualityDeficit + w.SentimentUrgency + w.ViralityPotential + w.ContentRisk + w.CrisisIndicatorPresence
}

// Config parameterizes the policy engine
type Config struct {
	LowThreshold       float64
	HighThreshold      float64
	RejectQualityFloor float64
	Weights            Weights
	Rules              []Rule

	BusinessHoursStart      int
	BusinessHoursEnd        int
	Location                *time.Location
	HighVisibilityPlatforms []string
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		LowThreshold:       0.3,
		HighThreshold:      0.7,
		RejectQualityFloor: 0.2,
		Weights: Weights{
			QualityDeficit:          0.30,
			SentimentUrgency:        0.25,
			ViralityPotential:       0.20,
			ContentRisk:             0.15,
			CrisisIndicatorPresence: 0.10,
		},
		Rules:                   DefaultRules(),
		BusinessHoursStart:      9,
		BusinessHoursEnd:        17,
		Location:                time.UTC,
		HighVisibilityPlatforms: []string{"linkedin", "news", "television"},
	}
}

// PolicyEngine is the three-way approval gate. It is stateless after
// construction and safe for concurrent use.
type PolicyEngine struct {
	cfg   Config
	rules []compiledRule
}

// NewPolicyEngine validates the config and compiles contextual rules
func NewPolicyEngine(cfg Config) (*PolicyEngine, error) {
	if math.Abs(cfg.Weights.sum()-1) > 1e-6 {
		return nil, errors.NewValidationError("weights", "must sum to 1", cfg.Weights.sum())
	}
	if !(0 <= cfg.LowThreshold && cfg.LowThreshold <= cfg.HighThreshold && cfg.HighThreshold <= 1) {
		return nil, errors.NewValidationError("thresholds", "must satisfy 0 <= low <= high <= 1",
			fmt.Sprintf("%v/%v", cfg.LowThreshold, cfg.HighThreshold))
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	rules, err := compileRules(cfg.Rules)
	if err != nil {
		return nil, err
	}

	return &PolicyEngine{cfg: cfg, rules: rules}, nil
}

// Decide gates one response. The same inputs always produce the same decision.
func (p *PolicyEngine) Decide(r response.GeneratedResponse, a risk.Assessment, actx approval.Context) approval.Decision {
	scan := scanContent(r.Text, actx.SourceText)
	factors := computeFactors(r, a, actx, scan)

	score := 0.0
	for _, f := range approval.Factors {
		score += factors[f] * p.cfg.Weights.of(f)
	}
	score = clamp01(score)

	platform := strings.ToLower(firstNonEmpty(actx.Platform, r.Platform))
	highVisibility := actx.HighVisibility || p.isHighVisibility(platform)
	dominant := dominantFactor(factors, p.cfg.Weights)

	d := approval.Decision{
		ResponseID:     r.ID,
		RiskScore:      score,
		Factors:        factors,
		DominantFactor: dominant,
		ContentFlags:   scan.flags(),
		DecidedAt:      actx.At,
	}

	switch {
	case strings.TrimSpace(r.Text) == "":
		d.Status = approval.StatusRejected
		d.Reasoning = "response text is empty"
		return d
	case r.Quality < p.cfg.RejectQualityFloor:
		d.Status = approval.StatusRejected
		d.Reasoning = fmt.Sprintf("quality %.2f below rejection floor %.2f", r.Quality, p.cfg.RejectQualityFloor)
		return d
	case score < p.cfg.LowThreshold:
		d.Status = approval.StatusApprovedAuto
		d.Reasoning = fmt.Sprintf("composite risk %.2f below auto-approve ceiling %.2f", score, p.cfg.LowThreshold)
		return d
	case score > p.cfg.HighThreshold:
		d.Status = approval.StatusPendingHumanReview
		d.ReviewerHint = reviewerHint(dominant)
		d.SuggestedReviewers = suggestedReviewers(d.ReviewerHint, scan, a, highVisibility)
		d.Reasoning = fmt.Sprintf("composite risk %.2f above human-review floor %.2f, dominated by %s",
			score, p.cfg.HighThreshold, dominant)
		return d
	}

	signals := p.signals(actx.At, platform, highVisibility, a, score, r)
	bias, matched := p.evaluateRules(signals)
	adjusted := math.Min(p.cfg.LowThreshold+bias, p.cfg.HighThreshold)

	if score < adjusted {
		d.Status = approval.StatusApprovedAuto
		d.Reasoning = fmt.Sprintf("contextual: risk %.2f below adjusted threshold %.2f (%s)",
			score, adjusted, describe(matched))
		return d
	}

	d.Status = approval.StatusPendingHumanReview
	d.ReviewerHint = reviewerHint(dominant)
	d.SuggestedReviewers = suggestedReviewers(d.ReviewerHint, scan, a, highVisibility)
	d.Reasoning = fmt.Sprintf("contextual: risk %.2f not below adjusted threshold %.2f (%s)",
		score, adjusted, describe(matched))
	return d
}

func (p *PolicyEngine) isHighVisibility(platform string) bool {
	if platform == "" {
		return false
	}
	for _, hv := range p.cfg.HighVisibilityPlatforms {
		if strings.EqualFold(hv, platform) {
			return true
		}
	}
	return false
}

// OutsideBusinessHours reports whether t falls outside the weekday window
func (p *PolicyEngine) OutsideBusinessHours(t time.Time) bool {
	local := t.In(p.cfg.Location)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return true
	}
	h := local.Hour()
	return h < p.cfg.BusinessHoursStart || h >= p.cfg.BusinessHoursEnd
}

func describe(matched []string) string {
	if len(matched) == 0 {
		return "no contextual signals"
	}
	return "signals: " + strings.Join(matched, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
