package approval

import (
	"time"

	"brandpulse/internal/domain/response"
)

// Status is the disposition of a generated response
type Status string

const (
	StatusApprovedAuto       Status = "approved_auto"
	StatusPendingHumanReview Status = "pending_human_review"
	StatusRejected           Status = "rejected"
)

// Reviewer hints attached to pending decisions
const (
	ReviewerCrisisTeam    = "crisis_team"
	ReviewerLegal         = "legal"
	ReviewerGeneralReview = "general_review"
)

// Factor names the components of the composite approval risk
type Factor string

const (
	FactorQualityDeficit          Factor = "quality_deficit"
	FactorSentimentUrgency        Factor = "sentiment_urgency"
	FactorViralityPotential       Factor = "virality_potential"
	FactorContentRisk             Factor = "content_risk"
	FactorCrisisIndicatorPresence Factor = "crisis_indicator_presence"
)

// Factors lists every factor in weighting order
var Factors = []Factor{
	FactorQualityDeficit,
	FactorSentimentUrgency,
	FactorViralityPotential,
	FactorContentRisk,
	FactorCrisisIndicatorPresence,
}

// Context carries signals that are not part of the response or the assessment.
// At is fixed per run so that decisions stay reproducible.
type Context struct {
	At       time.Time
	Platform string
	// Virality overrides the response's own estimate when set
	Virality       *float64
	HighVisibility bool
	// SourceText is the mention being answered; it is scanned for content risk
	SourceText string
}

// Decision is the immutable outcome for one response
type Decision struct {
	ResponseID         string             `json:"response_id"`
	Status             Status             `json:"status"`
	RiskScore          float64            `json:"risk_score"`
	Factors            map[Factor]float64 `json:"factors"`
	DominantFactor     Factor             `json:"dominant_factor,omitempty"`
	ReviewerHint       string             `json:"reviewer_hint,omitempty"`
	SuggestedReviewers []string           `json:"suggested_reviewers,omitempty"`
	ContentFlags       []string           `json:"content_flags,omitempty"`
	Reasoning          string             `json:"reasoning"`
	DecidedAt          time.Time          `json:"decided_at"`
}

// ReviewRequest is handed to the human review boundary
type ReviewRequest struct {
	RunID    string                     `json:"run_id"`
	Brand    string                     `json:"brand"`
	Response response.GeneratedResponse `json:"response"`
	Decision Decision                   `json:"decision"`
}
