package events

import (
	"time"

	"github.com/google/uuid"

	"brandpulse/internal/domain/approval"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/risk"
)

// Event types carried in BaseEvent.Type
const (
	TypeResponsePublished = "response.published"
	TypeReviewRequested   = "review.requested"
	TypeReviewCompleted   = "review.completed"
	TypeCrisisDetected    = "crisis.detected"
	TypeWorkflowCompleted = "workflow.completed"
)

// BaseEvent carries the envelope shared by every event
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// NewBaseEvent creates a new base event with defaults
func NewBaseEvent(eventType, source string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Version:   "1.0",
	}
}

// ResponsePublishedEvent announces a response cleared for publication
type ResponsePublishedEvent struct {
	Base     BaseEvent                  `json:"base"`
	RunID    string                     `json:"run_id"`
	Brand    string                     `json:"brand"`
	Response response.GeneratedResponse `json:"response"`
	Decision approval.Decision          `json:"decision"`
	// Reviewer is set when a human approved the response
	Reviewer string `json:"reviewer,omitempty"`
}

// ReviewRequestedEvent hands a pending response to human reviewers
type ReviewRequestedEvent struct {
	Base     BaseEvent                  `json:"base"`
	AlertID  string                     `json:"alert_id"`
	RunID    string                     `json:"run_id"`
	Brand    string                     `json:"brand"`
	Response response.GeneratedResponse `json:"response"`
	Decision approval.Decision          `json:"decision"`
}

// ReviewCompletedEvent is produced by the review tool once a human decided
type ReviewCompletedEvent struct {
	Base     BaseEvent                  `json:"base"`
	AlertID  string                     `json:"alert_id"`
	RunID    string                     `json:"run_id"`
	Brand    string                     `json:"brand"`
	Response response.GeneratedResponse `json:"response"`
	Decision approval.Decision          `json:"decision"`
	Approved bool                       `json:"approved"`
	Reviewer string                     `json:"reviewer"`
	Note     string                     `json:"note,omitempty"`
}

// CrisisDetectedEvent reports a crisis escalation
type CrisisDetectedEvent struct {
	Base       BaseEvent       `json:"base"`
	AlertID    string          `json:"alert_id"`
	RunID      string          `json:"run_id"`
	Brand      string          `json:"brand"`
	Assessment risk.Assessment `json:"assessment"`
	Actions    []string        `json:"actions"`
	Reviewers  []string        `json:"reviewers"`
}

// WorkflowCompletedEvent summarizes a finished run
type WorkflowCompletedEvent struct {
	Base           BaseEvent        `json:"base"`
	RunID          string           `json:"run_id"`
	Brand          string           `json:"brand"`
	Status         string           `json:"status"`
	Documents      int              `json:"documents"`
	Responses      int              `json:"responses"`
	FailedSteps    []string         `json:"failed_steps"`
	RiskAssessment *risk.Assessment `json:"risk_assessment,omitempty"`
	DurationMS     int64            `json:"duration_ms"`
}
