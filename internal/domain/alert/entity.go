package alert

import (
	"time"

	"github.com/google/uuid"

	"brandpulse/internal/domain/risk"
)

// Type distinguishes alert origins
type Type string

const (
	TypeCrisis      Type = "crisis"
	TypeHumanReview Type = "human_review"
)

// Severity of an alert
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Status of an alert in its lifecycle
type Status string

const (
	StatusOpen         Status = "open"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// Alert is a persisted notification that needs human attention
type Alert struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	RunID          string     `db:"run_id" json:"run_id"`
	Brand          string     `db:"brand" json:"brand"`
	Type           Type       `db:"type" json:"type"`
	Severity       Severity   `db:"severity" json:"severity"`
	Status         Status     `db:"status" json:"status"`
	Title          string     `db:"title" json:"title"`
	Message        string     `db:"message" json:"message"`
	CrisisScore    float64    `db:"crisis_score" json:"crisis_score"`
	Assignee       string     `db:"assignee" json:"assignee,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	AcknowledgedAt *time.Time `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// Escalation is a crisis that bypassed the advisory pipeline
type Escalation struct {
	RunID      string          `json:"run_id"`
	Brand      string          `json:"brand"`
	Assessment risk.Assessment `json:"assessment"`
	Actions    []string        `json:"actions"`
	Reviewers  []string        `json:"reviewers"`
	DetectedAt time.Time       `json:"detected_at"`
}

// SeverityFor maps a crisis score to an alert severity
func SeverityFor(score float64) Severity {
	switch {
	case score > 0.8:
		return SeverityCritical
	case score > 0.6:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
