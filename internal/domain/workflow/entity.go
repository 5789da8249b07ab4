package workflow

import (
	"time"

	"brandpulse/internal/domain/alert"
	"brandpulse/internal/domain/approval"
	"brandpulse/internal/domain/document"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/risk"
)

// Status is the overall outcome of a run
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusEscalated Status = "escalated"
)

// Terminal reports whether the status can no longer change
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// State is a node of the engine's state machine
type State string

const (
	StateInitialized         State = "initialized"
	StateCollecting          State = "collecting"
	StateScoring             State = "scoring"
	StateAssessingRisk       State = "assessing_risk"
	StateGeneratingResponses State = "generating_responses"
	StateApproving           State = "approving"
	StateAutoPublishing      State = "auto_publishing"
	StateEscalatingToHuman   State = "escalating_to_human"
	StateCrisisEscalation    State = "crisis_escalation"
	StateFinalizing          State = "finalizing"
	StateFinalized           State = "finalized"
)

// Step names a recorded pipeline stage
type Step string

const (
	StepDataCollection     Step = "data_collection"
	StepSentimentAnalysis  Step = "sentiment_analysis"
	StepRiskAssessment     Step = "risk_assessment"
	StepResponseGeneration Step = "response_generation"
	StepApproval           Step = "approval"
	StepCrisisEscalation   Step = "crisis_escalation"
	StepFinalize           Step = "finalize"
)

// Outcome of a step
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeCancelled Outcome = "cancelled"
)

// StepResult is appended once per stage, whatever happened
type StepResult struct {
	Step     Step          `json:"step"`
	Outcome  Outcome       `json:"outcome"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	Detail   string        `json:"detail,omitempty"`
}

// Dispatch records what happened to a decided response downstream
type Dispatch struct {
	Target string `json:"target,omitempty"` // published | review_queue
	Error  string `json:"error,omitempty"`
}

// ResponseOutcome pairs a response with its decision
type ResponseOutcome struct {
	Response response.GeneratedResponse `json:"response"`
	Decision approval.Decision          `json:"decision"`
	Dispatch Dispatch                   `json:"dispatch"`
}

// Report is the outbound result of one run
type Report struct {
	RunID           string              `json:"run_id"`
	Brand           string              `json:"brand"`
	Request         Request             `json:"request"`
	Status          Status              `json:"status"`
	Success         bool                `json:"success"`
	StepsCompleted  []string            `json:"steps_completed"`
	FailedSteps     []string            `json:"failed_steps"`
	Steps           []StepResult        `json:"steps"`
	States          []State             `json:"states"`
	Documents       []document.Document `json:"documents"`
	TotalAvailable  int                 `json:"total_available"`
	Degraded        bool                `json:"degraded"`
	RiskAssessment  *risk.Assessment    `json:"risk_assessment,omitempty"`
	Responses       []ResponseOutcome   `json:"responses"`
	Escalation      *alert.Escalation   `json:"escalation,omitempty"`
	Recommendations []string            `json:"recommendations"`
	NextActions     []string            `json:"next_actions"`
	StartedAt       time.Time           `json:"started_at"`
	CompletedAt     time.Time           `json:"completed_at"`
	ExecutionTime   time.Duration       `json:"execution_time"`
}

// Visited reports whether the run passed through state s
func (r *Report) Visited(s State) bool {
	for _, v := range r.States {
		if v == s {
			return true
		}
	}
	return false
}

// Step returns the recorded result for a step, if any
func (r *Report) Step(s Step) (StepResult, bool) {
	for _, res := range r.Steps {
		if res.Step == s {
			return res, true
		}
	}
	return StepResult{}, false
}

// Observer receives run progress. Implementations must not block.
type Observer interface {
	StateChanged(runID string, from, to State)
	StepFinished(runID string, result StepResult)
	RunFinished(report *Report)
}
