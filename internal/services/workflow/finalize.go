package workflowservice

import (
	"context"
	"fmt"
	"time"

	"brandpulse/internal/domain/approval"
	"brandpulse/internal/domain/document"
	"brandpulse/internal/domain/risk"
	"brandpulse/internal/domain/sentiment"
	"brandpulse/internal/domain/workflow"
	"brandpulse/internal/metrics"
)

// Rule-based recommendations appended by finalize
const (
	RecAdjustThresholds    = "Consider adjusting auto-approval thresholds to improve efficiency"
	RecImproveQuality      = "Response quality could be improved - consider updating knowledge base"
	RecHeightenedMonitor   = "Crisis situation detected - maintain heightened monitoring"
	RecCoordinateResponse  = "Significant negative sentiment - coordinate a response plan"
	RecPromotePositive     = "No positive coverage found - promote positive stories"
	RecContinueMonitoring  = "Sentiment is stable - continue regular monitoring"
	RecVerifySource        = "Document source degraded - verify source credentials and availability"
	RecInsufficientData    = "Insufficient data for a reliable assessment"
	ActionMonitorCloseness = "Monitor situation closely for next 24 hours"
)

// finalize records the finalize step, settles the status and builds the report
func (r *runner) finalize(ctx context.Context) *workflow.Report {
	started := time.Now()

	r.archive(ctx)

	if r.m.state == workflow.StateCrisisEscalation || r.m.state == workflow.StateFinalizing {
		r.moveTo(workflow.StateFinalized)
	} else if err := r.m.abort(); err != nil {
		r.log.Errorw("Failed to finalize workflow state", "error", err)
	}

	recommendations := r.recommendations()
	nextActions := r.nextActions()
	r.completed(workflow.StepFinalize, started,
		fmt.Sprintf("%d recommendations, %d next actions", len(recommendations), len(nextActions)))

	return r.report(r.settle(), recommendations, nextActions)
}

// abort ends a cancelled run. No finalize step is recorded and only the
// step audit trail survives into the report.
func (r *runner) abort() *workflow.Report {
	if err := r.m.abort(); err != nil {
		r.log.Errorw("Failed to abort workflow", "error", err)
	}
	return r.report(workflow.StatusFailed, []string{}, []string{})
}

// settle derives the terminal status from what the run produced
func (r *runner) settle() workflow.Status {
	switch {
	case r.cancelled:
		return workflow.StatusFailed
	case len(r.docs) == 0 && r.assessment == nil:
		return workflow.StatusFailed
	case r.m.reached(workflow.StateCrisisEscalation):
		return workflow.StatusEscalated
	default:
		return workflow.StatusSucceeded
	}
}

func (r *runner) report(status workflow.Status, recommendations, nextActions []string) *workflow.Report {
	if err := r.m.finish(status); err != nil {
		r.log.Errorw("Workflow status already settled", "error", err)
		status = r.m.status
	}

	completedAt := r.e.deps.Clock()
	rep := &workflow.Report{
		RunID:           r.id,
		Brand:           r.req.Brand,
		Request:         r.req,
		Status:          status,
		Success:         status == workflow.StatusSucceeded || status == workflow.StatusEscalated,
		StepsCompleted:  []string{},
		FailedSteps:     []string{},
		Steps:           append([]workflow.StepResult(nil), r.steps...),
		States:          append([]workflow.State(nil), r.m.visited...),
		Documents:       []document.Document{},
		TotalAvailable:  r.total,
		Degraded:        r.degraded,
		Responses:       []workflow.ResponseOutcome{},
		Recommendations: recommendations,
		NextActions:     nextActions,
		StartedAt:       r.start,
		CompletedAt:     completedAt,
		ExecutionTime:   completedAt.Sub(r.start),
	}

	for _, s := range r.steps {
		switch s.Outcome {
		case workflow.OutcomeCompleted:
			rep.StepsCompleted = append(rep.StepsCompleted, string(s.Step))
		case workflow.OutcomeFailed, workflow.OutcomeCancelled:
			rep.FailedSteps = append(rep.FailedSteps, string(s.Step))
		}
	}

	if !r.cancelled {
		if r.docs != nil {
			rep.Documents = r.docs
		}
		rep.RiskAssessment = r.assessment
		rep.Escalation = r.escalation
		if r.outcomes != nil {
			rep.Responses = r.outcomes
		}
	}

	metrics.WorkflowRuns.WithLabelValues(string(status)).Inc()
	metrics.WorkflowDuration.Observe(rep.ExecutionTime.Seconds())

	r.log.Infow("Workflow run finished",
		"status", status,
		"documents", len(rep.Documents),
		"failed_steps", rep.FailedSteps,
		"duration", rep.ExecutionTime,
	)

	if obs := r.e.deps.Observer; obs != nil {
		obs.RunFinished(rep)
	}
	return rep
}

// archive stores the scored mentions of this run. Failures are logged only.
func (r *runner) archive(ctx context.Context) {
	repo := r.e.deps.Archive
	if repo == nil || len(r.annotations) == 0 || len(r.annotations) != len(r.docs) {
		return
	}

	collectedAt := r.at.UTC()
	mentions := make([]sentiment.Mention, len(r.docs))
	for i, d := range r.docs {
		a := r.annotations[i]
		mentions[i] = sentiment.Mention{
			RunID:       r.id,
			Brand:       r.req.Brand,
			DocumentID:  d.ID,
			Source:      d.Source,
			Title:       d.Title,
			URL:         d.URL,
			Label:       string(a.Label),
			Score:       a.Score,
			Keywords:    d.Keywords,
			PublishedAt: d.PublishedAt,
			CollectedAt: collectedAt,
		}
	}

	_, err := call(ctx, r, "mention_archive", r.e.cfg.DispatchTimeout, func(c context.Context) (struct{}, error) {
		return struct{}{}, repo.InsertMentions(c, mentions)
	})
	if err != nil {
		r.log.Warnw("Failed to archive mentions", "mentions", len(mentions), "error", err)
	}
}

func (r *runner) recommendations() []string {
	out := append([]string{}, r.plan.Recommendations...)

	if n := len(r.outcomes); n > 0 {
		var approved int
		var quality float64
		for _, o := range r.outcomes {
			if o.Decision.Status == approval.StatusApprovedAuto {
				approved++
			}
			quality += o.Response.Quality
		}
		if float64(approved)/float64(n) < 0.7 {
			out = append(out, RecAdjustThresholds)
		}
		if quality/float64(n) < 0.8 {
			out = append(out, RecImproveQuality)
		}
	}

	if a := r.assessment; a != nil && a.TotalAnnotations > 0 {
		if a.CrisisLevel != risk.LevelLow {
			out = append(out, RecHeightenedMonitor)
		}
		switch {
		case a.NegativeSentimentRatio >= 0.4:
			out = append(out, RecCoordinateResponse)
		case a.PositiveCount == 0:
			out = append(out, RecPromotePositive)
		default:
			out = append(out, RecContinueMonitoring)
		}
	}

	if r.degraded {
		out = append(out, RecVerifySource)
	}
	if len(r.docs) == 0 {
		out = append(out, RecInsufficientData)
	}
	return dedupe(out)
}

func (r *runner) nextActions() []string {
	out := append([]string{}, r.plan.NextActions...)

	var pending int
	for _, o := range r.outcomes {
		if o.Decision.Status == approval.StatusPendingHumanReview {
			pending++
		}
	}
	if pending > 0 {
		out = append(out, fmt.Sprintf("Review %d pending responses in dashboard", pending))
	}
	if r.assessment != nil && r.assessment.CrisisScore > 0.3 {
		out = append(out, ActionMonitorCloseness)
	}
	if r.escalation != nil {
		out = append(out, r.escalation.Actions...)
	}
	if r.e.cfg.MonitorInterval > 0 {
		out = append(out, fmt.Sprintf("Next autonomous cycle in %s", r.e.cfg.MonitorInterval))
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
