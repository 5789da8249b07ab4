package workflowservice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"brandpulse/internal/domain/alert"
	"brandpulse/internal/domain/approval"
	"brandpulse/internal/domain/document"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/risk"
	"brandpulse/internal/domain/sentiment"
	"brandpulse/internal/domain/workflow"
	"brandpulse/internal/metrics"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
)

var tracer = otel.Tracer("brandpulse/workflow")

// RiskAssessor reduces annotations to a crisis assessment
type RiskAssessor interface {
	Assess(annotations []sentiment.Annotation) risk.Assessment
}

// ApprovalPolicy gates one generated response
type ApprovalPolicy interface {
	Decide(r response.GeneratedResponse, a risk.Assessment, actx approval.Context) approval.Decision
}

// Deps are the engine's collaborators. Source, Scorer, Assessor and Policy
// are required; the rest may be nil and are skipped when absent.
type Deps struct {
	Source    document.Source
	Fallback  document.Fallback
	Cache     document.Cache
	Scorer    sentiment.Scorer
	Assessor  RiskAssessor
	Generator response.Generator
	Policy    ApprovalPolicy

	Publisher approval.Publisher
	Reviews   approval.ReviewQueue
	Escalator alert.Escalator
	Archive   sentiment.Repository
	Observer  workflow.Observer
	Tracker   errors.Tracker

	// Clock defaults to time.Now
	Clock func() time.Time
	// NewID defaults to uuid.NewString
	NewID func() string
}

// Engine sequences the analysis pipeline. It holds only immutable
// collaborators; all per-run state lives in a runner created by Run, so one
// Engine may execute many runs concurrently.
type Engine struct {
	cfg  Config
	deps Deps
	log  *logger.Logger
}

// New creates a workflow engine
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Source == nil || deps.Scorer == nil || deps.Assessor == nil || deps.Policy == nil {
		return nil, errors.Wrap(errors.ErrInternal, "workflow engine requires source, scorer, assessor and policy")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	return &Engine{
		cfg:  cfg.withDefaults(),
		deps: deps,
		log:  logger.Get().Component("workflow_engine"),
	}, nil
}

// Run validates the request and executes one workflow run to completion.
// Only an invalid request returns an error; every other failure is reported
// in the returned Report's steps and status.
func (e *Engine) Run(ctx context.Context, req workflow.Request) (*workflow.Report, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r := newRunner(e, req)
	return r.execute(ctx), nil
}

// runner owns the mutable state of exactly one run
type runner struct {
	e     *Engine
	log   *logger.Logger
	id    string
	req   workflow.Request
	start time.Time
	// at is the decision time shared by every approval in the run
	at time.Time

	m           *machine
	steps       []workflow.StepResult
	docs        []document.Document
	total       int
	degraded    bool
	annotations []sentiment.Annotation
	assessment  *risk.Assessment
	plan        response.Plan
	outcomes    []workflow.ResponseOutcome
	escalation  *alert.Escalation
	cancelled   bool
}

func newRunner(e *Engine, req workflow.Request) *runner {
	id := e.deps.NewID()
	now := e.deps.Clock()
	return &runner{
		e:     e,
		log:   e.log.With("run_id", id, "brand", req.Brand),
		id:    id,
		req:   req,
		start: now,
		at:    now,
		m:     newMachine(),
	}
}

func (r *runner) execute(ctx context.Context) *workflow.Report {
	ctx, span := tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("run_id", r.id),
		attribute.String("brand", r.req.Brand),
	))
	defer span.End()

	r.log.Infow("Workflow run started", "max_documents", r.req.MaxDocuments, "days_back", r.req.DaysBack)

	report := r.pipeline(ctx)

	span.SetAttributes(attribute.String("status", string(report.Status)))
	if report.Status == workflow.StatusFailed {
		span.SetStatus(codes.Error, "workflow run failed")
	}
	return report
}

func (r *runner) pipeline(ctx context.Context) *workflow.Report {
	r.moveTo(workflow.StateCollecting)
	if !r.collect(ctx) {
		return r.abort()
	}

	r.moveTo(workflow.StateScoring)
	if !r.score(ctx) {
		return r.abort()
	}

	r.moveTo(workflow.StateAssessingRisk)
	if !r.assess(ctx) {
		return r.abort()
	}

	if r.assessment != nil && r.assessment.CrisisScore > r.e.cfg.EscalationCeiling {
		r.moveTo(workflow.StateCrisisEscalation)
		if !r.escalate(ctx) {
			return r.abort()
		}
		r.skip(workflow.StepResponseGeneration, "bypassed by crisis escalation")
		r.skip(workflow.StepApproval, "bypassed by crisis escalation")
		return r.finalize(ctx)
	}

	candidates := r.candidates()
	if len(candidates) == 0 {
		r.skip(workflow.StepResponseGeneration, "no document warrants a response")
		r.skip(workflow.StepApproval, "no responses to approve")
		r.moveTo(workflow.StateFinalizing)
		return r.finalize(ctx)
	}

	r.moveTo(workflow.StateGeneratingResponses)
	if !r.generate(ctx, candidates) {
		return r.abort()
	}

	if len(r.plan.Responses) == 0 {
		r.skip(workflow.StepApproval, "no responses to approve")
		r.moveTo(workflow.StateFinalizing)
		return r.finalize(ctx)
	}

	r.moveTo(workflow.StateApproving)
	if !r.approve(ctx) {
		return r.abort()
	}

	r.moveTo(workflow.StateFinalizing)
	return r.finalize(ctx)
}

// moveTo advances the state machine and notifies the observer.
// The pipeline only follows graph edges, so a rejected move is a programming error.
func (r *runner) moveTo(to workflow.State) {
	from := r.m.state
	if err := r.m.transition(to); err != nil {
		r.log.Errorw("Rejected workflow transition", "error", err)
		r.capture(context.Background(), err, "")
		return
	}
	if obs := r.e.deps.Observer; obs != nil {
		obs.StateChanged(r.id, from, to)
	}
}

func (r *runner) record(res workflow.StepResult) {
	r.steps = append(r.steps, res)
	metrics.RecordStep(string(res.Step), string(res.Outcome), res.Duration)

	switch res.Outcome {
	case workflow.OutcomeFailed:
		r.log.Warnw("Workflow step failed", "step", res.Step, "error", res.Error, "duration", res.Duration)
	case workflow.OutcomeCancelled:
		r.log.Warnw("Workflow step cancelled", "step", res.Step, "duration", res.Duration)
	default:
		r.log.Debugw("Workflow step finished", "step", res.Step, "outcome", res.Outcome, "detail", res.Detail)
	}

	r.breadcrumb(res)
	if obs := r.e.deps.Observer; obs != nil {
		obs.StepFinished(r.id, res)
	}
}

func (r *runner) completed(step workflow.Step, started time.Time, detail string) {
	r.record(workflow.StepResult{Step: step, Outcome: workflow.OutcomeCompleted, Duration: time.Since(started), Detail: detail})
}

func (r *runner) failed(ctx context.Context, step workflow.Step, started time.Time, err error) {
	r.record(workflow.StepResult{Step: step, Outcome: workflow.OutcomeFailed, Duration: time.Since(started), Error: err.Error()})
	r.capture(ctx, err, step)
}

func (r *runner) skip(step workflow.Step, reason string) {
	r.record(workflow.StepResult{Step: step, Outcome: workflow.OutcomeSkipped, Detail: reason})
}

// interrupted records a cancelled step and marks the run for abort
func (r *runner) interrupted(step workflow.Step, started time.Time, err error) {
	r.cancelled = true
	r.record(workflow.StepResult{Step: step, Outcome: workflow.OutcomeCancelled, Duration: time.Since(started), Error: err.Error()})
}

func (r *runner) capture(ctx context.Context, err error, step workflow.Step) {
	if r.e.deps.Tracker == nil {
		return
	}
	_ = r.e.deps.Tracker.CaptureError(context.WithoutCancel(ctx), err, r.tags().With(errors.TagStep, string(step)))
}

func (r *runner) tags() errors.Tags {
	return errors.RunTags("workflow_engine", r.id, r.req.Brand)
}

// breadcrumb leaves a trail of finished steps so a captured error shows
// how the run got there
func (r *runner) breadcrumb(res workflow.StepResult) {
	if r.e.deps.Tracker == nil {
		return
	}
	level := errors.LevelInfo
	if res.Outcome == workflow.OutcomeFailed || res.Outcome == workflow.OutcomeCancelled {
		level = errors.LevelWarning
	}
	r.e.deps.Tracker.AddBreadcrumb(context.Background(), string(res.Step)+" "+string(res.Outcome), "workflow", level, map[string]interface{}{
		errors.TagRunID: r.id,
		errors.TagBrand: r.req.Brand,
		"duration_ms":   res.Duration.Milliseconds(),
	})
}

// checkCancelled records a cancelled step when ctx is already done
func (r *runner) checkCancelled(ctx context.Context, step workflow.Step) bool {
	if err := ctx.Err(); err != nil {
		r.interrupted(step, time.Now(), errors.Wrap(errors.ErrCancelled, err.Error()))
		return true
	}
	return false
}

type callResult[T any] struct {
	val T
	err error
}

// call runs one adapter operation under a timeout without letting an
// unresponsive adapter block the run. When ctx is cancelled the adapter's
// context is cancelled and it gets the grace period to return.
func call[T any](ctx context.Context, r *runner, adapter string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, errors.Wrap(errors.ErrCancelled, err.Error())
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	started := time.Now()
	done := make(chan callResult[T], 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- callResult[T]{err: errors.Wrapf(errors.ErrInternal, "%s panicked: %v", adapter, p)}
			}
		}()
		v, err := fn(callCtx)
		done <- callResult[T]{val: v, err: err}
	}()

	select {
	case res := <-done:
		metrics.RecordAdapterCall(adapter, time.Since(started), res.err)
		return res.val, res.err
	case <-callCtx.Done():
		err := errors.Wrapf(errors.ErrTimeout, "%s exceeded %s", adapter, timeout)
		metrics.RecordAdapterCall(adapter, time.Since(started), err)
		return zero, err
	case <-ctx.Done():
		cancel()
		grace := time.NewTimer(r.e.cfg.CancelGrace)
		defer grace.Stop()
		select {
		case <-done:
		case <-grace.C:
			r.log.Warnw("Adapter did not return within cancel grace period", "adapter", adapter, "grace", r.e.cfg.CancelGrace)
		}
		return zero, errors.Wrapf(errors.ErrCancelled, "%s: %v", adapter, ctx.Err())
	}
}
