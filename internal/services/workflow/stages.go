package workflowservice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"brandpulse/internal/domain/alert"
	"brandpulse/internal/domain/approval"
	"brandpulse/internal/domain/document"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/risk"
	"brandpulse/internal/domain/sentiment"
	"brandpulse/internal/domain/workflow"
	"brandpulse/internal/metrics"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/text"
)

// collect fetches documents, substituting the fallback batch on failure.
// It returns false only when the run was cancelled.
func (r *runner) collect(ctx context.Context) bool {
	if r.checkCancelled(ctx, workflow.StepDataCollection) {
		return false
	}
	ctx, span := tracer.Start(ctx, "workflow.collect")
	defer span.End()

	started := time.Now()
	q := document.Query{Brand: r.req.Brand, MaxDocuments: r.req.MaxDocuments, DaysBack: r.req.DaysBack}

	batch, err := call(ctx, r, "document_source", r.e.cfg.timeout(r.e.cfg.CollectTimeout), func(c context.Context) (document.Batch, error) {
		return r.e.deps.Source.Fetch(c, q)
	})
	if errors.Is(err, errors.ErrCancelled) {
		r.interrupted(workflow.StepDataCollection, started, err)
		return false
	}

	if err != nil {
		r.failed(ctx, workflow.StepDataCollection, started, errors.Join(errors.ErrSourceUnavailable, err))
		batch = r.fallback(ctx, q)
		r.degraded = true
	} else {
		batch.Documents = r.normalizeDocuments(batch.Documents)
		r.completed(workflow.StepDataCollection, started,
			fmt.Sprintf("%d documents collected (%d available)", len(batch.Documents), batch.TotalAvailable))
		r.storeBatch(ctx, batch)
	}

	r.docs = batch.Documents
	r.total = batch.TotalAvailable
	if len(r.docs) == 0 {
		r.degraded = true
	}

	metrics.DocumentsCollected.Observe(float64(len(r.docs)))
	span.SetAttributes(attribute.Int("documents", len(r.docs)), attribute.Bool("fallback", batch.Fallback))
	return true
}

func (r *runner) fallback(ctx context.Context, q document.Query) document.Batch {
	if r.e.deps.Fallback == nil {
		return document.Batch{Fallback: true}
	}

	batch, err := call(ctx, r, "document_fallback", r.e.cfg.DispatchTimeout, func(c context.Context) (document.Batch, error) {
		return r.e.deps.Fallback.Fallback(c, q)
	})
	if err != nil {
		r.log.Warnw("Fallback document set unavailable", "error", err)
		return document.Batch{Fallback: true}
	}

	batch.Documents = r.normalizeDocuments(batch.Documents)
	batch.Fallback = true
	r.log.Infow("Using fallback document set", "documents", len(batch.Documents))
	return batch
}

func (r *runner) storeBatch(ctx context.Context, batch document.Batch) {
	if r.e.deps.Cache == nil || len(batch.Documents) == 0 {
		return
	}
	_, err := call(ctx, r, "document_cache", r.e.cfg.DispatchTimeout, func(c context.Context) (struct{}, error) {
		return struct{}{}, r.e.deps.Cache.Store(c, r.req.Brand, batch)
	})
	if err != nil {
		r.log.Warnw("Failed to store document batch for fallback", "error", err)
	}
}

// normalizeDocuments truncates to the requested size and fills missing ids
func (r *runner) normalizeDocuments(docs []document.Document) []document.Document {
	if len(docs) > r.req.MaxDocuments {
		docs = docs[:r.req.MaxDocuments]
	}
	out := make([]document.Document, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			d.ID = fmt.Sprintf("doc-%d", i+1)
		}
		out[i] = d
	}
	return out
}

// score annotates every document through a bounded worker pool. Either every
// batch succeeds or the stage fails with an empty annotation set.
func (r *runner) score(ctx context.Context) bool {
	if r.checkCancelled(ctx, workflow.StepSentimentAnalysis) {
		return false
	}
	if len(r.docs) == 0 {
		r.annotations = []sentiment.Annotation{}
		r.skip(workflow.StepSentimentAnalysis, "no documents to score")
		return true
	}

	ctx, span := tracer.Start(ctx, "workflow.score")
	defer span.End()

	started := time.Now()
	size := r.e.cfg.ScoringBatchSize
	batches := (len(r.docs) + size - 1) / size

	results := make([][]sentiment.Annotation, batches)
	errs := make([]error, batches)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.e.cfg.ScoringConcurrency)
	timeout := r.e.cfg.timeout(r.e.cfg.ScoreTimeout)

	for b := 0; b < batches; b++ {
		lo := b * size
		hi := lo + size
		if hi > len(r.docs) {
			hi = len(r.docs)
		}
		chunk := r.docs[lo:hi]

		wg.Add(1)
		go func(b int, chunk []document.Document) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			anns, err := call(ctx, r, "sentiment_scorer", timeout, func(c context.Context) ([]sentiment.Annotation, error) {
				return r.e.deps.Scorer.Score(c, chunk)
			})
			if err == nil {
				anns, err = checkAnnotations(chunk, anns)
			}
			results[b], errs[b] = anns, err
		}(b, chunk)
	}
	wg.Wait()

	var failure error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, errors.ErrCancelled) {
			r.interrupted(workflow.StepSentimentAnalysis, started, err)
			return false
		}
		if failure == nil {
			failure = err
		}
	}

	if failure != nil {
		r.annotations = []sentiment.Annotation{}
		r.failed(ctx, workflow.StepSentimentAnalysis, started, errors.Join(errors.ErrScoringUnavailable, failure))
		return true
	}

	annotations := make([]sentiment.Annotation, 0, len(r.docs))
	for _, anns := range results {
		annotations = append(annotations, anns...)
	}
	r.annotations = annotations

	span.SetAttributes(attribute.Int("annotations", len(annotations)), attribute.Int("batches", batches))
	r.completed(workflow.StepSentimentAnalysis, started,
		fmt.Sprintf("%d documents scored in %d batches", len(annotations), batches))
	return true
}

// checkAnnotations enforces one valid annotation per document in input order
func checkAnnotations(docs []document.Document, anns []sentiment.Annotation) ([]sentiment.Annotation, error) {
	if len(anns) != len(docs) {
		return nil, errors.Wrapf(errors.ErrScoringUnavailable, "scorer returned %d annotations for %d documents", len(anns), len(docs))
	}
	out := make([]sentiment.Annotation, len(anns))
	for i, a := range anns {
		if a.DocumentID == "" {
			a.DocumentID = docs[i].ID
		}
		if a.DocumentID != docs[i].ID {
			return nil, errors.Wrapf(errors.ErrScoringUnavailable, "annotation %d references %s, expected %s", i, a.DocumentID, docs[i].ID)
		}
		if !a.Valid() {
			return nil, errors.Wrapf(errors.ErrScoringUnavailable, "annotation for %s is invalid (label=%q score=%v)", a.DocumentID, a.Label, a.Score)
		}
		out[i] = a
	}
	return out, nil
}

// assess runs the aggregator over the complete annotation snapshot
func (r *runner) assess(ctx context.Context) bool {
	if r.checkCancelled(ctx, workflow.StepRiskAssessment) {
		return false
	}
	_, span := tracer.Start(ctx, "workflow.assess")
	defer span.End()

	started := time.Now()
	assessment, err := r.safeAssess()
	if err != nil {
		r.failed(ctx, workflow.StepRiskAssessment, started, err)
		return true
	}

	r.assessment = &assessment
	metrics.CrisisScore.Observe(assessment.CrisisScore)
	span.SetAttributes(
		attribute.Float64("crisis_score", assessment.CrisisScore),
		attribute.String("crisis_level", string(assessment.CrisisLevel)),
	)
	r.completed(workflow.StepRiskAssessment, started,
		fmt.Sprintf("crisis score %.2f (%s)", assessment.CrisisScore, assessment.CrisisLevel))
	return true
}

func (r *runner) safeAssess() (a risk.Assessment, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Wrapf(errors.ErrInternal, "risk assessment panicked: %v", p)
		}
	}()
	return r.e.deps.Assessor.Assess(r.annotations), nil
}

// responseTriggers are substrings that mark a mention as expecting a reply
var responseTriggers = []string{"?", "help", "support", "complaint", "refund"}

// candidates selects documents that warrant a generated response
func (r *runner) candidates() []response.Candidate {
	scored := len(r.annotations) == len(r.docs)

	var out []response.Candidate
	for i, d := range r.docs {
		c := response.Candidate{Document: d, Annotation: sentiment.Annotation{DocumentID: d.ID, Label: sentiment.LabelNeutral}}
		if scored {
			c.Annotation = r.annotations[i]
		}
		if c.Annotation.Label == sentiment.LabelNegative || text.ContainsAny(d.Text(), responseTriggers...) {
			out = append(out, c)
		}
	}
	return out
}

// generate drafts replies for the candidates. A generator failure is recorded
// and the run continues without responses.
func (r *runner) generate(ctx context.Context, candidates []response.Candidate) bool {
	if r.checkCancelled(ctx, workflow.StepResponseGeneration) {
		return false
	}
	if r.e.deps.Generator == nil {
		r.skip(workflow.StepResponseGeneration, "no generator configured")
		return true
	}

	ctx, span := tracer.Start(ctx, "workflow.generate")
	defer span.End()

	started := time.Now()
	in := response.Input{
		Brand:       r.req.Brand,
		Documents:   r.docs,
		Annotations: r.annotations,
		Candidates:  candidates,
	}
	if r.assessment != nil {
		in.Assessment = *r.assessment
	}

	plan, err := call(ctx, r, "response_generator", r.e.cfg.timeout(r.e.cfg.GenerateTimeout), func(c context.Context) (response.Plan, error) {
		return r.e.deps.Generator.Generate(c, in)
	})
	if errors.Is(err, errors.ErrCancelled) {
		r.interrupted(workflow.StepResponseGeneration, started, err)
		return false
	}
	if err != nil {
		r.failed(ctx, workflow.StepResponseGeneration, started, errors.Join(errors.ErrGenerationUnavailable, err))
		return true
	}

	plan.Responses = assignResponseIDs(plan.Responses)
	r.plan = plan

	span.SetAttributes(attribute.Int("responses", len(plan.Responses)), attribute.Int("candidates", len(candidates)))
	r.completed(workflow.StepResponseGeneration, started,
		fmt.Sprintf("%d responses for %d candidates", len(plan.Responses), len(candidates)))
	return true
}

// assignResponseIDs guarantees every response a unique id
func assignResponseIDs(in []response.GeneratedResponse) []response.GeneratedResponse {
	out := make([]response.GeneratedResponse, len(in))
	seen := make(map[string]struct{}, len(in))
	for i, resp := range in {
		if _, dup := seen[resp.ID]; resp.ID == "" || dup {
			for n := i + 1; ; n++ {
				id := fmt.Sprintf("resp-%d", n)
				if _, taken := seen[id]; !taken {
					resp.ID = id
					break
				}
			}
		}
		seen[resp.ID] = struct{}{}
		out[i] = resp
	}
	return out
}

// approve decides every response concurrently, then dispatches approved
// responses for publication and pending ones to the review queue.
func (r *runner) approve(ctx context.Context) bool {
	if r.checkCancelled(ctx, workflow.StepApproval) {
		return false
	}
	ctx, span := tracer.Start(ctx, "workflow.approve")
	defer span.End()

	started := time.Now()
	responses := r.plan.Responses
	outcomes := make([]workflow.ResponseOutcome, len(responses))
	ledger := newLedger()

	assessment := risk.Assessment{CrisisLevel: risk.LevelLow}
	if r.assessment != nil {
		assessment = *r.assessment
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.e.cfg.ApprovalConcurrency)

	for i, resp := range responses {
		wg.Add(1)
		go func(i int, resp response.GeneratedResponse) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			d := r.decide(resp, assessment)
			if err := ledger.record(d); err != nil {
				d = failSafe(resp, r.at, err.Error())
			}
			outcomes[i] = workflow.ResponseOutcome{Response: resp, Decision: d}
		}(i, resp)
	}
	wg.Wait()

	var approved, pending, rejected int
	for _, o := range outcomes {
		metrics.ApprovalDecisions.WithLabelValues(string(o.Decision.Status), o.Decision.ReviewerHint).Inc()
		metrics.ApprovalRiskScore.Observe(o.Decision.RiskScore)
		switch o.Decision.Status {
		case approval.StatusApprovedAuto:
			approved++
		case approval.StatusPendingHumanReview:
			pending++
		default:
			rejected++
		}
	}

	if approved > 0 {
		r.moveTo(workflow.StateAutoPublishing)
		if !r.dispatch(ctx, outcomes, approval.StatusApprovedAuto, started) {
			return false
		}
	}
	if pending > 0 {
		r.moveTo(workflow.StateEscalatingToHuman)
		if !r.dispatch(ctx, outcomes, approval.StatusPendingHumanReview, started) {
			return false
		}
	}

	r.outcomes = outcomes
	span.SetAttributes(attribute.Int("approved", approved), attribute.Int("pending", pending), attribute.Int("rejected", rejected))
	r.completed(workflow.StepApproval, started,
		fmt.Sprintf("%d auto-approved, %d pending review, %d rejected", approved, pending, rejected))
	return true
}

func (r *runner) decide(resp response.GeneratedResponse, a risk.Assessment) (d approval.Decision) {
	defer func() {
		if p := recover(); p != nil {
			d = failSafe(resp, r.at, fmt.Sprintf("approval policy panicked: %v", p))
		}
	}()

	actx := approval.Context{At: r.at, Platform: resp.Platform}
	if resp.SourceDocumentID != "" {
		for _, doc := range r.docs {
			if doc.ID == resp.SourceDocumentID {
				actx.SourceText = doc.Text()
				break
			}
		}
	}
	return r.e.deps.Policy.Decide(resp, a, actx)
}

// failSafe never lets a policy error publish a response
func failSafe(resp response.GeneratedResponse, at time.Time, reason string) approval.Decision {
	return approval.Decision{
		ResponseID:   resp.ID,
		Status:       approval.StatusPendingHumanReview,
		RiskScore:    1,
		ReviewerHint: approval.ReviewerGeneralReview,
		Reasoning:    "fail-safe review: " + reason,
		DecidedAt:    at,
	}
}

// dispatch hands decided responses of one status to their destination.
// Delivery errors are recorded on the outcome; only cancellation stops the run.
func (r *runner) dispatch(ctx context.Context, outcomes []workflow.ResponseOutcome, status approval.Status, started time.Time) bool {
	for i := range outcomes {
		o := &outcomes[i]
		if o.Decision.Status != status {
			continue
		}

		var (
			target string
			err    error
		)
		switch status {
		case approval.StatusApprovedAuto:
			target = "published"
			if pub := r.e.deps.Publisher; pub != nil {
				_, err = call(ctx, r, "publisher", r.e.cfg.DispatchTimeout, func(c context.Context) (struct{}, error) {
					return struct{}{}, pub.Publish(c, r.id, r.req.Brand, o.Response, o.Decision)
				})
			}
		case approval.StatusPendingHumanReview:
			target = "review_queue"
			if q := r.e.deps.Reviews; q != nil {
				req := approval.ReviewRequest{RunID: r.id, Brand: r.req.Brand, Response: o.Response, Decision: o.Decision}
				_, err = call(ctx, r, "review_queue", r.e.cfg.DispatchTimeout, func(c context.Context) (struct{}, error) {
					return struct{}{}, q.Enqueue(c, req)
				})
			}
		}

		if errors.Is(err, errors.ErrCancelled) {
			r.outcomes = outcomes
			r.interrupted(workflow.StepApproval, started, err)
			return false
		}
		o.Dispatch = workflow.Dispatch{Target: target}
		if err != nil {
			o.Dispatch.Error = err.Error()
			r.log.Warnw("Failed to dispatch response", "response_id", o.Response.ID, "target", target, "error", err)
			r.capture(ctx, err, workflow.StepApproval)
		}
	}
	return true
}

// escalate raises a crisis alert. Delivery failure is recorded but does not
// change the run's escalated status.
func (r *runner) escalate(ctx context.Context) bool {
	if r.checkCancelled(ctx, workflow.StepCrisisEscalation) {
		return false
	}
	ctx, span := tracer.Start(ctx, "workflow.escalate")
	defer span.End()

	started := time.Now()
	e := alert.Escalation{
		RunID:      r.id,
		Brand:      r.req.Brand,
		Assessment: *r.assessment,
		Actions:    EscalationActions(r.assessment.CrisisScore),
		Reviewers:  escalationReviewers(*r.assessment),
		DetectedAt: r.at,
	}
	r.escalation = &e

	if tr := r.e.deps.Tracker; tr != nil {
		msg := fmt.Sprintf("crisis escalation for %s (score %.2f)", e.Brand, e.Assessment.CrisisScore)
		_ = tr.CaptureMessage(context.WithoutCancel(ctx), msg, errors.LevelWarning, r.tags().With(errors.TagStep, string(workflow.StepCrisisEscalation)))
	}

	if r.e.deps.Escalator == nil {
		r.completed(workflow.StepCrisisEscalation, started, "no escalator configured")
		return true
	}

	_, err := call(ctx, r, "escalator", r.e.cfg.DispatchTimeout, func(c context.Context) (struct{}, error) {
		return struct{}{}, r.e.deps.Escalator.Escalate(c, e)
	})
	if errors.Is(err, errors.ErrCancelled) {
		r.interrupted(workflow.StepCrisisEscalation, started, err)
		return false
	}
	if err != nil {
		r.failed(ctx, workflow.StepCrisisEscalation, started, err)
		return true
	}

	r.completed(workflow.StepCrisisEscalation, started, strings.Join(e.Actions, ", "))
	return true
}

// EscalationActions lists the playbook for a crisis score
func EscalationActions(score float64) []string {
	switch {
	case score > 0.8:
		return []string{"notify_ceo_immediately", "activate_crisis_team", "prepare_press_statement", "monitor_social_sentiment_hourly"}
	case score > 0.6:
		return []string{"notify_pr_team", "increase_monitoring_frequency", "prepare_response_templates"}
	default:
		return []string{"notify_brand_manager", "continue_monitoring"}
	}
}

func escalationReviewers(a risk.Assessment) []string {
	reviewers := []string{"crisis_manager", "brand_director"}
	if a.CrisisLevel == risk.LevelSevere {
		reviewers = append(reviewers, "ceo")
	}
	return reviewers
}

// ledger enforces one decision per response
type ledger struct {
	mu      sync.Mutex
	decided map[string]struct{}
}

func newLedger() *ledger {
	return &ledger{decided: make(map[string]struct{})}
}

func (l *ledger) record(d approval.Decision) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.decided[d.ResponseID]; ok {
		return errors.Wrapf(errors.ErrAlreadyDecided, "response %s", d.ResponseID)
	}
	l.decided[d.ResponseID] = struct{}{}
	return nil
}
