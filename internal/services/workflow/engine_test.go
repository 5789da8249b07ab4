package workflowservice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandpulse/internal/domain/approval"
	"brandpulse/internal/domain/document"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/risk"
	"brandpulse/internal/domain/sentiment"
	"brandpulse/internal/domain/workflow"
	approvalservice "brandpulse/internal/services/approval"
	"brandpulse/pkg/errors"
)

func run(t *testing.T, f *fixture, req workflow.Request) *workflow.Report {
	t.Helper()
	engine, err := f.build()
	require.NoError(t, err)

	report, err := engine.Run(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, report)
	return report
}

func stepOutcome(t *testing.T, r *workflow.Report, s workflow.Step) workflow.Outcome {
	t.Helper()
	res, ok := r.Step(s)
	require.True(t, ok, "step %s not recorded", s)
	return res.Outcome
}

// tenDocScenario labels doc-1 strongly negative, doc-2 mildly negative,
// doc-3..doc-7 positive and the rest neutral.
func tenDocScenario(d document.Document) (sentiment.Label, float64) {
	switch d.ID {
	case "doc-1":
		return sentiment.LabelNegative, -0.6
	case "doc-2":
		return sentiment.LabelNegative, -0.3
	case "doc-3", "doc-4", "doc-5", "doc-6", "doc-7":
		return sentiment.LabelPositive, 0.5
	}
	return sentiment.LabelNeutral, 0
}

func TestEngine_New_RequiresCoreCollaborators(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInternal))
}

func TestEngine_Run_InvalidRequestIsRejectedBeforeRun(t *testing.T) {
	f := newFixture("acme", 10)
	engine, err := f.build()
	require.NoError(t, err)

	report, err := engine.Run(context.Background(), workflow.Request{Brand: "x", MaxDocuments: 50})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	assert.Equal(t, 0, f.source.Calls())
	assert.Empty(t, f.observer.finished)
}

func TestEngine_Run_FullPipelineWithFanOut(t *testing.T) {
	f := newFixture("acme", 10)
	f.scorer.label = tenDocScenario
	f.generator.plan = response.Plan{
		Responses: []response.GeneratedResponse{
			{ID: "r1", Text: "We are sorry, a fix is on the way.", Quality: 0.9, SourceDocumentID: "doc-1"},
			{ID: "r2", Text: "Please DM us your order number.", Quality: 0.6, SourceDocumentID: "doc-2"},
		},
		NextActions: []string{"Follow up with doc-1 author"},
	}
	f.policy.statuses = map[string]approval.Status{"r2": approval.StatusPendingHumanReview}

	report := run(t, f, workflow.Request{Brand: "acme"})

	assert.Equal(t, workflow.StatusSucceeded, report.Status)
	assert.True(t, report.Success)
	assert.False(t, report.Degraded)
	assert.Len(t, report.Documents, 10)
	assert.Equal(t, 30, report.TotalAvailable)
	assert.Empty(t, report.FailedSteps)
	assert.Equal(t, []string{
		"data_collection", "sentiment_analysis", "risk_assessment", "response_generation", "approval", "finalize",
	}, report.StepsCompleted)

	require.NotNil(t, report.RiskAssessment)
	assert.InDelta(t, 0.16, report.RiskAssessment.CrisisScore, 1e-9)
	assert.Equal(t, risk.LevelLow, report.RiskAssessment.CrisisLevel)

	assert.Equal(t, []workflow.State{
		workflow.StateInitialized,
		workflow.StateCollecting,
		workflow.StateScoring,
		workflow.StateAssessingRisk,
		workflow.StateGeneratingResponses,
		workflow.StateApproving,
		workflow.StateAutoPublishing,
		workflow.StateEscalatingToHuman,
		workflow.StateFinalizing,
		workflow.StateFinalized,
	}, report.States)

	// only the two negative documents warrant a response
	require.Len(t, f.generator.inputs, 1)
	assert.Len(t, f.generator.inputs[0].Candidates, 2)

	require.Len(t, report.Responses, 2)
	assert.Equal(t, approval.StatusApprovedAuto, report.Responses[0].Decision.Status)
	assert.Equal(t, "published", report.Responses[0].Dispatch.Target)
	assert.Equal(t, approval.StatusPendingHumanReview, report.Responses[1].Decision.Status)
	assert.Equal(t, "review_queue", report.Responses[1].Dispatch.Target)

	assert.Equal(t, []string{"r1"}, f.publisher.published)
	require.Len(t, f.queue.requests, 1)
	assert.Equal(t, "r2", f.queue.requests[0].Response.ID)
	assert.Equal(t, report.RunID, f.queue.requests[0].RunID)

	// decisions share the run's decision time
	for _, o := range report.Responses {
		assert.Equal(t, fixedNow, o.Decision.DecidedAt)
	}

	assert.Contains(t, report.Recommendations, RecAdjustThresholds)
	assert.Contains(t, report.Recommendations, RecImproveQuality)
	assert.Contains(t, report.Recommendations, RecContinueMonitoring)
	assert.NotContains(t, report.Recommendations, RecHeightenedMonitor)
	assert.Equal(t, []string{"Follow up with doc-1 author", "Review 1 pending responses in dashboard"}, report.NextActions)

	assert.Len(t, f.archive.mentions, 10)
	assert.Contains(t, f.cache.stored, "acme")
	assert.Zero(t, f.escalator.escalations)
	require.Len(t, f.observer.finished, 1)
	assert.Same(t, report, f.observer.finished[0])
}

func TestEngine_Run_SourceUnavailableDegrades(t *testing.T) {
	f := newFixture("acme", 10)
	f.source.err = errors.Wrap(errors.ErrSourceUnavailable, "newsapi returned 401")

	report := run(t, f, workflow.Request{Brand: "acme"})

	assert.Equal(t, workflow.StatusSucceeded, report.Status)
	assert.True(t, report.Success)
	assert.True(t, report.Degraded)
	assert.Empty(t, report.Documents)
	assert.Equal(t, []string{"data_collection"}, report.FailedSteps)
	assert.True(t, report.Visited(workflow.StateFinalized))

	require.NotNil(t, report.RiskAssessment)
	assert.Equal(t, 0.0, report.RiskAssessment.CrisisScore)
	assert.Equal(t, workflow.OutcomeSkipped, stepOutcome(t, report, workflow.StepSentimentAnalysis))
	assert.Equal(t, 0, f.scorer.Calls())

	assert.Contains(t, report.Recommendations, RecVerifySource)
	assert.Contains(t, report.Recommendations, RecInsufficientData)

	require.GreaterOrEqual(t, f.tracker.Captured(), 1)
	assert.Equal(t, "data_collection", f.tracker.tags[0]["step"])
	assert.Equal(t, report.RunID, f.tracker.tags[0]["run_id"])
}

func TestEngine_Run_SourceFailureUsesFallback(t *testing.T) {
	f := newFixture("acme", 10)
	f.source.err = errors.ErrSourceUnavailable
	f.fallback = &mockFallback{batch: document.Batch{Documents: makeDocs("acme", 4), TotalAvailable: 4}}

	report := run(t, f, workflow.Request{Brand: "acme"})

	assert.Equal(t, workflow.StatusSucceeded, report.Status)
	assert.True(t, report.Degraded)
	assert.Len(t, report.Documents, 4)
	assert.Equal(t, []string{"data_collection"}, report.FailedSteps)
	assert.Equal(t, 1, f.scorer.Calls())
	assert.Empty(t, f.cache.stored, "fallback batches are not written back")
}

func TestEngine_Run_TruncatesAndAssignsDocumentIDs(t *testing.T) {
	f := newFixture("acme", 0)
	docs := makeDocs("acme", 8)
	for i := range docs {
		docs[i].ID = ""
	}
	f.source.batch = document.Batch{Documents: docs, TotalAvailable: 8}

	report := run(t, f, workflow.Request{Brand: "acme", MaxDocuments: 5})

	require.Len(t, report.Documents, 5)
	for i, d := range report.Documents {
		assert.Equal(t, fmt.Sprintf("doc-%d", i+1), d.ID)
	}
}

func TestEngine_Run_CrisisEscalationBypassesAdvisoryPipeline(t *testing.T) {
	f := newFixture("acme", 10)
	f.assessor = &fixedAssessor{assessment: risk.Assessment{
		CrisisScore:                0.85,
		CrisisLevel:                risk.LevelSevere,
		NegativeSentimentRatio:     0.9,
		CrisisIndicatorCount:       7,
		RequiresImmediateAttention: true,
		TotalAnnotations:           10,
		NegativeCount:              9,
	}}

	report := run(t, f, workflow.Request{Brand: "acme"})

	assert.Equal(t, workflow.StatusEscalated, report.Status)
	assert.True(t, report.Success)
	assert.False(t, report.Visited(workflow.StateGeneratingResponses))
	assert.False(t, report.Visited(workflow.StateApproving))
	assert.True(t, report.Visited(workflow.StateCrisisEscalation))
	assert.Equal(t, workflow.StateFinalized, report.States[len(report.States)-1])
	assert.Equal(t, 0, f.generator.Calls())

	assert.Equal(t, workflow.OutcomeSkipped, stepOutcome(t, report, workflow.StepResponseGeneration))
	assert.Equal(t, workflow.OutcomeSkipped, stepOutcome(t, report, workflow.StepApproval))
	assert.Equal(t, workflow.OutcomeCompleted, stepOutcome(t, report, workflow.StepCrisisEscalation))

	require.Len(t, f.escalator.escalations, 1)
	esc := f.escalator.escalations[0]
	assert.Equal(t, report.RunID, esc.RunID)
	assert.Equal(t, []string{
		"notify_ceo_immediately", "activate_crisis_team", "prepare_press_statement", "monitor_social_sentiment_hourly",
	}, esc.Actions)
	assert.Contains(t, esc.Reviewers, "ceo")

	require.NotNil(t, report.Escalation)
	assert.Contains(t, report.NextActions, "notify_ceo_immediately")
	assert.Contains(t, report.NextActions, ActionMonitorCloseness)
	assert.Contains(t, report.Recommendations, RecHeightenedMonitor)

	assert.Equal(t, []string{"warning: crisis escalation for acme (score 0.85)"}, f.tracker.messages)
	assert.Contains(t, f.tracker.breadcrumbs, "crisis_escalation completed")
}

func TestEngine_Run_CeilingIsExclusive(t *testing.T) {
	f := newFixture("acme", 10)
	f.assessor = &fixedAssessor{assessment: risk.Assessment{CrisisScore: 0.8, CrisisLevel: risk.LevelSevere, TotalAnnotations: 10}}

	report := run(t, f, workflow.Request{Brand: "acme"})

	assert.Equal(t, workflow.StatusSucceeded, report.Status)
	assert.False(t, report.Visited(workflow.StateCrisisEscalation))
}

func TestEngine_Run_ZeroCeilingEscalatesAnyScore(t *testing.T) {
	f := newFixture("acme", 10)
	f.cfg.EscalationCeiling = 0
	f.assessor = &fixedAssessor{assessment: risk.Assessment{CrisisScore: 0.05, CrisisLevel: risk.LevelLow, TotalAnnotations: 10}}

	report := run(t, f, workflow.Request{Brand: "acme"})

	assert.Equal(t, workflow.StatusEscalated, report.Status)
	assert.True(t, report.Visited(workflow.StateCrisisEscalation))
}

func TestEngine_Run_EscalatorFailureKeepsEscalatedStatus(t *testing.T) {
	f := newFixture("acme", 10)
	f.assessor = &fixedAssessor{assessment: risk.Assessment{CrisisScore: 0.95, CrisisLevel: risk.LevelSevere, TotalAnnotations: 10}}
	f.escalator.err = errors.ErrUnavailable

	report := run(t, f, workflow.Request{Brand: "acme"})

	assert.Equal(t, workflow.StatusEscalated, report.Status)
	assert.Equal(t, []string{"crisis_escalation"}, report.FailedSteps)
}

func TestEngine_Run_TotalFailureIsFailed(t *testing.T) {
	f := newFixture("acme", 10)
	f.source.err = errors.ErrSourceUnavailable
	f.assessor = &fixedAssessor{panicWith: "aggregator bug"}

	report := run(t, f, workflow.Request{Brand: "acme"})

	assert.Equal(t, workflow.StatusFailed, report.Status)
	assert.False(t, report.Success)
	assert.Nil(t, report.RiskAssessment)
	assert.Equal(t, []string{"data_collection", "risk_assessment"}, report.FailedSteps)
	assert.True(t, report.Visited(workflow.StateFinalized))
}

func TestEngine_Run_ScorerTimeoutFailsStage(t *testing.T) {
	f := newFixture("acme", 3)
	f.cfg.ScoreTimeout = 50 * time.Millisecond
	f.scorer.score = func(ctx context.Context, docs []document.Document) ([]sentiment.Annotation, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	report := run(t, f, workflow.Request{Brand: "acme", MaxDocuments: 3})

	assert.Equal(t, workflow.StatusSucceeded, report.Status)
	assert.Equal(t, []string{"sentiment_analysis"}, report.FailedSteps)
	res, _ := report.Step(workflow.StepSentimentAnalysis)
	assert.Contains(t, res.Error, errors.ErrScoringUnavailable.Error())

	require.NotNil(t, report.RiskAssessment)
	assert.Equal(t, 0, report.RiskAssessment.TotalAnnotations)
	assert.Empty(t, f.archive.mentions)
}

func TestEngine_Run_ScorerContractViolations(t *testing.T) {
	tests := []struct {
		name  string
		score func(ctx context.Context, docs []document.Document) ([]sentiment.Annotation, error)
	}{
		{
			name: "dropped annotation",
			score: func(ctx context.Context, docs []document.Document) ([]sentiment.Annotation, error) {
				return []sentiment.Annotation{{DocumentID: docs[0].ID, Label: sentiment.LabelNeutral}}, nil
			},
		},
		{
			name: "out of range score",
			score: func(ctx context.Context, docs []document.Document) ([]sentiment.Annotation, error) {
				out := make([]sentiment.Annotation, len(docs))
				for i, d := range docs {
					out[i] = sentiment.Annotation{DocumentID: d.ID, Label: sentiment.LabelNegative, Score: -1.5}
				}
				return out, nil
			},
		},
		{
			name: "reordered",
			score: func(ctx context.Context, docs []document.Document) ([]sentiment.Annotation, error) {
				out := make([]sentiment.Annotation, len(docs))
				for i := range docs {
					out[i] = sentiment.Annotation{DocumentID: docs[len(docs)-1-i].ID, Label: sentiment.LabelNeutral}
				}
				return out, nil
			},
		},
		{
			name: "panic",
			score: func(ctx context.Context, docs []document.Document) ([]sentiment.Annotation, error) {
				panic("scorer bug")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture("acme", 4)
			f.scorer.score = tt.score

			report := run(t, f, workflow.Request{Brand: "acme", MaxDocuments: 4})

			assert.Equal(t, workflow.StatusSucceeded, report.Status)
			assert.Equal(t, workflow.OutcomeFailed, stepOutcome(t, report, workflow.StepSentimentAnalysis))
			assert.Equal(t, 0, report.RiskAssessment.TotalAnnotations)
		})
	}
}

func TestEngine_Run_ScoringBatchesPreserveOrder(t *testing.T) {
	f := newFixture("acme", 12)
	f.cfg.ScoringBatchSize = 5

	report := run(t, f, workflow.Request{Brand: "acme", MaxDocuments: 12})

	assert.Equal(t, 3, f.scorer.Calls())
	require.Len(t, f.archive.mentions, 12)
	for i, m := range f.archive.mentions {
		assert.Equal(t, report.Documents[i].ID, m.DocumentID)
	}
}

func TestEngine_Run_GeneratorFailureIsNonFatal(t *testing.T) {
	f := newFixture("acme", 10)
	f.scorer.label = tenDocScenario
	f.generator.err = errors.Wrap(errors.ErrGenerationUnavailable, "model overloaded")

	report := run(t, f, workflow.Request{Brand: "acme"})

	assert.Equal(t, workflow.StatusSucceeded, report.Status)
	assert.Equal(t, []string{"response_generation"}, report.FailedSteps)
	assert.Equal(t, workflow.OutcomeSkipped, stepOutcome(t, report, workflow.StepApproval))
	assert.Empty(t, report.Responses)
	assert.False(t, report.Visited(workflow.StateApproving))
}

func TestEngine_Run_NoCandidatesSkipsGeneration(t *testing.T) {
	f := newFixture("acme", 5)

	report := run(t, f, workflow.Request{Brand: "acme", MaxDocuments: 5})

	assert.Equal(t, workflow.StatusSucceeded, report.Status)
	assert.Equal(t, 0, f.generator.Calls())
	assert.Equal(t, workflow.OutcomeSkipped, stepOutcome(t, report, workflow.StepResponseGeneration))
	assert.Contains(t, report.Recommendations, RecPromotePositive)
}

func TestEngine_Run_QuestionWarrantsResponse(t *testing.T) {
	f := newFixture("acme", 0)
	docs := makeDocs("acme", 3)
	docs[1].Excerpt = "Does anyone know how to get a refund?"
	f.source.batch = document.Batch{Documents: docs, TotalAvailable: 3}

	run(t, f, workflow.Request{Brand: "acme", MaxDocuments: 3})

	require.Len(t, f.generator.inputs, 1)
	require.Len(t, f.generator.inputs[0].Candidates, 1)
	assert.Equal(t, "doc-2", f.generator.inputs[0].Candidates[0].Document.ID)
}

func TestEngine_Run_AssignsUniqueResponseIDs(t *testing.T) {
	f := newFixture("acme", 10)
	f.scorer.label = tenDocScenario
	f.generator.plan = response.Plan{Responses: []response.GeneratedResponse{
		{Text: "a", Quality: 0.9},
		{ID: "dup", Text: "b", Quality: 0.9},
		{ID: "dup", Text: "c", Quality: 0.9},
	}}

	report := run(t, f, workflow.Request{Brand: "acme"})

	require.Len(t, report.Responses, 3)
	ids := []string{report.Responses[0].Response.ID, report.Responses[1].Response.ID, report.Responses[2].Response.ID}
	assert.Equal(t, []string{"resp-1", "dup", "resp-3"}, ids)
	for i, o := range report.Responses {
		assert.Equal(t, ids[i], o.Decision.ResponseID)
	}
}

func TestEngine_Run_PolicyPanicFailsSafeToReview(t *testing.T) {
	f := newFixture("acme", 10)
	f.scorer.label = tenDocScenario
	f.generator.plan = response.Plan{Responses: []response.GeneratedResponse{{ID: "r1", Text: "hello", Quality: 0.9}}}
	f.policy.panicOn = "r1"

	report := run(t, f, workflow.Request{Brand: "acme"})

	require.Len(t, report.Responses, 1)
	d := report.Responses[0].Decision
	assert.Equal(t, approval.StatusPendingHumanReview, d.Status)
	assert.Equal(t, approval.ReviewerGeneralReview, d.ReviewerHint)
	assert.Empty(t, f.publisher.published)
	assert.Len(t, f.queue.requests, 1)
}

func TestEngine_Run_RejectedResponsesAreNotDispatched(t *testing.T) {
	f := newFixture("acme", 10)
	f.scorer.label = tenDocScenario
	f.generator.plan = response.Plan{Responses: []response.GeneratedResponse{{ID: "r1", Text: "", Quality: 0.1}}}
	f.policy.statuses = map[string]approval.Status{"r1": approval.StatusRejected}

	report := run(t, f, workflow.Request{Brand: "acme"})

	require.Len(t, report.Responses, 1)
	assert.Empty(t, report.Responses[0].Dispatch.Target)
	assert.False(t, report.Visited(workflow.StateAutoPublishing))
	assert.False(t, report.Visited(workflow.StateEscalatingToHuman))
	assert.Empty(t, f.publisher.published)
	assert.Empty(t, f.queue.requests)
}

func TestEngine_Run_PublisherErrorIsRecordedOnOutcome(t *testing.T) {
	f := newFixture("acme", 10)
	f.scorer.label = tenDocScenario
	f.generator.plan = response.Plan{Responses: []response.GeneratedResponse{{ID: "r1", Text: "hello", Quality: 0.9}}}
	f.publisher.err = errors.ErrUnavailable

	report := run(t, f, workflow.Request{Brand: "acme"})

	assert.Equal(t, workflow.StatusSucceeded, report.Status)
	require.Len(t, report.Responses, 1)
	assert.Equal(t, "published", report.Responses[0].Dispatch.Target)
	assert.NotEmpty(t, report.Responses[0].Dispatch.Error)
	assert.Equal(t, workflow.OutcomeCompleted, stepOutcome(t, report, workflow.StepApproval))
}

func TestEngine_Run_WithRealAggregatorAndPolicy(t *testing.T) {
	f := newFixture("acme", 10)
	f.scorer.label = tenDocScenario
	f.generator.plan = response.Plan{Responses: []response.GeneratedResponse{
		{ID: "r1", Text: "Thanks for reaching out, we are looking into it.", Quality: 0.9, SourceDocumentID: "doc-1"},
		{ID: "r2", Text: "We guarantee a full refund to everyone, no lawsuit needed.", Quality: 0.3, SourceDocumentID: "doc-2"},
	}}
	policy, err := approvalservice.NewPolicyEngine(approvalservice.DefaultConfig())
	require.NoError(t, err)
	f.realPolicy = policy

	report := run(t, f, workflow.Request{Brand: "acme"})

	require.Len(t, report.Responses, 2)
	assert.Equal(t, approval.StatusApprovedAuto, report.Responses[0].Decision.Status)
	assert.InDelta(t, 0.105, report.Responses[0].Decision.RiskScore, 1e-9)
	assert.Equal(t, approval.StatusPendingHumanReview, report.Responses[1].Decision.Status)
	assert.Contains(t, report.Responses[1].Decision.ContentFlags, approvalservice.CategoryLegal)
	assert.Equal(t, []string{"r1"}, f.publisher.published)
}

func TestEngine_Run_CancellationDuringCollection(t *testing.T) {
	f := newFixture("acme", 10)
	started := make(chan struct{})
	f.source.fetch = func(ctx context.Context, q document.Query) (document.Batch, error) {
		close(started)
		<-ctx.Done()
		return document.Batch{}, ctx.Err()
	}

	engine, err := f.build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	report, err := engine.Run(ctx, workflow.Request{Brand: "acme"})
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusFailed, report.Status)
	assert.False(t, report.Success)
	assert.Equal(t, workflow.OutcomeCancelled, stepOutcome(t, report, workflow.StepDataCollection))
	assert.Equal(t, []string{"data_collection"}, report.FailedSteps)
	_, finalized := report.Step(workflow.StepFinalize)
	assert.False(t, finalized)
	assert.Equal(t, workflow.StateFinalized, report.States[len(report.States)-1])
	assert.Empty(t, report.Documents)
	assert.Nil(t, report.RiskAssessment)
	assert.Equal(t, 0, f.scorer.Calls())
}

func TestEngine_Run_CancellationDoesNotWaitForUnresponsiveAdapter(t *testing.T) {
	f := newFixture("acme", 10)
	release := make(chan struct{})
	defer close(release)

	started := make(chan struct{})
	f.source.fetch = func(ctx context.Context, q document.Query) (document.Batch, error) {
		close(started)
		<-release
		return document.Batch{}, nil
	}

	engine, err := f.build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	begin := time.Now()
	report, err := engine.Run(ctx, workflow.Request{Brand: "acme"})
	require.NoError(t, err)

	assert.Less(t, time.Since(begin), time.Second)
	assert.Equal(t, workflow.StatusFailed, report.Status)
	assert.Equal(t, workflow.OutcomeCancelled, stepOutcome(t, report, workflow.StepDataCollection))
}

func TestEngine_Run_AlreadyCancelledContext(t *testing.T) {
	f := newFixture("acme", 10)
	engine, err := f.build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := engine.Run(ctx, workflow.Request{Brand: "acme"})
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusFailed, report.Status)
	assert.Equal(t, 0, f.source.Calls())
	assert.Len(t, report.Steps, 1)
}

func TestEngine_Run_ConcurrentRunsAreIsolated(t *testing.T) {
	f := newFixture("", 0)
	f.source.fetch = func(ctx context.Context, q document.Query) (document.Batch, error) {
		return document.Batch{Documents: makeDocs(q.Brand, q.MaxDocuments), TotalAvailable: q.MaxDocuments}, nil
	}
	f.scorer.label = func(d document.Document) (sentiment.Label, float64) {
		if strings.HasPrefix(d.Source, "bad") {
			return sentiment.LabelNegative, -0.9
		}
		return sentiment.LabelPositive, 0.7
	}

	engine, err := f.build()
	require.NoError(t, err)

	brands := []string{"bad-one", "good-one", "bad-two", "good-two", "bad-three", "good-three", "bad-four", "good-four"}
	reports := make([]*workflow.Report, len(brands))

	var wg sync.WaitGroup
	for i, brand := range brands {
		wg.Add(1)
		go func(i int, brand string) {
			defer wg.Done()
			r, err := engine.Run(context.Background(), workflow.Request{Brand: brand, MaxDocuments: 3 + i})
			assert.NoError(t, err)
			reports[i] = r
		}(i, brand)
	}
	wg.Wait()

	ids := make(map[string]struct{})
	for i, brand := range brands {
		r := reports[i]
		require.NotNil(t, r)
		assert.Equal(t, brand, r.Brand)
		assert.Len(t, r.Documents, 3+i)
		for _, d := range r.Documents {
			assert.Equal(t, brand, d.Source)
		}
		require.NotNil(t, r.RiskAssessment)
		assert.Equal(t, 3+i, r.RiskAssessment.TotalAnnotations)

		if strings.HasPrefix(brand, "bad") {
			assert.Equal(t, workflow.StatusEscalated, r.Status)
			assert.InDelta(t, 1.0, r.RiskAssessment.CrisisScore, 1e-9)
		} else {
			assert.Equal(t, workflow.StatusSucceeded, r.Status)
			assert.Equal(t, 0.0, r.RiskAssessment.CrisisScore)
		}

		ids[r.RunID] = struct{}{}
	}
	assert.Len(t, ids, len(brands))
}

func TestEscalationActions(t *testing.T) {
	assert.Len(t, EscalationActions(0.81), 4)
	assert.Equal(t, []string{"notify_pr_team", "increase_monitoring_frequency", "prepare_response_templates"}, EscalationActions(0.8))
	assert.Equal(t, []string{"notify_brand_manager", "continue_monitoring"}, EscalationActions(0.6))
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupe([]string{"a", "", "b", "a"}))
	assert.Empty(t, dedupe(nil))
}
