package workflowservice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"brandpulse/internal/domain/alert"
	"brandpulse/internal/domain/approval"
	"brandpulse/internal/domain/document"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/risk"
	"brandpulse/internal/domain/sentiment"
	"brandpulse/internal/domain/workflow"
	riskservice "brandpulse/internal/services/risk"
	"brandpulse/pkg/errors"
)

var fixedNow = time.Date(2025, 6, 11, 11, 0, 0, 0, time.UTC)

func makeDocs(brand string, n int) []document.Document {
	docs := make([]document.Document, n)
	for i := range docs {
		docs[i] = document.Document{
			ID:          fmt.Sprintf("doc-%d", i+1),
			Title:       fmt.Sprintf("%s update %d", brand, i+1),
			Source:      brand,
			URL:         fmt.Sprintf("https://news.example.com/%s/%d", brand, i+1),
			PublishedAt: fixedNow.Add(-time.Duration(i) * time.Hour),
			Excerpt:     "Quarterly coverage of the brand",
		}
	}
	return docs
}

// mockSource returns a fixed batch or error, or delegates to fetch
type mockSource struct {
	mu    sync.Mutex
	calls int
	batch document.Batch
	err   error
	fetch func(ctx context.Context, q document.Query) (document.Batch, error)
}

func (m *mockSource) Fetch(ctx context.Context, q document.Query) (document.Batch, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.fetch != nil {
		return m.fetch(ctx, q)
	}
	return m.batch, m.err
}

func (m *mockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockFallback struct {
	batch document.Batch
	err   error
}

func (m *mockFallback) Fallback(ctx context.Context, q document.Query) (document.Batch, error) {
	return m.batch, m.err
}

// mockCache records stored batches
type mockCache struct {
	mockFallback
	mu     sync.Mutex
	stored map[string]document.Batch
}

func (m *mockCache) Store(ctx context.Context, brand string, batch document.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored == nil {
		m.stored = make(map[string]document.Batch)
	}
	m.stored[brand] = batch
	return nil
}

// mockScorer labels documents through label, defaulting to neutral
type mockScorer struct {
	mu    sync.Mutex
	calls int
	label func(d document.Document) (sentiment.Label, float64)
	score func(ctx context.Context, docs []document.Document) ([]sentiment.Annotation, error)
}

func (m *mockScorer) Score(ctx context.Context, docs []document.Document) ([]sentiment.Annotation, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.score != nil {
		return m.score(ctx, docs)
	}
	out := make([]sentiment.Annotation, len(docs))
	for i, d := range docs {
		label, score := sentiment.LabelNeutral, 0.0
		if m.label != nil {
			label, score = m.label(d)
		}
		out[i] = sentiment.Annotation{DocumentID: d.ID, Label: label, Score: score}
	}
	return out, nil
}

func (m *mockScorer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// fixedAssessor ignores its input
type fixedAssessor struct {
	assessment risk.Assessment
	panicWith  interface{}
}

func (f *fixedAssessor) Assess(annotations []sentiment.Annotation) risk.Assessment {
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.assessment
}

type mockGenerator struct {
	mu     sync.Mutex
	calls  int
	inputs []response.Input
	plan   response.Plan
	err    error
}

func (m *mockGenerator) Generate(ctx context.Context, in response.Input) (response.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.inputs = append(m.inputs, in)
	return m.plan, m.err
}

func (m *mockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockPolicy decides by response id; unknown ids are auto-approved
type mockPolicy struct {
	statuses  map[string]approval.Status
	panicOn   string
	mu        sync.Mutex
	decisions int
}

func (m *mockPolicy) Decide(r response.GeneratedResponse, a risk.Assessment, actx approval.Context) approval.Decision {
	m.mu.Lock()
	m.decisions++
	m.mu.Unlock()

	if r.ID == m.panicOn {
		panic("policy exploded")
	}
	status := approval.StatusApprovedAuto
	if s, ok := m.statuses[r.ID]; ok {
		status = s
	}
	d := approval.Decision{ResponseID: r.ID, Status: status, RiskScore: 0.1, DecidedAt: actx.At}
	if status == approval.StatusPendingHumanReview {
		d.RiskScore = 0.8
		d.ReviewerHint = approval.ReviewerGeneralReview
	}
	return d
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *recordingPublisher) Publish(ctx context.Context, runID, brand string, r response.GeneratedResponse, d approval.Decision) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, r.ID)
	return p.err
}

type recordingQueue struct {
	mu       sync.Mutex
	requests []approval.ReviewRequest
}

func (q *recordingQueue) Enqueue(ctx context.Context, req approval.ReviewRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.requests = append(q.requests, req)
	return nil
}

type recordingEscalator struct {
	mu          sync.Mutex
	escalations []alert.Escalation
	err         error
}

func (e *recordingEscalator) Escalate(ctx context.Context, esc alert.Escalation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.escalations = append(e.escalations, esc)
	return e.err
}

type recordingArchive struct {
	mu       sync.Mutex
	mentions []sentiment.Mention
}

func (a *recordingArchive) InsertMentions(ctx context.Context, mentions []sentiment.Mention) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mentions = append(a.mentions, mentions...)
	return nil
}

func (a *recordingArchive) GetBrandDaily(ctx context.Context, brand string, since time.Time) ([]sentiment.BrandDaily, error) {
	return nil, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	changes  []workflow.State
	steps    []workflow.Step
	finished []*workflow.Report
}

func (o *recordingObserver) StateChanged(runID string, from, to workflow.State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes = append(o.changes, to)
}

func (o *recordingObserver) StepFinished(runID string, result workflow.StepResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, result.Step)
}

func (o *recordingObserver) RunFinished(report *workflow.Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, report)
}

type countingTracker struct {
	mu          sync.Mutex
	tags        []map[string]string
	messages    []string
	breadcrumbs []string
}

func (c *countingTracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = append(c.tags, tags)
	return nil
}

func (c *countingTracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, string(level)+": "+message)
	return nil
}

func (c *countingTracker) AddBreadcrumb(ctx context.Context, message string, category string, level errors.Level, data map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breadcrumbs = append(c.breadcrumbs, message)
}

func (c *countingTracker) Flush(ctx context.Context) error { return nil }

func (c *countingTracker) Captured() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tags)
}

// fixture wires an engine with mocks; tests adjust fields before build
type fixture struct {
	cfg        Config
	source     *mockSource
	fallback   *mockFallback
	cache      *mockCache
	scorer     *mockScorer
	assessor   RiskAssessor
	generator  *mockGenerator
	policy     *mockPolicy
	// realPolicy replaces the mock policy when set
	realPolicy ApprovalPolicy
	publisher  *recordingPublisher
	queue      *recordingQueue
	escalator  *recordingEscalator
	archive    *recordingArchive
	observer   *recordingObserver
	tracker    *countingTracker
}

func newFixture(brand string, n int) *fixture {
	cfg := DefaultConfig()
	cfg.StageTimeout = 2 * time.Second
	cfg.CancelGrace = 200 * time.Millisecond

	return &fixture{
		cfg:       cfg,
		source:    &mockSource{batch: document.Batch{Documents: makeDocs(brand, n), TotalAvailable: n * 3}},
		cache:     &mockCache{},
		scorer:    &mockScorer{},
		assessor:  riskservice.NewAggregator(riskservice.DefaultConfig()),
		generator: &mockGenerator{},
		policy:    &mockPolicy{},
		publisher: &recordingPublisher{},
		queue:     &recordingQueue{},
		escalator: &recordingEscalator{},
		archive:   &recordingArchive{},
		observer:  &recordingObserver{},
		tracker:   &countingTracker{},
	}
}

func (f *fixture) build() (*Engine, error) {
	deps := Deps{
		Source:    f.source,
		Cache:     f.cache,
		Scorer:    f.scorer,
		Assessor:  f.assessor,
		Generator: f.generator,
		Policy:    f.policy,
		Publisher: f.publisher,
		Reviews:   f.queue,
		Escalator: f.escalator,
		Archive:   f.archive,
		Observer:  f.observer,
		Tracker:   f.tracker,
		Clock:     func() time.Time { return fixedNow },
	}
	if f.fallback != nil {
		deps.Fallback = f.fallback
	}
	if f.realPolicy != nil {
		deps.Policy = f.realPolicy
	}
	return New(f.cfg, deps)
}
