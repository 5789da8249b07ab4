package alertservice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandpulse/internal/domain/alert"
	"brandpulse/internal/domain/approval"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/risk"
	"brandpulse/internal/events"
	"brandpulse/pkg/errors"
)

// memoryRepo is an in-memory alert.Repository
type memoryRepo struct {
	mu        sync.Mutex
	alerts    map[uuid.UUID]*alert.Alert
	createErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{alerts: make(map[uuid.UUID]*alert.Alert)}
}

func (m *memoryRepo) Create(ctx context.Context, a *alert.Alert) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = alert.StatusOpen
	}
	cp := *a
	m.alerts[a.ID] = &cp
	return nil
}

func (m *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*alert.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryRepo) List(ctx context.Context, f alert.Filter) ([]*alert.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*alert.Alert
	for _, a := range m.alerts {
		if f.Brand == "" || a.Brand == f.Brand {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryRepo) Acknowledge(ctx context.Context, id uuid.UUID, assignee string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return errors.ErrNotFound
	}
	if a.Status != alert.StatusOpen {
		return errors.ErrInvalidTransition
	}
	a.Status = alert.StatusAcknowledged
	a.Assignee = assignee
	return nil
}

func (m *memoryRepo) Resolve(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return errors.ErrNotFound
	}
	if a.Status == alert.StatusResolved {
		return errors.ErrInvalidTransition
	}
	a.Status = alert.StatusResolved
	return nil
}

func (m *memoryRepo) only(t *testing.T) *alert.Alert {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.alerts, 1)
	for _, a := range m.alerts {
		return a
	}
	return nil
}

type recordingEvents struct {
	mu        sync.Mutex
	published []string
	reviews   []string
	crises    []string
	err       error
}

func (r *recordingEvents) PublishResponse(ctx context.Context, runID, brand string, resp response.GeneratedResponse, d approval.Decision, reviewer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, resp.ID+"@"+reviewer)
	return r.err
}

func (r *recordingEvents) PublishReviewRequested(ctx context.Context, alertID string, req approval.ReviewRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviews = append(r.reviews, alertID)
	return r.err
}

func (r *recordingEvents) PublishCrisis(ctx context.Context, alertID string, e alert.Escalation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.crises = append(r.crises, alertID)
	return r.err
}

type recordingNotifier struct {
	crises  int
	reviews int
	err     error
}

func (n *recordingNotifier) NotifyCrisis(ctx context.Context, e alert.Escalation) error {
	n.crises++
	return n.err
}

func (n *recordingNotifier) NotifyReview(ctx context.Context, req approval.ReviewRequest) error {
	n.reviews++
	return n.err
}

func reviewRequest() approval.ReviewRequest {
	return approval.ReviewRequest{
		RunID:    "run-1",
		Brand:    "Acme",
		Response: response.GeneratedResponse{ID: "reply-d1", Text: "We hear you. Please DM us."},
		Decision: approval.Decision{
			ResponseID:   "reply-d1",
			Status:       approval.StatusPendingHumanReview,
			RiskScore:    0.75,
			ReviewerHint: approval.ReviewerLegal,
		},
	}
}

func TestService_Enqueue(t *testing.T) {
	repo := newMemoryRepo()
	ev := &recordingEvents{}
	notifier := &recordingNotifier{err: errors.New("telegram down")}
	s := NewService(repo, ev, notifier)

	require.NoError(t, s.Enqueue(context.Background(), reviewRequest()), "notification failures are not fatal")

	a := repo.only(t)
	assert.Equal(t, alert.TypeHumanReview, a.Type)
	assert.Equal(t, alert.SeverityWarning, a.Severity)
	assert.Equal(t, "legal", a.Assignee)
	assert.Equal(t, 0.75, a.CrisisScore)
	assert.Equal(t, []string{a.ID.String()}, ev.reviews)
	assert.Equal(t, 1, notifier.reviews)
}

func TestService_Enqueue_PersistenceFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.createErr = errors.New("db down")
	ev := &recordingEvents{}
	s := NewService(repo, ev, nil)

	err := s.Enqueue(context.Background(), reviewRequest())
	require.Error(t, err)
	assert.Empty(t, ev.reviews)
}

func TestService_Escalate(t *testing.T) {
	repo := newMemoryRepo()
	ev := &recordingEvents{}
	notifier := &recordingNotifier{}
	s := NewService(repo, ev, notifier)

	detected := time.Date(2025, 6, 11, 11, 0, 0, 0, time.UTC)
	err := s.Escalate(context.Background(), alert.Escalation{
		RunID:      "run-1",
		Brand:      "Acme",
		Assessment: risk.Assessment{CrisisScore: 0.85, CrisisLevel: risk.LevelSevere},
		Actions:    []string{"notify_ceo_immediately", "activate_crisis_team"},
		Reviewers:  []string{"crisis_manager", "ceo"},
		DetectedAt: detected,
	})
	require.NoError(t, err)

	a := repo.only(t)
	assert.Equal(t, alert.TypeCrisis, a.Type)
	assert.Equal(t, alert.SeverityCritical, a.Severity)
	assert.Equal(t, "notify_ceo_immediately, activate_crisis_team", a.Message)
	assert.Equal(t, detected, a.CreatedAt)
	assert.Equal(t, []string{a.ID.String()}, ev.crises)
	assert.Equal(t, 1, notifier.crises)
}

func TestService_Escalate_ReportsFanOutFailures(t *testing.T) {
	ev := &recordingEvents{err: errors.New("broker down")}
	notifier := &recordingNotifier{err: errors.New("telegram down")}
	s := NewService(newMemoryRepo(), ev, notifier)

	err := s.Escalate(context.Background(), alert.Escalation{Brand: "Acme", Assessment: risk.Assessment{CrisisScore: 0.9}})
	require.Error(t, err)

	var multi *errors.MultiError
	require.True(t, errors.As(err, &multi))
	assert.Len(t, multi.Errors, 2)
}

func TestService_Publish(t *testing.T) {
	ev := &recordingEvents{}
	s := NewService(newMemoryRepo(), ev, nil)

	require.NoError(t, s.Publish(context.Background(), "run-1", "Acme", response.GeneratedResponse{ID: "reply-1"}, approval.Decision{}))
	assert.Equal(t, []string{"reply-1@"}, ev.published)

	require.NoError(t, NewService(newMemoryRepo(), nil, nil).
		Publish(context.Background(), "run-1", "Acme", response.GeneratedResponse{ID: "reply-2"}, approval.Decision{}))
}

func TestService_CompleteReview(t *testing.T) {
	repo := newMemoryRepo()
	ev := &recordingEvents{}
	s := NewService(repo, ev, nil)
	ctx := context.Background()

	req := reviewRequest()
	require.NoError(t, s.Enqueue(ctx, req))
	a := repo.only(t)

	done := events.ReviewCompletedEvent{
		AlertID:  a.ID.String(),
		RunID:    req.RunID,
		Brand:    req.Brand,
		Response: req.Response,
		Decision: req.Decision,
		Approved: true,
		Reviewer: "jane",
	}
	require.NoError(t, s.CompleteReview(ctx, done))

	a = repo.only(t)
	assert.Equal(t, alert.StatusResolved, a.Status)
	assert.Equal(t, "jane", a.Assignee)
	assert.Equal(t, []string{"reply-d1@jane"}, ev.published)

	// redelivery is a no-op
	require.NoError(t, s.CompleteReview(ctx, done))
	assert.Len(t, ev.published, 1)
}

func TestService_CompleteReview_Rejected(t *testing.T) {
	repo := newMemoryRepo()
	ev := &recordingEvents{}
	s := NewService(repo, ev, nil)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, reviewRequest()))
	a := repo.only(t)

	require.NoError(t, s.CompleteReview(ctx, events.ReviewCompletedEvent{AlertID: a.ID.String(), Reviewer: "jane"}))
	assert.Empty(t, ev.published)
	assert.Equal(t, alert.StatusResolved, repo.only(t).Status)
}

func TestService_CompleteReview_BadAlertID(t *testing.T) {
	s := NewService(newMemoryRepo(), nil, nil)

	err := s.CompleteReview(context.Background(), events.ReviewCompletedEvent{AlertID: "nope"})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	err = s.CompleteReview(context.Background(), events.ReviewCompletedEvent{AlertID: uuid.NewString()})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestService_Acknowledge_RequiresAssignee(t *testing.T) {
	s := NewService(newMemoryRepo(), nil, nil)
	err := s.Acknowledge(context.Background(), uuid.New(), "  ")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
