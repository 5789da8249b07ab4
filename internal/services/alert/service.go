package alertservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"brandpulse/internal/domain/alert"
	"brandpulse/internal/domain/approval"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/events"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
	"brandpulse/pkg/text"
)

// Compile-time checks
var (
	_ approval.Publisher   = (*Service)(nil)
	_ approval.ReviewQueue = (*Service)(nil)
	_ alert.Escalator      = (*Service)(nil)
)

// EventPublisher emits alert-related events (events.Publisher)
type EventPublisher interface {
	PublishResponse(ctx context.Context, runID, brand string, r response.GeneratedResponse, d approval.Decision, reviewer string) error
	PublishReviewRequested(ctx context.Context, alertID string, req approval.ReviewRequest) error
	PublishCrisis(ctx context.Context, alertID string, e alert.Escalation) error
}

// Notifier pushes alerts to people (telegram.NotificationService)
type Notifier interface {
	NotifyCrisis(ctx context.Context, e alert.Escalation) error
	NotifyReview(ctx context.Context, req approval.ReviewRequest) error
}

// Service persists alerts and fans them out to Kafka and chat.
// Events and notifier are optional; persistence is not.
type Service struct {
	repo     alert.Repository
	events   EventPublisher
	notifier Notifier
	log      *logger.Logger
}

// NewService creates the alert service. events and notifier may be nil.
func NewService(repo alert.Repository, events EventPublisher, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		events:   events,
		notifier: notifier,
		log:      logger.Get().With("component", "alert_service"),
	}
}

// Publish releases an auto-approved response downstream
func (s *Service) Publish(ctx context.Context, runID, brand string, r response.GeneratedResponse, d approval.Decision) error {
	if s.events == nil {
		s.log.Infow("Response approved, no event bus configured", "run_id", runID, "response_id", r.ID)
		return nil
	}
	return s.events.PublishResponse(ctx, runID, brand, r, d, "")
}

// Enqueue records a review alert and hands the response to reviewers
func (s *Service) Enqueue(ctx context.Context, req approval.ReviewRequest) error {
	a := &alert.Alert{
		RunID:       req.RunID,
		Brand:       req.Brand,
		Type:        alert.TypeHumanReview,
		Severity:    alert.SeverityWarning,
		Title:       fmt.Sprintf("Review reply %s for %s", req.Response.ID, req.Brand),
		Message:     text.Truncate(req.Response.Text, 500),
		CrisisScore: req.Decision.RiskScore,
		Assignee:    req.Decision.ReviewerHint,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return errors.Wrap(err, "create review alert")
	}

	if s.events != nil {
		if err := s.events.PublishReviewRequested(ctx, a.ID.String(), req); err != nil {
			return err
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyReview(ctx, req); err != nil {
			s.log.Warnw("Review notification failed", "alert_id", a.ID, "error", err)
		}
	}

	s.log.Infow("Review requested",
		"alert_id", a.ID,
		"run_id", req.RunID,
		"response_id", req.Response.ID,
		"reviewer", req.Decision.ReviewerHint,
	)
	return nil
}

// Escalate records a crisis alert and notifies the crisis team
func (s *Service) Escalate(ctx context.Context, e alert.Escalation) error {
	a := &alert.Alert{
		RunID:       e.RunID,
		Brand:       e.Brand,
		Type:        alert.TypeCrisis,
		Severity:    alert.SeverityFor(e.Assessment.CrisisScore),
		Title:       fmt.Sprintf("Crisis detected for %s", e.Brand),
		Message:     strings.Join(e.Actions, ", "),
		CrisisScore: e.Assessment.CrisisScore,
		Assignee:    strings.Join(e.Reviewers, ","),
		CreatedAt:   e.DetectedAt,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return errors.Wrap(err, "create crisis alert")
	}

	var errs errors.MultiError
	if s.events != nil {
		errs.Add(s.events.PublishCrisis(ctx, a.ID.String(), e))
	}
	if s.notifier != nil {
		errs.Add(errors.Wrap(s.notifier.NotifyCrisis(ctx, e), "notify crisis"))
	}

	s.log.Warnw("Crisis escalated",
		"alert_id", a.ID,
		"brand", e.Brand,
		"crisis_score", e.Assessment.CrisisScore,
		"failures", len(errs.Errors),
	)
	return errs.ToError()
}

// CompleteReview applies a human decision: the alert is resolved and an
// approved response is published with the reviewer recorded.
func (s *Service) CompleteReview(ctx context.Context, ev events.ReviewCompletedEvent) error {
	id, err := uuid.Parse(ev.AlertID)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidInput, "alert id %q", ev.AlertID)
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if a.Status == alert.StatusResolved {
		s.log.Debugw("Review already applied", "alert_id", id)
		return nil
	}
	if a.Status == alert.StatusOpen {
		if err := s.repo.Acknowledge(ctx, id, ev.Reviewer); err != nil {
			return err
		}
	}

	if ev.Approved && s.events != nil {
		if err := s.events.PublishResponse(ctx, ev.RunID, ev.Brand, ev.Response, ev.Decision, ev.Reviewer); err != nil {
			return err
		}
	}

	if err := s.repo.Resolve(ctx, id); err != nil {
		return err
	}

	s.log.Infow("Review completed",
		"alert_id", id,
		"response_id", ev.Response.ID,
		"approved", ev.Approved,
		"reviewer", ev.Reviewer,
	)
	return nil
}

// List returns alerts matching f, newest first
func (s *Service) List(ctx context.Context, f alert.Filter) ([]*alert.Alert, error) {
	return s.repo.List(ctx, f)
}

// Get returns one alert
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*alert.Alert, error) {
	return s.repo.GetByID(ctx, id)
}

// Acknowledge assigns an open alert
func (s *Service) Acknowledge(ctx context.Context, id uuid.UUID, assignee string) error {
	if strings.TrimSpace(assignee) == "" {
		return errors.Wrap(errors.ErrInvalidInput, "assignee is required")
	}
	return s.repo.Acknowledge(ctx, id, assignee)
}

// Resolve closes an alert
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) error {
	return s.repo.Resolve(ctx, id)
}
