package events

import (
	"context"

	"brandpulse/internal/adapters/kafka"
	"brandpulse/internal/domain/alert"
	"brandpulse/internal/domain/approval"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/workflow"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
)

// Producer writes a JSON event to a topic (kafka.Producer)
type Producer interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// Publisher publishes brandpulse events to Kafka. Events are keyed by brand
// so that one brand's events stay ordered within a partition.
type Publisher struct {
	producer Producer
	source   string
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer Producer, source string, log *logger.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		source:   source,
		log:      log,
	}
}

// PublishResponse publishes a response cleared for publication
func (p *Publisher) PublishResponse(ctx context.Context, runID, brand string, r response.GeneratedResponse, d approval.Decision, reviewer string) error {
	return p.publish(ctx, kafka.TopicResponsesPublished, brand, &ResponsePublishedEvent{
		Base:     NewBaseEvent(TypeResponsePublished, p.source),
		RunID:    runID,
		Brand:    brand,
		Response: r,
		Decision: d,
		Reviewer: reviewer,
	})
}

// PublishReviewRequested hands a pending response to reviewers
func (p *Publisher) PublishReviewRequested(ctx context.Context, alertID string, req approval.ReviewRequest) error {
	return p.publish(ctx, kafka.TopicReviewsRequested, req.Brand, &ReviewRequestedEvent{
		Base:     NewBaseEvent(TypeReviewRequested, p.source),
		AlertID:  alertID,
		RunID:    req.RunID,
		Brand:    req.Brand,
		Response: req.Response,
		Decision: req.Decision,
	})
}

// PublishCrisis publishes a crisis escalation
func (p *Publisher) PublishCrisis(ctx context.Context, alertID string, e alert.Escalation) error {
	return p.publish(ctx, kafka.TopicCrisisAlerts, e.Brand, &CrisisDetectedEvent{
		Base:       NewBaseEvent(TypeCrisisDetected, p.source),
		AlertID:    alertID,
		RunID:      e.RunID,
		Brand:      e.Brand,
		Assessment: e.Assessment,
		Actions:    e.Actions,
		Reviewers:  e.Reviewers,
	})
}

// PublishWorkflowCompleted publishes a run summary
func (p *Publisher) PublishWorkflowCompleted(ctx context.Context, rep *workflow.Report) error {
	return p.publish(ctx, kafka.TopicWorkflowCompleted, rep.Brand, &WorkflowCompletedEvent{
		Base:           NewBaseEvent(TypeWorkflowCompleted, p.source),
		RunID:          rep.RunID,
		Brand:          rep.Brand,
		Status:         string(rep.Status),
		Documents:      len(rep.Documents),
		Responses:      len(rep.Responses),
		FailedSteps:    rep.FailedSteps,
		RiskAssessment: rep.RiskAssessment,
		DurationMS:     rep.ExecutionTime.Milliseconds(),
	})
}

func (p *Publisher) publish(ctx context.Context, topic, key string, event interface{}) error {
	if err := p.producer.Publish(ctx, topic, key, event); err != nil {
		p.log.Warnw("Failed to publish event", "topic", topic, "key", key, "error", err)
		return errors.Wrapf(err, "publish to %s", topic)
	}
	return nil
}
