package consumers

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"brandpulse/internal/events"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
)

// MessageReader is the consuming side of a Kafka topic (kafka.Consumer)
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// ReviewCompleter applies a human review decision (alertservice.Service)
type ReviewCompleter interface {
	CompleteReview(ctx context.Context, ev events.ReviewCompletedEvent) error
}

// ReviewConsumer applies decisions arriving on reviews.completed
type ReviewConsumer struct {
	consumer       MessageReader
	reviews        ReviewCompleter
	log            *logger.Logger
	processTimeout time.Duration
}

// NewReviewConsumer creates a new review consumer
func NewReviewConsumer(consumer MessageReader, reviews ReviewCompleter, log *logger.Logger) *ReviewConsumer {
	return &ReviewConsumer{
		consumer:       consumer,
		reviews:        reviews,
		log:            log.With("component", "review_consumer"),
		processTimeout: 5 * time.Second,
	}
}

// Start consumes until ctx is cancelled. The message in flight is finished
// before returning.
func (rc *ReviewConsumer) Start(ctx context.Context) error {
	rc.log.Info("Starting review consumer...")

	defer func() {
		if err := rc.consumer.Close(); err != nil {
			rc.log.Errorw("Failed to close review consumer", "error", err)
		} else {
			rc.log.Info("Review consumer closed")
		}
	}()

	for {
		msg, err := rc.consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				rc.log.Info("Review consumer stopping (context cancelled)")
				return nil
			}
			rc.log.Debugw("Failed to read message", "error", err)
			continue
		}

		processCtx, cancel := context.WithTimeout(context.Background(), rc.processTimeout)
		if err := rc.handleMessage(processCtx, msg); err != nil {
			rc.log.Errorw("Failed to handle message",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", err,
			)
		}
		cancel()

		if ctx.Err() != nil {
			rc.log.Info("Review consumer stopping after processing current message")
			return nil
		}
	}
}

func (rc *ReviewConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var envelope struct {
		Base events.BaseEvent `json:"base"`
	}
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return errors.Wrap(err, "unmarshal base event")
	}

	if envelope.Base.Type != events.TypeReviewCompleted {
		rc.log.Debugw("Unhandled event type", "type", envelope.Base.Type)
		return nil
	}

	var event events.ReviewCompletedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return errors.Wrap(err, "unmarshal review_completed event")
	}
	return rc.reviews.CompleteReview(ctx, event)
}
