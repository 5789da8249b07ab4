package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"brandpulse/internal/metrics"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
)

// Producer publishes JSON events. One writer serves every topic; the
// topic travels on each message.
type Producer struct {
	w   *kafka.Writer
	log *logger.Logger
}

// ProducerConfig holds producer configuration
type ProducerConfig struct {
	Brokers  []string
	ClientID string
	// WriteTimeout bounds one publish (default 10s)
	WriteTimeout time.Duration
}

// NewProducer creates the writer. Nothing is dialed until the first
// publish.
func NewProducer(cfg ProducerConfig) *Producer {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	w := &kafka.Writer{
		Addr: kafka.TCP(cfg.Brokers...),
		// keyed by run or alert ID, so one run's events stay ordered
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           cfg.WriteTimeout,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	if cfg.ClientID != "" {
		w.Transport = &kafka.Transport{ClientID: cfg.ClientID}
	}

	return &Producer{w: w, log: logger.Get().Component("kafka_producer")}
}

// Publish encodes event as JSON and writes it to topic under key
func (p *Producer) Publish(ctx context.Context, topic string, key string, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		return errors.Join(errors.ErrInvalidInput, errors.Wrapf(err, "encode %s event", topic))
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   value,
		Headers: []kafka.Header{{Key: "content-type", Value: []byte("application/json")}},
	})
	if err != nil {
		metrics.KafkaMessages.WithLabelValues(topic, "error").Inc()
		p.log.Warnw("Publish failed", "topic", topic, "key", key, "error", err)
		return errors.Wrapf(err, "publish to %s", topic)
	}

	metrics.KafkaMessages.WithLabelValues(topic, "success").Inc()
	p.log.Debugw("Published", "topic", topic, "key", key, "bytes", len(value))
	return nil
}

// Close flushes pending writes and closes the connections
func (p *Producer) Close() error {
	return p.w.Close()
}
