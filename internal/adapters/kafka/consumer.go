package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"brandpulse/internal/metrics"
	"brandpulse/pkg/logger"
)

// Consumer reads one topic as part of a consumer group. Offsets are
// committed by ReadMessage, so a handler sees each message at least once.
type Consumer struct {
	reader *kafka.Reader
	topic  string
	log    *logger.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topic   string
	// MaxWait bounds how long a fetch waits for new data (default 1s)
	MaxWait time.Duration
	// FromLatest skips the backlog of a group with no committed offset
	FromLatest bool
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg ConsumerConfig) *Consumer {
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = time.Second
	}
	start := kafka.FirstOffset
	if cfg.FromLatest {
		start = kafka.LastOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    1,
		MaxBytes:    1 << 20, // events are small JSON documents
		MaxWait:     cfg.MaxWait,
		StartOffset: start,
	})

	log := logger.Get().With("component", "kafka_consumer", "topic", cfg.Topic)
	log.Infow("Kafka consumer created", "brokers", cfg.Brokers, "group_id", cfg.GroupID)

	return &Consumer{reader: reader, topic: cfg.Topic, log: log}
}

// ReadMessage blocks for the next message. A cancelled ctx is returned as
// ctx.Err() so callers can tell shutdown from broker failure.
func (c *Consumer) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}

	msg, err := c.reader.ReadMessage(ctx)
	switch {
	case ctx.Err() != nil:
		return kafka.Message{}, ctx.Err()
	case err != nil:
		metrics.KafkaMessages.WithLabelValues(c.topic, "read_error").Inc()
		return kafka.Message{}, err
	}

	metrics.KafkaMessages.WithLabelValues(c.topic, "consumed").Inc()
	return msg, nil
}

// Close leaves the group and closes the reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
