// Package kafka publishes brain lifecycle events to a Kafka topic. Events
// are keyed by brain name so per-brain ordering survives partitioning.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sudo-OMsharma/personabrain/pkg/eventstream"
)

// DefaultTopic is the topic events land on unless configured otherwise.
const DefaultTopic = "personabrain.events"

// Config holds connection settings for the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic is the destination topic. Defaults to DefaultTopic if empty.
	Topic string
}

// Publisher writes brain events to Kafka.
type Publisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// NewPublisher creates a publisher over the configured brokers.
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(cfg.Brokers...),
		Topic:    topic,
		Balancer: &kafkago.Hash{},
	}

	return &Publisher{writer: writer, logger: logger}, nil
}

// PublishBrainEvent writes the event to the topic, keyed by brain name.
func (p *Publisher) PublishBrainEvent(ctx context.Context, event *eventstream.BrainEvent) error {
	if event == nil {
		return eventstream.ErrNilBrainEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", event.EventID, err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.BrainName),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("publishing event %s: %w", event.EventID, err)
	}

	p.logger.Debug("event published",
		zap.String("type", event.EventType),
		zap.String("brain", event.BrainName),
	)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
