// Package kafka provides a Kafka-backed event publisher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/eventstream"
)

// Publisher writes events to a Kafka topic, keyed by component id so each
// component's events stay ordered within a partition.
type Publisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the bootstrap broker list.
	Brokers []string

	// Topic receives the events.
	Topic string
}

// NewPublisher creates a Kafka-backed publisher.
func NewPublisher(c Config, logger *zap.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if c.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(c.Brokers...),
		Topic:    c.Topic,
		Balancer: &kafkago.Hash{},
	}

	logger.Info("kafka event publisher initialized",
		zap.Strings("brokers", c.Brokers),
		zap.String("topic", c.Topic),
	)

	return &Publisher{writer: writer, logger: logger}, nil
}

// Publish writes one event.
func (p *Publisher) Publish(ctx context.Context, ev eventstream.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(ev.ComponentID),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}

	p.logger.Debug("event published",
		zap.String("kind", ev.Kind),
		zap.String("component", ev.ComponentID),
	)
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
