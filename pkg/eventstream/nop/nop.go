// Package nop provides the publisher used when event streaming is disabled.
package nop

import (
	"context"

	"github.com/quiltmem/quilt/pkg/eventstream"
)

// Publisher discards every event.
type Publisher struct{}

// NewPublisher creates a discarding publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Publish(context.Context, eventstream.Event) error {
	return nil
}

func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)
