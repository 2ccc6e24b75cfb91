// Package eventstreamutils constructs event publishers from configuration.
package eventstreamutils

import (
	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/config"
	"github.com/quiltmem/quilt/pkg/eventstream"
	"github.com/quiltmem/quilt/pkg/eventstream/kafka"
	"github.com/quiltmem/quilt/pkg/eventstream/nop"
)

// NewPublisher constructs the publisher selected by cfg.EventStream. A
// disabled stream yields the nop publisher.
func NewPublisher(cfg *config.Config, logger *zap.Logger) (eventstream.Publisher, error) {
	if !cfg.EventStream.Enabled {
		return nop.NewPublisher(), nil
	}

	return kafka.NewPublisher(kafka.Config{
		Brokers: cfg.EventStream.Brokers,
		Topic:   cfg.EventStream.Topic,
	}, logger)
}
