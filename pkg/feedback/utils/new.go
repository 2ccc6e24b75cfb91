// Package feedbackutils constructs feedback stores from configuration.
package feedbackutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/config"
	"github.com/quiltmem/quilt/pkg/feedback"
	"github.com/quiltmem/quilt/pkg/feedback/jsonstore"
	"github.com/quiltmem/quilt/pkg/feedback/sqlitestore"
)

// NewStore constructs the feedback backend selected by cfg.FeedbackStore.
func NewStore(cfg *config.Config, logger *zap.Logger) (feedback.Store, error) {
	switch cfg.FeedbackStore.Type {
	case "json":
		return jsonstore.NewStore(jsonstore.Config{
			Path: cfg.FeedbackStore.Path,
		}, logger)

	case "sqlite":
		return sqlitestore.NewStore(sqlitestore.Config{
			DBPath: cfg.FeedbackStore.Path,
		}, logger)

	default:
		return nil, fmt.Errorf("unknown feedback store type: %s", cfg.FeedbackStore.Type)
	}
}
