// Package eventstream publishes memory lifecycle events for downstream
// consumers.
package eventstream

import (
	"context"
	"time"
)

// Event kinds.
const (
	KindComponentRegistered = "component.registered"
	KindFeedbackRecorded    = "feedback.recorded"
	KindGoalUpdated         = "goal.updated"
)

// Event is one lifecycle notification. The component id doubles as the
// partition key so per-component ordering is preserved.
type Event struct {
	Kind        string    `json:"kind"`
	ComponentID string    `json:"component_id"`
	OccurredAt  time.Time `json:"occurred_at"`

	// Detail carries kind-specific fields, e.g. the feedback delta or the
	// new goal progress.
	Detail map[string]any `json:"detail,omitempty"`
}

// Publisher emits events. Publishing is best-effort: callers log failures
// and continue, they never fail the originating operation.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}
