// Package feedback records signed relevance adjustments for components and
// turns them into ranking scores.
package feedback

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrUnavailable indicates the backing store cannot be reached or written.
var ErrUnavailable = errors.New("feedback store unavailable")

// Record is one feedback event. Events are append-only; scores are derived
// by folding the event history, never by mutating stored state.
type Record struct {
	// ID is a ULID, so records sort lexicographically by creation time.
	ID string `json:"id"`

	// ComponentID names the component the feedback applies to.
	ComponentID string `json:"component_id"`

	// Delta is the signed adjustment. Positive means more relevant.
	Delta float64 `json:"delta"`

	// Reason is a free-form annotation, may be empty.
	Reason string `json:"reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewRecord creates a feedback record stamped with a fresh ULID.
func NewRecord(componentID string, delta float64, reason string) Record {
	now := time.Now().UTC()
	return Record{
		ID:          ulid.Make().String(),
		ComponentID: componentID,
		Delta:       delta,
		Reason:      reason,
		CreatedAt:   now,
	}
}

// Store persists feedback events.
type Store interface {
	// Append stores one event.
	Append(ctx context.Context, rec Record) error

	// ForComponent returns all events for a component, oldest first.
	ForComponent(ctx context.Context, componentID string) ([]Record, error)

	// All returns every event, oldest first.
	All(ctx context.Context) ([]Record, error)

	Close() error
}
