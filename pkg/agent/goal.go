package agent

import (
	"fmt"
	"sort"
	"time"
)

// Goal is an agent objective tracked by the façade. The engine only ever
// sees its component projection; the façade owns the mutable state.
type Goal struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Priority    float64    `json:"priority"`
	Deadline    *time.Time `json:"deadline,omitempty"`

	// Progress is always within [0, 1]; updates clamp before storing.
	Progress float64 `json:"progress"`

	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Completed reports whether the goal has reached full progress.
func (g Goal) Completed() bool {
	return g.Progress >= 1
}

// UnknownGoalError reports a progress update against a goal id the façade
// does not track. It is logged and treated as a no-op by batch callers.
type UnknownGoalError struct {
	ID string
}

func (e UnknownGoalError) Error() string {
	return fmt.Sprintf("unknown goal: %s", e.ID)
}

// sortGoals orders newest first, id ascending on equal timestamps.
func sortGoals(goals []Goal) {
	sort.Slice(goals, func(i, j int) bool {
		if !goals[i].CreatedAt.Equal(goals[j].CreatedAt) {
			return goals[i].CreatedAt.After(goals[j].CreatedAt)
		}
		return goals[i].ID < goals[j].ID
	})
}

// clamp01 bounds a progress value into [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
