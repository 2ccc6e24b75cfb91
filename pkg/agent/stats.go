package agent

import (
	"github.com/quiltmem/quilt/pkg/component"
)

// Stats aggregates registry contents by kind. Counts are computed from the
// live registry on each call, never cached.
type Stats struct {
	Components int `json:"components"`

	Goals          int `json:"goals"`
	ActiveGoals    int `json:"active_goals"`
	CompletedGoals int `json:"completed_goals"`

	Tasks     int `json:"tasks"`
	TasksOK   int `json:"tasks_ok"`
	TasksFail int `json:"tasks_fail"`

	Learnings         int            `json:"learnings"`
	LearningsBySource map[string]int `json:"learnings_by_source,omitempty"`

	Notes int `json:"notes"`
}

// GetStats walks the registry and tallies components by kind and outcome.
func (a *Agent) GetStats() Stats {
	stats := Stats{
		LearningsBySource: make(map[string]int),
	}

	for _, c := range a.engine.Registry().All() {
		stats.Components++

		switch v := c.(type) {
		case *component.GoalNote:
			stats.Goals++
			if v.Progress >= 1 {
				stats.CompletedGoals++
			} else {
				stats.ActiveGoals++
			}
		case *component.TaskSummary:
			stats.Tasks++
			if v.Success {
				stats.TasksOK++
			} else {
				stats.TasksFail++
			}
		case *component.Learning:
			stats.Learnings++
			source := v.Source
			if source == "" {
				source = "unknown"
			}
			stats.LearningsBySource[source]++
		default:
			stats.Notes++
		}
	}

	if len(stats.LearningsBySource) == 0 {
		stats.LearningsBySource = nil
	}
	return stats
}
