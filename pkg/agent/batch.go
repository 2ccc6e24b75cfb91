package agent

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TaskInput is one task in a batch add.
type TaskInput struct {
	Name    string
	Summary string
	Success bool
	Tags    []string
}

// LearningInput is one learning in a batch add.
type LearningInput struct {
	Content    string
	Source     string
	Importance float64
	Tags       []string
}

// GoalInput is one goal in a batch add.
type GoalInput struct {
	Description string
	Priority    float64
	Deadline    *time.Time
	Tags        []string
}

// ItemError reports one failed item in a batch. The batch itself never
// aborts on item failures.
type ItemError struct {
	Index int
	Err   error
}

func (e ItemError) Error() string {
	return e.Err.Error()
}

// AddTasks registers many tasks, continuing past per-item failures. Returns
// the ids of the tasks that registered, positionally aligned with inputs
// (failed slots are empty strings), plus the failures.
func (a *Agent) AddTasks(ctx context.Context, inputs []TaskInput) ([]string, []ItemError) {
	ids := make([]string, len(inputs))
	var failures []ItemError

	for i, in := range inputs {
		id, err := a.AddTask(ctx, in.Name, in.Summary, in.Success, in.Tags)
		if err != nil {
			a.logger.Warn("batch task add failed",
				zap.Int("index", i),
				zap.String("name", in.Name),
				zap.Error(err),
			)
			failures = append(failures, ItemError{Index: i, Err: err})
			continue
		}
		ids[i] = id
	}
	return ids, failures
}

// AddLearnings registers many learnings, continuing past per-item failures.
func (a *Agent) AddLearnings(ctx context.Context, inputs []LearningInput) ([]string, []ItemError) {
	ids := make([]string, len(inputs))
	var failures []ItemError

	for i, in := range inputs {
		id, err := a.AddLearning(ctx, in.Content, in.Source, in.Importance, in.Tags)
		if err != nil {
			a.logger.Warn("batch learning add failed",
				zap.Int("index", i),
				zap.String("source", in.Source),
				zap.Error(err),
			)
			failures = append(failures, ItemError{Index: i, Err: err})
			continue
		}
		ids[i] = id
	}
	return ids, failures
}

// AddGoals registers many goals, continuing past per-item failures.
func (a *Agent) AddGoals(ctx context.Context, inputs []GoalInput) ([]string, []ItemError) {
	ids := make([]string, len(inputs))
	var failures []ItemError

	for i, in := range inputs {
		id, err := a.AddGoal(ctx, in.Description, in.Priority, in.Deadline, in.Tags)
		if err != nil {
			a.logger.Warn("batch goal add failed",
				zap.Int("index", i),
				zap.Error(err),
			)
			failures = append(failures, ItemError{Index: i, Err: err})
			continue
		}
		ids[i] = id
	}
	return ids, failures
}
