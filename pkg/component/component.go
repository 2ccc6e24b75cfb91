// Package component defines the polymorphic unit of memory that the context
// engine selects, scores, and renders.
//
// A Component is anything with an identity, a tag set, renderable text, and a
// static base weight: task results, long-term learnings, goal notes, or
// free-form notes. Components are created by callers (usually through the
// agent façade), held in the registry, and serialized to a Record for the
// persistence backend.
package component

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type identifies a component variant. The set is closed: backends and the
// engine switch on it exhaustively.
type Type string

const (
	TypeTask     Type = "task"
	TypeLearning Type = "learning"
	TypeGoal     Type = "goal"
	TypeNote     Type = "note"
)

// Component is a unit of memory the engine can rank and render.
type Component interface {
	// ID is the unique identifier within a registry.
	ID() string

	// Kind returns the component variant.
	Kind() Type

	// Tags returns the tag set used for candidate filtering.
	Tags() []string

	// Render returns the textual form included in assembled context.
	Render() string

	// BaseWeight is the static importance/priority supplied at creation.
	// It seeds the feedback score before any deltas are recorded.
	BaseWeight() float64

	// CreatedAt is the creation timestamp, used for age decay and
	// deterministic tie-breaking.
	CreatedAt() time.Time
}

// TaskSummary records the outcome of a completed task.
type TaskSummary struct {
	TaskID   string
	TaskName string
	Summary  string
	Success  bool
	TagSet   []string
	Created  time.Time
}

// NewTaskSummary creates a task component. An empty id is replaced with a
// fresh UUID.
func NewTaskSummary(id, name, summary string, success bool, tags []string) *TaskSummary {
	return &TaskSummary{
		TaskID:   orUUID(id),
		TaskName: name,
		Summary:  summary,
		Success:  success,
		TagSet:   tags,
		Created:  time.Now().UTC(),
	}
}

func (t *TaskSummary) ID() string           { return t.TaskID }
func (t *TaskSummary) Kind() Type           { return TypeTask }
func (t *TaskSummary) Tags() []string       { return t.TagSet }
func (t *TaskSummary) CreatedAt() time.Time { return t.Created }

// BaseWeight favors successful tasks over failed ones so that useful results
// outrank dead ends by default.
func (t *TaskSummary) BaseWeight() float64 {
	if t.Success {
		return 1.0
	}
	return 0.5
}

func (t *TaskSummary) Render() string {
	status := "ok"
	if !t.Success {
		status = "failed"
	}
	return fmt.Sprintf("[task:%s] %s: %s", status, t.TaskName, t.Summary)
}

// Learning is a durable piece of long-term knowledge with a source and an
// importance weight.
type Learning struct {
	LearningID string
	Content    string
	Source     string
	Importance float64
	TagSet     []string
	Created    time.Time
}

// NewLearning creates a learning component. Importance values at or below
// zero are normalized to 1.0.
func NewLearning(id, content, source string, importance float64, tags []string) *Learning {
	if importance <= 0 {
		importance = 1.0
	}
	return &Learning{
		LearningID: orUUID(id),
		Content:    content,
		Source:     source,
		Importance: importance,
		TagSet:     tags,
		Created:    time.Now().UTC(),
	}
}

func (l *Learning) ID() string           { return l.LearningID }
func (l *Learning) Kind() Type           { return TypeLearning }
func (l *Learning) Tags() []string       { return l.TagSet }
func (l *Learning) BaseWeight() float64  { return l.Importance }
func (l *Learning) CreatedAt() time.Time { return l.Created }

func (l *Learning) Render() string {
	if l.Source == "" {
		return fmt.Sprintf("[learning] %s", l.Content)
	}
	return fmt.Sprintf("[learning:%s] %s", l.Source, l.Content)
}

// GoalNote renders an agent goal into the context stream. The agent façade
// owns goal state; the note is the goal's memory-facing projection.
type GoalNote struct {
	GoalID      string
	Description string
	Priority    float64
	Progress    float64
	TagSet      []string
	Created     time.Time
}

func (g *GoalNote) ID() string           { return g.GoalID }
func (g *GoalNote) Kind() Type           { return TypeGoal }
func (g *GoalNote) Tags() []string       { return g.TagSet }
func (g *GoalNote) BaseWeight() float64  { return g.Priority }
func (g *GoalNote) CreatedAt() time.Time { return g.Created }

func (g *GoalNote) Render() string {
	return fmt.Sprintf("[goal %d%%] %s", int(g.Progress*100), g.Description)
}

// Note is a generic free-form memory.
type Note struct {
	NoteID  string
	Content string
	Weight  float64
	TagSet  []string
	Created time.Time
}

// NewNote creates a generic memory component.
func NewNote(id, content string, weight float64, tags []string) *Note {
	if weight <= 0 {
		weight = 1.0
	}
	return &Note{
		NoteID:  orUUID(id),
		Content: content,
		Weight:  weight,
		TagSet:  tags,
		Created: time.Now().UTC(),
	}
}

func (n *Note) ID() string           { return n.NoteID }
func (n *Note) Kind() Type           { return TypeNote }
func (n *Note) Tags() []string       { return n.TagSet }
func (n *Note) BaseWeight() float64  { return n.Weight }
func (n *Note) CreatedAt() time.Time { return n.Created }
func (n *Note) Render() string       { return n.Content }

// HasAnyTag reports whether the component's tag set intersects the query set.
// An empty query set matches every component.
func HasAnyTag(c Component, query []string) bool {
	if len(query) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(c.Tags()))
	for _, t := range c.Tags() {
		have[strings.ToLower(t)] = struct{}{}
	}
	for _, q := range query {
		if _, ok := have[strings.ToLower(q)]; ok {
			return true
		}
	}
	return false
}

func orUUID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
