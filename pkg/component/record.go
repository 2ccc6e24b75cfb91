package component

import (
	"fmt"
	"time"
)

// Record is the serialized form of a Component plus, when the backend
// supports it, its embedding vector. The persistence backend exclusively
// owns durable Records; the in-memory registry is a cache of components
// active in the process.
type Record struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	Name       string            `json:"name,omitempty"`
	Content    string            `json:"content"`
	Source     string            `json:"source,omitempty"`
	Success    *bool             `json:"success,omitempty"`
	BaseWeight float64           `json:"base_weight"`
	Tags       []string          `json:"tags,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	Embedding  []float32         `json:"embedding,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ToRecord serializes a component for the persistence backend. The embedding
// is left empty; embedding-capable callers attach it before saving.
func ToRecord(c Component) Record {
	rec := Record{
		ID:         c.ID(),
		Type:       c.Kind(),
		BaseWeight: c.BaseWeight(),
		Tags:       append([]string(nil), c.Tags()...),
		CreatedAt:  c.CreatedAt(),
	}

	switch v := c.(type) {
	case *TaskSummary:
		rec.Name = v.TaskName
		rec.Content = v.Summary
		success := v.Success
		rec.Success = &success
	case *Learning:
		rec.Content = v.Content
		rec.Source = v.Source
	case *GoalNote:
		rec.Content = v.Description
		rec.Metadata = map[string]string{
			"progress": fmt.Sprintf("%.4f", v.Progress),
		}
	default:
		rec.Content = c.Render()
	}

	return rec
}

// FromRecord rebuilds a component from its serialized form. Unknown types
// fail rather than being silently coerced into notes.
func FromRecord(rec Record) (Component, error) {
	switch rec.Type {
	case TypeTask:
		success := true
		if rec.Success != nil {
			success = *rec.Success
		}
		return &TaskSummary{
			TaskID:   rec.ID,
			TaskName: rec.Name,
			Summary:  rec.Content,
			Success:  success,
			TagSet:   rec.Tags,
			Created:  rec.CreatedAt,
		}, nil
	case TypeLearning:
		return &Learning{
			LearningID: rec.ID,
			Content:    rec.Content,
			Source:     rec.Source,
			Importance: rec.BaseWeight,
			TagSet:     rec.Tags,
			Created:    rec.CreatedAt,
		}, nil
	case TypeGoal:
		var progress float64
		if rec.Metadata != nil {
			fmt.Sscanf(rec.Metadata["progress"], "%f", &progress)
		}
		return &GoalNote{
			GoalID:      rec.ID,
			Description: rec.Content,
			Priority:    rec.BaseWeight,
			Progress:    progress,
			TagSet:      rec.Tags,
			Created:     rec.CreatedAt,
		}, nil
	case TypeNote:
		return &Note{
			NoteID:  rec.ID,
			Content: rec.Content,
			Weight:  rec.BaseWeight,
			TagSet:  rec.Tags,
			Created: rec.CreatedAt,
		}, nil
	default:
		return nil, fmt.Errorf("unknown component type: %q", rec.Type)
	}
}
