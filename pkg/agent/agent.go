// Package agent is the façade that maps goals, tasks, and learnings onto
// memory components and drives the context engine.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/component"
	"github.com/quiltmem/quilt/pkg/config"
	"github.com/quiltmem/quilt/pkg/engine"
	"github.com/quiltmem/quilt/pkg/eventstream"
	eventstreamutils "github.com/quiltmem/quilt/pkg/eventstream/utils"
	feedbackutils "github.com/quiltmem/quilt/pkg/feedback/utils"
	"github.com/quiltmem/quilt/pkg/memstore"
	memstoreutils "github.com/quiltmem/quilt/pkg/memstore/utils"
	"github.com/quiltmem/quilt/pkg/summarize"
	summarizeutils "github.com/quiltmem/quilt/pkg/summarize/utils"

	"github.com/quiltmem/quilt/pkg/embeddings"
	embeddingutils "github.com/quiltmem/quilt/pkg/embeddings/utils"
)

// Agent drives the engine on behalf of a caller working in goal/task/
// learning vocabulary. Goal state lives here; the engine only sees goal
// components.
type Agent struct {
	engine *engine.Engine
	logger *zap.Logger

	mu    sync.RWMutex
	goals map[string]*Goal
}

// New assembles an Agent from configuration: memory store, feedback store,
// summarizer, embedder, and event publisher are all built from their config
// sections.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Agent, error) {
	store, err := memstoreutils.NewDriver(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("building memory store: %w", err)
	}

	var (
		vectors  memstore.VectorDriver
		embedder embeddings.Embedder
	)
	if v, ok := store.(memstore.VectorDriver); ok {
		vectors = v
		embedder, err = embeddingutils.NewEmbedder(cfg, logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("building embedder: %w", err)
		}
	}

	feedbackStore, err := feedbackutils.NewStore(cfg, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("building feedback store: %w", err)
	}

	summarizer, err := summarizeutils.NewSummarizer(cfg, logger)
	if err != nil {
		feedbackStore.Close()
		store.Close()
		return nil, fmt.Errorf("building summarizer: %w", err)
	}

	publisher, err := eventstreamutils.NewPublisher(cfg, logger)
	if err != nil {
		feedbackStore.Close()
		store.Close()
		return nil, fmt.Errorf("building event publisher: %w", err)
	}

	eng, err := engine.New(engine.Options{
		Store:             store,
		VectorStore:       vectors,
		FeedbackStore:     feedbackStore,
		Embedder:          embedder,
		Summarizer:        summarizer,
		Publisher:         publisher,
		SimilarityWeight:  cfg.Engine.SimilarityWeight,
		DecayHalfLifeDays: cfg.Engine.DecayHalfLifeDays,
		Logger:            logger,
	})
	if err != nil {
		publisher.Close()
		feedbackStore.Close()
		store.Close()
		return nil, err
	}

	return NewWithEngine(eng, logger), nil
}

// NewWithEngine wraps an already-assembled engine.
func NewWithEngine(eng *engine.Engine, logger *zap.Logger) *Agent {
	return &Agent{
		engine: eng,
		logger: logger,
		goals:  make(map[string]*Goal),
	}
}

// Engine exposes the underlying engine for callers needing operations the
// façade does not wrap.
func (a *Agent) Engine() *engine.Engine {
	return a.engine
}

// AddGoal registers a goal and its component projection. Returns the goal
// id. A nil deadline means open-ended.
func (a *Agent) AddGoal(ctx context.Context, description string, priority float64, deadline *time.Time, tags []string) (string, error) {
	if priority <= 0 {
		priority = 1.0
	}

	note := &component.GoalNote{
		GoalID:      uuid.NewString(),
		Description: description,
		Priority:    priority,
		TagSet:      tags,
		Created:     time.Now().UTC(),
	}

	goal := &Goal{
		ID:          note.GoalID,
		Description: description,
		Priority:    priority,
		Deadline:    deadline,
		Tags:        tags,
		CreatedAt:   note.Created,
	}

	if err := a.engine.RegisterComponent(ctx, note, true); err != nil {
		return "", err
	}

	a.mu.Lock()
	a.goals[goal.ID] = goal
	a.mu.Unlock()

	a.logger.Info("goal added",
		zap.String("id", goal.ID),
		zap.Float64("priority", priority),
	)
	return goal.ID, nil
}

// AddTask registers a completed task's summary.
func (a *Agent) AddTask(ctx context.Context, name, summary string, success bool, tags []string) (string, error) {
	task := component.NewTaskSummary("", name, summary, success, tags)
	if err := a.engine.RegisterComponent(ctx, task, true); err != nil {
		return "", err
	}
	return task.ID(), nil
}

// AddLearning registers a durable piece of knowledge.
func (a *Agent) AddLearning(ctx context.Context, content, source string, importance float64, tags []string) (string, error) {
	learning := component.NewLearning("", content, source, importance, tags)
	if err := a.engine.RegisterComponent(ctx, learning, true); err != nil {
		return "", err
	}
	return learning.ID(), nil
}

// UpdateGoalProgress stores a clamped progress value for a goal. An unknown
// id is a logged no-op returning UnknownGoalError so batch callers can
// report and continue.
func (a *Agent) UpdateGoalProgress(ctx context.Context, id string, progress float64) error {
	clamped := clamp01(progress)

	a.mu.Lock()
	goal, ok := a.goals[id]
	if !ok {
		a.mu.Unlock()
		a.logger.Warn("progress update for unknown goal", zap.String("id", id))
		return UnknownGoalError{ID: id}
	}
	goal.Progress = clamped
	note := &component.GoalNote{
		GoalID:      goal.ID,
		Description: goal.Description,
		Priority:    goal.Priority,
		Progress:    clamped,
		TagSet:      goal.Tags,
		Created:     goal.CreatedAt,
	}
	a.mu.Unlock()

	// Re-register so the rendered projection reflects the new progress.
	if err := a.engine.RegisterComponent(ctx, note, true); err != nil {
		return err
	}

	a.engine.Publish(ctx, eventstream.Event{
		Kind:        eventstream.KindGoalUpdated,
		ComponentID: id,
		OccurredAt:  time.Now().UTC(),
		Detail: map[string]any{
			"progress": clamped,
		},
	})
	return nil
}

// ActiveGoals returns goals below full progress, most recently created
// first.
func (a *Agent) ActiveGoals() []Goal {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []Goal
	for _, g := range a.goals {
		if !g.Completed() {
			out = append(out, *g)
		}
	}
	sortGoals(out)
	return out
}

// GetContext assembles token-budgeted context through the engine.
func (a *Agent) GetContext(ctx context.Context, req engine.Request) (engine.Result, error) {
	return a.engine.GetContext(ctx, req)
}

// SearchSimilar finds components semantically near the query.
func (a *Agent) SearchSimilar(ctx context.Context, query string, limit int) (engine.SearchResult, error) {
	return a.engine.SearchSimilar(ctx, query, limit)
}

// RecordFeedback adjusts a component's relevance score.
func (a *Agent) RecordFeedback(ctx context.Context, componentID string, delta float64, reason string) error {
	return a.engine.RecordFeedback(ctx, componentID, delta, reason)
}

// SummarizerStatus reports summarizer mode and availability.
func (a *Agent) SummarizerStatus() summarize.Status {
	return a.engine.SummarizerStatus()
}

// LoadFromStore hydrates the engine from persisted records and rebuilds the
// façade's goal table from goal components. Deadlines are not persisted in
// components and come back nil.
func (a *Agent) LoadFromStore(ctx context.Context) (int, error) {
	loaded, err := a.engine.LoadFromStore(ctx)
	if err != nil {
		return loaded, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, c := range a.engine.Registry().All() {
		note, ok := c.(*component.GoalNote)
		if !ok {
			continue
		}
		if _, exists := a.goals[note.GoalID]; exists {
			continue
		}
		a.goals[note.GoalID] = &Goal{
			ID:          note.GoalID,
			Description: note.Description,
			Priority:    note.Priority,
			Progress:    note.Progress,
			Tags:        note.TagSet,
			CreatedAt:   note.Created,
		}
	}

	return loaded, nil
}

// Close releases the engine and everything it owns.
func (a *Agent) Close() error {
	return a.engine.Close()
}
