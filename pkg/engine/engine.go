// Package engine assembles token-budgeted context out of registered
// components, ranking them by feedback score and semantic similarity.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/component"
	"github.com/quiltmem/quilt/pkg/embeddings"
	"github.com/quiltmem/quilt/pkg/eventstream"
	"github.com/quiltmem/quilt/pkg/eventstream/nop"
	"github.com/quiltmem/quilt/pkg/feedback"
	"github.com/quiltmem/quilt/pkg/memstore"
	"github.com/quiltmem/quilt/pkg/registry"
	"github.com/quiltmem/quilt/pkg/summarize"
)

// Engine owns the registry, the persistence backend, the feedback scorer,
// and the summarizer, and serves context requests over them. It is safe for
// concurrent use; each call is synchronous.
type Engine struct {
	registry   *registry.Registry
	store      memstore.Driver
	vectors    memstore.VectorDriver
	feedback   feedback.Store
	scorer     *feedback.Scorer
	embedder   embeddings.Embedder
	summarizer summarize.Summarizer
	publisher  eventstream.Publisher
	logger     *zap.Logger

	// regMu serializes check+save+insert so the store and the registry
	// cannot diverge under concurrent registrations.
	regMu sync.Mutex

	similarityWeight float64
}

// Options wires an Engine. Store, FeedbackStore, and Summarizer are
// required. VectorStore and Embedder are optional as a pair; semantic
// operations degrade when either is absent.
type Options struct {
	Store         memstore.Driver
	VectorStore   memstore.VectorDriver
	FeedbackStore feedback.Store
	Embedder      embeddings.Embedder
	Summarizer    summarize.Summarizer
	Publisher     eventstream.Publisher

	// SimilarityWeight blends similarity into ranking when a query is
	// present: score = (1-w)*feedback + w*similarity.
	SimilarityWeight float64

	// DecayHalfLifeDays controls feedback age decay. Zero disables decay.
	DecayHalfLifeDays float64

	Logger *zap.Logger
}

// New creates an Engine. The registry starts empty; call LoadFromStore to
// hydrate persisted components.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine requires a memory store")
	}
	if opts.FeedbackStore == nil {
		return nil, errors.New("engine requires a feedback store")
	}
	if opts.Summarizer == nil {
		return nil, errors.New("engine requires a summarizer")
	}
	if opts.Logger == nil {
		return nil, errors.New("engine requires a logger")
	}
	if w := opts.SimilarityWeight; w < 0 || w > 1 {
		return nil, fmt.Errorf("similarity weight %v out of [0, 1]", w)
	}

	publisher := opts.Publisher
	if publisher == nil {
		publisher = nop.NewPublisher()
	}

	return &Engine{
		// The engine persists records itself so embeddings can be
		// attached before the write; the registry is index-only here.
		registry:         registry.New(nil, opts.Logger),
		store:            opts.Store,
		vectors:          opts.VectorStore,
		feedback:         opts.FeedbackStore,
		scorer:           feedback.NewScorer(opts.FeedbackStore, opts.DecayHalfLifeDays),
		embedder:         opts.Embedder,
		summarizer:       opts.Summarizer,
		publisher:        publisher,
		logger:           opts.Logger,
		similarityWeight: opts.SimilarityWeight,
	}, nil
}

// semanticReady reports whether similarity search can run at all.
func (e *Engine) semanticReady() bool {
	return e.vectors != nil && e.embedder != nil
}

// RegisterComponent persists a component and adds it to the registry. With
// overwrite false an existing id fails with registry.DuplicateIDError. When
// the backend stores vectors, the rendered content is embedded first; an
// embedding failure fails the registration so the store never holds a
// half-indexed record.
func (e *Engine) RegisterComponent(ctx context.Context, c component.Component, overwrite bool) error {
	if c == nil {
		return errors.New("cannot register nil component")
	}
	if c.ID() == "" {
		return errors.New("cannot register component with empty id")
	}

	e.regMu.Lock()
	defer e.regMu.Unlock()

	_, lookupErr := e.registry.ByID(c.ID())
	exists := lookupErr == nil
	if exists && !overwrite {
		return registry.DuplicateIDError{ID: c.ID()}
	}

	if err := e.SaveComponentToMemory(ctx, c); err != nil {
		return err
	}

	if err := e.registry.Register(ctx, c, overwrite); err != nil {
		// Keep the store consistent with the registry: a brand-new
		// record that failed to register is removed again.
		if !exists {
			if derr := e.store.Delete(ctx, c.ID()); derr != nil {
				e.logger.Warn("orphaned record after failed registration",
					zap.String("id", c.ID()),
					zap.Error(derr),
				)
			}
		}
		return err
	}

	e.Publish(ctx, eventstream.Event{
		Kind:        eventstream.KindComponentRegistered,
		ComponentID: c.ID(),
		OccurredAt:  time.Now().UTC(),
		Detail: map[string]any{
			"type": string(c.Kind()),
		},
	})
	return nil
}

// SaveComponentToMemory writes a component's record to the backend without
// touching the registry, embedding the rendered content when the backend
// stores vectors.
func (e *Engine) SaveComponentToMemory(ctx context.Context, c component.Component) error {
	rec := component.ToRecord(c)

	if e.semanticReady() {
		vec, err := e.embedder.Embed(ctx, c.Render())
		if err != nil {
			return fmt.Errorf("embedding component %s: %w", c.ID(), err)
		}
		rec.Embedding = vec
	}

	if err := e.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("persisting component %s: %w", c.ID(), err)
	}
	return nil
}

// RecordFeedback appends a feedback event for a registered component.
// Unknown ids fail with registry.UnknownComponentError; callers running
// batches should log and continue.
func (e *Engine) RecordFeedback(ctx context.Context, componentID string, delta float64, reason string) error {
	if _, err := e.registry.ByID(componentID); err != nil {
		e.logger.Warn("feedback for unknown component",
			zap.String("id", componentID),
			zap.Float64("delta", delta),
		)
		return err
	}

	rec := feedback.NewRecord(componentID, delta, reason)
	if err := e.feedback.Append(ctx, rec); err != nil {
		return fmt.Errorf("recording feedback for %s: %w", componentID, err)
	}

	e.Publish(ctx, eventstream.Event{
		Kind:        eventstream.KindFeedbackRecorded,
		ComponentID: componentID,
		OccurredAt:  rec.CreatedAt,
		Detail: map[string]any{
			"delta":  delta,
			"reason": reason,
		},
	})
	return nil
}

// DeleteComponent removes a component from the registry and the backend.
func (e *Engine) DeleteComponent(ctx context.Context, id string) error {
	e.regMu.Lock()
	defer e.regMu.Unlock()

	if err := e.registry.Delete(ctx, id); err != nil {
		return err
	}
	if err := e.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting component %s: %w", id, err)
	}
	return nil
}

// LoadFromStore hydrates the registry from persisted records. Returns the
// number of components loaded.
func (e *Engine) LoadFromStore(ctx context.Context) (int, error) {
	recs, err := e.store.List(ctx, memstore.Filter{})
	if err != nil {
		return 0, fmt.Errorf("listing stored components: %w", err)
	}

	loaded := 0
	for _, rec := range recs {
		c, err := component.FromRecord(rec)
		if err != nil {
			e.logger.Warn("skipping undecodable record",
				zap.String("id", rec.ID),
				zap.Error(err),
			)
			continue
		}
		if err := e.registry.Register(ctx, c, true); err != nil {
			return loaded, err
		}
		loaded++
	}

	e.logger.Info("engine hydrated from store", zap.Int("components", loaded))
	return loaded, nil
}

// Registry exposes the component index for read-side consumers such as the
// agent façade's stats.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// SummarizerStatus reports the summarizer's mode and probed availability.
func (e *Engine) SummarizerStatus() summarize.Status {
	return e.summarizer.Status()
}

// Close releases the backend, the feedback store, and the publisher.
func (e *Engine) Close() error {
	var errs []error
	if err := e.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.feedback.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Publish emits a lifecycle event. Publishing is best-effort and never
// fails the calling operation; failures are logged and dropped.
func (e *Engine) Publish(ctx context.Context, ev eventstream.Event) {
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.logger.Warn("event publish failed",
			zap.String("kind", ev.Kind),
			zap.String("component", ev.ComponentID),
			zap.Error(err),
		)
	}
}
