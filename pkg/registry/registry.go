// Package registry keeps the live set of registered components and mirrors
// every mutation through the configured memory store.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/component"
	"github.com/quiltmem/quilt/pkg/memstore"
)

// DuplicateIDError reports a registration colliding with an existing
// component when overwrite was not requested.
type DuplicateIDError struct {
	ID string
}

func (e DuplicateIDError) Error() string {
	return fmt.Sprintf("component %s is already registered", e.ID)
}

// UnknownComponentError reports an operation against an id that is not
// registered.
type UnknownComponentError struct {
	ID string
}

func (e UnknownComponentError) Error() string {
	return fmt.Sprintf("unknown component: %s", e.ID)
}

// Registry is the in-memory component index. All reads and writes are safe
// for concurrent use. The store is write-through: a registration that cannot
// be persisted is not registered.
type Registry struct {
	store  memstore.Driver
	logger *zap.Logger

	mu         sync.RWMutex
	components map[string]component.Component
	order      map[string]int
	nextOrder  int
}

// New creates a registry backed by the given store. A nil store keeps the
// registry purely in-memory.
func New(store memstore.Driver, logger *zap.Logger) *Registry {
	return &Registry{
		store:      store,
		logger:     logger,
		components: make(map[string]component.Component),
		order:      make(map[string]int),
	}
}

// Register adds a component. With overwrite false a duplicate id returns
// DuplicateIDError; with overwrite true the new component replaces the old
// one and keeps its original insertion position.
func (r *Registry) Register(ctx context.Context, c component.Component, overwrite bool) error {
	if c == nil {
		return errors.New("cannot register nil component")
	}
	id := c.ID()
	if id == "" {
		return errors.New("cannot register component with empty id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.components[id]
	if exists && !overwrite {
		return DuplicateIDError{ID: id}
	}

	if r.store != nil {
		if err := r.store.Save(ctx, component.ToRecord(c)); err != nil {
			return fmt.Errorf("persisting component %s: %w", id, err)
		}
	}

	r.components[id] = c
	if !exists {
		r.order[id] = r.nextOrder
		r.nextOrder++
	}

	r.logger.Debug("component registered",
		zap.String("id", id),
		zap.String("type", string(c.Kind())),
		zap.Bool("overwrite", exists),
	)
	return nil
}

// ByID returns the component with the given id.
func (r *Registry) ByID(id string) (component.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.components[id]
	if !ok {
		return nil, UnknownComponentError{ID: id}
	}
	return c, nil
}

// ByTags returns components sharing at least one tag with the query,
// case-insensitively. An empty query matches every component. Results are in
// registration order.
func (r *Registry) ByTags(tags []string) []component.Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []component.Component
	for _, c := range r.components {
		if component.HasAnyTag(c, tags) {
			out = append(out, c)
		}
	}
	r.sortByOrder(out)
	return out
}

// All returns every registered component in registration order.
func (r *Registry) All() []component.Component {
	return r.ByTags(nil)
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}

// Delete removes a component from the registry and the store. Unknown ids
// return UnknownComponentError.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.components[id]; !ok {
		return UnknownComponentError{ID: id}
	}

	if r.store != nil {
		if err := r.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("deleting component %s: %w", id, err)
		}
	}

	delete(r.components, id)
	delete(r.order, id)
	return nil
}

// LoadFromStore hydrates the registry from persisted records, oldest first.
// Records that cannot be decoded are skipped with a warning so one bad row
// does not block startup. Returns the number of components loaded.
func (r *Registry) LoadFromStore(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}

	recs, err := r.store.List(ctx, memstore.Filter{})
	if err != nil {
		return 0, fmt.Errorf("listing stored components: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	loaded := 0
	for _, rec := range recs {
		c, err := component.FromRecord(rec)
		if err != nil {
			r.logger.Warn("skipping undecodable record",
				zap.String("id", rec.ID),
				zap.Error(err),
			)
			continue
		}
		if _, exists := r.components[c.ID()]; !exists {
			r.order[c.ID()] = r.nextOrder
			r.nextOrder++
		}
		r.components[c.ID()] = c
		loaded++
	}

	r.logger.Info("registry hydrated from store", zap.Int("components", loaded))
	return loaded, nil
}

// sortByOrder sorts in place by insertion position. Callers must hold at
// least the read lock.
func (r *Registry) sortByOrder(cs []component.Component) {
	sort.Slice(cs, func(i, j int) bool {
		return r.order[cs[i].ID()] < r.order[cs[j].ID()]
	})
}
