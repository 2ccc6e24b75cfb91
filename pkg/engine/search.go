package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/component"
)

// Match is one similarity search hit.
type Match struct {
	// Record is the stored form of the matched component.
	Record component.Record `json:"record"`

	// Score is cosine similarity, higher is closer.
	Score float32 `json:"score"`

	// Rendered is the component's display text.
	Rendered string `json:"rendered"`
}

// SearchResult carries similarity hits plus an explicit degraded marker.
type SearchResult struct {
	Matches []Match `json:"matches"`

	// Degraded is set when no semantic backend is available; Matches is
	// then empty rather than a silently wrong tag-based guess.
	Degraded bool `json:"degraded,omitempty"`
}

// SearchSimilar returns the top-limit components nearest the query. Without
// a semantic backend it fails closed: an empty, explicitly degraded result.
func (e *Engine) SearchSimilar(ctx context.Context, query string, limit int) (SearchResult, error) {
	if limit <= 0 {
		return SearchResult{}, fmt.Errorf("limit must be positive, got %d", limit)
	}

	if !e.semanticReady() {
		e.logger.Warn("similarity search requested without a semantic backend")
		return SearchResult{Degraded: true}, nil
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return SearchResult{}, fmt.Errorf("embedding query: %w", err)
	}

	similar, err := e.vectors.QuerySimilar(ctx, vec, limit)
	if err != nil {
		return SearchResult{}, fmt.Errorf("querying similar records: %w", err)
	}

	result := SearchResult{Matches: make([]Match, 0, len(similar))}
	for _, s := range similar {
		rendered := s.Record.Content
		if c, err := component.FromRecord(s.Record); err == nil {
			rendered = c.Render()
		}
		result.Matches = append(result.Matches, Match{
			Record:   s.Record,
			Score:    s.Score,
			Rendered: rendered,
		})
	}

	e.logger.Debug("similarity search",
		zap.String("query", query),
		zap.Int("limit", limit),
		zap.Int("matches", len(result.Matches)),
	)
	return result, nil
}
