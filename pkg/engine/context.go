package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quiltmem/quilt/pkg/component"
	"github.com/quiltmem/quilt/pkg/tokens"
)

// Request describes one context assembly.
type Request struct {
	// Tags filters candidates to components sharing at least one tag.
	// Empty means every registered component is a candidate.
	Tags []string

	// Query, when set, blends semantic similarity into the ranking.
	Query string

	// TokenBudget caps the estimated token length of the result.
	TokenBudget int

	// SummarizeIfNeeded allows compressing a candidate that overflows the
	// remaining budget instead of skipping it.
	SummarizeIfNeeded bool

	// DryRun computes the selection without rendering the final text or
	// invoking the summarizer.
	DryRun bool
}

// Selection reports one chosen component.
type Selection struct {
	ComponentID string `json:"component_id"`

	// Score is the blended ranking score used to order candidates.
	Score float64 `json:"score"`

	// Tokens is the estimated cost of the rendition that was (or, in a
	// dry run, would be) appended.
	Tokens int `json:"tokens"`

	// Summarized marks renditions compressed to fit the remaining budget.
	Summarized bool `json:"summarized"`
}

// Result is an assembled context.
type Result struct {
	// Text is the concatenated renditions in ranked order. Empty on dry
	// runs.
	Text string `json:"text"`

	// Selected lists the chosen components in output order.
	Selected []Selection `json:"selected"`

	// TokensUsed is the estimated total, never exceeding the budget.
	TokensUsed int `json:"tokens_used"`

	// SemanticDegraded is set when a query was given but similarity
	// ranking could not run, so ordering fell back to feedback only.
	SemanticDegraded bool `json:"semantic_degraded,omitempty"`
}

// candidate pairs a component with its ranking inputs.
type candidate struct {
	c     component.Component
	score float64
	order int
}

// GetContext filters, ranks, and greedily selects components within the
// token budget, summarizing overflowing candidates when allowed.
func (e *Engine) GetContext(ctx context.Context, req Request) (Result, error) {
	if req.TokenBudget < 0 {
		return Result{}, fmt.Errorf("token budget must be non-negative, got %d", req.TokenBudget)
	}

	components := e.registry.ByTags(req.Tags)
	ranked, degraded, err := e.rank(ctx, components, req.Query)
	if err != nil {
		return Result{}, err
	}

	result := Result{SemanticDegraded: degraded}
	remaining := req.TokenBudget

	var parts []string
	for _, cand := range ranked {
		if remaining <= 0 {
			break
		}

		text := cand.c.Render()
		cost := tokens.Estimate(text)
		summarized := false

		if cost > remaining {
			if !req.SummarizeIfNeeded {
				continue
			}
			if req.DryRun {
				// Preview mode: assume the summarizer hits its
				// target rather than invoking it.
				cost = remaining
				summarized = true
			} else {
				condensed, err := e.summarizer.Summarize(ctx, text, remaining)
				if err != nil {
					e.logger.Warn("summarization failed, skipping candidate",
						zap.String("id", cand.c.ID()),
						zap.Error(err),
					)
					continue
				}
				cost = tokens.Estimate(condensed)
				if condensed == "" || cost > remaining {
					continue
				}
				text = condensed
				summarized = true
			}
		}

		if !req.DryRun {
			parts = append(parts, text)
		}
		result.Selected = append(result.Selected, Selection{
			ComponentID: cand.c.ID(),
			Score:       cand.score,
			Tokens:      cost,
			Summarized:  summarized,
		})
		result.TokensUsed += cost
		remaining -= cost
	}

	result.Text = strings.Join(parts, "\n\n")

	e.logger.Debug("context assembled",
		zap.Int("candidates", len(ranked)),
		zap.Int("selected", len(result.Selected)),
		zap.Int("tokens_used", result.TokensUsed),
		zap.Int("budget", req.TokenBudget),
		zap.Bool("dry_run", req.DryRun),
	)
	return result, nil
}

// rank orders candidates by blended score descending. Ties prefer newer
// components, then registration order, so selection is deterministic.
func (e *Engine) rank(ctx context.Context, components []component.Component, query string) ([]candidate, bool, error) {
	if len(components) == 0 {
		return nil, false, nil
	}

	baseWeights := make(map[string]float64, len(components))
	for _, c := range components {
		baseWeights[c.ID()] = c.BaseWeight()
	}

	scores, err := e.scorer.ScoreAll(ctx, baseWeights, time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("scoring candidates: %w", err)
	}

	degraded := false
	var similarity map[string]float64
	if query != "" {
		similarity, err = e.similarityScores(ctx, query, len(components))
		if err != nil {
			// Semantic failures degrade to feedback-only ordering.
			e.logger.Warn("similarity ranking unavailable", zap.Error(err))
			degraded = true
		} else if similarity == nil {
			degraded = true
		}
	}

	ranked := make([]candidate, 0, len(components))
	for i, c := range components {
		score := scores[c.ID()]
		if similarity != nil {
			score = (1-e.similarityWeight)*score + e.similarityWeight*similarity[c.ID()]
		}
		ranked = append(ranked, candidate{c: c, score: score, order: i})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		ci, cj := ranked[i].c.CreatedAt(), ranked[j].c.CreatedAt()
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return ranked[i].order < ranked[j].order
	})

	return ranked, degraded, nil
}

// similarityScores embeds the query and maps component id to similarity.
// Returns nil with no error when the engine has no semantic capability.
func (e *Engine) similarityScores(ctx context.Context, query string, k int) (map[string]float64, error) {
	if !e.semanticReady() {
		return nil, nil
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := e.vectors.QuerySimilar(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("querying similar records: %w", err)
	}

	out := make(map[string]float64, len(matches))
	for _, m := range matches {
		out[m.Record.ID] = float64(m.Score)
	}
	return out, nil
}
