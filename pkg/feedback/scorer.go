package feedback

import (
	"context"
	"math"
	"time"
)

// Scorer folds a component's feedback history into a single ranking score.
//
// score = base_weight + sum(delta_i * 0.5^(age_days_i / half_life_days))
//
// A zero half-life disables decay and each delta counts at full strength.
type Scorer struct {
	store Store

	// HalfLifeDays halves a delta's contribution every N days of age.
	HalfLifeDays float64
}

// NewScorer creates a scorer over the given store.
func NewScorer(store Store, halfLifeDays float64) *Scorer {
	return &Scorer{store: store, HalfLifeDays: halfLifeDays}
}

// Score computes the feedback-adjusted score for one component as of now.
func (s *Scorer) Score(ctx context.Context, componentID string, baseWeight float64, now time.Time) (float64, error) {
	recs, err := s.store.ForComponent(ctx, componentID)
	if err != nil {
		return 0, err
	}

	score := baseWeight
	for _, rec := range recs {
		score += rec.Delta * s.decay(rec.CreatedAt, now)
	}
	return score, nil
}

// ScoreAll computes scores for many components in one store pass. Components
// without feedback keep their base weight.
func (s *Scorer) ScoreAll(ctx context.Context, baseWeights map[string]float64, now time.Time) (map[string]float64, error) {
	recs, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(baseWeights))
	for id, w := range baseWeights {
		scores[id] = w
	}
	for _, rec := range recs {
		if _, ok := scores[rec.ComponentID]; !ok {
			continue
		}
		scores[rec.ComponentID] += rec.Delta * s.decay(rec.CreatedAt, now)
	}
	return scores, nil
}

func (s *Scorer) decay(createdAt, now time.Time) float64 {
	if s.HalfLifeDays <= 0 {
		return 1
	}
	ageDays := now.Sub(createdAt).Hours() / 24
	if ageDays <= 0 {
		return 1
	}
	return math.Pow(0.5, ageDays/s.HalfLifeDays)
}
