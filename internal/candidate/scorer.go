package candidate

import (
	"context"
	"sort"

	"github.com/matsen/skinrec/internal/allergen"
	"github.com/matsen/skinrec/internal/concern"
	"github.com/rs/zerolog/log"
)

// DefaultLimit bounds a query when the caller asks for no limit.
const DefaultLimit = 10

// Options are the per-request candidate filters.
type Options struct {
	MaxPrice          *float64
	IncludeOutOfStock bool
	Limit             int
}

// Scorer ranks products against resolved concern embeddings.
type Scorer struct {
	store Store
}

// NewScorer creates a scorer over store.
func NewScorer(store Store) *Scorer {
	return &Scorer{store: store}
}

// Score returns candidates ordered by descending concern score. An empty
// embedding map returns no candidates without touching the store. Store
// failures are logged and also yield no candidates.
func (s *Scorer) Score(ctx context.Context, embeddings map[string][]float32, weights concern.Weights, safety allergen.Predicate, opts Options) []Candidate {
	if len(embeddings) == 0 {
		return []Candidate{}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := Query{
		Expression:        NewExpression(embeddings, weights),
		Safety:            safety,
		MaxPrice:          opts.MaxPrice,
		IncludeOutOfStock: opts.IncludeOutOfStock,
		Limit:             limit,
	}

	got, err := s.store.Candidates(ctx, q)
	if err != nil {
		log.Error().Err(err).Int("terms", len(q.Expression.Terms)).Msg("candidate query failed")
		return []Candidate{}
	}

	// The store's LIKE filter is only a first pass; IsSafe is authoritative.
	safe := got[:0]
	for _, c := range got {
		if !safety.IsSafe(c.Product.Contents()) {
			log.Warn().Str("product", c.Product.ID).Msg("dropping candidate that fails allergen check")
			continue
		}
		safe = append(safe, c)
	}
	got = safe

	sort.SliceStable(got, func(i, j int) bool {
		return got[i].ConcernScore > got[j].ConcernScore
	})
	if len(got) > limit {
		got = got[:limit]
	}
	return got
}
