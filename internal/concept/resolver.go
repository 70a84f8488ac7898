package concept

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrSpecialTargetMissing is returned when a special mapping points at a
// concept the live catalog does not have.
var ErrSpecialTargetMissing = errors.New("special mapping target missing from concept catalog")

// specialMappings maps normalized concern names to normalized concept names
// for concerns whose wording does not match the catalog.
var specialMappings = map[string]string{
	"darkcircles":       "darkcircles",
	"puffiness":         "eyebag",
	"finelines":         "wrinkles",
	"finelineswrinkles": "wrinkles",
	"acneblemishes":     "acne",
	"blemishes":         "acne",
}

// SpecialMappings returns a copy of the curated concern to concept table.
func SpecialMappings() map[string]string {
	out := make(map[string]string, len(specialMappings))
	for k, v := range specialMappings {
		out[k] = v
	}
	return out
}

// Strategy finds a concept for a normalized concern name.
type Strategy struct {
	Name  string
	Match func(concern, concept string) bool
}

// ExactMatch matches identical normalized names.
var ExactMatch = Strategy{
	Name: "exact",
	Match: func(concern, concept string) bool {
		return concern == concept
	},
}

// ContainmentMatch matches when either normalized name contains the other.
var ContainmentMatch = Strategy{
	Name: "containment",
	Match: func(concern, concept string) bool {
		return strings.Contains(concept, concern) || strings.Contains(concern, concept)
	},
}

// SpecialMatch consults the curated special mapping table.
var SpecialMatch = Strategy{
	Name: "special",
	Match: func(concern, concept string) bool {
		target, ok := specialMappings[concern]
		return ok && target == concept
	},
}

// DefaultStrategies is the resolution order: exact, containment, special.
var DefaultStrategies = []Strategy{ExactMatch, ContainmentMatch, SpecialMatch}

// Match records how a concern was resolved.
type Match struct {
	Concern  string  `json:"concern"`
	Concept  Concept `json:"-"`
	Strategy string  `json:"strategy"`
}

// Resolver maps concern names onto catalog concepts.
type Resolver struct {
	strategies []Strategy
	concepts   []Concept
	normalized []string
}

// NewResolver builds a resolver over the concepts that have embeddings.
// Concepts whose name normalizes to nothing are skipped, since containment
// would match them against every concern. Concepts are ordered by name so
// resolution does not depend on store order.
func NewResolver(catalog []Concept, strategies ...Strategy) *Resolver {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	var usable []Concept
	for _, c := range catalog {
		if c.HasEmbedding() && Normalize(c.Name) != "" {
			usable = append(usable, c)
		}
	}
	sort.SliceStable(usable, func(i, j int) bool { return usable[i].Name < usable[j].Name })

	normalized := make([]string, len(usable))
	for i, c := range usable {
		normalized[i] = Normalize(c.Name)
	}
	return &Resolver{strategies: strategies, concepts: usable, normalized: normalized}
}

// Find resolves a single concern. Each strategy is tried across the whole
// catalog before the next one, so an exact match always beats a containment
// or special-table match on another concept.
func (r *Resolver) Find(concern string) (Match, bool) {
	norm := Normalize(concern)
	if norm == "" {
		return Match{}, false
	}
	for _, s := range r.strategies {
		for i, name := range r.normalized {
			if s.Match(norm, name) {
				return Match{Concern: concern, Concept: r.concepts[i], Strategy: s.Name}, true
			}
		}
	}
	return Match{}, false
}

// Resolve returns the embedding of every concern that matches a concept.
// Unmatched concerns are logged and dropped.
func (r *Resolver) Resolve(concerns []string) map[string][]float32 {
	out := make(map[string][]float32, len(concerns))
	for _, c := range concerns {
		m, ok := r.Find(c)
		if !ok {
			log.Info().Str("concern", c).Msg("no matching concept, dropping concern")
			continue
		}
		log.Debug().Str("concern", c).Str("concept", m.Concept.Name).Str("strategy", m.Strategy).Msg("resolved concern")
		out[c] = m.Concept.Embedding
	}
	return out
}

// Matches returns the resolution detail for each concern that matched.
func (r *Resolver) Matches(concerns []string) []Match {
	var out []Match
	for _, c := range concerns {
		if m, ok := r.Find(c); ok {
			out = append(out, m)
		}
	}
	return out
}

// ValidateSpecialMappings checks that every special mapping target exists in
// the catalog with an embedding, since the resolver never sees concepts
// without one. It reports all missing targets at once.
func ValidateSpecialMappings(catalog []Concept) error {
	present := make(map[string]bool, len(catalog))
	for _, c := range catalog {
		if c.HasEmbedding() {
			present[Normalize(c.Name)] = true
		}
	}

	var missing []string
	seen := make(map[string]bool)
	for _, target := range specialMappings {
		if !present[target] && !seen[target] {
			seen[target] = true
			missing = append(missing, target)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", ErrSpecialTargetMissing, strings.Join(missing, ", "))
}
