// Package profile derives a user profile vector and blends profile
// similarity into concern-ranked candidates.
package profile

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/matsen/skinrec/internal/concept"
	"github.com/matsen/skinrec/internal/logging"
	"github.com/matsen/skinrec/internal/preference"
	"github.com/matsen/skinrec/internal/semantic"
)

var (
	camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)
	nonAlnum      = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// DocumentGenerator renders a profile as natural-language text.
type DocumentGenerator interface {
	Render(preference.Profile) string
}

// Tokenize splits a document into a set of lowercased words. Camel-case
// names split at their word boundaries.
func Tokenize(doc string) map[string]struct{} {
	spaced := camelBoundary.ReplaceAllString(doc, "$1 $2")
	tokens := make(map[string]struct{})
	for _, word := range nonAlnum.Split(spaced, -1) {
		if word == "" {
			continue
		}
		tokens[strings.ToLower(word)] = struct{}{}
	}
	return tokens
}

// Centroid mean-pools the embeddings of concepts whose lowercased name is a
// token. Returns false when no concept matches.
func Centroid(tokens map[string]struct{}, concepts []concept.Concept) ([]float32, bool) {
	sorted := append([]concept.Concept(nil), concepts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var vectors [][]float32
	for _, c := range sorted {
		if !c.HasEmbedding() {
			continue
		}
		if _, ok := tokens[strings.ToLower(c.Name)]; ok {
			vectors = append(vectors, c.Embedding)
		}
	}
	pooled := semantic.MeanPool(vectors)
	return pooled, pooled != nil
}

// Source picks the profile vector for a user.
type Source struct {
	docs DocumentGenerator
}

// NewSource creates a Source that renders profiles with docs.
func NewSource(docs DocumentGenerator) *Source {
	return &Source{docs: docs}
}

// Vector returns the precomputed embedding when present, otherwise the
// concept centroid of the rendered profile document.
func (s *Source) Vector(ctx context.Context, precomputed []float32, p preference.Profile, concepts []concept.Concept) ([]float32, bool) {
	if len(precomputed) > 0 {
		return precomputed, true
	}
	if p.IsEmpty() || s.docs == nil {
		return nil, false
	}
	v, ok := Centroid(Tokenize(s.docs.Render(p)), concepts)
	if !ok {
		logging.Ctx(ctx).Debug().Msg("no concept matched the profile document")
	}
	return v, ok
}
