// Package candidate builds the weighted similarity query for concern
// embeddings and ranks what the store returns.
package candidate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/matsen/skinrec/internal/allergen"
	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/concern"
)

// Term is one weighted concern embedding in the scoring expression.
type Term struct {
	Concern   string
	Weight    float64
	Embedding []float32
}

// Expression is Σ w_i * (1 - cosine_distance(product, c_i)).
type Expression struct {
	Terms []Term
}

// NewExpression pairs resolved embeddings with their weights. Terms are in
// sorted concern order so the rendered SQL is deterministic. Concerns
// without a weight contribute with weight 0.
func NewExpression(embeddings map[string][]float32, weights concern.Weights) Expression {
	names := make([]string, 0, len(embeddings))
	for name := range embeddings {
		names = append(names, name)
	}
	sort.Strings(names)

	terms := make([]Term, 0, len(names))
	for _, name := range names {
		terms = append(terms, Term{Concern: name, Weight: weights[name], Embedding: embeddings[name]})
	}
	return Expression{Terms: terms}
}

// Empty reports whether the expression has no terms.
func (e Expression) Empty() bool { return len(e.Terms) == 0 }

// SQL renders the expression against a product embedding column. Each term
// binds its weight and its embedding, in that order, through bind.
func (e Expression) SQL(column string, bind func(Term) []any) (string, []any) {
	if e.Empty() {
		return "0", nil
	}
	parts := make([]string, 0, len(e.Terms))
	var args []any
	for _, t := range e.Terms {
		parts = append(parts, fmt.Sprintf("? * (1 - cosine_distance(%s, ?))", column))
		args = append(args, bind(t)...)
	}
	return strings.Join(parts, " + "), args
}

// Query is everything the store needs to produce scored candidates.
type Query struct {
	Expression        Expression
	Safety            allergen.Predicate
	MaxPrice          *float64
	IncludeOutOfStock bool
	Limit             int
}

// Candidate is a scored product. ProfileScore and FinalScore are filled in
// by blending.
type Candidate struct {
	Product      catalog.Product `json:"product"`
	ConcernScore float64         `json:"concern_score"`
	ProfileScore float64         `json:"profile_score"`
	FinalScore   float64         `json:"final_score"`
}

// Store executes candidate queries.
type Store interface {
	Candidates(ctx context.Context, q Query) ([]Candidate, error)
}
