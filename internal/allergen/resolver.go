package allergen

import (
	"sort"
	"strings"

	"github.com/matsen/skinrec/internal/catalog"
	"github.com/rs/zerolog/log"
)

// TermSet maps canonical allergen names to their search terms.
type TermSet map[string][]string

// Resolver maps declared allergen ids to a safety predicate.
type Resolver struct {
	custom map[string]Pattern
}

// NewResolver returns a resolver backed by the curated pattern table.
func NewResolver() *Resolver {
	return &Resolver{custom: make(map[string]Pattern)}
}

// AddPattern registers or overrides the pattern for an allergen name.
func (r *Resolver) AddPattern(name string, p Pattern) {
	r.custom[strings.ToLower(name)] = p
}

// Terms returns the search terms for name, preferring custom patterns.
func (r *Resolver) Terms(name string) []string {
	if p, ok := r.custom[strings.ToLower(name)]; ok {
		terms := p.Terms()
		for i := range terms {
			terms[i] = Fold(terms[i])
		}
		return dedupe(terms)
	}
	return Terms(name)
}

// Resolve builds the predicate for a list of declared allergen ids. The 0
// sentinel and unknown ids are skipped; unknown ids are logged.
func (r *Resolver) Resolve(ids []int) Predicate {
	var names []string
	seen := make(map[string]bool)
	for _, id := range ids {
		if id == 0 {
			continue
		}
		name, ok := catalog.Allergens.Name(id)
		if !ok {
			log.Warn().Int("allergen_id", id).Msg("unknown allergen id, skipping")
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return r.ResolveNames(names)
}

// ResolveNames builds the predicate for canonical allergen names.
func (r *Resolver) ResolveNames(names []string) Predicate {
	terms := make(TermSet, len(names))
	var order []string
	for _, name := range names {
		t := r.Terms(name)
		if len(t) == 0 {
			continue
		}
		if _, dup := terms[name]; !dup {
			order = append(order, name)
		}
		terms[name] = t
	}
	return Predicate{names: order, terms: terms}
}

// Predicate decides whether ingredient text is safe for a user. The zero
// value accepts everything.
type Predicate struct {
	names []string
	terms TermSet
}

// Empty reports whether the predicate is the constant true.
func (p Predicate) Empty() bool { return len(p.names) == 0 }

// Names returns the canonical allergen names in declaration order.
func (p Predicate) Names() []string { return append([]string(nil), p.names...) }

// Terms returns a copy of the term set.
func (p Predicate) Terms() TermSet {
	out := make(TermSet, len(p.terms))
	for k, v := range p.terms {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// allTerms returns every distinct term, sorted, so the SQL clause is stable.
func (p Predicate) allTerms() []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range p.names {
		for _, t := range p.terms[name] {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}

// SQL renders an exclusion clause over expr, which must be a text SQL
// expression: NOT (expr LIKE ? OR ...). An empty predicate renders no
// clause and no args.
func (p Predicate) SQL(expr string) (string, []any) {
	terms := p.allTerms()
	if len(terms) == 0 {
		return "", nil
	}
	conds := make([]string, len(terms))
	args := make([]any, len(terms))
	for i, t := range terms {
		conds[i] = expr + ` LIKE ? ESCAPE '\'`
		args[i] = "%" + escapeLike(t) + "%"
	}
	return "NOT (" + strings.Join(conds, " OR ") + ")", args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Detect returns the allergen names whose terms appear in text.
func (p Predicate) Detect(text string) []string {
	if p.Empty() {
		return nil
	}
	folded := Fold(text)
	var found []string
	for _, name := range p.names {
		for _, t := range p.terms[name] {
			if strings.Contains(folded, t) {
				found = append(found, name)
				break
			}
		}
	}
	return found
}

// IsSafe reports whether text contains none of the allergen terms.
func (p Predicate) IsSafe(text string) bool {
	return len(p.Detect(text)) == 0
}
