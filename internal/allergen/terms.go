package allergen

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// suffixes are stripped by the fallback generator to produce a stem term.
var suffixes = []string{"oil", "acid", "paraben", "alcohol"}

// Terms returns the search terms for a canonical allergen name. Names with a
// curated pattern use it; others go through the fallback generator. The
// result is never empty for a non-empty name.
func Terms(name string) []string {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	if p, ok := knownPatterns[strings.ToLower(name)]; ok {
		return dedupe(p.Terms())
	}
	return fallbackTerms(name)
}

func fallbackTerms(name string) []string {
	base := strings.ToLower(name)
	terms := []string{base}

	spaced := strings.ToLower(camelBoundary.ReplaceAllString(name, "$1 $2"))
	if spaced != base {
		terms = append(terms, spaced)
	}

	for _, suffix := range suffixes {
		if strings.HasSuffix(base, suffix) && len(base) > len(suffix)+2 {
			stem := strings.TrimSpace(strings.TrimSuffix(base, suffix))
			terms = append(terms, stem, stem+" "+suffix)
		}
	}

	return dedupe(terms)
}

func dedupe(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Fold prepares ingredient text for matching: NFKC folds full-width and
// compatibility characters, then everything is lowercased.
func Fold(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}
