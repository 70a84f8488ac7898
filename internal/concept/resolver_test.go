package concept

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func vec(v ...float32) []float32 { return v }

func testCatalog() []Concept {
	return []Concept{
		{ID: 1, Type: TypeSkinConcern, Name: "Acne", Embedding: vec(1, 0, 0)},
		{ID: 2, Type: TypeSkinConcern, Name: "Eyebag", Embedding: vec(0, 1, 0)},
		{ID: 3, Type: TypeSkinConcern, Name: "Wrinkles", Embedding: vec(0, 0, 1)},
		{ID: 4, Type: TypeSkinConcern, Name: "Dark Circles", Embedding: vec(1, 1, 0)},
		{ID: 5, Type: TypeSkinType, Name: "Oily", Embedding: vec(0, 1, 1)},
		{ID: 6, Type: TypeSkinConcern, Name: "Redness"},
	}
}

// Scenario A: a concern named exactly like a concept resolves to its vector.
func TestResolveScenarioA(t *testing.T) {
	e := vec(0.1, 0.2, 0.3)
	r := NewResolver([]Concept{{ID: 1, Type: TypeSkinConcern, Name: "acne", Embedding: e}})
	got := r.Resolve([]string{"acne"})
	if !reflect.DeepEqual(got["acne"], e) {
		t.Errorf("Resolve() = %v, want acne -> %v", got, e)
	}
}

func TestFindStrategies(t *testing.T) {
	r := NewResolver(testCatalog())

	tests := []struct {
		concern      string
		wantConcept  string
		wantStrategy string
		wantOK       bool
	}{
		{"acne", "Acne", "exact", true},
		{"dark_circles", "Dark Circles", "exact", true},
		{"darkcircles", "Dark Circles", "exact", true},
		{"oily skin", "Oily", "containment", true},
		{"wrinkle", "Wrinkles", "containment", true},
		{"acneblemishes", "Acne", "containment", true},
		{"puffiness", "Eyebag", "special", true},
		{"finelines", "Wrinkles", "special", true},
		{"finelineswrinkles", "Wrinkles", "containment", true},
		{"blemishes", "Acne", "special", true},
		{"redness", "", "", false}, // concept has no embedding
		{"rosacea", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.concern, func(t *testing.T) {
			m, ok := r.Find(tt.concern)
			if ok != tt.wantOK {
				t.Fatalf("Find(%q) ok = %v, want %v", tt.concern, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if m.Concept.Name != tt.wantConcept || m.Strategy != tt.wantStrategy {
				t.Errorf("Find(%q) = (%s, %s), want (%s, %s)", tt.concern, m.Concept.Name, m.Strategy, tt.wantConcept, tt.wantStrategy)
			}
		})
	}
}

// An exact match on one concept beats a special-table entry pointing at
// another.
func TestExactBeatsSpecial(t *testing.T) {
	catalog := []Concept{
		{ID: 1, Type: TypeSkinConcern, Name: "Eyebag", Embedding: vec(1, 0)},
		{ID: 2, Type: TypeSkinConcern, Name: "Puffiness", Embedding: vec(0, 1)},
	}
	r := NewResolver(catalog)

	got := r.Resolve([]string{"puffiness"})
	if !reflect.DeepEqual(got["puffiness"], vec(0, 1)) {
		t.Errorf("puffiness resolved to %v, want the exact Puffiness concept", got["puffiness"])
	}
}

// An exact match on a later concept beats containment on an earlier one.
func TestExactBeatsContainment(t *testing.T) {
	catalog := []Concept{
		{ID: 1, Type: TypeSkinConcern, Name: "Acne Scars", Embedding: vec(1, 0)},
		{ID: 2, Type: TypeSkinConcern, Name: "Acne", Embedding: vec(0, 1)},
	}
	m, ok := NewResolver(catalog).Find("acne")
	if !ok || m.Concept.Name != "Acne" || m.Strategy != "exact" {
		t.Errorf("Find(acne) = (%+v, %v)", m, ok)
	}
}

func TestResolveDropsUnmatched(t *testing.T) {
	r := NewResolver(testCatalog())
	got := r.Resolve([]string{"acne", "cellulite", "puffiness"})
	if len(got) != 2 {
		t.Errorf("Resolve() len = %d, want 2: %v", len(got), got)
	}
	if _, ok := got["cellulite"]; ok {
		t.Error("cellulite should be dropped")
	}
}

func TestCustomStrategies(t *testing.T) {
	r := NewResolver(testCatalog(), ExactMatch)
	if _, ok := r.Find("puffiness"); ok {
		t.Error("exact-only resolver should not use special table")
	}
}

func TestMatches(t *testing.T) {
	r := NewResolver(testCatalog())
	got := r.Matches([]string{"puffiness", "nope"})
	if len(got) != 1 || got[0].Strategy != "special" {
		t.Errorf("Matches() = %+v", got)
	}
}

func TestValidateSpecialMappings(t *testing.T) {
	if err := ValidateSpecialMappings(testCatalog()); err != nil {
		t.Errorf("ValidateSpecialMappings(full) = %v", err)
	}

	partial := []Concept{{ID: 1, Type: TypeSkinConcern, Name: "Acne"}}
	err := ValidateSpecialMappings(partial)
	if !errors.Is(err, ErrSpecialTargetMissing) {
		t.Fatalf("ValidateSpecialMappings(partial) = %v", err)
	}
	for _, missing := range []string{"darkcircles", "eyebag", "wrinkles"} {
		if !strings.Contains(err.Error(), missing) {
			t.Errorf("error %q does not name %s", err, missing)
		}
	}
}

func TestValidateSpecialMappingsRequiresEmbedding(t *testing.T) {
	cat := testCatalog()
	cat[1].Embedding = nil // Eyebag

	err := ValidateSpecialMappings(cat)
	if !errors.Is(err, ErrSpecialTargetMissing) {
		t.Fatalf("ValidateSpecialMappings() = %v, want ErrSpecialTargetMissing", err)
	}
	if !strings.Contains(err.Error(), "eyebag") {
		t.Errorf("error %q does not name eyebag", err)
	}
	if strings.Contains(err.Error(), "wrinkles") {
		t.Errorf("error %q names embedded target wrinkles", err)
	}
}

func TestResolverSkipsSeparatorOnlyNames(t *testing.T) {
	r := NewResolver([]Concept{
		{ID: 1, Type: TypeSkinConcern, Name: "-", Embedding: vec(1, 0, 0)},
		{ID: 2, Type: TypeSkinConcern, Name: "Acne", Embedding: vec(0, 1, 0)},
	})
	if m, ok := r.Find("redness"); ok {
		t.Errorf("Find(redness) = %+v, want no match", m)
	}
	if m, ok := r.Find("acne"); !ok || m.Concept.ID != 2 {
		t.Errorf("Find(acne) = %+v, %v, want concept 2", m, ok)
	}
}
