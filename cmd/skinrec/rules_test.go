package main

import (
	"testing"

	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/preference"
	"github.com/matsen/skinrec/internal/rules"
)

func TestDescribeRules(t *testing.T) {
	resp := describeRules(rules.DefaultConfig())
	want := []string{"critical", "high", "medium", "low"}
	if len(resp.Tiers) != len(want) {
		t.Fatalf("got %d tiers", len(resp.Tiers))
	}
	for i, name := range want {
		if resp.Tiers[i].Tier != name {
			t.Errorf("tier %d = %s, want %s", i, resp.Tiers[i].Tier, name)
		}
	}
	if resp.Tiers[0].Weight != 0.40 {
		t.Errorf("critical weight = %v", resp.Tiers[0].Weight)
	}
	if len(resp.Filters) != 2 || resp.Filters[0] != rules.FilterAge {
		t.Errorf("filters = %v", resp.Filters)
	}
}

func TestExplainProductFlagsAllergens(t *testing.T) {
	scorer, err := rules.NewScorer(rules.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	allergenID := catalogAllergenID(t, "Methylparaben")
	prof := preference.Resolve(preference.Preferences{SkinType: 4, Allergens: []int{allergenID}})
	p := catalog.Product{ID: "P1", Name: "Toner", IngredientsText: "Aqua, Methylparaben"}

	resp := explainProduct(scorer, p, prof)
	if resp.ProductID != "P1" {
		t.Errorf("ProductID = %q", resp.ProductID)
	}
	if len(resp.Allergens) != 1 {
		t.Errorf("Allergens = %v, want one hit", resp.Allergens)
	}
	if len(resp.Preferences) != 1 || resp.Preferences[0] != "skin_type: Oily" {
		t.Errorf("Preferences = %v, want [skin_type: Oily]", resp.Preferences)
	}
	if _, ok := resp.Breakdown.Tiers["critical"]; !ok {
		t.Errorf("Breakdown.Tiers = %v, want a critical entry", resp.Breakdown.Tiers)
	}
}

func catalogAllergenID(t *testing.T, name string) int {
	t.Helper()
	id, ok := catalog.Allergens.ID(name)
	if !ok {
		t.Fatalf("allergen %q not in catalog", name)
	}
	return id
}
