package main

import (
	"context"
	"testing"

	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/semantic"
)

func TestBuildSearchResultsSkipsMissing(t *testing.T) {
	db := fakeProducts{products: []catalog.Product{
		{ID: "P1", Name: "Gel", Brand: "Acme", Category: "Cleanser", Price: 9},
	}}
	hits := []semantic.SearchResult{
		{ProductID: "P1", Similarity: 0.9},
		{ProductID: "gone", Similarity: 0.8},
	}

	got := buildSearchResults(context.Background(), hits, db)
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if got[0].ID != "P1" || got[0].Brand != "Acme" || got[0].Similarity != 0.9 {
		t.Errorf("result = %+v", got[0])
	}
}
