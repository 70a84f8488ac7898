package main

import (
	"context"
	"errors"
	"testing"

	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/concept"
	"github.com/matsen/skinrec/internal/preference"
	"github.com/matsen/skinrec/internal/semantic"
	"github.com/matsen/skinrec/internal/storage"
)

type fakeEmbedSource struct {
	products []catalog.Product
	concepts []concept.Concept
	users    []storage.User
	err      error
}

func (f fakeEmbedSource) Products(context.Context) ([]catalog.Product, error) {
	return f.products, nil
}

func (f fakeEmbedSource) Concepts(context.Context) ([]concept.Concept, error) {
	return f.concepts, nil
}

func (f fakeEmbedSource) Users(context.Context) ([]storage.User, error) {
	return f.users, f.err
}

func TestLoadEmbedItems(t *testing.T) {
	src := fakeEmbedSource{
		products: []catalog.Product{{ID: "P1", Name: "Gel", Description: "Clears pores"}},
		concepts: []concept.Concept{{ID: 3, Type: concept.TypeSkinConcern, Name: "Acne", Description: "Breakouts"}},
		users: []storage.User{
			{ID: 7, Preferences: preference.Preferences{SkinType: 2}, Embedding: []float32{0.5}},
			{ID: 8},
		},
	}

	items, err := loadEmbedItems(context.Background(), src)
	if err != nil {
		t.Fatalf("loadEmbedItems() = %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("got %d items, want 4", len(items))
	}

	kinds := []semantic.Kind{semantic.KindProduct, semantic.KindConcept, semantic.KindUser, semantic.KindUser}
	for i, k := range kinds {
		if items[i].Kind != k {
			t.Errorf("items[%d].Kind = %s, want %s", i, items[i].Kind, k)
		}
	}
	if items[1].Text != "Acne. Breakouts" {
		t.Errorf("concept text = %q", items[1].Text)
	}

	u := items[2]
	if u.ID != "7" || u.Text == "" || len(u.Current) != 1 {
		t.Errorf("user item = %+v", u)
	}
	if items[3].Text != "" {
		t.Errorf("user without preferences rendered %q, want empty", items[3].Text)
	}
}

func TestLoadEmbedItemsError(t *testing.T) {
	boom := errors.New("boom")
	if _, err := loadEmbedItems(context.Background(), fakeEmbedSource{err: boom}); !errors.Is(err, boom) {
		t.Errorf("loadEmbedItems() error = %v, want wrapped boom", err)
	}
}
