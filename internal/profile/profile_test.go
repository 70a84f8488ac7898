package profile

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/matsen/skinrec/internal/candidate"
	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/concept"
	"github.com/matsen/skinrec/internal/preference"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("[Skin Profile]. Concerned about DarkCircles, FineLinesWrinkles. Oily-skin")
	for _, want := range []string{"skin", "profile", "concerned", "about", "dark", "circles", "fine", "lines", "wrinkles", "oily"} {
		if _, ok := got[want]; !ok {
			t.Errorf("Tokenize() missing %q: %v", want, got)
		}
	}
	if _, ok := got["DarkCircles"]; ok {
		t.Error("tokens should be lowercased and split")
	}
	if len(Tokenize("")) != 0 {
		t.Error("empty document should have no tokens")
	}
}

func TestCentroid(t *testing.T) {
	concepts := []concept.Concept{
		{ID: 1, Name: "Acne", Embedding: []float32{1, 0}},
		{ID: 2, Name: "Wrinkles", Embedding: []float32{0, 1}},
		{ID: 3, Name: "Dryness", Embedding: []float32{5, 5}},
		{ID: 4, Name: "Oily"},
	}

	got, ok := Centroid(Tokenize("acne and Wrinkles, oily"), concepts)
	if !ok {
		t.Fatal("Centroid() found nothing")
	}
	if got[0] != 0.5 || got[1] != 0.5 {
		t.Errorf("Centroid() = %v, want [0.5 0.5]", got)
	}

	if _, ok := Centroid(Tokenize("nothing relevant"), concepts); ok {
		t.Error("Centroid() should report no match")
	}
}

type staticDoc string

func (d staticDoc) Render(preference.Profile) string { return string(d) }

func TestSourceVector(t *testing.T) {
	concepts := []concept.Concept{{ID: 1, Name: "Acne", Embedding: []float32{1, 0}}}
	p := preference.Resolve(preference.Preferences{SkinType: 4})
	src := NewSource(staticDoc("Concerned about Acne"))
	ctx := context.Background()

	pre := []float32{0, 1}
	if got, ok := src.Vector(ctx, pre, p, concepts); !ok || got[1] != 1 {
		t.Errorf("precomputed vector should win, got %v", got)
	}

	if got, ok := src.Vector(ctx, nil, p, concepts); !ok || got[0] != 1 {
		t.Errorf("centroid vector = %v, %v", got, ok)
	}

	if _, ok := src.Vector(ctx, nil, preference.Profile{}, concepts); ok {
		t.Error("empty profile should have no vector")
	}
}

func TestWeightsValidate(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		name    string
		w       Weights
		wantErr bool
	}{
		{"default beta", Weights{Alpha: 0.8}, false},
		{"explicit", Weights{Alpha: 0.3, Beta: f(0.7)}, false},
		{"alpha one", Weights{Alpha: 1}, false},
		{"alpha zero", Weights{Alpha: 0}, false},
		{"bad sum", Weights{Alpha: 0.5, Beta: f(0.6)}, true},
		{"alpha too big", Weights{Alpha: 1.2}, true},
		{"alpha negative", Weights{Alpha: -0.1}, true},
		{"nan", Weights{Alpha: math.NaN()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate()
			if tt.wantErr != (err != nil) {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidBlendWeights) {
				t.Errorf("Validate() = %v, want ErrInvalidBlendWeights", err)
			}
		})
	}
}

func cand(id string, concern float64, emb ...float32) candidate.Candidate {
	return candidate.Candidate{Product: catalog.Product{ID: id, Embedding: emb}, ConcernScore: concern}
}

func ids(cs []candidate.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Product.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBlendAlphaOnePreservesConcernOrder(t *testing.T) {
	in := []candidate.Candidate{cand("a", 0.9, 0, 1), cand("b", 0.6, 1, 0), cand("c", 0.3, 1, 0)}
	got, err := Blend(in, []float32{1, 0}, Weights{Alpha: 1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !equal(ids(got), []string{"a", "b", "c"}) {
		t.Errorf("order = %v", ids(got))
	}
	if got[0].FinalScore != 0.9 {
		t.Errorf("FinalScore = %v, want concern score", got[0].FinalScore)
	}
}

func TestBlendAlphaZeroRanksByProfile(t *testing.T) {
	in := []candidate.Candidate{cand("a", 0.9, -1, 0), cand("b", 0.1, 1, 0), cand("c", 0.5, 0, 1)}
	got, err := Blend(in, []float32{1, 0}, Weights{Alpha: 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !equal(ids(got), []string{"b", "c"}) {
		t.Errorf("order = %v, want [b c]", ids(got))
	}
	if got[0].ProfileScore != 1 || got[1].ProfileScore != 0.5 {
		t.Errorf("profile scores = %v, %v", got[0].ProfileScore, got[1].ProfileScore)
	}
}

func TestBlendNeutralWithoutVector(t *testing.T) {
	in := []candidate.Candidate{cand("a", 0.4, 1), cand("b", 0.8, 1)}
	got, err := Blend(in, nil, Weights{Alpha: 0.8}, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range got {
		if c.ProfileScore != NeutralScore {
			t.Errorf("%s ProfileScore = %v, want neutral", c.Product.ID, c.ProfileScore)
		}
	}
	want := 0.8*0.8 + 0.2*0.5
	if math.Abs(got[0].FinalScore-want) > 1e-12 || got[0].Product.ID != "b" {
		t.Errorf("top = %s %v, want b %v", got[0].Product.ID, got[0].FinalScore, want)
	}
	if in[0].ProfileScore != 0 {
		t.Error("Blend should not modify its input")
	}
}

func TestBlendRejectsInvalidWeights(t *testing.T) {
	beta := 0.5
	if _, err := Blend(nil, nil, Weights{Alpha: 0.8, Beta: &beta}, 0); !errors.Is(err, ErrInvalidBlendWeights) {
		t.Errorf("Blend() error = %v", err)
	}
}
