package semantic

import (
	"errors"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal vectors", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite vectors", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"similar vectors", []float32{1, 1}, []float32{1, 0}, math.Sqrt2 / 2},
		{"empty vectors", []float32{}, []float32{}, 0.0},
		{"different lengths", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 0, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-6 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCosineDistanceAndRescale(t *testing.T) {
	a, b := []float32{1, 0}, []float32{-1, 0}
	if got := CosineDistance(a, a); math.Abs(got) > 1e-9 {
		t.Errorf("CosineDistance(a, a) = %v, want 0", got)
	}
	if got := CosineDistance(a, b); math.Abs(got-2) > 1e-9 {
		t.Errorf("CosineDistance(a, -a) = %v, want 2", got)
	}

	for cos, want := range map[float64]float64{-1: 0, 0: 0.5, 1: 1} {
		if got := Rescale(cos); got != want {
			t.Errorf("Rescale(%v) = %v, want %v", cos, got, want)
		}
	}
}

func TestMeanPool(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float32
		want    []float32
	}{
		{"nothing", nil, nil},
		{"only empty", [][]float32{{}, nil}, nil},
		{"single", [][]float32{{1, 2}}, []float32{1, 2}},
		{"average", [][]float32{{1, 0}, {0, 1}}, []float32{0.5, 0.5}},
		{"ignores mismatched", [][]float32{{2, 2}, {9, 9, 9}, {0, 0}}, []float32{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MeanPool(tt.vectors)
			if len(got) != len(tt.want) {
				t.Fatalf("MeanPool() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-6 {
					t.Errorf("MeanPool()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func testIndex(t *testing.T) *ProductIndex {
	t.Helper()
	idx := NewProductIndex("test-model", 2)
	for id, v := range map[string][]float32{
		"serum":    {1, 0},
		"toner":    {1, 1},
		"cleanser": {0, 1},
		"balm":     {-1, 0},
	} {
		if err := idx.Add(id, v); err != nil {
			t.Fatalf("Add(%s) error = %v", id, err)
		}
	}
	return idx
}

func TestSearch(t *testing.T) {
	idx := testIndex(t)

	got := idx.Search([]float32{1, 0}, 0, 0)
	wantOrder := []string{"serum", "toner", "cleanser"}
	if len(got) != len(wantOrder) {
		t.Fatalf("Search() = %+v, want %d results", got, len(wantOrder))
	}
	for i, id := range wantOrder {
		if got[i].ProductID != id {
			t.Errorf("Search()[%d] = %s, want %s", i, got[i].ProductID, id)
		}
	}

	if got := idx.Search([]float32{1, 0}, 1, 0); len(got) != 1 {
		t.Errorf("Search(limit 1) returned %d results", len(got))
	}
	if got := idx.Search([]float32{1, 0, 0}, 0, 0); got != nil {
		t.Errorf("Search(wrong dims) = %v, want nil", got)
	}
}

// Equal similarities are ordered by id so results are reproducible.
func TestSearchTieBreak(t *testing.T) {
	idx := NewProductIndex("m", 1)
	idx.Add("b", []float32{1})
	idx.Add("a", []float32{2})
	got := idx.Search([]float32{1}, 0, -1)
	if got[0].ProductID != "a" || got[1].ProductID != "b" {
		t.Errorf("Search() order = %+v", got)
	}
}

func TestFindSimilar(t *testing.T) {
	idx := testIndex(t)

	got, err := idx.FindSimilar("serum", 2)
	if err != nil {
		t.Fatalf("FindSimilar() error = %v", err)
	}
	if len(got) != 2 || got[0].ProductID != "toner" {
		t.Errorf("FindSimilar() = %+v", got)
	}
	for _, r := range got {
		if r.ProductID == "serum" {
			t.Error("FindSimilar() should exclude the source product")
		}
	}

	if _, err := idx.FindSimilar("missing", 5); !errors.Is(err, ErrProductNotIndexed) {
		t.Errorf("FindSimilar(missing) error = %v", err)
	}
}
