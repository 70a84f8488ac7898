package concern

import (
	"math"
	"reflect"
	"testing"

	"github.com/matsen/skinrec/internal/preference"
)

const eps = 1e-9

func TestNormalizeConfidence(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{80, 0.8},
		{0.8, 0.8},
		{1, 1},
		{100, 1},
		{0, 0},
		{1.5, 0.015},
	}

	for _, tt := range tests {
		if got := NormalizeConfidence(tt.in); math.Abs(got-tt.want) > eps {
			t.Errorf("NormalizeConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeConfidenceIdempotent(t *testing.T) {
	for _, c := range []float64{0, 0.01, 0.5, 0.99, 1, 1.01, 42, 99.9, 100} {
		once := NormalizeConfidence(c)
		if twice := NormalizeConfidence(once); twice != once {
			t.Errorf("NormalizeConfidence not idempotent for %v: %v then %v", c, once, twice)
		}
	}
}

func TestFilter(t *testing.T) {
	detections := []Detection{
		{Type: "Acne", Confidence: 80},
		{Type: "Redness", Confidence: 0.3},
		{Type: "Wrinkle", Confidence: 50},
	}

	got := Filter(detections, 0.5)
	if len(got) != 2 {
		t.Fatalf("Filter() kept %d, want 2", len(got))
	}
	if got[0].Type != "Acne" || math.Abs(got[0].Normalized-0.8) > eps {
		t.Errorf("got[0] = %+v", got[0])
	}
	// threshold is inclusive
	if got[1].Type != "Wrinkle" || got[1].Normalized != 0.5 {
		t.Errorf("got[1] = %+v", got[1])
	}
}

// Scenario A: one detection above threshold.
func TestAggregateScenarioA(t *testing.T) {
	w := Aggregate([]Detection{{Type: "acne", Confidence: 80}}, 0.5, preference.Profile{})
	if len(w) != 1 || math.Abs(w["acne"]-0.8) > eps {
		t.Errorf("Aggregate() = %v, want {acne: 0.8}", w)
	}
}

func TestAggregateMergesPreferences(t *testing.T) {
	profile := preference.Resolve(preference.Preferences{
		SkinType:     4,
		SkinConcerns: []int{1, 7},
	})
	w := Aggregate([]Detection{
		{Type: "Oiliness", Confidence: 60},
		{Type: "Acne", Confidence: 0.9},
	}, 0.5, profile)

	want := Weights{
		"oiliness":      1.6,
		"acne":          0.9,
		"acneblemishes": 1.0,
		"oily":          1.0,
	}
	if len(w) != len(want) {
		t.Fatalf("Aggregate() = %v, want %v", w, want)
	}
	for k, v := range want {
		if math.Abs(w[k]-v) > eps {
			t.Errorf("w[%q] = %v, want %v", k, w[k], v)
		}
	}
}

// Scenario C: a sentinel skin type contributes nothing.
func TestAggregateSentinelSkinType(t *testing.T) {
	profile := preference.Resolve(preference.Preferences{SkinType: 0, SkinConcerns: []int{0}})
	w := Aggregate(nil, 0.5, profile)
	if len(w) != 0 {
		t.Errorf("Aggregate() = %v, want empty", w)
	}
}

func TestAggregateMonotonic(t *testing.T) {
	a := []Detection{{Type: "acne", Confidence: 70}}
	b := []Detection{{Type: "ACNE", Confidence: 0.6}, {Type: "redness", Confidence: 0.9}}

	wa := Aggregate(a, 0.5, preference.Profile{})
	wb := Aggregate(b, 0.5, preference.Profile{})
	merged := Aggregate(append(append([]Detection{}, a...), b...), 0.5, preference.Profile{})

	if merged["acne"] < wa["acne"] || merged["acne"] < wb["acne"] {
		t.Errorf("merged acne %v < contributions %v, %v", merged["acne"], wa["acne"], wb["acne"])
	}
}

func TestAggregateDeterministic(t *testing.T) {
	detections := []Detection{{Type: "acne", Confidence: 80}, {Type: "pores", Confidence: 55}}
	profile := preference.Resolve(preference.Preferences{SkinConcerns: []int{3}})

	first := Aggregate(detections, 0.5, profile)
	for i := 0; i < 10; i++ {
		if got := Aggregate(detections, 0.5, profile); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: %v != %v", i, got, first)
		}
	}
}

func TestWeightsAddIgnoresNegative(t *testing.T) {
	w := Weights{"acne": 0.5}
	w.Add("acne", -1)
	w.Add("  ", 1)
	if w["acne"] != 0.5 || len(w) != 1 {
		t.Errorf("w = %v", w)
	}
}

func TestWeightsTop(t *testing.T) {
	w := Weights{"b": 1, "a": 1, "c": 2, "d": 0.5}
	got := w.Top(3)
	want := []Ranked{{"c", 2}, {"a", 1}, {"b", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Top(3) = %v, want %v", got, want)
	}
	if got := w.Names(); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("Names() = %v", got)
	}
}
