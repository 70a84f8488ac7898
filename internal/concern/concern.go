// Package concern merges skin analysis detections and declared preferences
// into a single concern weight table.
package concern

import (
	"sort"
	"strings"
	"time"

	"github.com/matsen/skinrec/internal/preference"
	"github.com/rs/zerolog/log"
)

// PreferenceWeight is added for every declared concern and the declared skin
// type.
const PreferenceWeight = 1.0

// Detection is one skin analysis finding.
type Detection struct {
	Type       string    `json:"analysisType"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// Scored is a detection that passed the confidence threshold.
type Scored struct {
	Detection
	Normalized float64 `json:"normalized_confidence"`
}

// NormalizeConfidence maps a 0-100 confidence onto 0-1. Values already in
// [0,1] are returned unchanged.
func NormalizeConfidence(c float64) float64 {
	if c > 1 {
		return c / 100
	}
	return c
}

// Filter keeps detections whose normalized confidence reaches threshold.
func Filter(detections []Detection, threshold float64) []Scored {
	var out []Scored
	for _, d := range detections {
		n := NormalizeConfidence(d.Confidence)
		if n < threshold {
			log.Debug().Str("type", d.Type).Float64("confidence", n).Float64("threshold", threshold).Msg("detection below threshold")
			continue
		}
		out = append(out, Scored{Detection: d, Normalized: n})
	}
	return out
}

// Weights maps lowercased concern names to accumulated weight.
type Weights map[string]float64

// Add accumulates w onto name. Negative weights are ignored so a weight
// never decreases.
func (w Weights) Add(name string, weight float64) {
	if weight < 0 {
		return
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return
	}
	w[key] += weight
}

// Merge adds every entry of other into w.
func (w Weights) Merge(other Weights) {
	for k, v := range other {
		w.Add(k, v)
	}
}

// Names returns the concern names in sorted order.
func (w Weights) Names() []string {
	names := make([]string, 0, len(w))
	for k := range w {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Ranked is a concern with its weight.
type Ranked struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Top returns the n heaviest concerns; ties are ordered by name.
func (w Weights) Top(n int) []Ranked {
	out := make([]Ranked, 0, len(w))
	for k, v := range w {
		out = append(out, Ranked{Name: k, Weight: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Name < out[j].Name
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// FromDetections keys surviving detections by their lowercased type.
func FromDetections(scored []Scored) Weights {
	w := make(Weights, len(scored))
	for _, s := range scored {
		w.Add(s.Type, s.Normalized)
	}
	return w
}

// FromProfile adds PreferenceWeight for each declared concern and the skin
// type, keyed by the lowercased enumeration name.
func FromProfile(p preference.Profile) Weights {
	w := make(Weights)
	for _, c := range p.SkinConcerns {
		w.Add(c.Name, PreferenceWeight)
	}
	if st, ok := p.SkinType.Get(); ok {
		w.Add(st.Name, PreferenceWeight)
	}
	return w
}

// Aggregate builds the concern weight table from analysis detections and a
// resolved preference profile.
func Aggregate(detections []Detection, threshold float64, p preference.Profile) Weights {
	w := FromDetections(Filter(detections, threshold))
	w.Merge(FromProfile(p))
	return w
}
