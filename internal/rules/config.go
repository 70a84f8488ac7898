// Package rules scores products against declared preferences with tiered
// heuristics, independent of any embeddings.
package rules

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Tier is a priority band of preference dimensions.
type Tier int

const (
	Critical Tier = iota
	High
	Medium
	Low
)

// Tiers lists every tier in priority order.
var Tiers = []Tier{Critical, High, Medium, Low}

var tierNames = map[Tier]string{
	Critical: "critical",
	High:     "high",
	Medium:   "medium",
	Low:      "low",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// ParseTier converts a tier name, case-insensitively.
func ParseTier(name string) (Tier, bool) {
	for t, n := range tierNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return t, true
		}
	}
	return 0, false
}

// Pre-filter names accepted in Config.Filters.
const (
	FilterAllergens = "allergens"
	FilterAge       = "age"
)

var knownFilters = map[string]bool{FilterAllergens: true, FilterAge: true}

// Configuration errors.
var (
	ErrUnknownFilter      = errors.New("unknown rule filter")
	ErrInvalidTierWeights = errors.New("tier weights must be non-negative and sum to 1")
)

// Config controls the rule scorer.
type Config struct {
	Weights map[Tier]float64
	// Filters names the optional pre-filters to apply. The allergen filter
	// runs whether listed or not.
	Filters []string
}

// DefaultConfig returns the standard tier weights with the age filter on.
func DefaultConfig() Config {
	return Config{
		Weights: map[Tier]float64{
			Critical: 0.40,
			High:     0.30,
			Medium:   0.20,
			Low:      0.10,
		},
		Filters: []string{FilterAllergens, FilterAge},
	}
}

// Validate checks that tier weights sum to one and every filter is known.
func (c Config) Validate() error {
	var sum float64
	for _, t := range Tiers {
		w, ok := c.Weights[t]
		if !ok || w < 0 || math.IsNaN(w) {
			return fmt.Errorf("%w: %s weight %v", ErrInvalidTierWeights, t, w)
		}
		sum += w
	}
	if len(c.Weights) != len(Tiers) {
		return fmt.Errorf("%w: %d tiers configured", ErrInvalidTierWeights, len(c.Weights))
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("%w: sum is %v", ErrInvalidTierWeights, sum)
	}

	var unknown []string
	for _, f := range c.Filters {
		if !knownFilters[f] {
			unknown = append(unknown, f)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrUnknownFilter, strings.Join(unknown, ", "))
	}
	return nil
}

func (c Config) hasFilter(name string) bool {
	for _, f := range c.Filters {
		if f == name {
			return true
		}
	}
	return false
}
