package rules

import (
	"strings"

	"github.com/matsen/skinrec/internal/catalog"
)

// Keyword lists matched against a product's marketing text.
var (
	hairIndicators = []string{"shampoo", "conditioner", "hair", "scalp", "styling"}
	eyeIndicators  = []string{"eyeshadow", "eyeliner", "mascara", "eye"}

	matureIndicators = []string{"anti-aging", "wrinkle", "firming", "lifting", "mature skin", "50+"}

	forties = []string{"anti-aging", "firming", "lifting", "wrinkle", "mature", "intensive"}

	ageKeywords = map[string][]string{
		"SixteenPlus": {"teen", "young", "gentle", "mild", "acne", "oil control"},
		"Twenties":    {"hydrating", "preventive", "gentle", "daily", "protection"},
		"Thirties":    {"anti-aging", "preventive", "hydrating", "firming", "protection"},
		"Forties":     forties,
		"FiftyPlus":   append(append([]string(nil), forties...), "renewal"),
	}

	youngAges = map[string]bool{"SixteenPlus": true, "Twenties": true}
)

// ageMatchesForFull is the keyword count that earns a full age score.
const ageMatchesForFull = 3

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func countMatches(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

// IsHairProduct reports whether a product looks like hair care.
func IsHairProduct(p catalog.Product) bool {
	return containsAny(p.MarketingText(), hairIndicators)
}

// IsEyeProduct reports whether a product looks like eye makeup or care.
func IsEyeProduct(p catalog.Product) bool {
	return containsAny(p.MarketingText(), eyeIndicators)
}

// ageScore is min(matches/3, 1) for the age bracket's keywords.
func ageScore(p catalog.Product, age string) float64 {
	words, ok := ageKeywords[age]
	if !ok {
		return 0
	}
	s := float64(countMatches(p.MarketingText(), words)) / ageMatchesForFull
	if s > 1 {
		return 1
	}
	return s
}

// ageAppropriate rejects mature-skin products for young users.
func ageAppropriate(p catalog.Product, age string) bool {
	if !youngAges[age] {
		return true
	}
	return !containsAny(p.MarketingText(), matureIndicators)
}

func overlaps(a, b []int) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func contains(ids []int, id int) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
