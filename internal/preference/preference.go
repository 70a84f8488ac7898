// Package preference turns sparse, sentinel-laden preference records into
// typed profiles and renders them as natural-language documents.
package preference

import (
	"github.com/matsen/skinrec/internal/catalog"
	"github.com/rs/zerolog/log"
)

// NoPreference is the sentinel id meaning "no opinion".
const NoPreference = 0

// Preferences is the raw record as stored upstream. Single-valued fields use
// 0 and list fields use [0] (or empty) for "no preference".
type Preferences struct {
	SkinType       int      `json:"skinType,omitempty"`
	SkinConcerns   []int    `json:"skinConcerns,omitempty"`
	SkinTone       int      `json:"skinTone,omitempty"`
	AgeRange       int      `json:"ageRange,omitempty"`
	Allergens      []int    `json:"allergenicIngredients,omitempty"`
	Fragrances     []int    `json:"fragrancePreferences,omitempty"`
	HairTypes      []int    `json:"hairType,omitempty"`
	HairColors     []int    `json:"hairColor,omitempty"`
	HairConcerns   []int    `json:"hairConcernsAndBenefits,omitempty"`
	Shopping       []int    `json:"shoppingPreferences,omitempty"`
	EyeColor       int      `json:"eyeColor,omitempty"`
	FavoriteBrands []string `json:"favoriteBrands,omitempty"`
}

// Option holds a value that may be absent.
type Option[T any] struct {
	value T
	ok    bool
}

// Some wraps a present value.
func Some[T any](v T) Option[T] { return Option[T]{value: v, ok: true} }

// None returns an absent value.
func None[T any]() Option[T] { return Option[T]{} }

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) { return o.value, o.ok }

// IsSet reports whether the value is present.
func (o Option[T]) IsSet() bool { return o.ok }

// Entry is a resolved enumeration member.
type Entry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Profile is a Preferences record with sentinels and unknown ids removed.
// Downstream scoring never sees id 0.
type Profile struct {
	SkinType       Option[Entry]
	SkinConcerns   []Entry
	SkinTone       Option[Entry]
	AgeRange       Option[Entry]
	Allergens      []Entry
	Fragrances     []Entry
	HairTypes      []Entry
	HairColors     []Entry
	HairConcerns   []Entry
	Shopping       []Entry
	EyeColor       Option[Entry]
	FavoriteBrands []string
}

// Resolve converts a raw record into a Profile. Unknown ids are logged and
// skipped.
func Resolve(p Preferences) Profile {
	return Profile{
		SkinType:       resolveOne(catalog.SkinTypes, p.SkinType),
		SkinConcerns:   resolveMany(catalog.SkinConcerns, p.SkinConcerns),
		SkinTone:       resolveOne(catalog.SkinTones, p.SkinTone),
		AgeRange:       resolveOne(catalog.AgeRanges, p.AgeRange),
		Allergens:      resolveMany(catalog.Allergens, p.Allergens),
		Fragrances:     resolveMany(catalog.Fragrances, p.Fragrances),
		HairTypes:      resolveMany(catalog.HairTypes, p.HairTypes),
		HairColors:     resolveMany(catalog.HairColors, p.HairColors),
		HairConcerns:   resolveMany(catalog.HairConcerns, p.HairConcerns),
		Shopping:       resolveMany(catalog.Shopping, p.Shopping),
		EyeColor:       resolveOne(catalog.EyeColors, p.EyeColor),
		FavoriteBrands: nonEmpty(p.FavoriteBrands),
	}
}

func resolveOne(t catalog.Table, id int) Option[Entry] {
	if id == NoPreference {
		return None[Entry]()
	}
	name, ok := t.Name(id)
	if !ok {
		log.Warn().Str("dimension", t.Kind()).Int("id", id).Msg("unknown preference id")
		return None[Entry]()
	}
	return Some(Entry{ID: id, Name: name})
}

func resolveMany(t catalog.Table, ids []int) []Entry {
	var out []Entry
	seen := make(map[int]bool)
	for _, id := range ids {
		if id == NoPreference || seen[id] {
			continue
		}
		seen[id] = true
		name, ok := t.Name(id)
		if !ok {
			log.Warn().Str("dimension", t.Kind()).Int("id", id).Msg("unknown preference id")
			continue
		}
		out = append(out, Entry{ID: id, Name: name})
	}
	return out
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// IsEmpty reports whether the profile declares nothing at all.
func (p Profile) IsEmpty() bool {
	return !p.SkinType.IsSet() && !p.SkinTone.IsSet() && !p.AgeRange.IsSet() && !p.EyeColor.IsSet() &&
		len(p.SkinConcerns) == 0 && len(p.Allergens) == 0 && len(p.Fragrances) == 0 &&
		len(p.HairTypes) == 0 && len(p.HairColors) == 0 && len(p.HairConcerns) == 0 &&
		len(p.Shopping) == 0 && len(p.FavoriteBrands) == 0
}

// AllergenIDs returns the declared allergen ids.
func (p Profile) AllergenIDs() []int {
	ids := make([]int, 0, len(p.Allergens))
	for _, a := range p.Allergens {
		ids = append(ids, a.ID)
	}
	return ids
}

// Names returns the names of a list of entries.
func Names(entries []Entry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}
