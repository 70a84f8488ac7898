// Package catalog holds the fixed id spaces shared by user preferences and
// the product catalog, plus the product record itself.
package catalog

import (
	"sort"
	"strings"
)

// Table is a fixed id to name enumeration.
type Table struct {
	kind  string
	names map[int]string
}

func newTable(kind string, names map[int]string) Table {
	return Table{kind: kind, names: names}
}

// Kind returns the preference dimension this table enumerates.
func (t Table) Kind() string { return t.kind }

// Name returns the canonical name for id.
func (t Table) Name(id int) (string, bool) {
	name, ok := t.names[id]
	return name, ok
}

// ID looks up a name case-insensitively.
func (t Table) ID(name string) (int, bool) {
	for id, n := range t.names {
		if strings.EqualFold(n, name) {
			return id, true
		}
	}
	return 0, false
}

// IDs returns every id in ascending order.
func (t Table) IDs() []int {
	ids := make([]int, 0, len(t.names))
	for id := range t.names {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of entries.
func (t Table) Len() int { return len(t.names) }

// SkinTypes enumerates declared skin types.
var SkinTypes = newTable("skinType", map[int]string{
	1: "Combination",
	2: "Dry",
	3: "Normal",
	4: "Oily",
	5: "Sensitive",
	6: "DryAndSensitive",
	7: "OilAndSensitive",
	8: "CombinationSensitive",
})

// SkinConcerns enumerates declared skin concerns.
var SkinConcerns = newTable("skinConcerns", map[int]string{
	1:  "AcneBlemishes",
	2:  "Moisture",
	3:  "Pores",
	4:  "FineLinesWrinkles",
	5:  "DarkCircles",
	6:  "Redness",
	7:  "Oiliness",
	8:  "Dryness",
	9:  "Sensitivity",
	10: "UnevenSkinTone",
	11: "Texture",
	12: "FirmnessElasticity",
	13: "DarkSpotsHyperpigmentation",
	14: "DullnessRadiance",
	15: "Puffiness",
	16: "SunDamage",
	17: "LossOfVolume",
	18: "Cellulite",
	19: "StretchMarks",
	20: "KeratosisPilaris",
	21: "Eczema",
	22: "Rosacea",
})

// SkinTones enumerates skin tones. Id 0 ("Rich") collides with the
// no-preference sentinel and is therefore never selectable.
var SkinTones = newTable("skinTone", map[int]string{
	0: "Rich",
	1: "Deep",
	2: "Tan",
	3: "MediumTan",
	4: "Medium",
	5: "LightMedium",
	6: "Light",
	7: "Fair",
	8: "FairLight",
	9: "NotSure",
})

// AgeRanges enumerates age brackets.
var AgeRanges = newTable("ageRange", map[int]string{
	1: "SixteenPlus",
	2: "Twenties",
	3: "Thirties",
	4: "Forties",
	5: "FiftyPlus",
})

// Fragrances enumerates fragrance families.
var Fragrances = newTable("fragrancePreferences", map[int]string{
	1: "FloralMist",
	2: "WoodyAndEarthy",
	3: "WarmAndSpicy",
	4: "FreshFruit",
})

// HairTypes enumerates hair thickness.
var HairTypes = newTable("hairType", map[int]string{
	1: "Fine",
	2: "Medium",
	3: "Thick",
})

// HairConcerns enumerates hair concerns and desired benefits.
var HairConcerns = newTable("hairConcernsAndBenefits", map[int]string{
	1:  "Brassiness",
	2:  "ColorFading",
	3:  "ColorSafe",
	4:  "CurlEnhancing",
	5:  "DamageSplitEnds",
	6:  "Dandruff",
	7:  "Dryness",
	8:  "FlakyDryScalp",
	9:  "Frizz",
	10: "HeatProtection",
	11: "HoldAndStyleExtending",
	12: "OilyScalp",
	13: "ScalpBuildUp",
	14: "StraighteningSmoothing",
	15: "Shine",
	16: "Thinning",
	17: "UVProtection",
	18: "Volumizing",
})

// HairColors enumerates hair colors.
var HairColors = newTable("hairColor", map[int]string{
	1: "Black",
	2: "Brown",
	3: "Blonde",
	4: "Auburn",
	5: "Red",
	6: "Gray",
})

// Shopping enumerates shopping preferences.
var Shopping = newTable("shoppingPreferences", map[int]string{
	1: "BestOfAllure",
	2: "BIPOCOwnedBrands",
	3: "BlackOwnedBrands",
	4: "LuxuryFrangence",
	5: "LuxuryMakeup",
	6: "LuxurySkincare",
	7: "LuxuryHair",
	8: "OnlyAtSmartBeauty",
	9: "PlanetAware",
})

// EyeColors enumerates eye colors.
var EyeColors = newTable("eyeColor", map[int]string{
	1: "Brown",
	2: "Blue",
	3: "Green",
	4: "Gray",
	5: "Hazel",
})
