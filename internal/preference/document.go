package preference

import (
	"fmt"
	"sort"
	"strings"
)

// skinTypeSentences describe the common skin types in profile documents.
var skinTypeSentences = map[string]string{
	"Sensitive":   "Sensitive skin type, which is prone to irritation, redness, and reactions",
	"Dry":         "Dry skin type, which may feel tight and rough",
	"Oily":        "Oily skin type, which may appear shiny and prone to acne",
	"Combination": "Combination skin type, which has both oily and dry areas",
	"Normal":      "Normal skin type, which is balanced and not prone to dryness or oiliness",
}

// hairGoals phrases hair benefits as wants.
var hairGoals = map[string]string{
	"Shine":          "improve hair shine and radiance",
	"Volumizing":     "add volume and body to hair",
	"HeatProtection": "get heat protection from styling tools",
	"ColorSafe":      "get color protection for color-treated hair",
	"ColorFading":    "get color protection for color-treated hair",
}

// Document renders profiles as natural-language text for embedding and
// concept-centroid matching.
type Document struct{}

// Render builds the profile document. Sections are "[Skin Profile]",
// "[Hair Profile]" and "[Preferences]", separated by a blank line; empty
// sections are omitted.
func (Document) Render(p Profile) string {
	var skin, hair, prefs []string

	if st, ok := p.SkinType.Get(); ok {
		if s, known := skinTypeSentences[st.Name]; known {
			skin = append(skin, s)
		} else {
			skin = append(skin, st.Name+" skin type")
		}
	}
	if tone, ok := p.SkinTone.Get(); ok {
		skin = append(skin, "Skin tone is "+strings.ToLower(tone.Name))
	}
	if len(p.SkinConcerns) > 0 {
		skin = append(skin, "Concerned about "+strings.Join(Names(p.SkinConcerns), ", "))
	}

	if len(p.HairTypes) > 0 {
		hair = append(hair, "Hair type is "+strings.ToLower(p.HairTypes[0].Name))
	}
	if len(p.HairColors) > 0 {
		hair = append(hair, "Hair color is "+strings.ToLower(p.HairColors[0].Name))
	}
	seenGoal := make(map[string]bool)
	for _, c := range p.HairConcerns {
		goal, ok := hairGoals[c.Name]
		if !ok {
			goal = "improve " + strings.ToLower(c.Name)
		}
		if seenGoal[goal] {
			continue
		}
		seenGoal[goal] = true
		hair = append(hair, "Wants to "+goal)
	}

	if shop := shoppingPhrases(p.Shopping); len(shop) > 0 {
		prefs = append(prefs, "Prefers "+strings.Join(shop, ", "))
	}
	if allergies := allergyPhrases(p.Allergens); len(allergies) > 0 {
		prefs = append(prefs, "Allergic to "+strings.Join(allergies, ", "))
	}
	if len(p.Fragrances) > 0 {
		var names []string
		for _, f := range p.Fragrances {
			names = append(names, strings.ToLower(f.Name))
		}
		prefs = append(prefs, "Prefers fragrances like "+strings.Join(names, ", "))
	}
	if age, ok := p.AgeRange.Get(); ok {
		prefs = append(prefs, "Age range is "+strings.ToLower(age.Name))
	}
	if eye, ok := p.EyeColor.Get(); ok {
		prefs = append(prefs, "Eye color is "+strings.ToLower(eye.Name))
	}
	if len(p.FavoriteBrands) > 0 {
		prefs = append(prefs, "Favorite brands are "+strings.Join(p.FavoriteBrands, ", "))
	}

	var sections []string
	if len(skin) > 0 {
		sections = append(sections, section("Skin Profile", skin))
	}
	if len(hair) > 0 {
		sections = append(sections, section("Hair Profile", hair))
	}
	if len(prefs) > 0 {
		sections = append(sections, section("Preferences", prefs))
	}
	return strings.Join(sections, "\n\n")
}

func section(title string, parts []string) string {
	return fmt.Sprintf("[%s]. %s.", title, strings.Join(parts, ". "))
}

func shoppingPhrases(entries []Entry) []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range entries {
		var phrase string
		switch {
		case strings.Contains(e.Name, "Luxury"):
			phrase = "luxury products"
		case e.Name == "PlanetAware":
			phrase = "clean beauty products, formulated without ingredients like sulfates and parabens"
		default:
			phrase = strings.ToLower(e.Name)
		}
		if !seen[phrase] {
			seen[phrase] = true
			out = append(out, phrase)
		}
	}
	return out
}

func allergyPhrases(entries []Entry) []string {
	seen := make(map[string]bool)
	for _, e := range entries {
		switch {
		case strings.Contains(strings.ToLower(e.Name), "paraben"):
			seen["parabens"] = true
		case e.Name == "FragrancesAndPerfumes":
			seen["fragrances"] = true
		default:
			seen[strings.ToLower(e.Name)] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
