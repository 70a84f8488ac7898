package rules

import (
	"sort"
	"strings"

	"github.com/matsen/skinrec/internal/allergen"
	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/preference"
	"github.com/rs/zerolog/log"
)

// Fixed scores for dimensions that only signal presence.
const (
	toneNeutral     = 0.5
	fragranceScore  = 0.5
	hairTypeScore   = 0.5
	shoppingScore   = 0.3
	eyeColorScore   = 0.3
	hairColorScore  = 0.3
	brandMatchScore = 1.0
)

// Breakdown explains a rule score. Dimensions holds the raw score of every
// declared dimension; Tiers holds each tier's average before weighting.
type Breakdown struct {
	Tiers      map[string]float64 `json:"tiers"`
	Dimensions map[string]float64 `json:"dimensions"`
}

// Ranked is a product with its rule score.
type Ranked struct {
	Product   catalog.Product `json:"product"`
	Score     float64         `json:"score"`
	Breakdown Breakdown       `json:"breakdown"`
}

// Scorer applies tiered preference rules to products.
type Scorer struct {
	cfg       Config
	allergens *allergen.Resolver
}

// NewScorer validates cfg and returns a scorer.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg, allergens: allergen.NewResolver()}, nil
}

type tally map[Tier][]float64

func (t tally) add(b *Breakdown, tier Tier, dim string, score float64) {
	t[tier] = append(t[tier], score)
	b.Dimensions[dim] = score
}

// Score rates one product for a profile. Each tier averages only the
// dimensions the profile declares; tiers with none contribute 0.
func (s *Scorer) Score(p catalog.Product, prof preference.Profile) (float64, Breakdown) {
	b := Breakdown{Tiers: make(map[string]float64), Dimensions: make(map[string]float64)}
	t := make(tally)

	if st, ok := prof.SkinType.Get(); ok {
		t.add(&b, Critical, "skin_type", skinTypeScore(p, st, prof.SkinConcerns))
	}
	if len(prof.SkinConcerns) > 0 {
		t.add(&b, Critical, "skin_concerns", concernScore(p, prof.SkinConcerns))
	}

	if age, ok := prof.AgeRange.Get(); ok {
		t.add(&b, High, "age", ageScore(p, age.Name))
	}
	if prof.SkinTone.IsSet() {
		t.add(&b, High, "skin_tone", toneNeutral)
	}

	hair := IsHairProduct(p)
	if len(prof.Fragrances) > 0 {
		t.add(&b, Medium, "fragrance", fragranceScore)
	}
	if len(prof.HairTypes) > 0 {
		t.add(&b, Medium, "hair_type", when(hair, hairTypeScore))
	}
	if len(prof.Shopping) > 0 {
		t.add(&b, Medium, "shopping", shoppingScore)
	}

	if prof.EyeColor.IsSet() {
		t.add(&b, Low, "eye_color", when(IsEyeProduct(p), eyeColorScore))
	}
	if len(prof.HairColors) > 0 {
		t.add(&b, Low, "hair_color", when(hair, hairColorScore))
	}
	if len(prof.FavoriteBrands) > 0 {
		t.add(&b, Low, "brands", when(brandMatch(p.Brand, prof.FavoriteBrands), brandMatchScore))
	}

	var total float64
	for _, tier := range Tiers {
		scores := t[tier]
		if len(scores) == 0 {
			continue
		}
		var sum float64
		for _, v := range scores {
			sum += v
		}
		avg := sum / float64(len(scores))
		b.Tiers[tier.String()] = avg
		total += s.cfg.Weights[tier] * avg
	}

	switch {
	case total < 0:
		total = 0
	case total > 1:
		total = 1
	}
	return total, b
}

// Rank filters and scores products, returning the best first. Ties keep
// input order. A limit of zero or less returns everything.
func (s *Scorer) Rank(products []catalog.Product, prof preference.Profile, limit int) []Ranked {
	safety := s.allergens.Resolve(prof.AllergenIDs())
	age, hasAge := prof.AgeRange.Get()
	ageFilter := hasAge && s.cfg.hasFilter(FilterAge)

	ranked := make([]Ranked, 0, len(products))
	var unsafe, tooMature int
	for _, p := range products {
		if !safety.IsSafe(p.Contents()) {
			unsafe++
			continue
		}
		if ageFilter && !ageAppropriate(p, age.Name) {
			tooMature++
			continue
		}
		score, b := s.Score(p, prof)
		ranked = append(ranked, Ranked{Product: p, Score: score, Breakdown: b})
	}

	log.Debug().
		Int("products", len(products)).
		Int("allergen_excluded", unsafe).
		Int("age_excluded", tooMature).
		Msg("rule pre-filters applied")

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// skinTypeScore is 1 when the product suits the declared skin type, or a
// skin type implied by a declared concern, or every skin type.
func skinTypeScore(p catalog.Product, st preference.Entry, concerns []preference.Entry) float64 {
	if contains(p.SkinTypes, catalog.ProductSkinAll) {
		return 1
	}
	wanted := append([]int(nil), catalog.ProductCriteria(st.Name).SkinTypes...)
	for _, c := range concerns {
		wanted = append(wanted, catalog.ProductCriteria(c.Name).SkinTypes...)
	}
	if overlaps(p.SkinTypes, wanted) {
		return 1
	}
	return 0
}

// concernScore is the share of wanted product concerns the product treats.
func concernScore(p catalog.Product, concerns []preference.Entry) float64 {
	wanted := make(map[int]bool)
	for _, c := range concerns {
		for _, id := range catalog.ProductCriteria(c.Name).Concerns {
			wanted[id] = true
		}
	}
	if len(wanted) == 0 {
		return 0
	}
	hit := make(map[int]bool)
	for _, id := range p.Concerns {
		if wanted[id] {
			hit[id] = true
		}
	}
	return float64(len(hit)) / float64(len(wanted))
}

func brandMatch(brand string, favorites []string) bool {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return false
	}
	for _, f := range favorites {
		if strings.EqualFold(strings.TrimSpace(f), brand) {
			return true
		}
	}
	return false
}

func when(cond bool, score float64) float64 {
	if cond {
		return score
	}
	return 0
}
