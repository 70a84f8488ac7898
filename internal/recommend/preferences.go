package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/matsen/skinrec/internal/logging"
	"github.com/matsen/skinrec/internal/metrics"
	"github.com/matsen/skinrec/internal/preference"
	"github.com/matsen/skinrec/internal/rules"
)

// PreferenceResult is the rule-based pipeline response.
type PreferenceResult struct {
	UserID      int64          `json:"user_id"`
	Preferences []string       `json:"preferences"`
	Allergens   []string       `json:"allergen_exclusions,omitempty"`
	Products    []rules.Ranked `json:"products"`
	Message     string         `json:"message,omitempty"`
}

// ByPreferences ranks the catalog against a user's declared preferences
// with the tiered rule scorer. Products containing a declared allergen are
// never returned.
func (s *Service) ByPreferences(ctx context.Context, userID int64, limit int) (*PreferenceResult, error) {
	if userID <= 0 {
		metrics.Recommendations.WithLabelValues("preferences", "invalid").Inc()
		return nil, fmt.Errorf("%w: UserID must be greater than 0", ErrInvalidOptions)
	}
	if limit < 1 || limit > MaxTopN {
		metrics.Recommendations.WithLabelValues("preferences", "invalid").Inc()
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidOptions, MaxTopN)
	}
	logger := logging.Ctx(ctx).With().Int64("user_id", userID).Logger()

	fetchStart := time.Now()
	raw, err := s.deps.Preferences.Preferences(ctx, userID)
	raw = degrade(ctx, "preferences", userID, raw, err)
	products, err := s.deps.Products.Products(ctx)
	products = degrade(ctx, "products", userID, products, err)
	metrics.ObserveStage("fetch", fetchStart)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prof := preference.Resolve(raw)
	res := &PreferenceResult{
		UserID:      userID,
		Preferences: DescribeProfile(prof),
		Allergens:   preference.Names(prof.Allergens),
		Products:    []rules.Ranked{},
	}

	switch {
	case prof.IsEmpty():
		res.Message = "user has no declared preferences"
	case len(products) == 0:
		res.Message = "no products available"
	default:
		start := time.Now()
		res.Products = s.rules.Rank(products, prof, limit)
		metrics.ObserveStage("rules", start)
		if len(res.Products) == 0 {
			res.Message = "every product was excluded by the allergen or age filters"
		}
	}

	outcome := "ok"
	if len(res.Products) == 0 {
		outcome = "empty"
	}
	metrics.Recommendations.WithLabelValues("preferences", outcome).Inc()
	logger.Info().Int("products", len(res.Products)).Str("message", res.Message).Msg("preference recommendation complete")
	return res, nil
}

// DescribeProfile lists the resolved preferences as "label: name" entries.
func DescribeProfile(p preference.Profile) []string {
	var out []string
	one := func(label string, o preference.Option[preference.Entry]) {
		if e, ok := o.Get(); ok {
			out = append(out, label+": "+e.Name)
		}
	}
	many := func(label string, entries []preference.Entry) {
		for _, name := range preference.Names(entries) {
			out = append(out, label+": "+name)
		}
	}
	one("skin_type", p.SkinType)
	many("skin_concern", p.SkinConcerns)
	one("skin_tone", p.SkinTone)
	one("age_range", p.AgeRange)
	many("fragrance", p.Fragrances)
	many("hair_type", p.HairTypes)
	many("hair_concern", p.HairConcerns)
	many("hair_color", p.HairColors)
	many("shopping", p.Shopping)
	one("eye_color", p.EyeColor)
	for _, b := range p.FavoriteBrands {
		out = append(out, "brand: "+b)
	}
	return out
}
