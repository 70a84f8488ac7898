package catalog

import (
	"errors"
	"strings"
)

// Product is a catalog entry. Read-only from the recommendation pipeline's
// point of view.
type Product struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Brand           string    `json:"brand,omitempty"`
	Category        string    `json:"category,omitempty"`
	Description     string    `json:"description,omitempty"`
	KeyBenefits     string    `json:"key_benefits,omitempty"`
	ActiveContent   string    `json:"active_content,omitempty"`
	IngredientsText string    `json:"ingredients_text,omitempty"`
	HowToUse        string    `json:"how_to_use,omitempty"`
	Price           float64   `json:"price"`
	StockStatus     int       `json:"stock_status"` // 0 = in stock
	SkinTypes       []int     `json:"skin_types,omitempty"`
	Concerns        []int     `json:"concerns,omitempty"`
	Embedding       []float32 `json:"embedding,omitempty"`
}

// Validation errors.
var (
	ErrEmptyProductID   = errors.New("product id is required")
	ErrEmptyProductName = errors.New("product name is required")
	ErrNegativePrice    = errors.New("product price must not be negative")
)

// Validate checks the fields required to index a product.
func (p *Product) Validate() error {
	if p.ID == "" {
		return ErrEmptyProductID
	}
	if p.Name == "" {
		return ErrEmptyProductName
	}
	if p.Price < 0 {
		return ErrNegativePrice
	}
	return nil
}

// InStock reports whether the product is available.
func (p *Product) InStock() bool { return p.StockStatus == 0 }

// Contents returns the ingredient list and active content, the text that
// allergen checks run against.
func (p *Product) Contents() string {
	return strings.TrimSpace(p.IngredientsText + " " + p.ActiveContent)
}

// MarketingText returns name, description and key benefits, lowercased.
func (p *Product) MarketingText() string {
	return strings.ToLower(p.Name + " " + p.Description + " " + p.KeyBenefits)
}

// EmbeddingText is the document embedded for a product.
func (p *Product) EmbeddingText() string {
	parts := []string{p.Name, p.KeyBenefits, p.ActiveContent, p.Description, p.IngredientsText, p.HowToUse}
	var kept []string
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ". ")
}

// Product-side skin type ids.
const (
	ProductSkinSensitive   = 0
	ProductSkinAll         = 1
	ProductSkinNormal      = 2
	ProductSkinOily        = 3
	ProductSkinDry         = 4
	ProductSkinCombination = 5
)

// Product-side concern ids.
const (
	ProductConcernWrinkles   = 0
	ProductConcernPores      = 1
	ProductConcernDullness   = 2
	ProductConcernDryness    = 3
	ProductConcernUnevenness = 4
	ProductConcernBlemish    = 5
	ProductConcernEyeArea    = 6
	ProductConcernAcne       = 7
	ProductConcernAging      = 8
	ProductConcernSpots      = 9
)

// Criteria is the product-side translation of a declared preference.
type Criteria struct {
	Concerns  []int
	SkinTypes []int
}

// productCriteria maps a preference name (skin type or skin concern) onto
// product concern and skin-type ids.
var productCriteria = map[string]Criteria{
	// Skin concerns
	"AcneBlemishes":     {Concerns: []int{ProductConcernBlemish, ProductConcernAcne}, SkinTypes: []int{ProductSkinOily, ProductSkinCombination}},
	"Moisture":          {Concerns: []int{ProductConcernDryness}, SkinTypes: []int{ProductSkinDry}},
	"Pores":             {Concerns: []int{ProductConcernPores}, SkinTypes: []int{ProductSkinOily, ProductSkinCombination}},
	"FineLinesWrinkles": {Concerns: []int{ProductConcernWrinkles, ProductConcernAging}},
	"DarkCircles":       {Concerns: []int{ProductConcernEyeArea}},
	"Puffiness":         {Concerns: []int{ProductConcernEyeArea}},
	"Redness":           {Concerns: []int{ProductConcernBlemish}, SkinTypes: []int{ProductSkinSensitive}},
	"Oiliness":          {Concerns: []int{ProductConcernAcne}, SkinTypes: []int{ProductSkinOily}},
	"Dryness":           {Concerns: []int{ProductConcernDryness}, SkinTypes: []int{ProductSkinDry}},
	"UnevenSkinTone":    {Concerns: []int{ProductConcernUnevenness, ProductConcernSpots}},
	"DullnessRadiance":  {Concerns: []int{ProductConcernDullness}},
	"DarkSpotsHyperpigmentation": {Concerns: []int{ProductConcernSpots}},
	"FirmnessElasticity":         {Concerns: []int{ProductConcernAging}},

	// Skin types
	"Combination":          {SkinTypes: []int{ProductSkinCombination}},
	"Dry":                  {SkinTypes: []int{ProductSkinDry}},
	"Normal":               {SkinTypes: []int{ProductSkinNormal}},
	"Oily":                 {SkinTypes: []int{ProductSkinOily}},
	"Sensitive":            {SkinTypes: []int{ProductSkinSensitive}},
	"DryAndSensitive":      {SkinTypes: []int{ProductSkinDry, ProductSkinSensitive}},
	"OilAndSensitive":      {SkinTypes: []int{ProductSkinOily, ProductSkinSensitive}},
	"CombinationSensitive": {SkinTypes: []int{ProductSkinCombination, ProductSkinSensitive}},
}

// ProductCriteria returns the product-side ids for a preference name.
// Names without a mapping return an empty Criteria.
func ProductCriteria(name string) Criteria {
	return productCriteria[name]
}
