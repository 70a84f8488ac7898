package catalog

import "testing"

func TestTableName(t *testing.T) {
	tests := []struct {
		table Table
		id    int
		want  string
		ok    bool
	}{
		{SkinTypes, 4, "Oily", true},
		{SkinTypes, 0, "", false},
		{SkinConcerns, 15, "Puffiness", true},
		{SkinTones, 0, "Rich", true},
		{Allergens, 107, "Methylparaben", true},
		{Allergens, 999, "", false},
		{AgeRanges, 5, "FiftyPlus", true},
	}

	for _, tt := range tests {
		got, ok := tt.table.Name(tt.id)
		if got != tt.want || ok != tt.ok {
			t.Errorf("%s.Name(%d) = (%q, %v), want (%q, %v)", tt.table.Kind(), tt.id, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTableID(t *testing.T) {
	id, ok := SkinConcerns.ID("acneblemishes")
	if !ok || id != 1 {
		t.Errorf("ID(acneblemishes) = (%d, %v), want (1, true)", id, ok)
	}
	if _, ok := SkinConcerns.ID("nope"); ok {
		t.Error("ID(nope) should not be found")
	}
}

func TestTableIDsSorted(t *testing.T) {
	ids := Allergens.IDs()
	if len(ids) != Allergens.Len() {
		t.Fatalf("IDs() len = %d, want %d", len(ids), Allergens.Len())
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("IDs() not ascending at %d: %v", i, ids[i-1:i+1])
		}
	}
	if ids[0] != 1 || ids[len(ids)-1] != 152 {
		t.Errorf("IDs() range = [%d, %d], want [1, 152]", ids[0], ids[len(ids)-1])
	}
}

func TestProductValidate(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		wantErr error
	}{
		{"valid", Product{ID: "p1", Name: "Serum", Price: 10}, nil},
		{"missing id", Product{Name: "Serum"}, ErrEmptyProductID},
		{"missing name", Product{ID: "p1"}, ErrEmptyProductName},
		{"negative price", Product{ID: "p1", Name: "Serum", Price: -1}, ErrNegativePrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.product.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestProductText(t *testing.T) {
	p := Product{
		Name:            "Calm Serum",
		Description:     "Soothes Redness",
		KeyBenefits:     "Hydrating",
		IngredientsText: "Water, Glycerin",
		ActiveContent:   "Niacinamide",
	}

	if got := p.Contents(); got != "Water, Glycerin Niacinamide" {
		t.Errorf("Contents() = %q", got)
	}
	if got := p.MarketingText(); got != "calm serum soothes redness hydrating" {
		t.Errorf("MarketingText() = %q", got)
	}
	if got := p.EmbeddingText(); got != "Calm Serum. Hydrating. Niacinamide. Soothes Redness. Water, Glycerin" {
		t.Errorf("EmbeddingText() = %q", got)
	}
}

func TestProductCriteria(t *testing.T) {
	c := ProductCriteria("AcneBlemishes")
	if len(c.Concerns) != 2 || len(c.SkinTypes) != 2 {
		t.Errorf("ProductCriteria(AcneBlemishes) = %+v", c)
	}
	if c := ProductCriteria("Cellulite"); len(c.Concerns) != 0 || len(c.SkinTypes) != 0 {
		t.Errorf("ProductCriteria(Cellulite) = %+v, want empty", c)
	}
}
