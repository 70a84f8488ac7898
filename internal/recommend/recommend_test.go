package recommend

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/matsen/skinrec/internal/candidate"
	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/concept"
	"github.com/matsen/skinrec/internal/concern"
	"github.com/matsen/skinrec/internal/preference"
	"github.com/matsen/skinrec/internal/profile"
	"github.com/matsen/skinrec/internal/rules"
	"github.com/matsen/skinrec/internal/semantic"
)

// fakeData implements every source from in-memory fixtures.
type fakeData struct {
	detections  []concern.Detection
	preferences preference.Preferences
	concepts    []concept.Concept
	userVector  []float32
	products    []catalog.Product
	failWith    error
	storeErr    error
	calls       atomic.Int32
	lastQuery   candidate.Query
}

func (f *fakeData) Detections(context.Context, int64) ([]concern.Detection, error) {
	f.calls.Add(1)
	return f.detections, f.failWith
}

func (f *fakeData) Preferences(context.Context, int64) (preference.Preferences, error) {
	f.calls.Add(1)
	return f.preferences, f.failWith
}

func (f *fakeData) Concepts(context.Context) ([]concept.Concept, error) {
	f.calls.Add(1)
	return f.concepts, f.failWith
}

func (f *fakeData) UserEmbedding(context.Context, int64) ([]float32, error) {
	f.calls.Add(1)
	return f.userVector, f.failWith
}

func (f *fakeData) Products(context.Context) ([]catalog.Product, error) {
	f.calls.Add(1)
	return f.products, f.failWith
}

// Candidates scores products the way the SQL store does: weighted
// similarity sum, allergen predicate, price and stock filters.
func (f *fakeData) Candidates(_ context.Context, q candidate.Query) ([]candidate.Candidate, error) {
	f.calls.Add(1)
	f.lastQuery = q
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	var out []candidate.Candidate
	for _, p := range f.products {
		if len(p.Embedding) == 0 || !q.Safety.IsSafe(p.Contents()) {
			continue
		}
		if q.MaxPrice != nil && p.Price > *q.MaxPrice {
			continue
		}
		if !q.IncludeOutOfStock && !p.InStock() {
			continue
		}
		var score float64
		for _, t := range q.Expression.Terms {
			score += t.Weight * (1 - semantic.CosineDistance(p.Embedding, t.Embedding))
		}
		out = append(out, candidate.Candidate{Product: p, ConcernScore: score})
	}
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func newService(t *testing.T, f *fakeData) *Service {
	t.Helper()
	s, err := New(Deps{
		Analyses:    f,
		Preferences: f,
		Concepts:    f,
		Profiles:    f,
		Products:    f,
		Candidates:  f,
		Documents:   preference.Document{},
		Rules:       rules.DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func fixtures() *fakeData {
	return &fakeData{
		concepts: []concept.Concept{
			{ID: 1, Type: concept.TypeSkinConcern, Name: "acne", Embedding: []float32{1, 0}},
			{ID: 2, Type: concept.TypeSkinConcern, Name: "wrinkles", Embedding: []float32{0, 1}},
		},
		products: []catalog.Product{
			{ID: "gel", Name: "Clear Gel", Category: "face", IngredientsText: "Aqua, Salicylic Acid", Price: 15, Embedding: []float32{1, 0}},
			{ID: "cream", Name: "Night Cream", Category: "face", IngredientsText: "Aqua, Methylparaben", Price: 30, Embedding: []float32{0.9, 0.1}},
			{ID: "serum", Name: "Firming Serum", Category: "face", IngredientsText: "Retinol", Price: 60, Embedding: []float32{0, 1}},
			{ID: "shampoo", Name: "Clarifying Shampoo", Category: "hair", Description: "For oily scalps", Price: 10, Embedding: []float32{0.7, 0.3}},
		},
	}
}

// Scenario A: an 80 percent acne detection becomes weight 0.8 and queries
// with the acne concept vector.
func TestByAnalysisScenarioA(t *testing.T) {
	f := fixtures()
	f.detections = []concern.Detection{{Type: "acne", Confidence: 80}}
	s := newService(t, f)

	res, err := s.ByAnalysis(context.Background(), DefaultOptions(7))
	if err != nil {
		t.Fatalf("ByAnalysis() error = %v", err)
	}

	if !reflect.DeepEqual(res.Summary.MappedConcerns, concern.Weights{"acne": 0.8}) {
		t.Errorf("MappedConcerns = %v, want acne 0.8", res.Summary.MappedConcerns)
	}
	terms := f.lastQuery.Expression.Terms
	if len(terms) != 1 || terms[0].Concern != "acne" || !reflect.DeepEqual(terms[0].Embedding, []float32{1, 0}) {
		t.Errorf("query terms = %+v", terms)
	}
	if f.lastQuery.Limit != DefaultTopN*DefaultOverfetch {
		t.Errorf("query limit = %d, want %d", f.lastQuery.Limit, DefaultTopN*DefaultOverfetch)
	}
	if len(res.Products) == 0 || res.Products[0].Product.ID != "gel" {
		t.Fatalf("top product = %v, want gel", res.Products)
	}
	if res.Summary.TotalAnalysisItems != 1 || res.Summary.AnalysisItems[0].Normalized != 0.8 {
		t.Errorf("summary items = %+v", res.Summary.AnalysisItems)
	}
	if res.Summary.Message != "" {
		t.Errorf("Message = %q, want none", res.Summary.Message)
	}
	if res.Parameters.Beta < 0.199 || res.Parameters.Beta > 0.201 {
		t.Errorf("resolved beta = %v, want 0.2", res.Parameters.Beta)
	}
}

// Scenario B: a declared Methylparaben allergy removes the product from both
// pipelines.
func TestScenarioBAllergenExcludedEverywhere(t *testing.T) {
	f := fixtures()
	f.detections = []concern.Detection{{Type: "acne", Confidence: 0.9}}
	f.preferences = preference.Preferences{Allergens: []int{107}, SkinConcerns: []int{1}}
	s := newService(t, f)

	res, err := s.ByAnalysis(context.Background(), DefaultOptions(1))
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range res.Products {
		if c.Product.ID == "cream" {
			t.Error("analysis pipeline returned the methylparaben product")
		}
	}
	if !reflect.DeepEqual(res.Summary.AllergenExclusions, []string{"Methylparaben"}) {
		t.Errorf("AllergenExclusions = %v", res.Summary.AllergenExclusions)
	}

	pref, err := s.ByPreferences(context.Background(), 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pref.Products) == 0 {
		t.Fatal("rule pipeline returned nothing")
	}
	for _, r := range pref.Products {
		if r.Product.ID == "cream" {
			t.Error("rule pipeline returned the methylparaben product")
		}
	}
}

// Scenario C: a skinType of 0 adds no concern weight.
func TestByAnalysisScenarioCSentinel(t *testing.T) {
	f := fixtures()
	f.detections = []concern.Detection{{Type: "wrinkles", Confidence: 0.6}}
	f.preferences = preference.Preferences{SkinType: 0, SkinConcerns: []int{0}}
	s := newService(t, f)

	res, err := s.ByAnalysis(context.Background(), DefaultOptions(1))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Summary.MappedConcerns, concern.Weights{"wrinkles": 0.6}) {
		t.Errorf("MappedConcerns = %v", res.Summary.MappedConcerns)
	}
}

func TestByAnalysisMergesPreferences(t *testing.T) {
	f := fixtures()
	f.detections = []concern.Detection{{Type: "Acne", Confidence: 70}}
	f.preferences = preference.Preferences{SkinConcerns: []int{1}} // AcneBlemishes
	s := newService(t, f)

	res, err := s.ByAnalysis(context.Background(), DefaultOptions(1))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Summary.MappedConcerns) != 2 || res.Summary.TopConcerns[0].Weight != 1 {
		t.Errorf("summary = %+v", res.Summary)
	}

	opts := DefaultOptions(1)
	opts.IncludePreferences = false
	res, err = s.ByAnalysis(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Summary.MappedConcerns, concern.Weights{"acne": 0.7}) {
		t.Errorf("without preferences MappedConcerns = %v", res.Summary.MappedConcerns)
	}
}

func TestByAnalysisRejectsInvalidOptionsBeforeFetching(t *testing.T) {
	beta := 0.5
	tests := []struct {
		name string
		mod  func(*Options)
	}{
		{"zero user", func(o *Options) { o.UserID = 0 }},
		{"threshold above one", func(o *Options) { o.ConfidenceThreshold = 1.5 }},
		{"zero top n", func(o *Options) { o.TopN = 0 }},
		{"negative price", func(o *Options) { p := -1.0; o.MaxPrice = &p }},
		{"weights off by sum", func(o *Options) { o.Beta = &beta }},
		{"alpha above one", func(o *Options) { o.Alpha = 1.2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fixtures()
			s := newService(t, f)
			opts := DefaultOptions(1)
			tt.mod(&opts)

			_, err := s.ByAnalysis(context.Background(), opts)
			if !errors.Is(err, ErrInvalidOptions) {
				t.Fatalf("ByAnalysis() error = %v, want ErrInvalidOptions", err)
			}
			if n := f.calls.Load(); n != 0 {
				t.Errorf("collaborators called %d times before validation", n)
			}
		})
	}
}

func TestBlendWeightErrorIsWrapped(t *testing.T) {
	beta := 0.5
	opts := DefaultOptions(1)
	opts.Beta = &beta
	if err := opts.Validate(); !errors.Is(err, profile.ErrInvalidBlendWeights) {
		t.Errorf("Validate() = %v, want ErrInvalidBlendWeights", err)
	}
}

func TestByAnalysisEmptySignals(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*fakeData)
		message string
	}{
		{
			name:    "nothing above threshold",
			setup:   func(f *fakeData) { f.detections = []concern.Detection{{Type: "acne", Confidence: 20}} },
			message: "confidence threshold",
		},
		{
			name:    "no concept match",
			setup:   func(f *fakeData) { f.detections = []concern.Detection{{Type: "cellulite", Confidence: 0.9}} },
			message: "no concern matched",
		},
		{
			name: "no candidates",
			setup: func(f *fakeData) {
				f.detections = []concern.Detection{{Type: "acne", Confidence: 0.9}}
				f.products = nil
			},
			message: "no products passed",
		},
		{
			name: "product type removes everything",
			setup: func(f *fakeData) {
				f.detections = []concern.Detection{{Type: "acne", Confidence: 0.9}}
				f.products = f.products[3:]
			},
			message: "product type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fixtures()
			tt.setup(f)
			s := newService(t, f)
			opts := DefaultOptions(1)
			if tt.name == "product type removes everything" {
				opts.ProductType = "face"
			}

			res, err := s.ByAnalysis(context.Background(), opts)
			if err != nil {
				t.Fatalf("ByAnalysis() error = %v", err)
			}
			if res.Products == nil || len(res.Products) != 0 {
				t.Errorf("Products = %v, want empty list", res.Products)
			}
			if !strings.Contains(res.Summary.Message, tt.message) {
				t.Errorf("Message = %q, want it to mention %q", res.Summary.Message, tt.message)
			}
		})
	}
}

func TestByAnalysisStoreFailureDegrades(t *testing.T) {
	f := fixtures()
	f.detections = []concern.Detection{{Type: "acne", Confidence: 0.9}}
	f.storeErr = errors.New("database is locked")
	s := newService(t, f)

	res, err := s.ByAnalysis(context.Background(), DefaultOptions(1))
	if err != nil {
		t.Fatalf("ByAnalysis() error = %v, want degraded result", err)
	}
	if len(res.Products) != 0 || !strings.Contains(res.Summary.Message, "no products passed") {
		t.Errorf("result = %+v", res)
	}
}

func TestByAnalysisCollaboratorFailureDegrades(t *testing.T) {
	f := fixtures()
	f.detections = []concern.Detection{{Type: "acne", Confidence: 0.9}}
	f.failWith = errors.New("connection refused")
	s := newService(t, f)

	res, err := s.ByAnalysis(context.Background(), DefaultOptions(1))
	if err != nil {
		t.Fatalf("ByAnalysis() error = %v, want degraded result", err)
	}
	if res.Summary.TotalDetections != 0 || len(res.Products) != 0 {
		t.Errorf("failed sources should read as empty: %+v", res.Summary)
	}
}

func TestByAnalysisCanceled(t *testing.T) {
	f := fixtures()
	f.detections = []concern.Detection{{Type: "acne", Confidence: 0.9}}
	s := newService(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.ByAnalysis(ctx, DefaultOptions(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("ByAnalysis() error = %v, want context.Canceled", err)
	}
}

func TestByAnalysisProductTypeAndPrice(t *testing.T) {
	f := fixtures()
	f.detections = []concern.Detection{{Type: "acne", Confidence: 0.9}}
	s := newService(t, f)

	opts := DefaultOptions(1)
	opts.ProductType = "Face"
	maxPrice := 40.0
	opts.MaxPrice = &maxPrice

	res, err := s.ByAnalysis(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range res.Products {
		if c.Product.Category != "face" || c.Product.Price > maxPrice {
			t.Errorf("unexpected product %s", c.Product.ID)
		}
	}
	if len(res.Products) != 2 {
		t.Errorf("got %d products, want 2", len(res.Products))
	}
	if res.Parameters.ProductType == nil || *res.Parameters.ProductType != "Face" {
		t.Errorf("Parameters.ProductType = %v", res.Parameters.ProductType)
	}
}

// With alpha = 0 the stored user vector alone decides the order.
func TestByAnalysisProfileOnly(t *testing.T) {
	f := fixtures()
	f.detections = []concern.Detection{{Type: "acne", Confidence: 0.9}}
	f.userVector = []float32{0, 1}
	s := newService(t, f)

	opts := DefaultOptions(1)
	opts.Alpha = 0
	res, err := s.ByAnalysis(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Products[0].Product.ID != "serum" || !res.Summary.ProfileVector {
		t.Errorf("top = %s, profile vector = %v", res.Products[0].Product.ID, res.Summary.ProfileVector)
	}
}

func TestByAnalysisTruncatesToTopN(t *testing.T) {
	f := fixtures()
	f.detections = []concern.Detection{{Type: "acne", Confidence: 0.9}}
	s := newService(t, f)

	opts := DefaultOptions(1)
	opts.TopN = 2
	res, err := s.ByAnalysis(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Products) != 2 || f.lastQuery.Limit != 6 {
		t.Errorf("products = %d, query limit = %d", len(res.Products), f.lastQuery.Limit)
	}
}

func TestByPreferences(t *testing.T) {
	f := fixtures()
	f.preferences = preference.Preferences{SkinType: 4, SkinConcerns: []int{1}}
	s := newService(t, f)

	res, err := s.ByPreferences(context.Background(), 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Products) != 2 {
		t.Errorf("Products = %d, want 2", len(res.Products))
	}
	if len(res.Preferences) != 2 || res.Preferences[0] != "skin_type: Oily" {
		t.Errorf("Preferences = %v", res.Preferences)
	}

	if _, err := s.ByPreferences(context.Background(), 3, 0); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("limit 0 error = %v", err)
	}

	f.preferences = preference.Preferences{}
	res, err = s.ByPreferences(context.Background(), 3, 5)
	if err != nil || len(res.Products) != 0 || res.Message == "" {
		t.Errorf("empty profile result = %+v, %v", res, err)
	}
}

func TestFilterProductType(t *testing.T) {
	cands := []candidate.Candidate{
		{Product: catalog.Product{ID: "a", Category: "Face"}},
		{Product: catalog.Product{ID: "b", Name: "Face Mist"}},
		{Product: catalog.Product{ID: "c", Description: "a gentle face wash"}},
		{Product: catalog.Product{ID: "d", Name: "Body Lotion"}},
	}
	got := FilterProductType(cands, " face ")
	if len(got) != 3 {
		t.Errorf("FilterProductType() kept %d, want 3", len(got))
	}
	if len(FilterProductType(cands, "")) != 4 {
		t.Error("blank type should keep everything")
	}
}

func TestNewRejectsBadRules(t *testing.T) {
	f := fixtures()
	cfg := rules.DefaultConfig()
	cfg.Filters = []string{"brand"}
	_, err := New(Deps{Analyses: f, Preferences: f, Concepts: f, Profiles: f, Products: f, Candidates: f, Rules: cfg})
	if !errors.Is(err, rules.ErrUnknownFilter) {
		t.Errorf("New() error = %v, want ErrUnknownFilter", err)
	}
}
