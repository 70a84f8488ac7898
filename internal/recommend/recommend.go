// Package recommend sequences the recommendation pipeline: it fetches a
// user's signals, aggregates and resolves concerns, scores candidates,
// blends in the profile signal and assembles the response.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matsen/skinrec/internal/allergen"
	"github.com/matsen/skinrec/internal/candidate"
	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/concept"
	"github.com/matsen/skinrec/internal/concern"
	"github.com/matsen/skinrec/internal/logging"
	"github.com/matsen/skinrec/internal/metrics"
	"github.com/matsen/skinrec/internal/preference"
	"github.com/matsen/skinrec/internal/profile"
	"github.com/matsen/skinrec/internal/rules"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// AnalysisSource lists a user's skin analysis detections.
type AnalysisSource interface {
	Detections(ctx context.Context, userID int64) ([]concern.Detection, error)
}

// PreferenceSource returns a user's raw preference record.
type PreferenceSource interface {
	Preferences(ctx context.Context, userID int64) (preference.Preferences, error)
}

// ConceptSource lists the concept catalog.
type ConceptSource interface {
	Concepts(ctx context.Context) ([]concept.Concept, error)
}

// ProfileSource returns a user's precomputed profile vector, or nil.
type ProfileSource interface {
	UserEmbedding(ctx context.Context, userID int64) ([]float32, error)
}

// ProductSource lists the product catalog.
type ProductSource interface {
	Products(ctx context.Context) ([]catalog.Product, error)
}

// Deps are the collaborators a Service reads from. Every source is
// required; Documents may be nil, which disables the concept centroid
// fallback for users without a stored profile vector.
type Deps struct {
	Analyses    AnalysisSource
	Preferences PreferenceSource
	Concepts    ConceptSource
	Profiles    ProfileSource
	Products    ProductSource
	Candidates  candidate.Store
	Documents   profile.DocumentGenerator
	Allergens   *allergen.Resolver
	Rules       rules.Config
	// Overfetch multiplies TopN for the candidate query so blending and
	// the product type filter have room to re-rank.
	Overfetch int
}

// Service runs recommendation requests.
type Service struct {
	deps       Deps
	candidates *candidate.Scorer
	profiles   *profile.Source
	rules      *rules.Scorer
	allergens  *allergen.Resolver
}

// New builds a Service. It fails when the rule configuration is invalid.
func New(deps Deps) (*Service, error) {
	if deps.Analyses == nil || deps.Preferences == nil || deps.Concepts == nil ||
		deps.Profiles == nil || deps.Products == nil || deps.Candidates == nil {
		return nil, errors.New("recommend: missing collaborator")
	}
	if deps.Overfetch < 1 {
		deps.Overfetch = DefaultOverfetch
	}
	if deps.Allergens == nil {
		deps.Allergens = allergen.NewResolver()
	}
	rs, err := rules.NewScorer(deps.Rules)
	if err != nil {
		return nil, err
	}
	return &Service{
		deps:       deps,
		candidates: candidate.NewScorer(deps.Candidates),
		profiles:   profile.NewSource(deps.Documents),
		rules:      rs,
		allergens:  deps.Allergens,
	}, nil
}

// Result is the analysis pipeline response.
type Result struct {
	UserID     int64                 `json:"user_id"`
	Summary    Summary               `json:"analysis_summary"`
	Products   []candidate.Candidate `json:"products"`
	Parameters Parameters            `json:"parameters"`
}

// signals is everything fetched for one request.
type signals struct {
	detections  []concern.Detection
	preferences preference.Preferences
	concepts    []concept.Concept
	userVector  []float32
}

// fetch reads the four independent inputs concurrently. Collaborator
// failures are logged and read as empty; only cancellation is returned.
func (s *Service) fetch(ctx context.Context, userID int64, withPrefs bool) (signals, error) {
	defer metrics.ObserveStage("fetch", time.Now())

	var sig signals
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		dets, err := s.deps.Analyses.Detections(gctx, userID)
		sig.detections = degrade(gctx, "analyses", userID, dets, err)
		return gctx.Err()
	})
	g.Go(func() error {
		prefs, err := s.deps.Preferences.Preferences(gctx, userID)
		sig.preferences = degrade(gctx, "preferences", userID, prefs, err)
		return gctx.Err()
	})
	g.Go(func() error {
		concepts, err := s.deps.Concepts.Concepts(gctx)
		sig.concepts = degrade(gctx, "concepts", userID, concepts, err)
		return gctx.Err()
	})
	if withPrefs {
		g.Go(func() error {
			vec, err := s.deps.Profiles.UserEmbedding(gctx, userID)
			sig.userVector = degrade(gctx, "profiles", userID, vec, err)
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return signals{}, err
	}
	return sig, nil
}

// degrade returns v, or its zero value when err is set.
func degrade[T any](ctx context.Context, source string, userID int64, v T, err error) T {
	if err == nil {
		return v
	}
	metrics.RecordCollaboratorError(source, err)
	logging.Ctx(ctx).Warn().Err(err).Str("source", source).Int64("user_id", userID).Msg("collaborator failed, continuing without it")
	var zero T
	return zero
}

// ByAnalysis recommends products for a user from their skin analysis,
// declared preferences and profile vector. Invalid options are rejected
// before any collaborator is called. Missing data yields an empty product
// list with a summary message, never an error.
func (s *Service) ByAnalysis(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		metrics.Recommendations.WithLabelValues("analysis", "invalid").Inc()
		return nil, err
	}
	logger := logging.Ctx(ctx).With().Int64("user_id", opts.UserID).Logger()

	sig, err := s.fetch(ctx, opts.UserID, opts.IncludePreferences)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	prof := preference.Resolve(sig.preferences)
	scored := concern.Filter(sig.detections, opts.ConfidenceThreshold)
	weights := concern.FromDetections(scored)
	if opts.IncludePreferences {
		weights.Merge(concern.FromProfile(prof))
	}
	metrics.ObserveStage("aggregate", start)

	res := &Result{
		UserID:     opts.UserID,
		Summary:    newSummary(sig.detections, scored, weights, opts.ConfidenceThreshold),
		Products:   []candidate.Candidate{},
		Parameters: opts.parameters(),
	}

	if len(weights) == 0 {
		res.Summary.Message = "no analysis items above the confidence threshold and no declared concerns"
		return s.finish(res, logger), nil
	}

	start = time.Now()
	embeddings := concept.NewResolver(sig.concepts).Resolve(weights.Names())
	for _, name := range weights.Names() {
		if _, ok := embeddings[name]; ok {
			res.Summary.ResolvedConcerns = append(res.Summary.ResolvedConcerns, name)
		}
	}
	if misses := len(weights) - len(embeddings); misses > 0 {
		metrics.ConceptMisses.Add(float64(misses))
	}
	metrics.ObserveStage("resolve", start)

	if len(embeddings) == 0 {
		res.Summary.Message = "no concern matched a concept in the catalog"
		return s.finish(res, logger), nil
	}

	safety := s.allergens.Resolve(prof.AllergenIDs())
	res.Summary.AllergenExclusions = safety.Names()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	cands := s.candidates.Score(ctx, embeddings, weights, safety, candidate.Options{
		MaxPrice:          opts.MaxPrice,
		IncludeOutOfStock: opts.IncludeOutOfStock,
		Limit:             opts.TopN * s.deps.Overfetch,
	})
	metrics.ObserveStage("score", start)

	if len(cands) == 0 {
		res.Summary.Message = "no products passed the price, stock and allergen filters"
		return s.finish(res, logger), nil
	}

	if opts.ProductType != "" {
		cands = FilterProductType(cands, opts.ProductType)
		if len(cands) == 0 {
			res.Summary.Message = fmt.Sprintf("no candidate products matched product type %q", opts.ProductType)
			return s.finish(res, logger), nil
		}
	}

	start = time.Now()
	var vector []float32
	if opts.IncludePreferences {
		vector, _ = s.profiles.Vector(ctx, sig.userVector, prof, sig.concepts)
	}
	blended, err := profile.Blend(cands, vector, opts.BlendWeights(), opts.TopN)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	metrics.ObserveStage("blend", start)

	res.Products = blended
	res.Summary.ProfileVector = len(vector) > 0
	return s.finish(res, logger), nil
}

func (s *Service) finish(res *Result, logger zerolog.Logger) *Result {
	outcome := "ok"
	if len(res.Products) == 0 {
		outcome = "empty"
	}
	metrics.Recommendations.WithLabelValues("analysis", outcome).Inc()
	logger.Info().
		Int("products", len(res.Products)).
		Int("concerns", len(res.Summary.MappedConcerns)).
		Str("message", res.Summary.Message).
		Msg("analysis recommendation complete")
	return res
}

// FilterProductType keeps candidates whose category equals productType, or
// whose name or description contains it, ignoring case.
func FilterProductType(cands []candidate.Candidate, productType string) []candidate.Candidate {
	want := strings.ToLower(strings.TrimSpace(productType))
	if want == "" {
		return cands
	}
	out := make([]candidate.Candidate, 0, len(cands))
	for _, c := range cands {
		p := c.Product
		if strings.ToLower(p.Category) == want ||
			strings.Contains(strings.ToLower(p.Name), want) ||
			strings.Contains(strings.ToLower(p.Description), want) {
			out = append(out, c)
		}
	}
	return out
}
