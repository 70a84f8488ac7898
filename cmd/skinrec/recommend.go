package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/skinrec/internal/logging"
	"github.com/matsen/skinrec/internal/recommend"
	"github.com/spf13/cobra"
)

var (
	recConfidence    float64
	recTopN          int
	recMaxPrice      float64
	recOutOfStock    bool
	recAlpha         float64
	recBeta          float64
	recProductType   string
	recNoPreferences bool
)

func init() {
	rootCmd.AddCommand(recommendCmd)
	recommendCmd.AddCommand(recommendAnalysisCmd)
	recommendCmd.AddCommand(recommendPreferencesCmd)

	f := recommendAnalysisCmd.Flags()
	f.Float64Var(&recConfidence, "confidence", 0, "Minimum normalized detection confidence (default from config)")
	f.IntVarP(&recTopN, "limit", "n", 0, "Number of products to return (default from config)")
	f.Float64Var(&recMaxPrice, "max-price", 0, "Exclude products priced above this")
	f.BoolVar(&recOutOfStock, "include-out-of-stock", false, "Include products that are out of stock")
	f.Float64Var(&recAlpha, "alpha", 0, "Concern score weight (default from config)")
	f.Float64Var(&recBeta, "beta", 0, "Profile score weight (default 1 - alpha)")
	f.StringVar(&recProductType, "product-type", "", "Keep only products of this type, e.g. serum")
	f.BoolVar(&recNoPreferences, "no-preferences", false, "Ignore declared preferences and the profile vector")

	recommendPreferencesCmd.Flags().IntVarP(&recTopN, "limit", "n", 0, "Number of products to return (default from config)")
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend products for a user",
	Long:  `Commands for running the analysis-driven and preference-driven pipelines.`,
}

var recommendAnalysisCmd = &cobra.Command{
	Use:   "analysis <user-id>",
	Short: "Recommend from skin analysis results blended with the user profile",
	Long: `Recommend products from a user's skin analysis detections and declared
concerns, ranked by concern similarity and blended with the user's profile
vector.

Products containing a declared allergen are never returned.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecommendAnalysis,
}

var recommendPreferencesCmd = &cobra.Command{
	Use:   "preferences <user-id>",
	Short: "Recommend from declared preferences with tiered rules",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecommendPreferences,
}

func runRecommendAnalysis(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		exitWithError(ExitInvalidInput, "%v", err)
	}

	ctx := logging.WithRequestID(context.Background(), logging.NewRequestID())
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	opts := defaultOptions(cfg, userID)
	applyAnalysisFlags(cmd, &opts)

	db := mustOpenPopulatedDatabase(ctx, repoRoot)
	defer db.Close()

	svc, err := newService(cfg, db)
	if err != nil {
		exitWithError(ExitInvalidInput, "%v", err)
	}

	res, err := svc.ByAnalysis(ctx, opts)
	if err != nil {
		exitForPipelineError(err)
	}

	if humanOutput {
		printAnalysisHuman(res)
	} else {
		outputJSON(res)
	}
	return nil
}

// applyAnalysisFlags overrides opts with the flags the user set.
func applyAnalysisFlags(cmd *cobra.Command, opts *recommend.Options) {
	f := cmd.Flags()
	if f.Changed("confidence") {
		opts.ConfidenceThreshold = recConfidence
	}
	if f.Changed("limit") {
		opts.TopN = recTopN
	}
	if f.Changed("max-price") {
		v := recMaxPrice
		opts.MaxPrice = &v
	}
	if f.Changed("include-out-of-stock") {
		opts.IncludeOutOfStock = recOutOfStock
	}
	if f.Changed("alpha") {
		opts.Alpha = recAlpha
	}
	if f.Changed("beta") {
		v := recBeta
		opts.Beta = &v
	}
	opts.ProductType = strings.TrimSpace(recProductType)
	if recNoPreferences {
		opts.IncludePreferences = false
	}
}

func runRecommendPreferences(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		exitWithError(ExitInvalidInput, "%v", err)
	}

	ctx := logging.WithRequestID(context.Background(), logging.NewRequestID())
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	limit := cfg.Recommend.TopN
	if cmd.Flags().Changed("limit") {
		limit = recTopN
	}

	db := mustOpenPopulatedDatabase(ctx, repoRoot)
	defer db.Close()

	svc, err := newService(cfg, db)
	if err != nil {
		exitWithError(ExitInvalidInput, "%v", err)
	}

	res, err := svc.ByPreferences(ctx, userID, limit)
	if err != nil {
		exitForPipelineError(err)
	}

	if humanOutput {
		printPreferencesHuman(res)
	} else {
		outputJSON(res)
	}
	return nil
}

func exitForPipelineError(err error) {
	if errors.Is(err, recommend.ErrInvalidOptions) {
		exitWithError(ExitInvalidInput, "%v", err)
	}
	exitWithError(ExitError, "%v", err)
}

func printAnalysisHuman(res *recommend.Result) {
	s := res.Summary
	fmt.Printf("User %d: %d of %d detections at or above %.2f confidence\n",
		res.UserID, len(s.AnalysisItems), s.TotalDetections, s.ConfidenceThreshold)
	if len(s.TopConcerns) > 0 {
		names := make([]string, len(s.TopConcerns))
		for i, c := range s.TopConcerns {
			names[i] = fmt.Sprintf("%s (%.2f)", c.Name, c.Weight)
		}
		fmt.Printf("Top concerns: %s\n", strings.Join(names, ", "))
	}
	if len(s.AllergenExclusions) > 0 {
		fmt.Printf("Excluding allergens: %s\n", strings.Join(s.AllergenExclusions, ", "))
	}
	if s.Message != "" {
		fmt.Printf("\n%s\n", s.Message)
		return
	}
	fmt.Println()
	printCandidatesHuman(res.Products)
}

func printPreferencesHuman(res *recommend.PreferenceResult) {
	fmt.Printf("User %d preferences:\n", res.UserID)
	for _, p := range res.Preferences {
		fmt.Printf("  %s\n", p)
	}
	if len(res.Allergens) > 0 {
		fmt.Printf("Excluding allergens: %s\n", strings.Join(res.Allergens, ", "))
	}
	if res.Message != "" {
		fmt.Printf("\n%s\n", res.Message)
		return
	}
	fmt.Println()
	for i, r := range res.Products {
		fmt.Printf("%d. [%.3f] %s  %s\n", i+1, r.Score, r.Product.ID, truncateString(r.Product.Name, NameMaxLen))
		fmt.Printf("   %s\n\n", productLine(r.Product.Brand, r.Product.Category, r.Product.Price))
	}
}
