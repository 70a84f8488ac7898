package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/matsen/skinrec/internal/allergen"
	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/preference"
	"github.com/matsen/skinrec/internal/recommend"
	"github.com/matsen/skinrec/internal/rules"
	"github.com/matsen/skinrec/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesShowCmd)
	rulesCmd.AddCommand(rulesExplainCmd)
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the preference rule scorer",
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective tier weights and filters",
	Args:  cobra.NoArgs,
	RunE:  runRulesShow,
}

var rulesExplainCmd = &cobra.Command{
	Use:   "explain <user-id> <product-id>",
	Short: "Explain how a product scores against a user's preferences",
	Args:  cobra.ExactArgs(2),
	RunE:  runRulesExplain,
}

// TierWeight is one tier in the rules show response.
type TierWeight struct {
	Tier   string  `json:"tier"`
	Weight float64 `json:"weight"`
}

// RulesShowResponse is the response for the rules show command.
type RulesShowResponse struct {
	Tiers   []TierWeight `json:"tiers"`
	Filters []string     `json:"filters"`
}

// RulesExplainResponse is the response for the rules explain command.
type RulesExplainResponse struct {
	UserID      int64           `json:"user_id"`
	ProductID   string          `json:"product_id"`
	Preferences []string        `json:"preferences"`
	Score       float64         `json:"score"`
	Breakdown   rules.Breakdown `json:"breakdown"`
	Allergens   []string        `json:"allergens_found,omitempty"`
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	rc, err := cfg.RuleConfig()
	if err != nil {
		exitWithError(ExitInvalidInput, "%v", err)
	}
	resp := describeRules(rc)

	if humanOutput {
		for _, t := range resp.Tiers {
			fmt.Printf("%-8s %.2f\n", t.Tier, t.Weight)
		}
		fmt.Printf("filters: %v\n", resp.Filters)
	} else {
		outputJSON(resp)
	}
	return nil
}

func describeRules(rc rules.Config) RulesShowResponse {
	resp := RulesShowResponse{Filters: append([]string{}, rc.Filters...)}
	for _, t := range rules.Tiers {
		resp.Tiers = append(resp.Tiers, TierWeight{Tier: t.String(), Weight: rc.Weights[t]})
	}
	sort.Strings(resp.Filters)
	return resp
}

func runRulesExplain(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	userID, err := parseUserID(args[0])
	if err != nil {
		exitWithError(ExitInvalidInput, "%v", err)
	}
	productID := args[1]

	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	rc, err := cfg.RuleConfig()
	if err != nil {
		exitWithError(ExitInvalidInput, "%v", err)
	}
	scorer, err := rules.NewScorer(rc)
	if err != nil {
		exitWithError(ExitInvalidInput, "%v", err)
	}

	db := mustOpenPopulatedDatabase(ctx, repoRoot)
	defer db.Close()

	prefs, err := db.Preferences(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			exitWithError(ExitError, "user %d not found", userID)
		}
		exitWithError(ExitError, "reading preferences: %v", err)
	}
	product, err := db.ProductByID(ctx, productID)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	resp := explainProduct(scorer, *product, preference.Resolve(prefs))
	resp.UserID = userID

	if humanOutput {
		printProductHuman(product)
		fmt.Printf("\nscore %.3f\n", resp.Score)
		for _, t := range rules.Tiers {
			fmt.Printf("  %-8s %.3f\n", t, resp.Breakdown.Tiers[t.String()])
		}
		if len(resp.Allergens) > 0 {
			fmt.Printf("contains declared allergens: %v\n", resp.Allergens)
		}
	} else {
		outputJSON(resp)
	}
	return nil
}

func explainProduct(scorer *rules.Scorer, p catalog.Product, prof preference.Profile) RulesExplainResponse {
	score, breakdown := scorer.Score(p, prof)
	pred := allergen.NewResolver().Resolve(prof.AllergenIDs())
	return RulesExplainResponse{
		ProductID:   p.ID,
		Preferences: recommend.DescribeProfile(prof),
		Score:       score,
		Breakdown:   breakdown,
		Allergens:   pred.Detect(p.Contents()),
	}
}
