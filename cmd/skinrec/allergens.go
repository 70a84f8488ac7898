package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/matsen/skinrec/internal/allergen"
	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/preference"
	"github.com/matsen/skinrec/internal/storage"
	"github.com/spf13/cobra"
)

var (
	allergenNames []string
	allergenUser  int64
	allergenAll   bool
)

func init() {
	rootCmd.AddCommand(allergensCmd)
	allergensCmd.AddCommand(allergensListCmd)
	allergensCmd.AddCommand(allergensCheckCmd)

	allergensCheckCmd.Flags().StringSliceVarP(&allergenNames, "allergen", "a", nil, "Allergen name to screen for (repeatable)")
	allergensCheckCmd.Flags().Int64VarP(&allergenUser, "user", "u", 0, "Screen for the allergens a user declared")
	allergensCheckCmd.Flags().BoolVar(&allergenAll, "all", false, "Report clean products too")
}

var allergensCmd = &cobra.Command{
	Use:   "allergens",
	Short: "Screen product ingredients for allergens",
}

var allergensListCmd = &cobra.Command{
	Use:   "list",
	Short: "List allergens with curated ingredient patterns",
	Args:  cobra.NoArgs,
	RunE:  runAllergensList,
}

var allergensCheckCmd = &cobra.Command{
	Use:   "check [product-id...]",
	Short: "Report which products contain the given allergens",
	Long: `Scan product ingredients and active content for allergen terms.

Allergens come from --allergen names, a user's declared allergens (--user),
or both. With no product ids, every product in the catalog is scanned.

Example:
  skinrec allergens check --allergen parabens --allergen fragrance
  skinrec allergens check --user 42 P100 P200`,
	RunE: runAllergensCheck,
}

// AllergenPattern is one allergen in the list response.
type AllergenPattern struct {
	Name  string   `json:"name"`
	Terms []string `json:"terms"`
}

// AllergenHit is one product in the check response.
type AllergenHit struct {
	ProductID string   `json:"product_id"`
	Name      string   `json:"name"`
	Found     []string `json:"found"`
}

// AllergenCheckResponse is the response for the allergens check command.
type AllergenCheckResponse struct {
	Allergens []string      `json:"allergens"`
	Scanned   int           `json:"scanned"`
	Flagged   int           `json:"flagged"`
	Products  []AllergenHit `json:"products"`
}

func runAllergensList(cmd *cobra.Command, args []string) error {
	r := allergen.NewResolver()
	names := allergen.Supported()
	sort.Strings(names)

	patterns := make([]AllergenPattern, len(names))
	for i, n := range names {
		patterns[i] = AllergenPattern{Name: n, Terms: r.Terms(n)}
	}

	if humanOutput {
		for _, p := range patterns {
			fmt.Printf("%s: %s\n", p.Name, strings.Join(p.Terms, ", "))
		}
	} else {
		outputJSON(patterns)
	}
	return nil
}

func runAllergensCheck(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if len(allergenNames) == 0 && allergenUser == 0 {
		exitWithError(ExitInvalidInput, "specify --allergen or --user")
	}

	repoRoot := mustFindRepository()
	mustLoadConfig(repoRoot)
	db := mustOpenPopulatedDatabase(ctx, repoRoot)
	defer db.Close()

	names := append([]string(nil), allergenNames...)
	if allergenUser != 0 {
		prefs, err := db.Preferences(ctx, allergenUser)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				exitWithError(ExitError, "user %d not found", allergenUser)
			}
			exitWithError(ExitError, "reading preferences: %v", err)
		}
		names = append(names, preference.Names(preference.Resolve(prefs).Allergens)...)
	}
	pred := allergen.NewResolver().ResolveNames(names)
	if pred.Empty() {
		exitWithError(ExitInvalidInput, "no allergens to screen for")
	}

	products, err := selectProducts(ctx, db, args)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	resp := screenProducts(pred, products, allergenAll)

	if humanOutput {
		fmt.Printf("Screened %d products for %s: %d flagged\n\n", resp.Scanned, strings.Join(resp.Allergens, ", "), resp.Flagged)
		for _, h := range resp.Products {
			if len(h.Found) == 0 {
				fmt.Printf("  ok       %s  %s\n", h.ProductID, truncateString(h.Name, NameMaxLen))
				continue
			}
			fmt.Printf("  FLAGGED  %s  %s (%s)\n", h.ProductID, truncateString(h.Name, NameMaxLen), strings.Join(h.Found, ", "))
		}
	} else {
		outputJSON(resp)
	}
	return nil
}

type productCatalog interface {
	productLookup
	Products(ctx context.Context) ([]catalog.Product, error)
}

func selectProducts(ctx context.Context, db productCatalog, ids []string) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return db.Products(ctx)
	}
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		p, err := db.ProductByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// screenProducts detects allergens in each product. Clean products are
// reported only when all is set.
func screenProducts(pred allergen.Predicate, products []catalog.Product, all bool) AllergenCheckResponse {
	resp := AllergenCheckResponse{
		Allergens: pred.Names(),
		Scanned:   len(products),
		Products:  []AllergenHit{},
	}
	for _, p := range products {
		found := pred.Detect(p.Contents())
		if len(found) > 0 {
			resp.Flagged++
		} else if !all {
			continue
		}
		resp.Products = append(resp.Products, AllergenHit{ProductID: p.ID, Name: p.Name, Found: found})
	}
	return resp
}
