package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/semantic"
	"github.com/spf13/cobra"
)

var (
	searchLimit     int
	searchThreshold float64
	similarLimit    int
)

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(similarCmd)

	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", DefaultSearchLimit, "Maximum number of results")
	searchCmd.Flags().Float64VarP(&searchThreshold, "threshold", "t", 0.3, "Minimum cosine similarity (-1.0 to 1.0)")
	similarCmd.Flags().IntVarP(&similarLimit, "limit", "l", DefaultSearchLimit, "Maximum number of results")
}

// SearchResponse is the response for the search command.
type SearchResponse struct {
	Query     string                `json:"query"`
	Results   []ProductSearchResult `json:"results"`
	Total     int                   `json:"total"`
	Threshold float64               `json:"threshold"`
	Model     string                `json:"model"`
}

// SimilarResponse is the response for the similar command.
type SimilarResponse struct {
	ProductID string                `json:"product_id"`
	Similar   []ProductSearchResult `json:"similar"`
	Total     int                   `json:"total"`
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search products by semantic similarity",
	Long: `Search products by meaning rather than keywords, e.g.
"lightweight moisturizer for oily skin".

Requires the product index built by 'skinrec embed'.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var similarCmd = &cobra.Command{
	Use:   "similar <product-id>",
	Short: "Find products similar to a given product",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimilar,
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := strings.TrimSpace(args[0])
	if query == "" {
		exitWithError(ExitError, "search query cannot be empty")
	}

	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	idx := mustLoadProductIndex(repoRoot)

	provider := newProvider(cfg)
	mustValidateOllama(ctx, provider)
	if idx.ModelName != provider.ModelName() {
		exitWithError(ExitError, "index was built with %q but %q is configured\n\nRun 'skinrec embed --force' to rebuild it.", idx.ModelName, provider.ModelName())
	}

	queryEmb, err := provider.Embed(ctx, query)
	if err != nil {
		exitWithError(ExitError, "generating query embedding: %v", err)
	}

	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	results := buildSearchResults(ctx, idx.Search(queryEmb.Vector, searchLimit, searchThreshold), db)

	if humanOutput {
		fmt.Printf("Search: %q\n", query)
		fmt.Printf("Found %d products (threshold: %.2f)\n\n", len(results), searchThreshold)
		printSearchResultsHuman(results)
	} else {
		outputJSON(SearchResponse{
			Query:     query,
			Results:   results,
			Total:     len(results),
			Threshold: searchThreshold,
			Model:     provider.ModelName(),
		})
	}
	return nil
}

func runSimilar(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	productID := strings.TrimSpace(args[0])

	repoRoot := mustFindRepository()
	mustLoadConfig(repoRoot)
	idx := mustLoadProductIndex(repoRoot)

	found, err := idx.FindSimilar(productID, similarLimit)
	if err != nil {
		if errors.Is(err, semantic.ErrProductNotIndexed) {
			exitWithError(ExitError, "product %s is not in the index\n\nRun 'skinrec embed' after adding products.", productID)
		}
		exitWithError(ExitError, "finding similar products: %v", err)
	}

	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	results := buildSearchResults(ctx, found, db)

	if humanOutput {
		fmt.Printf("Products similar to %s:\n\n", productID)
		printSearchResultsHuman(results)
	} else {
		outputJSON(SimilarResponse{ProductID: productID, Similar: results, Total: len(results)})
	}
	return nil
}

type productLookup interface {
	ProductByID(ctx context.Context, id string) (*catalog.Product, error)
}

// buildSearchResults hydrates index hits with product details. Products
// indexed but since removed from the catalog are skipped.
func buildSearchResults(ctx context.Context, hits []semantic.SearchResult, db productLookup) []ProductSearchResult {
	out := make([]ProductSearchResult, 0, len(hits))
	for _, h := range hits {
		p, err := db.ProductByID(ctx, h.ProductID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
			continue
		}
		out = append(out, ProductSearchResult{
			ID:         p.ID,
			Name:       p.Name,
			Brand:      p.Brand,
			Category:   p.Category,
			Price:      p.Price,
			Similarity: h.Similarity,
		})
	}
	return out
}
