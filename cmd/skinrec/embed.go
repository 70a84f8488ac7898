package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/concept"
	"github.com/matsen/skinrec/internal/embedding"
	"github.com/matsen/skinrec/internal/preference"
	"github.com/matsen/skinrec/internal/semantic"
	"github.com/matsen/skinrec/internal/storage"
	"github.com/spf13/cobra"
)

var (
	noProgress bool
	embedForce bool
)

func init() {
	rootCmd.AddCommand(embedCmd)

	embedCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Suppress progress output")
	embedCmd.Flags().BoolVar(&embedForce, "force", false, "Re-embed every item even when its text is unchanged")
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed catalog text and build the product index",
	Long: `Embed product text, concept descriptions and user profile documents,
store the vectors in the cache and write the product index used by
'skinrec search' and 'skinrec similar'.

Items whose text has not changed since the last run keep their vectors.
Requires Ollama to be running with the embedding model available.`,
	Args: cobra.NoArgs,
	RunE: runEmbed,
}

// EmbedResult is the response for the embed command.
type EmbedResult struct {
	Status           string  `json:"status"`
	ProductsEmbedded int     `json:"products_embedded"`
	ConceptsEmbedded int     `json:"concepts_embedded"`
	UsersEmbedded    int     `json:"users_embedded"`
	Unchanged        int     `json:"unchanged"`
	Skipped          int     `json:"skipped"`
	ProductsIndexed  int     `json:"products_indexed"`
	DurationSeconds  float64 `json:"duration_seconds"`
	Model            string  `json:"model"`
	IndexSizeBytes   int64   `json:"index_size_bytes"`
}

func runEmbed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	provider := newProvider(cfg)
	mustValidateOllama(ctx, provider)

	db := mustOpenPopulatedDatabase(ctx, repoRoot)
	defer db.Close()

	items, err := loadEmbedItems(ctx, db)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	builder := semantic.NewBuilder(provider, db)
	builder.SetForce(embedForce)
	if !noProgress && humanOutput {
		builder.SetProgressReporter(semantic.ProgressFunc(printProgress))
		fmt.Fprintf(os.Stderr, "Embedding %d items...\n", len(items))
	}

	idx, stats, err := builder.Build(ctx, items)
	if err != nil {
		exitWithError(ExitError, "embedding catalog: %v", err)
	}

	if err := idx.Save(repoRoot); err != nil {
		exitWithError(ExitError, "saving index: %v", err)
	}
	if size, err := semantic.IndexSize(repoRoot); err == nil {
		stats.IndexSizeBytes = size
	} else if humanOutput {
		fmt.Fprintf(os.Stderr, "Warning: could not determine index size: %v\n", err)
	}

	if humanOutput && !noProgress {
		fmt.Fprintf(os.Stderr, "\r%*s\r", progressLineClearWidth, "")
	}

	outputEmbedResults(provider, idx, stats)
	return nil
}

type embedSource interface {
	Products(ctx context.Context) ([]catalog.Product, error)
	Concepts(ctx context.Context) ([]concept.Concept, error)
	Users(ctx context.Context) ([]storage.User, error)
}

// loadEmbedItems gathers products, concepts and user profile documents.
func loadEmbedItems(ctx context.Context, src embedSource) ([]semantic.Item, error) {
	products, err := src.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	concepts, err := src.Concepts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing concepts: %w", err)
	}
	users, err := src.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	items := semantic.ProductItems(products)
	items = append(items, semantic.ConceptItems(concepts)...)
	items = append(items, userItems(users, preference.Document{})...)
	return items, nil
}

// userItems renders each user's profile document. Users without any
// resolvable preference render to an empty document, which the builder skips.
func userItems(users []storage.User, docs preference.Document) []semantic.Item {
	items := make([]semantic.Item, 0, len(users))
	for _, u := range users {
		items = append(items, semantic.Item{
			Kind:    semantic.KindUser,
			ID:      strconv.FormatInt(u.ID, 10),
			Text:    docs.Render(preference.Resolve(u.Preferences)),
			Current: u.Embedding,
		})
	}
	return items
}

func outputEmbedResults(provider *embedding.OllamaProvider, idx *semantic.ProductIndex, stats *semantic.BuildStats) {
	if humanOutput {
		fmt.Printf("\nEmbedding complete:\n")
		fmt.Printf("  Products embedded: %d\n", stats.Embedded[semantic.KindProduct])
		fmt.Printf("  Concepts embedded: %d\n", stats.Embedded[semantic.KindConcept])
		fmt.Printf("  Users embedded: %d\n", stats.Embedded[semantic.KindUser])
		fmt.Printf("  Unchanged: %d\n", stats.Unchanged)
		fmt.Printf("  Skipped: %d (no text)\n", stats.Skipped)
		fmt.Printf("  Products indexed: %d\n", idx.ProductCount)
		fmt.Printf("  Time elapsed: %s\n", formatDuration(stats.Duration))
		fmt.Printf("  Index size: %s\n", formatBytes(stats.IndexSizeBytes))
		fmt.Printf("  Model: %s\n", provider.ModelName())
		return
	}
	outputJSON(EmbedResult{
		Status:           "complete",
		ProductsEmbedded: stats.Embedded[semantic.KindProduct],
		ConceptsEmbedded: stats.Embedded[semantic.KindConcept],
		UsersEmbedded:    stats.Embedded[semantic.KindUser],
		Unchanged:        stats.Unchanged,
		Skipped:          stats.Skipped,
		ProductsIndexed:  idx.ProductCount,
		DurationSeconds:  stats.Duration.Seconds(),
		Model:            provider.ModelName(),
		IndexSizeBytes:   stats.IndexSizeBytes,
	})
}

const (
	progressBarWidth = 30
	// progressLineClearWidth must exceed the bar plus its counters.
	progressLineClearWidth = 50
)

// buildProgressBar returns a bar like "[=====>    ]" without the brackets.
func buildProgressBar(current, total, width int) string {
	if total == 0 {
		return strings.Repeat(" ", width)
	}
	filled := (width * current) / total
	if filled >= width {
		return strings.Repeat("=", width)
	}
	return strings.Repeat("=", filled) + ">" + strings.Repeat(" ", width-filled-1)
}

func printProgress(current, total int) {
	if total == 0 {
		return
	}
	pct := float64(current) / float64(total) * 100
	bar := buildProgressBar(current, total, progressBarWidth)
	fmt.Fprintf(os.Stderr, "\r[%s] %d/%d (%.0f%%)", bar, current, total, pct)
}
