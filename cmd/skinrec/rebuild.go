package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matsen/skinrec/internal/config"
	"github.com/matsen/skinrec/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the query cache from catalog data",
	Long: `Rebuild the SQLite cache from the products, concepts, users and analyses
JSONL files.

Use this after pulling catalog changes. Embeddings computed by 'skinrec embed'
are kept unless the JSONL carries a newer vector.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status string `json:"status"`
	storage.RebuildStats
}

func runRebuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	repoRoot := mustFindRepository()
	mustLoadConfig(repoRoot)

	if err := os.MkdirAll(config.CachePath(repoRoot), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}

	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	stats, err := db.RebuildFromJSONL(ctx, config.Sources(repoRoot))
	if err != nil {
		exitWithError(ExitDataError, "rebuilding cache: %v", err)
	}

	if humanOutput {
		fmt.Printf("Rebuilt cache with %d products, %d concepts, %d users and %d analyses (%d vectors)\n",
			stats.Products, stats.Concepts, stats.Users, stats.Analyses, stats.Vectors)
	} else {
		outputJSON(RebuildResult{Status: "rebuilt", RebuildStats: stats})
	}
	return nil
}
