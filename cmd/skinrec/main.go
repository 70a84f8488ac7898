// Package main provides the skinrec CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/matsen/skinrec/internal/config"
	"github.com/matsen/skinrec/internal/embedding"
	"github.com/matsen/skinrec/internal/logging"
	"github.com/matsen/skinrec/internal/semantic"
	"github.com/matsen/skinrec/internal/storage"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// logLevel overrides the configured log level when set.
var logLevel string

func main() {
	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors is on, so cobra's own errors (unknown flags, missing
		// args) must be printed here.
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "skinrec",
	Short: "Skincare product recommendation CLI",
	Long: `skinrec recommends skincare products from skin analysis results and
declared preferences.

Core features:
  - Concern-driven recommendations blended with a user profile signal
  - Rule-based recommendations from declared preferences alone
  - Allergen screening of product ingredients
  - Semantic product search via embeddings
  - HTTP API with health, cache refresh and metrics endpoints

Catalog data is stored in git-versionable JSONL with an ephemeral SQLite
cache for queries. All commands output JSON by default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.Version = Version
}

// mustFindRepository finds the repository from the working directory or the
// global catalog_path, exits on error.
func mustFindRepository() string {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	repoRoot, err := config.ResolveRepository(cwd)
	if err != nil {
		if errors.Is(err, config.ErrCatalogPathInvalid) {
			exitWithError(ExitConfigError, "%v", err)
		}
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}
	return repoRoot
}

// mustLoadConfig loads configuration and initializes logging, exits on error.
func mustLoadConfig(repoRoot string) *config.Config {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		if errors.Is(err, config.ErrInvalidConfig) {
			exitWithError(ExitInvalidInput, "loading config: %v", err)
		}
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	initLogging(cfg)
	return cfg
}

func initLogging(cfg *config.Config) {
	lc := cfg.Log
	if logLevel != "" {
		lc.Level = logLevel
	}
	lc.Output = os.Stderr
	logging.Init(lc)
}

// mustOpenDatabase opens the SQLite cache, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(repoRoot string) *storage.DB {
	db, err := storage.OpenDB(config.DBPath(repoRoot))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustOpenPopulatedDatabase opens the cache and exits when it holds no
// products, which usually means 'skinrec rebuild' has not run yet.
func mustOpenPopulatedDatabase(ctx context.Context, repoRoot string) *storage.DB {
	db := mustOpenDatabase(repoRoot)
	n, err := db.CountProducts(ctx)
	if err != nil {
		db.Close()
		exitWithError(ExitError, "counting products: %v", err)
	}
	if n == 0 {
		db.Close()
		exitWithError(ExitConfigError, "catalog cache is empty\n\nRun 'skinrec rebuild' to load the JSONL catalog.")
	}
	return db
}

// mustLoadProductIndex loads the product index, exits on error.
func mustLoadProductIndex(repoRoot string) *semantic.ProductIndex {
	idx, err := semantic.Load(repoRoot)
	if err != nil {
		if errors.Is(err, semantic.ErrIndexNotFound) {
			exitWithError(ExitIndexNotFound, "product index not found\n\nRun 'skinrec embed' to create the index.")
		}
		exitWithError(ExitError, "loading index: %v", err)
	}
	return idx
}

// newProvider builds the Ollama provider from configuration.
func newProvider(cfg *config.Config) *embedding.OllamaProvider {
	ec := cfg.Embedding
	return embedding.NewOllamaProvider(
		embedding.WithBaseURL(ec.OllamaURL),
		embedding.WithModel(ec.Model),
		embedding.WithDimensions(ec.Dimensions),
		embedding.WithTimeout(ec.Timeout),
		embedding.WithRateLimit(ec.RequestsPerSecond, 1),
	)
}

// mustValidateOllama checks that Ollama is running and the embedding model
// has been pulled.
func mustValidateOllama(ctx context.Context, provider *embedding.OllamaProvider) {
	if err := provider.IsAvailable(ctx); err != nil {
		exitWithError(ExitDataError, "Ollama is not running\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai")
	}

	hasModel, err := provider.HasModel(ctx)
	if err != nil {
		exitWithError(ExitError, "checking model availability: %v", err)
	}
	if !hasModel {
		exitWithError(ExitModelNotFound, "embedding model %q not found\n\nRun 'ollama pull %s' to download it.", provider.ModelName(), provider.ModelName())
	}
}
