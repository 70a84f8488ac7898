package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/matsen/skinrec/internal/concept"
	"github.com/matsen/skinrec/internal/config"
	"github.com/matsen/skinrec/internal/server"
	"github.com/matsen/skinrec/internal/storage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP",
	Long: `Serve the recommendation API:

  GET  /health
  POST /cache/refresh
  GET  /recommendations/by-analysis/{user_id}
  GET  /recommendations/by-preferences/{user_id}
  GET  /metrics

The cache is rebuilt from JSONL at startup. The server refuses to start when
a special concern mapping points at a concept missing from the catalog.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	if err := os.MkdirAll(config.CachePath(repoRoot), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	cat := newRepoCatalog(db, config.Sources(repoRoot))
	stats, err := cat.Refresh(ctx)
	if err != nil {
		exitWithError(ExitDataError, "loading catalog: %v", err)
	}

	svc, err := newService(cfg, db)
	if err != nil {
		exitWithError(ExitInvalidInput, "%v", err)
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := server.New(server.Config{
		Addr:         addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		RateLimit:    cfg.Server.RateLimit,
		Version:      Version,
		Defaults:     defaultOptions(cfg, 0),
	}, svc, cat)

	log.Info().
		Str("repo", repoRoot).
		Int("products", stats.Products).
		Int("concepts", stats.Concepts).
		Int("users", stats.Users).
		Msg("catalog loaded")

	if err := srv.ListenAndServe(ctx); err != nil {
		exitWithError(ExitError, "server: %v", err)
	}
	return nil
}

type rebuilder interface {
	CountProducts(ctx context.Context) (int, error)
	Concepts(ctx context.Context) ([]concept.Concept, error)
	RebuildFromJSONL(ctx context.Context, src storage.Sources) (storage.RebuildStats, error)
}

// repoCatalog reloads the cache from the repository's JSONL files. Refreshes
// are serialized.
type repoCatalog struct {
	mu  sync.Mutex
	db  rebuilder
	src storage.Sources
}

func newRepoCatalog(db rebuilder, src storage.Sources) *repoCatalog {
	return &repoCatalog{db: db, src: src}
}

func (c *repoCatalog) CountProducts(ctx context.Context) (int, error) {
	return c.db.CountProducts(ctx)
}

// Refresh rebuilds the cache, then checks that the loaded concepts can serve
// the special concern mappings. Concept vectors live in the embeddings table,
// so the check runs against the rebuilt cache rather than the JSONL alone.
func (c *repoCatalog) Refresh(ctx context.Context) (storage.RebuildStats, error) {
	if !c.mu.TryLock() {
		return storage.RebuildStats{}, server.ErrRefreshInProgress
	}
	defer c.mu.Unlock()

	stats, err := c.db.RebuildFromJSONL(ctx, c.src)
	if err != nil {
		return stats, err
	}
	concepts, err := c.db.Concepts(ctx)
	if err != nil {
		return stats, fmt.Errorf("listing concepts: %w", err)
	}
	if err := concept.ValidateSpecialMappings(concepts); err != nil {
		return stats, fmt.Errorf("validating concepts: %w", err)
	}
	return stats, nil
}
