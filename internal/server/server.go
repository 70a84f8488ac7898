// Package server exposes the recommendation pipelines over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/matsen/skinrec/internal/recommend"
	"github.com/matsen/skinrec/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Recommender runs the two recommendation pipelines.
type Recommender interface {
	ByAnalysis(ctx context.Context, opts recommend.Options) (*recommend.Result, error)
	ByPreferences(ctx context.Context, userID int64, limit int) (*recommend.PreferenceResult, error)
}

// ErrRefreshInProgress is returned by Catalog.Refresh when another refresh
// is still running.
var ErrRefreshInProgress = errors.New("cache refresh already in progress")

// Catalog is the product cache behind the service. Refresh returns
// ErrRefreshInProgress when it cannot start, and an error wrapping
// concept.ErrSpecialTargetMissing when the reloaded concepts cannot serve
// the special concern mappings.
type Catalog interface {
	CountProducts(ctx context.Context) (int, error)
	Refresh(ctx context.Context) (storage.RebuildStats, error)
}

// Config configures the server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int
	Version   string
	// Defaults seeds every analysis request before query parameters apply.
	Defaults recommend.Options
}

// Server serves the HTTP API.
type Server struct {
	cfg     Config
	rec     Recommender
	catalog Catalog
	router  chi.Router
}

// New builds a server and its routes.
func New(cfg Config, rec Recommender, catalog Catalog) *Server {
	if cfg.Defaults.TopN == 0 {
		cfg.Defaults = recommend.DefaultOptions(0)
	}
	s := &Server{cfg: cfg, rec: rec, catalog: catalog}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(instrument)
	if s.cfg.RateLimit > 0 {
		r.Use(httprate.Limit(s.cfg.RateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				respondError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			}),
		))
	}

	r.Get("/health", s.handleHealth)
	r.Post("/cache/refresh", s.handleRefresh)
	r.Route("/recommendations", func(r chi.Router) {
		r.Get("/by-analysis/{user_id}", s.handleByAnalysis)
		r.Get("/by-preferences/{user_id}", s.handleByPreferences)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
