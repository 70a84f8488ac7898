package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/matsen/skinrec/internal/concept"
	"github.com/matsen/skinrec/internal/logging"
	"github.com/matsen/skinrec/internal/metrics"
	"github.com/matsen/skinrec/internal/recommend"
	"github.com/matsen/skinrec/internal/storage"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error APIError `json:"error"`
}

// APIError describes a failed request.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status         string    `json:"status"`
	ProductsLoaded int       `json:"products_loaded"`
	Timestamp      time.Time `json:"timestamp"`
	Version        string    `json:"version,omitempty"`
}

// RefreshResponse is returned by POST /cache/refresh.
type RefreshResponse struct {
	Status string               `json:"status"`
	Stats  storage.RebuildStats `json:"stats"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":{"code":"ENCODING_FAILED","message":"failed to encode response"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		ev := logging.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			ev = logging.Ctx(r.Context()).Error()
		}
		ev.Err(err).Str("code", code).Msg("request failed")
	}
	respondJSON(w, status, ErrorBody{Error: APIError{
		Code:      code,
		Message:   message,
		RequestID: logging.RequestID(r.Context()),
	}})
}

// respondPipelineError maps a pipeline error onto a status code.
func respondPipelineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, recommend.ErrInvalidOptions):
		respondError(w, r, http.StatusBadRequest, "INVALID_OPTIONS", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusServiceUnavailable, "CANCELED", "request canceled", err)
	default:
		respondError(w, r, http.StatusInternalServerError, "INTERNAL", "recommendation failed", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Timestamp: time.Now().UTC(), Version: s.cfg.Version}
	n, err := s.catalog.CountProducts(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
		resp.Status = "unhealthy"
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.ProductsLoaded = n
	metrics.ProductsLoaded.Set(float64(n))
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	stats, err := s.catalog.Refresh(r.Context())
	switch {
	case errors.Is(err, ErrRefreshInProgress):
		logging.Ctx(r.Context()).Debug().Msg("refresh rejected, another refresh is running")
		respondError(w, r, http.StatusConflict, "REFRESH_IN_PROGRESS", err.Error(), nil)
		return
	case errors.Is(err, concept.ErrSpecialTargetMissing):
		respondError(w, r, http.StatusUnprocessableEntity, "INVALID_CATALOG", err.Error(), err)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, "REFRESH_FAILED", "cache refresh failed", err)
		return
	}
	metrics.ProductsLoaded.Set(float64(stats.Products))
	logging.Ctx(r.Context()).Info().Int("products", stats.Products).Int("vectors", stats.Vectors).Msg("cache refreshed")
	respondJSON(w, http.StatusOK, RefreshResponse{Status: "ok", Stats: stats})
}

func (s *Server) handleByAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_USER_ID", err.Error(), nil)
		return
	}

	opts := s.cfg.Defaults
	opts.UserID = userID
	if err := parseAnalysisQuery(r, &opts); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), nil)
		return
	}

	res, err := s.rec.ByAnalysis(r.Context(), opts)
	if err != nil {
		respondPipelineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleByPreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_USER_ID", err.Error(), nil)
		return
	}
	limit := s.cfg.Defaults.TopN
	if v := r.URL.Query().Get("max_products"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			respondError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "max_products must be an integer", nil)
			return
		}
	}

	res, err := s.rec.ByPreferences(r.Context(), userID, limit)
	if err != nil {
		respondPipelineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func userIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "user_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("user_id must be a positive integer, got %q", raw)
	}
	return id, nil
}

// parseAnalysisQuery applies the query string onto opts. Range checks are
// left to Options.Validate.
func parseAnalysisQuery(r *http.Request, opts *recommend.Options) error {
	q := r.URL.Query()
	floatParam := func(name string, set func(float64)) error {
		v := q.Get(name)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number", name)
		}
		set(f)
		return nil
	}
	boolParam := func(name string, set func(bool)) error {
		v := q.Get(name)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be true or false", name)
		}
		set(b)
		return nil
	}

	if err := floatParam("confidence", func(f float64) { opts.ConfidenceThreshold = f }); err != nil {
		return err
	}
	if v := q.Get("max_products"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("max_products must be an integer")
		}
		opts.TopN = n
	}
	if err := floatParam("max_price", func(f float64) { opts.MaxPrice = &f }); err != nil {
		return err
	}
	if err := boolParam("include_out_of_stock", func(b bool) { opts.IncludeOutOfStock = b }); err != nil {
		return err
	}
	if err := floatParam("alpha", func(f float64) { opts.Alpha = f }); err != nil {
		return err
	}
	if err := floatParam("beta", func(f float64) { opts.Beta = &f }); err != nil {
		return err
	}
	if err := boolParam("include_preferences", func(b bool) { opts.IncludePreferences = b }); err != nil {
		return err
	}
	opts.ProductType = q.Get("product_type")
	return nil
}
