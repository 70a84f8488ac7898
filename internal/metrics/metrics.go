// Package metrics declares the Prometheus instruments for the recommendation
// pipeline, the candidate store and the HTTP server.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skinrec_stage_duration_seconds",
			Help:    "Duration of recommendation pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // "fetch", "aggregate", "resolve", "score", "blend", "rules"
	)

	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skinrec_recommendations_total",
			Help: "Recommendation requests by mode and outcome",
		},
		[]string{"mode", "outcome"}, // outcome: "ok", "empty", "invalid"
	)

	ConceptMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skinrec_concept_misses_total",
			Help: "Concerns that resolved to no concept",
		},
	)

	CollaboratorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skinrec_collaborator_errors_total",
			Help: "Collaborator failures degraded to empty results",
		},
		[]string{"source"},
	)

	// Candidate store
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skinrec_store_query_duration_seconds",
			Help:    "Duration of candidate store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skinrec_store_breaker_state",
			Help: "Candidate store circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)

	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skinrec_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skinrec_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ProductsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skinrec_products_loaded",
			Help: "Products in the catalog cache",
		},
	)
)

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordStoreQuery records a candidate query and whether it failed.
func RecordStoreQuery(duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreQueryDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCollaboratorError counts a degraded collaborator call. Context
// cancellation is not a collaborator fault and is not counted.
func RecordCollaboratorError(source string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	CollaboratorErrors.WithLabelValues(source).Inc()
}
