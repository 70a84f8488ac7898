package storage

import (
	"context"
	"errors"
	"time"

	"github.com/matsen/skinrec/internal/candidate"
	"github.com/matsen/skinrec/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// BreakerSettings configures the candidate store circuit breaker.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the
	// breaker.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultBreakerSettings returns five failures and a 30 second cool-down.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{MaxFailures: 5, Timeout: 30 * time.Second}
}

// BreakerStore guards a candidate.Store with a circuit breaker. While open,
// queries fail immediately with gobreaker.ErrOpenState.
type BreakerStore struct {
	next candidate.Store
	cb   *gobreaker.CircuitBreaker[[]candidate.Candidate]
}

// NewBreakerStore wraps next.
func NewBreakerStore(next candidate.Store, s BreakerSettings) *BreakerStore {
	if s.MaxFailures == 0 {
		s.MaxFailures = DefaultBreakerSettings().MaxFailures
	}
	cb := gobreaker.NewCircuitBreaker[[]candidate.Candidate](gobreaker.Settings{
		Name:    "candidate-store",
		Timeout: s.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.MaxFailures
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.Set(float64(to))
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return &BreakerStore{next: next, cb: cb}
}

// Candidates implements candidate.Store.
func (b *BreakerStore) Candidates(ctx context.Context, q candidate.Query) ([]candidate.Candidate, error) {
	start := time.Now()
	got, err := b.cb.Execute(func() ([]candidate.Candidate, error) {
		return b.next.Candidates(ctx, q)
	})
	metrics.RecordStoreQuery(time.Since(start), err)
	return got, err
}

// State returns the breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}
