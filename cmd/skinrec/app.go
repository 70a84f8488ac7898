package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/skinrec/internal/allergen"
	"github.com/matsen/skinrec/internal/config"
	"github.com/matsen/skinrec/internal/preference"
	"github.com/matsen/skinrec/internal/recommend"
	"github.com/matsen/skinrec/internal/storage"
)

// newService wires the recommendation service to the SQLite cache. Candidate
// queries go through a circuit breaker.
func newService(cfg *config.Config, db *storage.DB) (*recommend.Service, error) {
	rc, err := cfg.RuleConfig()
	if err != nil {
		return nil, err
	}
	return recommend.New(recommend.Deps{
		Analyses:    db,
		Preferences: db,
		Concepts:    db,
		Profiles:    db,
		Products:    db,
		Candidates:  storage.NewBreakerStore(db, cfg.Store),
		Documents:   preference.Document{},
		Allergens:   allergen.NewResolver(),
		Rules:       rc,
		Overfetch:   cfg.Recommend.Overfetch,
	})
}

// defaultOptions seeds request options from config.yml.
func defaultOptions(cfg *config.Config, userID int64) recommend.Options {
	opts := recommend.DefaultOptions(userID)
	opts.ConfidenceThreshold = cfg.Recommend.ConfidenceThreshold
	opts.TopN = cfg.Recommend.TopN
	opts.Alpha = cfg.Recommend.Alpha
	opts.IncludeOutOfStock = cfg.Recommend.IncludeOutOfStock
	return opts
}

// parseUserID parses a positive user id argument.
func parseUserID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q: must be a positive integer", arg)
	}
	return id, nil
}
