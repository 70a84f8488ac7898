package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SKINREC_"

// loadEnvFile exports the variables in path that are not already set. A
// missing file is not an error.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from SKINREC_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	parse := func(name string, set func(string) error) {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return
		}
		if err := set(v); err != nil {
			errs = append(errs, fmt.Errorf("%s%s=%q: %w", EnvPrefix, name, v, err))
		}
	}
	float := func(dst *float64) func(string) error {
		return func(v string) error {
			f, err := strconv.ParseFloat(v, 64)
			*dst = f
			return err
		}
	}
	integer := func(dst *int) func(string) error {
		return func(v string) error {
			n, err := strconv.Atoi(v)
			*dst = n
			return err
		}
	}
	boolean := func(dst *bool) func(string) error {
		return func(v string) error {
			b, err := strconv.ParseBool(v)
			*dst = b
			return err
		}
	}
	duration := func(dst *time.Duration) func(string) error {
		return func(v string) error {
			d, err := time.ParseDuration(v)
			*dst = d
			return err
		}
	}

	parse("CONFIDENCE_THRESHOLD", float(&c.Recommend.ConfidenceThreshold))
	parse("TOP_N", integer(&c.Recommend.TopN))
	parse("ALPHA", float(&c.Recommend.Alpha))
	parse("INCLUDE_OUT_OF_STOCK", boolean(&c.Recommend.IncludeOutOfStock))
	str("OLLAMA_URL", &c.Embedding.OllamaURL)
	str("EMBEDDING_MODEL", &c.Embedding.Model)
	parse("EMBEDDING_DIMENSIONS", integer(&c.Embedding.Dimensions))
	parse("EMBEDDING_RPS", float(&c.Embedding.RequestsPerSecond))
	str("SERVER_ADDR", &c.Server.Addr)
	parse("RATE_LIMIT", integer(&c.Server.RateLimit))
	parse("STORE_BREAKER_TIMEOUT", duration(&c.Store.Timeout))
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, errs[0])
	}
	return nil
}
