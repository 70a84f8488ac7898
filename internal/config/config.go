// Package config handles repository and global configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matsen/skinrec/internal/embedding"
	"github.com/matsen/skinrec/internal/logging"
	"github.com/matsen/skinrec/internal/recommend"
	"github.com/matsen/skinrec/internal/rules"
	"github.com/matsen/skinrec/internal/storage"
	"gopkg.in/yaml.v3"
)

const (
	SkinrecDir   = ".skinrec"
	ConfigFile   = "config.yml"
	EnvFile      = ".env"
	ProductsFile = "products.jsonl"
	ConceptsFile = "concepts.jsonl"
	UsersFile    = "users.jsonl"
	AnalysesFile = "analyses.jsonl"
	CacheDir     = "cache"
	DBFile       = "catalog.db"
)

// ErrInvalidConfig is returned when config.yml or an environment override
// holds an out-of-range value.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents repository configuration stored in .skinrec/config.yml.
type Config struct {
	Recommend RecommendConfig         `yaml:"recommend"`
	Rules     RulesConfig             `yaml:"rules"`
	Embedding EmbeddingConfig         `yaml:"embedding"`
	Server    ServerConfig            `yaml:"server"`
	Log       logging.Config          `yaml:"log"`
	Store     storage.BreakerSettings `yaml:"store"`
}

// RecommendConfig holds request defaults for the analysis pipeline.
type RecommendConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	TopN                int     `yaml:"top_n"`
	Alpha               float64 `yaml:"alpha"`
	IncludeOutOfStock   bool    `yaml:"include_out_of_stock"`
	Overfetch           int     `yaml:"overfetch"`
}

// RulesConfig is the yaml form of rules.Config; tiers are keyed by name.
type RulesConfig struct {
	Weights map[string]float64 `yaml:"weights"`
	Filters []string           `yaml:"filters"`
}

// EmbeddingConfig configures the Ollama provider.
type EmbeddingConfig struct {
	OllamaURL         string        `yaml:"ollama_url"`
	Model             string        `yaml:"model"`
	Dimensions        int           `yaml:"dimensions"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int `yaml:"rate_limit"`
}

// Default returns the configuration used when config.yml is absent.
func Default() *Config {
	rc := rules.DefaultConfig()
	weights := make(map[string]float64, len(rc.Weights))
	for t, w := range rc.Weights {
		weights[t.String()] = w
	}
	lc := logging.DefaultConfig()
	lc.Output = nil

	return &Config{
		Recommend: RecommendConfig{
			ConfidenceThreshold: recommend.DefaultConfidenceThreshold,
			TopN:                recommend.DefaultTopN,
			Alpha:               recommend.DefaultAlpha,
			Overfetch:           recommend.DefaultOverfetch,
		},
		Rules: RulesConfig{Weights: weights, Filters: rc.Filters},
		Embedding: EmbeddingConfig{
			OllamaURL:         embedding.DefaultOllamaURL,
			Model:             embedding.DefaultModel,
			Dimensions:        embedding.DefaultDimensions,
			RequestsPerSecond: embedding.DefaultRequestsPerSecond,
			Timeout:           embedding.DefaultTimeout,
		},
		Server: ServerConfig{
			Addr:         ":8000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			RateLimit:    120,
		},
		Log:   lc,
		Store: storage.DefaultBreakerSettings(),
	}
}

// SkinrecPath returns the path to the .skinrec directory from a root path.
func SkinrecPath(root string) string {
	return filepath.Join(root, SkinrecDir)
}

// ConfigPath returns the path to config.yml from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, SkinrecDir, ConfigFile)
}

// EnvPath returns the path to the repository .env file.
func EnvPath(root string) string {
	return filepath.Join(root, SkinrecDir, EnvFile)
}

// ProductsPath returns the path to products.jsonl from a root path.
func ProductsPath(root string) string {
	return filepath.Join(root, SkinrecDir, ProductsFile)
}

// ConceptsPath returns the path to concepts.jsonl from a root path.
func ConceptsPath(root string) string {
	return filepath.Join(root, SkinrecDir, ConceptsFile)
}

// UsersPath returns the path to users.jsonl from a root path.
func UsersPath(root string) string {
	return filepath.Join(root, SkinrecDir, UsersFile)
}

// AnalysesPath returns the path to analyses.jsonl from a root path.
func AnalysesPath(root string) string {
	return filepath.Join(root, SkinrecDir, AnalysesFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, SkinrecDir, CacheDir)
}

// DBPath returns the path to catalog.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, SkinrecDir, CacheDir, DBFile)
}

// Sources returns the JSONL files a cache rebuild reads.
func Sources(root string) storage.Sources {
	return storage.Sources{
		Products: ProductsPath(root),
		Concepts: ConceptsPath(root),
		Users:    UsersPath(root),
		Analyses: AnalysesPath(root),
	}
}

// IsRepository checks if the given path contains a skinrec repository.
func IsRepository(root string) bool {
	info, err := os.Stat(SkinrecPath(root))
	return err == nil && info.IsDir()
}

// FindRepository walks up from the given path to find a skinrec repository.
// Returns the repository root path or an error if not found.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a skinrec repository (no %s directory found)", SkinrecDir)
		}
		abs = parent
	}
}

// Load reads configuration from the repository at the given root. A missing
// config.yml yields the defaults. Values from .skinrec/.env and SKINREC_*
// environment variables override the file.
func Load(root string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ConfigPath(root))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := loadEnvFile(EnvPath(root)); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to the repository at the given root.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// RuleConfig converts the yaml rule settings to a rules.Config.
func (c *Config) RuleConfig() (rules.Config, error) {
	weights := make(map[rules.Tier]float64, len(c.Rules.Weights))
	for name, w := range c.Rules.Weights {
		t, ok := rules.ParseTier(name)
		if !ok {
			return rules.Config{}, fmt.Errorf("%w: unknown tier %q", rules.ErrInvalidTierWeights, name)
		}
		weights[t] = w
	}
	rc := rules.Config{Weights: weights, Filters: c.Rules.Filters}
	if err := rc.Validate(); err != nil {
		return rules.Config{}, err
	}
	return rc, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	r := c.Recommend
	if r.ConfidenceThreshold < 0 || r.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: recommend.confidence_threshold %v outside [0, 1]", ErrInvalidConfig, r.ConfidenceThreshold)
	}
	if r.TopN < 1 || r.TopN > recommend.MaxTopN {
		return fmt.Errorf("%w: recommend.top_n %d outside [1, %d]", ErrInvalidConfig, r.TopN, recommend.MaxTopN)
	}
	if r.Alpha < 0 || r.Alpha > 1 {
		return fmt.Errorf("%w: recommend.alpha %v outside [0, 1]", ErrInvalidConfig, r.Alpha)
	}
	if r.Overfetch < 1 {
		return fmt.Errorf("%w: recommend.overfetch must be at least 1", ErrInvalidConfig)
	}
	if _, err := c.RuleConfig(); err != nil {
		return fmt.Errorf("%w: rules: %w", ErrInvalidConfig, err)
	}
	if c.Embedding.Dimensions < 1 {
		return fmt.Errorf("%w: embedding.dimensions must be positive", ErrInvalidConfig)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("%w: server.rate_limit must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
