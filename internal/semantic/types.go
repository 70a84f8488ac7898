// Package semantic holds the vector math shared by the scoring pipeline, the
// embedding builder and the on-disk product index used for semantic search.
package semantic

import "time"

// Kind names the entity an embedding belongs to.
type Kind string

const (
	KindProduct Kind = "product"
	KindConcept Kind = "concept"
	KindUser    Kind = "user"
)

// ProductIndex holds product embeddings for in-memory similarity search.
type ProductIndex struct {
	// Version is the format version for compatibility checking.
	// Check against CurrentIndexVersion when loading.
	Version int `json:"version"`

	ModelName       string    `json:"model_name"`
	Dimensions      int       `json:"dimensions"`
	CreatedAt       time.Time `json:"created_at"`
	ProductCount    int       `json:"product_count"`
	BuildDurationMs int64     `json:"build_duration_ms"`

	// Embeddings map product IDs to their vectors.
	Embeddings map[string][]float32 `json:"-"`
}

// SearchResult is a product found by similarity search.
type SearchResult struct {
	ProductID  string  `json:"id"`
	Similarity float64 `json:"similarity"`
}

// Record is one embedding ready to persist.
type Record struct {
	Kind      Kind
	ID        string
	Vector    []float32
	ModelName string
	TextHash  string
	IndexedAt time.Time
}

// BuildStats contains statistics from an embedding run.
type BuildStats struct {
	Embedded       map[Kind]int  `json:"embedded"`
	Unchanged      int           `json:"unchanged"`
	Skipped        int           `json:"skipped"`
	Duration       time.Duration `json:"duration"`
	IndexSizeBytes int64         `json:"index_size_bytes,omitempty"`
}
