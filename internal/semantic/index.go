package semantic

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Errors returned by product index operations.
var (
	ErrIndexNotFound      = errors.New("product index not found")
	ErrProductNotIndexed  = errors.New("product not in index")
	ErrUnsupportedVersion = errors.New("unsupported index version")
)

const (
	// IndexFileName is the name of the product index file.
	IndexFileName = "products.gob"

	// CurrentIndexVersion is the format version for compatibility checking.
	// Increment this when making breaking changes to the index format.
	CurrentIndexVersion = 1
)

// IndexPath returns the path to the product index file.
func IndexPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".skinrec", "cache", IndexFileName)
}

// NewProductIndex creates a new empty index.
func NewProductIndex(modelName string, dimensions int) *ProductIndex {
	return &ProductIndex{
		Version:    CurrentIndexVersion,
		ModelName:  modelName,
		Dimensions: dimensions,
		CreatedAt:  time.Now(),
		Embeddings: make(map[string][]float32),
	}
}

// Add stores a product vector and keeps ProductCount current.
func (idx *ProductIndex) Add(productID string, vector []float32) error {
	if len(vector) != idx.Dimensions {
		return fmt.Errorf("embedding dimension mismatch for %s: got %d, want %d", productID, len(vector), idx.Dimensions)
	}
	idx.Embeddings[productID] = vector
	idx.ProductCount = len(idx.Embeddings)
	return nil
}

// Save persists the index with gob encoding, writing a temp file and
// renaming it into place.
func (idx *ProductIndex) Save(repoRoot string) error {
	indexPath := IndexPath(repoRoot)

	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tempPath := indexPath + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(idx); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding index: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tempPath, indexPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// Load reads the index from disk.
func Load(repoRoot string) (*ProductIndex, error) {
	f, err := os.Open(IndexPath(repoRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var idx ProductIndex
	if err := gob.NewDecoder(f).Decode(&idx); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}

	if idx.Version != CurrentIndexVersion {
		return nil, fmt.Errorf("%w: got %d, want %d (rebuild with 'skinrec embed')",
			ErrUnsupportedVersion, idx.Version, CurrentIndexVersion)
	}
	if idx.Embeddings == nil {
		idx.Embeddings = make(map[string][]float32)
	}

	return &idx, nil
}

// IndexSize returns the size of the index file in bytes.
func IndexSize(repoRoot string) (int64, error) {
	info, err := os.Stat(IndexPath(repoRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrIndexNotFound
		}
		return 0, err
	}
	return info.Size(), nil
}

// Exists checks if the index file exists.
func Exists(repoRoot string) bool {
	_, err := os.Stat(IndexPath(repoRoot))
	return err == nil
}
