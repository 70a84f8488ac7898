// Package storage keeps the JSONL source files and the SQLite cache built
// from them, and implements the stores the recommendation pipeline reads.
package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/concept"
	"github.com/matsen/skinrec/internal/concern"
	"github.com/matsen/skinrec/internal/preference"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines
// (1MB per line, enough for a product with a 384-dimension embedding).
const MaxJSONLLineCapacity = 1024 * 1024

// User is one users.jsonl record. Embedding is the precomputed profile
// vector, when there is one.
type User struct {
	ID          int64                  `json:"id"`
	Preferences preference.Preferences `json:"preferences"`
	Embedding   []float32              `json:"embedding,omitempty"`
}

// Analysis is one analyses.jsonl record: a detection for a user.
type Analysis struct {
	UserID int64 `json:"user_id"`
	concern.Detection
}

// ReadJSONL reads every record of a JSONL file. A missing file reads as
// empty. validate, when non-nil, runs on each record and fails the read.
func ReadJSONL[T any](path string, validate func(*T) error) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, MaxJSONLLineCapacity), MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parsing %s line %d: %w", path, lineNum, err)
		}
		if validate != nil {
			if err := validate(&rec); err != nil {
				return nil, fmt.Errorf("invalid record at %s line %d: %w", path, lineNum, err)
			}
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return records, nil
}

func writeLine(w io.Writer, rec any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}

// AppendJSONL adds a record to the end of a JSONL file.
func AppendJSONL[T any](path string, rec T) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening %s for append: %w", path, err)
	}
	defer f.Close()
	return writeLine(f, rec)
}

// WriteJSONL replaces a JSONL file with records, writing a temp file and
// renaming it into place.
func WriteJSONL[T any](path string, records []T) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	w := bufio.NewWriter(f)
	for i, rec := range records {
		if err := writeLine(w, rec); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flushing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// ReadProducts reads and validates products.jsonl.
func ReadProducts(path string) ([]catalog.Product, error) {
	return ReadJSONL(path, func(p *catalog.Product) error { return p.Validate() })
}

// ReadConcepts reads and validates concepts.jsonl, including catalog-wide
// uniqueness.
func ReadConcepts(path string) ([]concept.Concept, error) {
	concepts, err := ReadJSONL(path, func(c *concept.Concept) error { return c.ValidateForCreate() })
	if err != nil {
		return nil, err
	}
	if err := concept.ValidateCatalog(concepts); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return concepts, nil
}

// ReadUsers reads users.jsonl.
func ReadUsers(path string) ([]User, error) {
	return ReadJSONL(path, func(u *User) error {
		if u.ID <= 0 {
			return fmt.Errorf("user id must be positive, got %d", u.ID)
		}
		return nil
	})
}

// ReadAnalyses reads analyses.jsonl.
func ReadAnalyses(path string) ([]Analysis, error) {
	return ReadJSONL(path, func(a *Analysis) error {
		if a.UserID <= 0 || a.Type == "" {
			return fmt.Errorf("analysis needs a user id and a type")
		}
		return nil
	})
}
