// Package concept defines catalog concepts (named, embedded skin concerns and
// skin types) and resolves free-form concern names against them.
package concept

import (
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Concept types.
const (
	TypeSkinConcern = "skin_concern"
	TypeSkinType    = "skin_type"
	TypeAnalysis    = "analysis"
)

// ValidTypes lists the accepted concept types.
var ValidTypes = []string{TypeSkinConcern, TypeSkinType, TypeAnalysis}

// Concept is an immutable catalog entry with a precomputed embedding.
type Concept struct {
	ID          int       `json:"id"`                    // Required, unique
	Type        string    `json:"concept_type"`          // One of ValidTypes
	Name        string    `json:"name"`                  // Required, matched against concern names
	Description string    `json:"description,omitempty"` // Proxy document that gets embedded
	Embedding   []float32 `json:"embedding,omitempty"`
}

// Validation errors.
var (
	ErrInvalidID       = errors.New("id must be positive")
	ErrEmptyName       = errors.New("name is required")
	ErrInvalidType     = errors.New("concept_type must be one of skin_concern, skin_type, analysis")
	ErrDuplicateID     = errors.New("concept with this id already exists")
	ErrDuplicateName   = errors.New("concept with this type and name already exists")
	ErrConceptNotFound = errors.New("concept not found")
)

// ValidateForCreate validates a concept for insertion into the catalog.
func (c *Concept) ValidateForCreate() error {
	if c.ID <= 0 {
		return ErrInvalidID
	}
	if Normalize(c.Name) == "" {
		return ErrEmptyName
	}
	if !IsValidType(c.Type) {
		return ErrInvalidType
	}
	return nil
}

// IsValidType reports whether t is a known concept type.
func IsValidType(t string) bool {
	for _, v := range ValidTypes {
		if t == v {
			return true
		}
	}
	return false
}

// HasEmbedding reports whether the concept can take part in scoring.
func (c *Concept) HasEmbedding() bool { return len(c.Embedding) > 0 }

// ValidateCatalog checks a full catalog for duplicate ids and duplicate
// (type, name) pairs.
func ValidateCatalog(concepts []Concept) error {
	ids := make(map[int]bool, len(concepts))
	names := make(map[string]bool, len(concepts))
	for i := range concepts {
		c := &concepts[i]
		if err := c.ValidateForCreate(); err != nil {
			return err
		}
		if ids[c.ID] {
			return ErrDuplicateID
		}
		ids[c.ID] = true
		key := c.Type + "/" + Normalize(c.Name)
		if names[key] {
			return ErrDuplicateName
		}
		names[key] = true
	}
	return nil
}

var stripper = strings.NewReplacer(" ", "", "-", "", "_", "")

// Normalize folds a name for matching: NFKC, lowercase, spaces, hyphens and
// underscores removed.
func Normalize(s string) string {
	return stripper.Replace(strings.ToLower(norm.NFKC.String(s)))
}
