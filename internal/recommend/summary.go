package recommend

import (
	"time"

	"github.com/matsen/skinrec/internal/concern"
)

// topConcernCount is how many concerns the summary highlights.
const topConcernCount = 3

// AnalysisItem is a detection that passed the confidence threshold.
type AnalysisItem struct {
	Type       string     `json:"type"`
	Confidence float64    `json:"confidence"`
	Normalized float64    `json:"normalized_confidence"`
	CreatedAt  *time.Time `json:"created_at"`
}

// Summary explains how a result was reached.
type Summary struct {
	TotalDetections     int              `json:"total_detections"`
	TotalAnalysisItems  int              `json:"total_analysis_items"`
	ConfidenceThreshold float64          `json:"confidence_threshold"`
	AnalysisItems       []AnalysisItem   `json:"analysis_items"`
	MappedConcerns      concern.Weights  `json:"mapped_concerns"`
	TopConcerns         []concern.Ranked `json:"top_concerns"`
	ResolvedConcerns    []string         `json:"resolved_concerns"`
	AllergenExclusions  []string         `json:"allergen_exclusions,omitempty"`
	ProfileVector       bool             `json:"profile_vector"`
	Message             string           `json:"message,omitempty"`
}

func newSummary(all []concern.Detection, scored []concern.Scored, weights concern.Weights, threshold float64) Summary {
	items := make([]AnalysisItem, len(scored))
	for i, s := range scored {
		items[i] = AnalysisItem{Type: s.Type, Confidence: s.Confidence, Normalized: s.Normalized}
		if !s.CreatedAt.IsZero() {
			t := s.CreatedAt
			items[i].CreatedAt = &t
		}
	}
	return Summary{
		TotalDetections:     len(all),
		TotalAnalysisItems:  len(scored),
		ConfidenceThreshold: threshold,
		AnalysisItems:       items,
		MappedConcerns:      weights,
		TopConcerns:         weights.Top(topConcernCount),
		ResolvedConcerns:    []string{},
	}
}
