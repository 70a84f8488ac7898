package profile

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/matsen/skinrec/internal/candidate"
	"github.com/matsen/skinrec/internal/semantic"
)

// NeutralScore is the profile similarity used when there is no vector.
const NeutralScore = 0.5

// ErrInvalidBlendWeights is returned when alpha and beta are out of range or
// do not sum to one.
var ErrInvalidBlendWeights = errors.New("invalid blend weights")

const weightTolerance = 1e-9

// Weights are the concern (Alpha) and profile (Beta) blend weights. A nil
// Beta means 1 - Alpha.
type Weights struct {
	Alpha float64
	Beta  *float64
}

// Resolved returns alpha and the effective beta.
func (w Weights) Resolved() (alpha, beta float64) {
	if w.Beta == nil {
		return w.Alpha, 1 - w.Alpha
	}
	return w.Alpha, *w.Beta
}

// Validate checks the weights.
func (w Weights) Validate() error {
	alpha, beta := w.Resolved()
	if alpha < 0 || alpha > 1 || math.IsNaN(alpha) {
		return fmt.Errorf("%w: alpha %v outside [0, 1]", ErrInvalidBlendWeights, alpha)
	}
	if beta < 0 || beta > 1 || math.IsNaN(beta) {
		return fmt.Errorf("%w: beta %v outside [0, 1]", ErrInvalidBlendWeights, beta)
	}
	if math.Abs(alpha+beta-1) > weightTolerance {
		return fmt.Errorf("%w: alpha + beta = %v, want 1", ErrInvalidBlendWeights, alpha+beta)
	}
	return nil
}

// Blend scores each candidate against the profile vector, combines it with
// the concern score and re-ranks. A limit of zero or less keeps everything.
// Candidates are copied, not modified in place.
func Blend(candidates []candidate.Candidate, vector []float32, w Weights, limit int) ([]candidate.Candidate, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	alpha, beta := w.Resolved()

	out := make([]candidate.Candidate, len(candidates))
	for i, c := range candidates {
		c.ProfileScore = NeutralScore
		if len(vector) > 0 && len(c.Product.Embedding) > 0 {
			c.ProfileScore = semantic.Rescale(semantic.CosineSimilarity(vector, c.Product.Embedding))
		}
		c.FinalScore = alpha*c.ConcernScore + beta*c.ProfileScore
		out[i] = c
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
