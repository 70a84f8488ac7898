package recommend

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/matsen/skinrec/internal/profile"
)

// Request defaults.
const (
	DefaultConfidenceThreshold = 0.5
	DefaultTopN                = 10
	DefaultAlpha               = 0.8
	DefaultOverfetch           = 3
	MaxTopN                    = 100
)

// ErrInvalidOptions is returned when a request fails validation. It wraps
// profile.ErrInvalidBlendWeights for bad alpha/beta.
var ErrInvalidOptions = errors.New("invalid recommendation options")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Options are the per-request knobs of the analysis pipeline.
type Options struct {
	UserID              int64    `json:"user_id" validate:"gt=0"`
	ConfidenceThreshold float64  `json:"confidence_threshold" validate:"gte=0,lte=1"`
	TopN                int      `json:"top_n" validate:"gte=1,lte=100"`
	MaxPrice            *float64 `json:"max_price" validate:"omitempty,gte=0"`
	IncludeOutOfStock   bool     `json:"include_out_of_stock"`
	Alpha               float64  `json:"alpha" validate:"gte=0,lte=1"`
	Beta                *float64 `json:"beta" validate:"omitempty,gte=0,lte=1"`
	ProductType         string   `json:"product_type,omitempty" validate:"max=64"`
	IncludePreferences  bool     `json:"include_preferences"`
}

// DefaultOptions returns the defaults for userID.
func DefaultOptions(userID int64) Options {
	return Options{
		UserID:              userID,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		TopN:                DefaultTopN,
		Alpha:               DefaultAlpha,
		IncludePreferences:  true,
	}
}

// BlendWeights returns the profile blend weights for the request.
func (o Options) BlendWeights() profile.Weights {
	return profile.Weights{Alpha: o.Alpha, Beta: o.Beta}
}

// Validate checks field ranges and the blend weights.
func (o Options) Validate() error {
	if err := getValidator().Struct(o); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		msgs := make([]string, len(fieldErrs))
		for i, fe := range fieldErrs {
			msgs[i] = describeFieldError(fe)
		}
		return fmt.Errorf("%w: %s", ErrInvalidOptions, strings.Join(msgs, "; "))
	}
	if err := o.BlendWeights().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// Parameters echoes the effective request settings in a response.
type Parameters struct {
	ConfidenceThreshold float64  `json:"confidence_threshold"`
	TopN                int      `json:"top_n"`
	MaxPrice            *float64 `json:"max_price"`
	IncludeOutOfStock   bool     `json:"include_out_of_stock"`
	Alpha               float64  `json:"alpha"`
	Beta                float64  `json:"beta"`
	ProductType         *string  `json:"product_type"`
	IncludePreferences  bool     `json:"include_preferences"`
}

func (o Options) parameters() Parameters {
	alpha, beta := o.BlendWeights().Resolved()
	p := Parameters{
		ConfidenceThreshold: o.ConfidenceThreshold,
		TopN:                o.TopN,
		MaxPrice:            o.MaxPrice,
		IncludeOutOfStock:   o.IncludeOutOfStock,
		Alpha:               alpha,
		Beta:                beta,
		IncludePreferences:  o.IncludePreferences,
	}
	if o.ProductType != "" {
		pt := o.ProductType
		p.ProductType = &pt
	}
	return p
}
