// Package oracle defines the boundary to the statistical classifier that
// decides whether an observation looks like illegal fishing. The service treats
// the classifier as a black box: a four-feature vector goes in, a class label
// and a probability per class come out.
package oracle

import (
	"context"
	"fmt"
	"math"

	"fishwatch/internal/types"
)

// Class values returned by an Oracle.
const (
	ClassNegative = 0
	ClassPositive = 1
)

// Features is the model input in training column order:
// latitude, longitude, vessel speed, proximity to protected area.
type Features [4]float64

// FeaturesFrom builds the model input for an observation.
func FeaturesFrom(obs types.Observation) Features {
	return Features{obs.Latitude, obs.Longitude, obs.Speed, obs.Proximity}
}

// Prediction is a single classifier output.
type Prediction struct {
	Class         int       `json:"class"`
	Probabilities []float64 `json:"probabilities"`
}

// Oracle classifies a feature vector. Implementations must be safe for
// concurrent use.
type Oracle interface {
	Predict(ctx context.Context, features Features) (*Prediction, error)
}

// Func adapts an ordinary function to the Oracle interface.
type Func func(ctx context.Context, features Features) (*Prediction, error)

// Predict calls f.
func (f Func) Predict(ctx context.Context, features Features) (*Prediction, error) {
	return f(ctx, features)
}

// Validate rejects predictions the assessment pipeline cannot interpret.
func (p *Prediction) Validate() error {
	if p == nil {
		return types.NewAppError(types.ErrCodeUpstreamOracleMalformed, "oracle returned no prediction", nil)
	}
	if p.Class != ClassNegative && p.Class != ClassPositive {
		return types.NewAppError(types.ErrCodeUpstreamOracleMalformed,
			fmt.Sprintf("oracle returned unknown class %d", p.Class), nil)
	}
	if len(p.Probabilities) == 0 {
		return types.NewAppError(types.ErrCodeUpstreamOracleMalformed, "oracle returned an empty probability vector", nil)
	}
	for _, v := range p.Probabilities {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			return types.NewAppError(types.ErrCodeUpstreamOracleMalformed,
				fmt.Sprintf("oracle returned probability %v outside [0, 1]", v), nil)
		}
	}
	if p.Confidence() == 0 {
		return types.NewAppError(types.ErrCodeUpstreamOracleMalformed, "oracle returned an all-zero probability vector", nil)
	}
	return nil
}

// Label maps the predicted class to a verdict label.
func (p *Prediction) Label() types.VerdictLabel {
	if p.Class == ClassPositive {
		return types.VerdictPositive
	}
	return types.VerdictNegative
}

// Confidence is the largest class probability.
func (p *Prediction) Confidence() float64 {
	best := 0.0
	for _, v := range p.Probabilities {
		if v > best {
			best = v
		}
	}
	return best
}

// Verdict combines Label and Confidence.
func (p *Prediction) Verdict() types.Verdict {
	return types.Verdict{Label: p.Label(), Confidence: p.Confidence()}
}

// FormatPercent renders a confidence in [0, 1] as a rounded whole percent,
// e.g. 0.876 -> "88%".
func FormatPercent(confidence float64) string {
	return fmt.Sprintf("%.0f%%", confidence*100)
}
