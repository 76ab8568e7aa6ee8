package health

import (
	"math"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

const (
	reasonInvalidInput = "Invalid input parameters"
	reasonOutOfRange   = "Temperature reading outside valid range"
)

// Prediction is the ensemble verdict for one reading.
type Prediction struct {
	Disease     data.Disease   `json:"disease"`
	Confidence  float64        `json:"confidence"`
	RiskLevel   data.RiskLevel `json:"riskLevel"`
	Algorithm   string         `json:"algorithm"`
	Reason      string         `json:"reason,omitempty"`
	Orientation Band           `json:"orientation,omitempty"`
}

// Classifiable reports whether the prediction came out of the ensemble rather than the input gate.
func (p Prediction) Classifiable() bool {
	return p.Disease != data.DiseaseUnknown
}

// Predictor runs the rule, similarity and pattern classifiers and combines them.
// It holds no mutable state and is safe for concurrent use.
type Predictor struct {
	references []Reference
}

// NewPredictor creates a predictor over refs, or over DefaultReferences when refs is empty.
func NewPredictor(refs ...Reference) *Predictor {
	if len(refs) == 0 {
		refs = DefaultReferences
	}
	owned := make([]Reference, len(refs))
	copy(owned, refs)
	return &Predictor{references: owned}
}

// Predict classifies a reading. Missing or non-finite temperature or motion, and
// temperatures outside [MinValidTemperature, MaxValidTemperature], short-circuit
// to Unknown with zero confidence and Critical risk.
func (p *Predictor) Predict(r data.SensorReading) Prediction {
	if !finite(r.Temperature) || !finite(r.MotionChange) {
		return unclassifiable(reasonInvalidInput)
	}

	temperature, motion := *r.Temperature, *r.MotionChange
	if temperature < MinValidTemperature || temperature > MaxValidTemperature {
		return unclassifiable(reasonOutOfRange)
	}

	pattern, orientation := ClassifyPattern(temperature, motion, r.Pitch, r.Roll)
	combined := Combine(
		ClassifyRule(temperature, motion),
		ClassifySimilarity(temperature, motion, p.references),
		pattern,
	)

	return Prediction{
		Disease:     combined.Disease,
		Confidence:  combined.Confidence,
		RiskLevel:   combined.RiskLevel,
		Algorithm:   Algorithm,
		Orientation: orientation,
	}
}

func unclassifiable(reason string) Prediction {
	return Prediction{
		Disease:    data.DiseaseUnknown,
		Confidence: 0,
		RiskLevel:  data.RiskCritical,
		Algorithm:  Algorithm,
		Reason:     reason,
	}
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}
