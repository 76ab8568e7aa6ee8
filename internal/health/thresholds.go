package health

import "github.com/pateldhruv64/cow-belt-final/internal/data"

// Algorithm tags every ensemble prediction.
const Algorithm = "Ensemble ML + Rules + Patterns"

// Classification gate. Readings outside this range are unclassifiable.
const (
	MinValidTemperature = 30.0
	MaxValidTemperature = 45.0
)

// Rule classifier boundaries.
const (
	ruleCriticalFever      = 41.5
	ruleHighFever          = 40.5
	ruleFever              = 39.5
	ruleSevereHypothermia  = 35.0
	ruleHypothermia        = 36.5
	ruleExcessiveMotion    = 200.0
	ruleLowMotion          = 5.0
	ruleMaxBoostConfidence = 0.95
)

// Similarity normalisation ranges.
const (
	temperatureRange = 7.0
	motionRange      = 300.0
	topMatches       = 3
)

// Reference is one labelled (temperature, motion) point used for similarity voting.
type Reference struct {
	Temperature  float64
	MotionChange float64
	Disease      data.Disease
	Confidence   float64
}

// DefaultReferences is the fixed reference table. Order matters: ties keep table order.
var DefaultReferences = []Reference{
	{37.5, 25, data.DiseaseNormal, 0.95},
	{38.0, 30, data.DiseaseNormal, 0.90},
	{38.5, 35, data.DiseaseNormal, 0.85},
	{39.0, 40, data.DiseaseNormal, 0.80},

	{39.5, 45, data.DiseaseFever, 0.75},
	{40.0, 50, data.DiseaseHighFever, 0.85},
	{40.5, 55, data.DiseaseHighFever, 0.90},
	{41.0, 60, data.DiseaseHighFever, 0.95},

	{37.0, 15, data.DiseaseHypothermia, 0.70},
	{36.5, 10, data.DiseaseHypothermia, 0.80},
	{36.0, 5, data.DiseaseHypothermia, 0.90},
	{35.5, 2, data.DiseaseHypothermia, 0.95},

	{38.0, 80, data.DiseaseStress, 0.75},
	{38.5, 100, data.DiseaseStress, 0.85},
	{39.0, 150, data.DiseaseStress, 0.90},
	{39.5, 200, data.DiseaseStress, 0.95},
}
