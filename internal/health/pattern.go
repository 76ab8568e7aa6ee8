package health

import (
	"math"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

// Band is a qualitative severity bucket used by the pattern classifier.
type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

func temperatureBand(temperature float64) Band {
	switch {
	case temperature >= 41.0 || temperature <= 35.0:
		return BandHigh
	case temperature >= 39.0 || temperature <= 36.0:
		return BandMedium
	}
	return BandLow
}

func motionBand(motionChange float64) Band {
	switch {
	case motionChange >= 200 || motionChange <= 5:
		return BandHigh
	case motionChange >= 100 || motionChange <= 15:
		return BandMedium
	}
	return BandLow
}

func orientationBand(pitch, roll float64) Band {
	p, r := math.Abs(pitch), math.Abs(roll)
	switch {
	case p > 45 || r > 45:
		return BandHigh
	case p > 30 || r > 30:
		return BandMedium
	}
	return BandLow
}

// ClassifyPattern fuses temperature and motion bands. When both pitch and roll are present
// the orientation band is computed and returned, but it does not take part in the decision.
func ClassifyPattern(temperature, motionChange float64, pitch, roll *float64) (Classification, Band) {
	temp := temperatureBand(temperature)
	motion := motionBand(motionChange)

	if pitch != nil && roll != nil {
		orientation := orientationBand(*pitch, *roll)
		switch {
		case temp == BandHigh && motion == BandHigh:
			return Classification{data.DiseaseHighFever, 0.9, data.RiskCritical}, orientation
		case temp == BandMedium && motion == BandHigh:
			return Classification{data.DiseaseStress, 0.85, data.RiskHigh}, orientation
		case temp == BandLow && motion == BandLow:
			return Classification{data.DiseaseHypothermia, 0.8, data.RiskMedium}, orientation
		}
		return Classification{data.DiseaseNormal, 0.7, data.RiskLow}, orientation
	}

	switch {
	case temp == BandHigh:
		return Classification{data.DiseaseHighFever, 0.85, data.RiskHigh}, ""
	case motion == BandHigh:
		return Classification{data.DiseaseStress, 0.8, data.RiskMedium}, ""
	}
	return Classification{data.DiseaseNormal, 0.7, data.RiskLow}, ""
}
