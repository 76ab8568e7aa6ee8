package health

import (
	"math"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

// Classification is the output of a single classifier or of the ensemble.
type Classification struct {
	Disease    data.Disease   `json:"disease"`
	Confidence float64        `json:"confidence"`
	RiskLevel  data.RiskLevel `json:"riskLevel"`
}

// ClassifyRule applies the nested temperature thresholds, then lets motion override a
// Normal verdict or reinforce any other one.
func ClassifyRule(temperature, motionChange float64) Classification {
	c := Classification{Disease: data.DiseaseNormal, Confidence: 0.80, RiskLevel: data.RiskLow}

	switch {
	case temperature >= ruleCriticalFever:
		c = Classification{data.DiseaseHighFever, 0.95, data.RiskCritical}
	case temperature >= ruleHighFever:
		c = Classification{data.DiseaseHighFever, 0.90, data.RiskHigh}
	case temperature >= ruleFever:
		c = Classification{data.DiseaseFever, 0.80, data.RiskMedium}
	case temperature <= ruleSevereHypothermia:
		c = Classification{data.DiseaseHypothermia, 0.95, data.RiskCritical}
	case temperature <= ruleHypothermia:
		c = Classification{data.DiseaseHypothermia, 0.85, data.RiskHigh}
	}

	switch {
	case motionChange > ruleExcessiveMotion:
		if c.Disease == data.DiseaseNormal {
			c = Classification{data.DiseaseStress, 0.85, data.RiskMedium}
		} else {
			c.Confidence = math.Min(c.Confidence+0.1, ruleMaxBoostConfidence)
		}
	case motionChange < ruleLowMotion:
		if c.Disease == data.DiseaseNormal {
			c = Classification{data.DiseaseHypothermia, 0.75, data.RiskMedium}
		} else {
			c.Confidence = math.Min(c.Confidence+0.05, ruleMaxBoostConfidence)
		}
	}

	return c
}
