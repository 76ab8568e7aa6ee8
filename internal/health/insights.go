package health

import "github.com/pateldhruv64/cow-belt-final/internal/data"

// GenerateInsights maps a reading to informational recommendations. Rules are additive.
func GenerateInsights(temperature, motionChange float64) []data.Insight {
	insights := []data.Insight{}

	if temperature >= 39.5 {
		insights = append(insights, data.Insight{
			Category:       "temperature",
			Insight:        "Elevated body temperature indicates potential fever or heat stress",
			Recommendation: "Monitor closely and consider veterinary consultation",
			Priority:       "high",
		})
	}

	if motionChange < 10 {
		insights = append(insights, data.Insight{
			Category:       "activity",
			Insight:        "Low activity level may indicate lethargy or illness",
			Recommendation: "Check for signs of illness or injury",
			Priority:       "medium",
		})
	}

	if temperature > 39.0 && motionChange < 15 {
		insights = append(insights, data.Insight{
			Category:       "health",
			Insight:        "Combination of elevated temperature and low activity suggests potential illness",
			Recommendation: "Immediate veterinary attention recommended",
			Priority:       "critical",
		})
	}

	return insights
}

// InsightsFor returns the insights for a reading, or none when temperature or motion is missing.
func InsightsFor(r data.SensorReading) []data.Insight {
	if !finite(r.Temperature) || !finite(r.MotionChange) {
		return []data.Insight{}
	}
	return GenerateInsights(*r.Temperature, *r.MotionChange)
}
