package health

import "github.com/pateldhruv64/cow-belt-final/internal/data"

// Health status buckets.
const (
	StatusHealthy  = "healthy"
	StatusModerate = "moderate"
	StatusPoor     = "poor"
	StatusCritical = "critical"
)

// Trend directions.
const (
	TrendDeclining = "declining"
	TrendImproving = "improving"
	TrendStable    = "stable"
)

type RiskFactor struct {
	Factor   string `json:"factor"`
	Severity string `json:"severity"`
	Impact   string `json:"impact"`
}

type Recommendation struct {
	Priority    string `json:"priority"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

type Trend struct {
	Direction  string  `json:"trend"`
	Confidence float64 `json:"confidence"`
}

// Assessment is the per-cow health analysis built from its latest reading.
type Assessment struct {
	CowID           string           `json:"cowId"`
	Score           float64          `json:"score"`
	Status          string           `json:"status"`
	Confidence      float64          `json:"confidence"`
	RiskFactors     []RiskFactor     `json:"riskFactors"`
	Recommendations []Recommendation `json:"recommendations"`
	Trend           Trend            `json:"prediction"`
}

var diseasePenalty = map[data.Disease]float64{
	data.DiseaseHighFever:   40,
	data.DiseaseFever:       25,
	data.DiseaseHypothermia: 30,
	data.DiseaseStress:      20,
}

// Assess scores a stored reading. Score starts at 100 and loses points for temperature,
// motion and the classified disease, floored at 0.
func Assess(r data.Reading) Assessment {
	var temperature, motion float64
	if r.Temperature != nil {
		temperature = *r.Temperature
	}
	if r.MotionChange != nil {
		motion = *r.MotionChange
	}

	score := HealthScore(temperature, motion, r.Disease)
	return Assessment{
		CowID:           r.CowID,
		Score:           score,
		Status:          StatusFor(score),
		Confidence:      0.85,
		RiskFactors:     riskFactors(temperature, motion),
		Recommendations: recommendations(temperature, motion),
		Trend:           trend(temperature, motion),
	}
}

// HealthScore computes the 0-100 wellness score.
func HealthScore(temperature, motion float64, disease data.Disease) float64 {
	score := 100.0

	switch {
	case temperature > 40.5:
		score -= 40
	case temperature > 39.5:
		score -= 25
	case temperature < 36.0:
		score -= 35
	case temperature < 37.0:
		score -= 20
	}

	switch {
	case motion > 200:
		score -= 20
	case motion < 10:
		score -= 30
	case motion < 20:
		score -= 15
	}

	score -= diseasePenalty[disease]

	if score < 0 {
		return 0
	}
	return score
}

// StatusFor buckets a health score.
func StatusFor(score float64) string {
	switch {
	case score >= 80:
		return StatusHealthy
	case score >= 60:
		return StatusModerate
	case score >= 40:
		return StatusPoor
	}
	return StatusCritical
}

func riskFactors(temperature, motion float64) []RiskFactor {
	risks := []RiskFactor{}
	if temperature > 40.0 {
		risks = append(risks, RiskFactor{"High Temperature", "high", "Heat stress, dehydration, organ damage"})
	}
	if motion < 10 {
		risks = append(risks, RiskFactor{"Low Activity", "medium", "Potential illness, weakness, depression"})
	}
	if temperature > 39.0 && motion < 20 {
		risks = append(risks, RiskFactor{"Fever with Lethargy", "high", "Serious illness, infection, systemic problems"})
	}
	return risks
}

func recommendations(temperature, motion float64) []Recommendation {
	recs := []Recommendation{}
	if temperature > 40.0 {
		recs = append(recs, Recommendation{
			"high", "Immediate cooling measures",
			"Provide shade, water, and ventilation. Contact veterinarian if temperature persists.",
		})
	}
	if motion < 15 {
		recs = append(recs, Recommendation{
			"medium", "Monitor closely",
			"Check for signs of illness, injury, or depression. Ensure adequate nutrition.",
		})
	}
	if temperature > 39.0 && motion < 20 {
		recs = append(recs, Recommendation{
			"critical", "Veterinary consultation",
			"Immediate veterinary attention required. Monitor vital signs continuously.",
		})
	}
	return recs
}

func trend(temperature, motion float64) Trend {
	switch {
	case temperature > 40.0 || motion < 10:
		return Trend{TrendDeclining, 0.8}
	case temperature < 38.0 && motion > 50:
		return Trend{TrendImproving, 0.6}
	}
	return Trend{TrendStable, 0.7}
}
