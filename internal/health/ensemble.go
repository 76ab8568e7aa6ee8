package health

import "github.com/pateldhruv64/cow-belt-final/internal/data"

// Combine votes the labels by confidence and keeps the most severe risk level present.
func Combine(results ...Classification) Classification {
	var votes labelVotes
	total := 0.0
	risk := data.RiskLow

	for _, r := range results {
		votes.add(r.Disease, r.Confidence)
		total += r.Confidence
		if r.RiskLevel.Rank() > risk.Rank() {
			risk = r.RiskLevel
		}
	}

	disease, best := votes.winner()
	confidence := 0.5
	if total > 0 {
		confidence = best / total
	}

	return Classification{Disease: disease, Confidence: confidence, RiskLevel: risk}
}
