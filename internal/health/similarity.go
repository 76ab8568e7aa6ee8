package health

import (
	"math"
	"sort"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

// ReferenceScore pairs a reference row with its similarity to the input.
type ReferenceScore struct {
	Reference
	Similarity float64
}

// Similarity is 1 minus the mean of the normalised temperature and motion distances, floored at 0.
func Similarity(temperature, motionChange float64, ref Reference) float64 {
	tempDiff := math.Abs(temperature-ref.Temperature) / temperatureRange
	motionDiff := math.Abs(motionChange-ref.MotionChange) / motionRange
	return math.Max(0, 1-(tempDiff+motionDiff)/2)
}

// NearestReferences returns the k most similar rows. The sort is stable so equal
// similarities keep table order.
func NearestReferences(temperature, motionChange float64, refs []Reference, k int) []ReferenceScore {
	scores := make([]ReferenceScore, len(refs))
	for i, ref := range refs {
		scores[i] = ReferenceScore{Reference: ref, Similarity: Similarity(temperature, motionChange, ref)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Similarity > scores[j].Similarity
	})
	if k < len(scores) {
		scores = scores[:k]
	}
	return scores
}

// ClassifySimilarity runs a similarity x confidence weighted vote over the top matches.
func ClassifySimilarity(temperature, motionChange float64, refs []Reference) Classification {
	var votes labelVotes
	totalWeight := 0.0
	for _, match := range NearestReferences(temperature, motionChange, refs, topMatches) {
		weight := match.Similarity * match.Confidence
		votes.add(match.Disease, weight)
		totalWeight += weight
	}

	disease, best := votes.winner()
	confidence := 0.5
	if totalWeight > 0 {
		confidence = best / totalWeight
	}

	risk := data.RiskLow
	if confidence > 0.8 {
		risk = data.RiskHigh
	} else if confidence > 0.6 {
		risk = data.RiskMedium
	}

	return Classification{Disease: disease, Confidence: confidence, RiskLevel: risk}
}

// labelVotes accumulates weights per label, remembering the order labels first appeared.
type labelVotes struct {
	labels  []data.Disease
	weights map[data.Disease]float64
}

func (v *labelVotes) add(label data.Disease, weight float64) {
	if v.weights == nil {
		v.weights = make(map[data.Disease]float64)
	}
	if _, seen := v.weights[label]; !seen {
		v.labels = append(v.labels, label)
	}
	v.weights[label] += weight
}

// winner returns the label with the strictly highest weight, first seen wins ties.
// With no positive weight the result is Normal with weight 0.
func (v *labelVotes) winner() (data.Disease, float64) {
	best := data.DiseaseNormal
	bestScore := 0.0
	for _, label := range v.labels {
		if w := v.weights[label]; w > bestScore {
			best = label
			bestScore = w
		}
	}
	return best, bestScore
}
