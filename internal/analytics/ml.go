package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pateldhruv64/cow-belt-final/internal/anomaly"
	"github.com/pateldhruv64/cow-belt-final/internal/data"
	"github.com/pateldhruv64/cow-belt-final/internal/health"
)

// Snapshot is the part of a reading echoed next to derived findings.
type Snapshot struct {
	Temperature  *float64     `json:"temperature"`
	MotionChange *float64     `json:"motionChange"`
	Disease      data.Disease `json:"disease"`
}

type CowAnomalies struct {
	CowID     string         `json:"cowId"`
	Timestamp time.Time      `json:"timestamp"`
	Anomalies []data.Anomaly `json:"anomalies"`
	Data      Snapshot       `json:"data"`
}

type AnomalyReport struct {
	Period         string         `json:"period"`
	TotalAnomalies int            `json:"totalAnomalies"`
	Anomalies      []CowAnomalies `json:"anomalies"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Anomalies runs the detector over the latest reading of every cow seen in the last hours.
func (a *Analyzer) Anomalies(ctx context.Context, hours int) (*AnomalyReport, error) {
	readings, err := a.window(ctx, a.since(time.Duration(hours)*time.Hour), "")
	if err != nil {
		return nil, err
	}
	found := DetectAnomalies(readings, a.detector)
	return &AnomalyReport{
		Period:         fmt.Sprintf("%d hours", hours),
		TotalAnomalies: len(found),
		Anomalies:      found,
		Timestamp:      a.now(),
	}, nil
}

// DetectAnomalies checks the latest reading per cow and keeps the cows with findings.
func DetectAnomalies(readings []data.Reading, detector *anomaly.Detector) []CowAnomalies {
	out := []CowAnomalies{}
	for _, r := range LatestPerCow(readings) {
		found := detector.Check(r.Sensor())
		if len(found) == 0 {
			continue
		}
		out = append(out, CowAnomalies{
			CowID:     r.CowID,
			Timestamp: r.Timestamp,
			Anomalies: found,
			Data:      Snapshot{Temperature: r.Temperature, MotionChange: r.MotionChange, Disease: r.Disease},
		})
	}
	return out
}

type CowInsights struct {
	CowID       string         `json:"cowId"`
	Timestamp   time.Time      `json:"timestamp"`
	Insights    []data.Insight `json:"insights"`
	HealthScore float64        `json:"healthScore"`
	RiskLevel   data.RiskLevel `json:"riskLevel"`
}

type InsightReport struct {
	Period        string        `json:"period"`
	TotalInsights int           `json:"totalInsights"`
	Insights      []CowInsights `json:"insights"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Insights derives recommendations from the latest reading of every cow seen in the last days.
func (a *Analyzer) Insights(ctx context.Context, days int) (*InsightReport, error) {
	readings, err := a.window(ctx, a.since(daysDuration(days)), "")
	if err != nil {
		return nil, err
	}
	found := CollectInsights(readings)
	return &InsightReport{
		Period:        fmt.Sprintf("%d days", days),
		TotalInsights: len(found),
		Insights:      found,
		Timestamp:     a.now(),
	}, nil
}

// CollectInsights returns the cows whose latest reading yields insights, most urgent first.
func CollectInsights(readings []data.Reading) []CowInsights {
	out := []CowInsights{}
	for _, r := range LatestPerCow(readings) {
		insights := health.InsightsFor(r.Sensor())
		if len(insights) == 0 {
			continue
		}
		out = append(out, CowInsights{
			CowID:       r.CowID,
			Timestamp:   r.Timestamp,
			Insights:    insights,
			HealthScore: r.HealthScore,
			RiskLevel:   r.RiskLevel,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return topPriority(out[i].Insights) > topPriority(out[j].Insights)
	})
	return out
}

func topPriority(insights []data.Insight) int {
	top := 0
	for _, in := range insights {
		top = max(top, priorityRank(in.Priority))
	}
	return top
}

type ConfidenceDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type RiskDistribution struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

type PerformanceMetrics struct {
	TotalPredictions       int                    `json:"totalPredictions"`
	Accuracy               float64                `json:"accuracy"`
	ConfidenceDistribution ConfidenceDistribution `json:"confidenceDistribution"`
	RiskDistribution       RiskDistribution       `json:"riskDistribution"`
	DiseaseDistribution    map[data.Disease]int   `json:"diseaseDistribution"`
}

type DataQualityCounts struct {
	ValidData   int `json:"validData"`
	InvalidData int `json:"invalidData"`
}

type PerformanceReport struct {
	Period      string             `json:"period"`
	Metrics     PerformanceMetrics `json:"metrics"`
	Performance struct {
		Algorithm   string            `json:"algorithm"`
		DataQuality DataQualityCounts `json:"dataQuality"`
	} `json:"performance"`
	Timestamp time.Time `json:"timestamp"`
}

// Performance reports how the classifier labelled the readings of the last days.
func (a *Analyzer) Performance(ctx context.Context, days int) (*PerformanceReport, error) {
	readings, err := a.window(ctx, a.since(daysDuration(days)), "")
	if err != nil {
		return nil, err
	}
	report := Measure(readings)
	report.Period = fmt.Sprintf("%d days", days)
	report.Timestamp = a.now()
	return report, nil
}

// Measure counts labels, risk levels and confidence bands. A prediction counts as
// accurate when the reading is Normal with a health score of at least 80.
func Measure(readings []data.Reading) *PerformanceReport {
	report := &PerformanceReport{}
	m := &report.Metrics
	m.TotalPredictions = len(readings)
	m.DiseaseDistribution = map[data.Disease]int{}
	report.Performance.Algorithm = health.Algorithm

	accurate := 0
	for _, r := range readings {
		if r.Disease == data.DiseaseNormal && r.HealthScore >= 80 {
			accurate++
		}

		switch c := r.DataQuality.Confidence; {
		case c > 0.8:
			m.ConfidenceDistribution.High++
		case c > 0.5:
			m.ConfidenceDistribution.Medium++
		default:
			m.ConfidenceDistribution.Low++
		}

		switch r.RiskLevel {
		case data.RiskLow:
			m.RiskDistribution.Low++
		case data.RiskMedium:
			m.RiskDistribution.Medium++
		case data.RiskHigh:
			m.RiskDistribution.High++
		case data.RiskCritical:
			m.RiskDistribution.Critical++
		}

		m.DiseaseDistribution[r.Disease]++

		if r.DataQuality.IsValid {
			report.Performance.DataQuality.ValidData++
		} else {
			report.Performance.DataQuality.InvalidData++
		}
	}
	m.Accuracy = percent(accurate, len(readings))
	return report
}
