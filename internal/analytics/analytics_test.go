package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pateldhruv64/cow-belt-final/internal/anomaly"
	"github.com/pateldhruv64/cow-belt-final/internal/data"
	"github.com/pateldhruv64/cow-belt-final/internal/storage"
)

var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func reading(cowID string, t, m float64, disease data.Disease, at time.Time) data.Reading {
	return data.Reading{
		CowID:        cowID,
		Temperature:  data.Float(t),
		MotionChange: data.Float(m),
		Disease:      disease,
		RiskLevel:    data.RiskLow,
		HealthScore:  90,
		Timestamp:    at,
	}
}

func newAnalyzer(t *testing.T, readings ...data.Reading) *Analyzer {
	t.Helper()
	store := storage.NewMemoryStore(0)
	for i := range readings {
		require.NoError(t, store.InsertReading(context.Background(), &readings[i]))
	}
	a := NewAnalyzer(store, anomaly.NewDetector(anomaly.DefaultThresholds()))
	a.now = func() time.Time { return now }
	return a
}

func TestLatestPerCow(t *testing.T) {
	latest := LatestPerCow([]data.Reading{
		reading("C1", 38.5, 40, data.DiseaseNormal, now.Add(-3*time.Hour)),
		reading("C2", 38.5, 40, data.DiseaseNormal, now.Add(-2*time.Hour)),
		reading("C1", 41.5, 40, data.DiseaseHighFever, now.Add(-time.Hour)),
	})
	require.Len(t, latest, 2)
	assert.Equal(t, "C1", latest[0].CowID)
	assert.Equal(t, 41.5, *latest[0].Temperature)
	assert.Equal(t, "C2", latest[1].CowID)
}

func TestAnomaliesUseLatestReadingInWindow(t *testing.T) {
	a := newAnalyzer(t,
		reading("C1", 38.5, 40, data.DiseaseNormal, now.Add(-30*time.Minute)),
		reading("C1", 42, 40, data.DiseaseHighFever, now.Add(-2*time.Hour)),
		reading("C2", 41.5, 40, data.DiseaseHighFever, now.Add(-time.Hour)),
		reading("C3", 42, 300, data.DiseaseHighFever, now.Add(-48*time.Hour)),
	)

	report, err := a.Anomalies(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, "24 hours", report.Period)
	require.Equal(t, 1, report.TotalAnomalies)
	got := report.Anomalies[0]
	assert.Equal(t, "C2", got.CowID)
	assert.Equal(t, data.DiseaseHighFever, got.Data.Disease)
	assert.Equal(t, data.AnomalyTemperatureSpike, got.Anomalies[0].Type)
	assert.Equal(t, now, report.Timestamp)
}

func TestInsightsSortedMostUrgentFirst(t *testing.T) {
	a := newAnalyzer(t,
		reading("C1", 38.5, 5, data.DiseaseNormal, now.Add(-time.Hour)),
		reading("C2", 39.6, 8, data.DiseaseFever, now.Add(-2*time.Hour)),
		reading("C3", 38.5, 40, data.DiseaseNormal, now.Add(-time.Hour)),
	)

	report, err := a.Insights(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "1 days", report.Period)
	require.Equal(t, 2, report.TotalInsights)
	assert.Equal(t, "C2", report.Insights[0].CowID)
	assert.Len(t, report.Insights[0].Insights, 3)
	assert.Equal(t, "C1", report.Insights[1].CowID)
	assert.Equal(t, "medium", report.Insights[1].Insights[0].Priority)
}

func TestSummarize(t *testing.T) {
	readings := []data.Reading{
		reading("C2", 38.5, 40, data.DiseaseNormal, now.Add(-time.Hour)),
		reading("C1", 39.6, 20, data.DiseaseFever, now.Add(-2*time.Hour)),
		reading("C1", 41.5, 60, data.DiseaseHighFever, now.Add(-48*time.Hour)),
		reading("C3", 34, 250, data.DiseaseStress, now.Add(-72*time.Hour)),
		{CowID: "C3", Disease: data.DiseaseUnknown, Timestamp: now},
	}

	stats := Summarize(readings, now)
	assert.Equal(t, FarmOverview{TotalRecords: 5, TotalCows: 3, RecentActivity24h: 3}, stats.Overview)
	assert.Equal(t, []string{"C1", "C2", "C3"}, stats.UniqueCows)
	assert.Equal(t, HealthCounts{Healthy: 1, Fever: 1, Heat: 1, Stress: 1, HealthPercentage: 20}, stats.Health)
	assert.Equal(t, TemperatureSummary{Average: 38.4, Minimum: 34, Maximum: 41.5, AverageMotion: 92.5}, stats.Temperature)
	assert.Equal(t, []TemperatureBucket{
		{Range: "0-35", Count: 1},
		{Range: "35-37", Count: 0},
		{Range: "37-40", Count: 2},
		{Range: "40-50", Count: 1},
		{Range: "Other", Count: 1},
	}, stats.Distribution)
}

func TestSummarizeEmpty(t *testing.T) {
	stats := Summarize(nil, now)
	assert.Zero(t, stats.Health.HealthPercentage)
	assert.Equal(t, []string{}, stats.UniqueCows)
	assert.Len(t, stats.Distribution, 5)
}

func TestFlags(t *testing.T) {
	var readings []data.Reading
	for i := 0; i < 12; i++ {
		readings = append(readings, reading("C1", 41, 30, data.DiseaseHighFever, now.Add(-time.Duration(i)*time.Minute)))
	}
	readings = append(readings,
		reading("C2", 34.5, 5, data.DiseaseHypothermia, now.Add(-time.Hour)),
		reading("C3", 38.5, 40, data.DiseaseNormal, now),
	)

	report := Flags(readings)
	// Ten per condition: the hypothermia label is the 13th newest sick reading.
	assert.Equal(t, FlagSummary{High: 20, Medium: 1, Low: 1}, report.Summary)
	require.Len(t, report.Alerts, 20)
	for _, f := range report.Alerts {
		assert.Equal(t, "high", f.Severity)
	}
	assert.Equal(t, "High temperature: 41°C", report.Alerts[0].Message)
	assert.Equal(t, now, report.Alerts[0].Timestamp)
}

func TestFlagsLowSeverityMessages(t *testing.T) {
	report := Flags([]data.Reading{reading("C2", 34.5, 5.5, data.DiseaseNormal, now)})
	require.Len(t, report.Alerts, 2)
	assert.Equal(t, "Low temperature: 34.5°C", report.Alerts[0].Message)
	assert.Equal(t, "Low activity: 5.5", report.Alerts[1].Message)
	assert.Equal(t, 5.5, report.Alerts[1].Value)
}

func TestMeasure(t *testing.T) {
	healthy := reading("C1", 38.5, 40, data.DiseaseNormal, now)
	healthy.DataQuality = data.DataQuality{IsValid: true, Confidence: 0.9}
	fever := reading("C2", 39.8, 20, data.DiseaseFever, now)
	fever.RiskLevel = data.RiskHigh
	fever.DataQuality = data.DataQuality{IsValid: true, Confidence: 0.6}
	unknown := data.Reading{CowID: "C3", Disease: data.DiseaseUnknown, RiskLevel: data.RiskCritical}

	report := Measure([]data.Reading{healthy, fever, unknown})
	m := report.Metrics
	assert.Equal(t, 3, m.TotalPredictions)
	assert.Equal(t, 33.33, m.Accuracy)
	assert.Equal(t, ConfidenceDistribution{High: 1, Medium: 1, Low: 1}, m.ConfidenceDistribution)
	assert.Equal(t, RiskDistribution{Low: 1, High: 1, Critical: 1}, m.RiskDistribution)
	assert.Equal(t, map[data.Disease]int{data.DiseaseNormal: 1, data.DiseaseFever: 1, data.DiseaseUnknown: 1}, m.DiseaseDistribution)
	assert.Equal(t, DataQualityCounts{ValidData: 2, InvalidData: 1}, report.Performance.DataQuality)
}

func TestDailyTemperatures(t *testing.T) {
	day1 := time.Date(2025, 6, 8, 9, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	trends := DailyTemperatures([]data.Reading{
		reading("C2", 39, 40, data.DiseaseNormal, day2),
		reading("C1", 38, 40, data.DiseaseNormal, day1),
		reading("C1", 39, 40, data.DiseaseNormal, day1.Add(time.Hour)),
		reading("C2", 40, 40, data.DiseaseNormal, day1),
		{CowID: "C3", Timestamp: day1},
	})

	require.Len(t, trends, 2)
	assert.Equal(t, "2025-06-08", trends[0].Date)
	assert.Equal(t, []CowTemperature{
		{CowID: "C1", AvgTemp: 38.5, MaxTemp: 39, MinTemp: 38, RecordCount: 2},
		{CowID: "C2", AvgTemp: 40, MaxTemp: 40, MinTemp: 40, RecordCount: 1},
	}, trends[0].Cows)
	assert.Equal(t, 39.25, trends[0].OverallAverage)
	assert.Equal(t, "2025-06-09", trends[1].Date)
}

func TestTemperatureTrendsScope(t *testing.T) {
	a := newAnalyzer(t,
		reading("C1", 38, 40, data.DiseaseNormal, now.Add(-time.Hour)),
		reading("C2", 39, 40, data.DiseaseNormal, now.Add(-time.Hour)),
		reading("C1", 39, 40, data.DiseaseNormal, now.Add(-10*24*time.Hour)),
	)

	report, err := a.TemperatureTrends(context.Background(), 7, "C1")
	require.NoError(t, err)
	assert.Equal(t, "C1", report.CowID)
	require.Len(t, report.Trends, 1)
	require.Len(t, report.Trends[0].Cows, 1)
	assert.Equal(t, 1, report.Trends[0].Cows[0].RecordCount)

	report, err = a.TemperatureTrends(context.Background(), 7, "")
	require.NoError(t, err)
	assert.Equal(t, "All", report.CowID)
}

func TestMotionByCow(t *testing.T) {
	analysis := MotionByCow([]data.Reading{
		reading("C1", 38.5, 5, data.DiseaseNormal, now),
		reading("C1", 38.5, 30, data.DiseaseNormal, now),
		reading("C2", 38.5, 80, data.DiseaseNormal, now),
		reading("C2", 38.5, 50, data.DiseaseNormal, now),
	})

	require.Len(t, analysis, 2)
	assert.Equal(t, CowMotion{CowID: "C2", AvgMotion: 65, MaxMotion: 80, MinMotion: 50, TotalRecords: 2,
		HighActivity: 1, MediumActivity: 1}, analysis[0])
	assert.Equal(t, CowMotion{CowID: "C1", AvgMotion: 17.5, MaxMotion: 30, MinMotion: 5, TotalRecords: 2,
		MediumActivity: 1, LowActivity: 1}, analysis[1])
}

func TestByHour(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2025, 6, 9, h, 15, 0, 0, time.UTC) }
	patterns := ByHour([]data.Reading{
		reading("C1", 38, 20, data.DiseaseNormal, at(14)),
		reading("C2", 39, 40, data.DiseaseNormal, at(14)),
		reading("C1", 38.5, 10, data.DiseaseNormal, at(3)),
	})

	require.Len(t, patterns, 2)
	assert.Equal(t, 3, patterns[0].Hour)
	assert.Equal(t, 14, patterns[1].Hour)
	assert.Equal(t, 30.0, patterns[1].OverallAvgMotion)
	assert.Equal(t, 38.5, patterns[1].OverallAvgTemp)
	assert.Len(t, patterns[1].Cows, 2)
}

func TestDistribution(t *testing.T) {
	report := Distribution([]data.Reading{
		reading("C1", 38, 40, data.DiseaseNormal, now),
		reading("C2", 39, 60, data.DiseaseNormal, now),
		reading("C3", 39.8, 20, data.DiseaseFever, now),
		reading("C4", 34, 5, data.DiseaseHypothermia, now),
	})

	assert.Equal(t, 4, report.TotalRecords)
	assert.Equal(t, 50.0, report.NormalPercentage)
	require.Len(t, report.Distribution, 3)
	assert.Equal(t, DiseaseShare{Disease: data.DiseaseNormal, Count: 2, Percentage: 50, AvgTemp: 38.5, AvgMotion: 50}, report.Distribution[0])
	assert.Equal(t, data.DiseaseFever, report.Distribution[1].Disease)
	assert.Equal(t, data.DiseaseHypothermia, report.Distribution[2].Disease)
}

func TestRiskScore(t *testing.T) {
	assert.Equal(t, 0, RiskScore(38.5, 40, 0))
	assert.Equal(t, 20, RiskScore(38.5, 5, 0))
	assert.Equal(t, 40+10+40, RiskScore(41, 150, 20))
	assert.Equal(t, 30+15, RiskScore(34, 50, 3))
	assert.Equal(t, 20, RiskScore(39, 50, 0))
}

func TestAssessRisk(t *testing.T) {
	var readings []data.Reading
	for i := 0; i < 6; i++ {
		readings = append(readings, reading("C1", 41.5, 5, data.DiseaseHighFever, now.Add(-time.Duration(i)*time.Hour)))
	}
	readings = append(readings,
		reading("C2", 38.5, 40, data.DiseaseNormal, now.Add(-time.Hour)),
		reading("C3", 39, 40, data.DiseaseFever, now.Add(-time.Hour)),
		reading("C3", 39, 40, data.DiseaseFever, now),
	)

	report := AssessRisk(readings)
	assert.Equal(t, RiskSummary{TotalCows: 3, HighRisk: 1, MediumRisk: 0, LowRisk: 2}, report.Summary)
	require.Len(t, report.Assessment, 3)
	top := report.Assessment[0]
	assert.Equal(t, "C1", top.CowID)
	assert.Equal(t, 90, top.RiskScore)
	assert.Equal(t, "High", top.RiskLevel)
	assert.Equal(t, now, top.LatestData.Timestamp)
	assert.Equal(t, "C3", report.Assessment[1].CowID)
	assert.Equal(t, 30, report.Assessment[1].RiskScore)
	assert.Equal(t, now, report.Assessment[1].LatestData.Timestamp)
}

func TestHugeDayWindowLoadsEverything(t *testing.T) {
	a := newAnalyzer(t,
		reading("C1", 38, 40, data.DiseaseNormal, now.Add(-time.Hour)),
		reading("C1", 39, 40, data.DiseaseNormal, now.Add(-400*24*time.Hour)),
	)

	report, err := a.DiseaseDistribution(context.Background(), int(^uint(0)>>1))
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalRecords)
}
