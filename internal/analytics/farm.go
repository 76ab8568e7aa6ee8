package analytics

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

const (
	flagsPerKind = 10
	maxFlags     = 20
)

type FarmOverview struct {
	TotalRecords      int `json:"totalRecords"`
	TotalCows         int `json:"totalCows"`
	RecentActivity24h int `json:"recentActivity24h"`
}

type HealthCounts struct {
	Healthy          int     `json:"healthy"`
	Fever            int     `json:"fever"`
	Heat             int     `json:"heat"`
	Stress           int     `json:"stress"`
	HealthPercentage float64 `json:"healthPercentage"`
}

type TemperatureSummary struct {
	Average       float64 `json:"average"`
	Minimum       float64 `json:"minimum"`
	Maximum       float64 `json:"maximum"`
	AverageMotion float64 `json:"averageMotion"`
}

// TemperatureBucket counts readings whose temperature falls in Range, lower bound
// inclusive. Readings without a temperature or outside every range land in "Other".
type TemperatureBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

type FarmStatistics struct {
	Overview     FarmOverview        `json:"overview"`
	Health       HealthCounts        `json:"health"`
	Temperature  TemperatureSummary  `json:"temperature"`
	Distribution []TemperatureBucket `json:"distribution"`
	UniqueCows   []string            `json:"uniqueCows"`
}

var temperatureBoundaries = []float64{0, 35, 37, 40, 50}

// FarmStatistics summarises every stored reading.
func (a *Analyzer) FarmStatistics(ctx context.Context) (*FarmStatistics, error) {
	readings, err := a.window(ctx, time.Time{}, "")
	if err != nil {
		return nil, err
	}
	return Summarize(readings, a.now()), nil
}

// Summarize computes the farm overview for readings as seen at now.
func Summarize(readings []data.Reading, now time.Time) *FarmStatistics {
	stats := &FarmStatistics{UniqueCows: []string{}}
	stats.Overview.TotalRecords = len(readings)

	var temp, motion series
	cows := map[string]bool{}
	buckets := make([]int, len(temperatureBoundaries))
	dayAgo := now.Add(-24 * time.Hour)

	for _, r := range readings {
		if !cows[r.CowID] {
			cows[r.CowID] = true
			stats.UniqueCows = append(stats.UniqueCows, r.CowID)
		}
		if !r.Timestamp.Before(dayAgo) {
			stats.Overview.RecentActivity24h++
		}

		switch r.Disease {
		case data.DiseaseNormal:
			stats.Health.Healthy++
		case data.DiseaseFever:
			stats.Health.Fever++
		case data.DiseaseHighFever:
			stats.Health.Heat++
		case data.DiseaseStress:
			stats.Health.Stress++
		}

		temp.add(r.Temperature)
		motion.add(r.MotionChange)
		buckets[temperatureBucket(r.Temperature)]++
	}

	sort.Strings(stats.UniqueCows)
	stats.Overview.TotalCows = len(cows)
	stats.Health.HealthPercentage = percent(stats.Health.Healthy, len(readings))
	stats.Temperature = TemperatureSummary{
		Average:       round2(temp.avg()),
		Minimum:       temp.min,
		Maximum:       temp.max,
		AverageMotion: round2(motion.avg()),
	}

	for i := 0; i < len(temperatureBoundaries)-1; i++ {
		stats.Distribution = append(stats.Distribution, TemperatureBucket{
			Range: formatFloat(temperatureBoundaries[i]) + "-" + formatFloat(temperatureBoundaries[i+1]),
			Count: buckets[i],
		})
	}
	stats.Distribution = append(stats.Distribution, TemperatureBucket{Range: "Other", Count: buckets[len(buckets)-1]})
	return stats
}

// temperatureBucket returns the bucket index of t; the last index is "Other".
func temperatureBucket(t *float64) int {
	other := len(temperatureBoundaries) - 1
	if t == nil {
		return other
	}
	for i := 0; i < other; i++ {
		if *t >= temperatureBoundaries[i] && *t < temperatureBoundaries[i+1] {
			return i
		}
	}
	return other
}

// HealthFlag is a reading that crossed one of the dashboard watch thresholds.
type HealthFlag struct {
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	CowID     string    `json:"cowId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Value     any       `json:"value"`
}

type FlagSummary struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type FlagReport struct {
	Alerts  []HealthFlag `json:"alerts"`
	Summary FlagSummary  `json:"summary"`
}

// HealthFlags scans every stored reading for watch thresholds.
func (a *Analyzer) HealthFlags(ctx context.Context) (*FlagReport, error) {
	readings, err := a.window(ctx, time.Time{}, "")
	if err != nil {
		return nil, err
	}
	return Flags(readings), nil
}

// Flags takes up to ten of the newest readings per watch condition (fever over 40°C,
// chill under 35°C, non-Normal label, motion under 10), orders them by severity then
// recency and keeps the top twenty. The summary counts every flag before truncation.
func Flags(readings []data.Reading) *FlagReport {
	newest := make([]data.Reading, len(readings))
	copy(newest, readings)
	sort.SliceStable(newest, func(i, j int) bool { return newest[i].Timestamp.After(newest[j].Timestamp) })

	var flags []HealthFlag
	collect := func(match func(data.Reading) bool, build func(data.Reading) HealthFlag) {
		n := 0
		for _, r := range newest {
			if n == flagsPerKind {
				return
			}
			if match(r) {
				flags = append(flags, build(r))
				n++
			}
		}
	}

	collect(func(r data.Reading) bool { return r.Temperature != nil && *r.Temperature > 40 },
		func(r data.Reading) HealthFlag {
			return HealthFlag{Type: "temperature", Severity: "high", CowID: r.CowID, Timestamp: r.Timestamp,
				Message: "High temperature: " + formatFloat(*r.Temperature) + "°C", Value: *r.Temperature}
		})
	collect(func(r data.Reading) bool { return r.Temperature != nil && *r.Temperature < 35 },
		func(r data.Reading) HealthFlag {
			return HealthFlag{Type: "temperature", Severity: "medium", CowID: r.CowID, Timestamp: r.Timestamp,
				Message: "Low temperature: " + formatFloat(*r.Temperature) + "°C", Value: *r.Temperature}
		})
	collect(func(r data.Reading) bool { return r.Disease != "" && r.Disease != data.DiseaseNormal },
		func(r data.Reading) HealthFlag {
			severity := "medium"
			if r.Disease == data.DiseaseHighFever {
				severity = "high"
			}
			return HealthFlag{Type: "health", Severity: severity, CowID: r.CowID, Timestamp: r.Timestamp,
				Message: "Health issue: " + string(r.Disease), Value: r.Disease}
		})
	collect(func(r data.Reading) bool { return r.MotionChange != nil && *r.MotionChange < 10 },
		func(r data.Reading) HealthFlag {
			return HealthFlag{Type: "activity", Severity: "low", CowID: r.CowID, Timestamp: r.Timestamp,
				Message: "Low activity: " + formatFloat(*r.MotionChange), Value: *r.MotionChange}
		})

	report := &FlagReport{Alerts: []HealthFlag{}}
	for _, f := range flags {
		switch f.Severity {
		case "high":
			report.Summary.High++
		case "medium":
			report.Summary.Medium++
		case "low":
			report.Summary.Low++
		}
	}

	sort.SliceStable(flags, func(i, j int) bool {
		ri, rj := priorityRank(flags[i].Severity), priorityRank(flags[j].Severity)
		if ri != rj {
			return ri > rj
		}
		return flags[i].Timestamp.After(flags[j].Timestamp)
	})
	if len(flags) > maxFlags {
		flags = flags[:maxFlags]
	}
	report.Alerts = append(report.Alerts, flags...)
	return report
}

// priorityRank orders the lower-case priority scale; unknown values rank 0.
func priorityRank(p string) int {
	switch p {
	case "critical":
		return 4
	case "high":
		return 3
	case "medium":
		return 2
	case "low":
		return 1
	}
	return 0
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
