package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

const (
	highActivity = 50
	lowActivity  = 10
)

type CowTemperature struct {
	CowID       string  `json:"cowId"`
	AvgTemp     float64 `json:"avgTemp"`
	MaxTemp     float64 `json:"maxTemp"`
	MinTemp     float64 `json:"minTemp"`
	RecordCount int     `json:"recordCount"`
}

type DayTrend struct {
	Date           string           `json:"date"`
	OverallAverage float64          `json:"overallAverage"`
	Cows           []CowTemperature `json:"cows"`
}

type TemperatureTrendReport struct {
	Period string     `json:"period"`
	CowID  string     `json:"cowId"`
	Trends []DayTrend `json:"trends"`
}

func (a *Analyzer) TemperatureTrends(ctx context.Context, days int, cowID string) (*TemperatureTrendReport, error) {
	readings, err := a.window(ctx, a.since(daysDuration(days)), cowID)
	if err != nil {
		return nil, err
	}
	scope := cowID
	if scope == "" {
		scope = "All"
	}
	return &TemperatureTrendReport{
		Period: fmt.Sprintf("%d days", days),
		CowID:  scope,
		Trends: DailyTemperatures(readings),
	}, nil
}

// DailyTemperatures groups readings by UTC day and cow. The overall average of a day is
// the mean of its per-cow averages. Days are ascending, cows by id.
func DailyTemperatures(readings []data.Reading) []DayTrend {
	perDay := map[string][]data.Reading{}
	for _, r := range readings {
		if r.Temperature == nil {
			continue
		}
		day := r.Timestamp.UTC().Format(time.DateOnly)
		perDay[day] = append(perDay[day], r)
	}

	dates := make([]string, 0, len(perDay))
	for d := range perDay {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	trends := make([]DayTrend, 0, len(dates))
	for _, d := range dates {
		groups, ids := byCow(perDay[d])
		trend := DayTrend{Date: d, Cows: make([]CowTemperature, 0, len(ids))}
		var overall float64
		for _, id := range ids {
			var s series
			for _, r := range groups[id] {
				s.add(r.Temperature)
			}
			trend.Cows = append(trend.Cows, CowTemperature{
				CowID:       id,
				AvgTemp:     round2(s.avg()),
				MaxTemp:     s.max,
				MinTemp:     s.min,
				RecordCount: len(groups[id]),
			})
			overall += s.avg()
		}
		trend.OverallAverage = round2(overall / float64(len(ids)))
		trends = append(trends, trend)
	}
	return trends
}

type CowMotion struct {
	CowID          string  `json:"cowId"`
	AvgMotion      float64 `json:"avgMotion"`
	MaxMotion      float64 `json:"maxMotion"`
	MinMotion      float64 `json:"minMotion"`
	TotalRecords   int     `json:"totalRecords"`
	HighActivity   int     `json:"highActivity"`
	MediumActivity int     `json:"mediumActivity"`
	LowActivity    int     `json:"lowActivity"`
}

type MotionReport struct {
	Period   string      `json:"period"`
	Analysis []CowMotion `json:"analysis"`
}

func (a *Analyzer) MotionAnalysis(ctx context.Context, days int) (*MotionReport, error) {
	readings, err := a.window(ctx, a.since(daysDuration(days)), "")
	if err != nil {
		return nil, err
	}
	return &MotionReport{Period: fmt.Sprintf("%d days", days), Analysis: MotionByCow(readings)}, nil
}

// MotionByCow summarises motion per cow, most active first. Motion above 50 counts as
// high activity and below 10 as low.
func MotionByCow(readings []data.Reading) []CowMotion {
	groups, ids := byCow(readings)
	out := make([]CowMotion, 0, len(ids))
	for _, id := range ids {
		m := CowMotion{CowID: id, TotalRecords: len(groups[id])}
		var s series
		for _, r := range groups[id] {
			s.add(r.MotionChange)
			if r.MotionChange == nil {
				continue
			}
			switch v := *r.MotionChange; {
			case v > highActivity:
				m.HighActivity++
			case v < lowActivity:
				m.LowActivity++
			default:
				m.MediumActivity++
			}
		}
		m.AvgMotion, m.MaxMotion, m.MinMotion = round2(s.avg()), s.max, s.min
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgMotion > out[j].AvgMotion })
	return out
}

type CowHour struct {
	CowID       string  `json:"cowId"`
	AvgMotion   float64 `json:"avgMotion"`
	AvgTemp     float64 `json:"avgTemp"`
	RecordCount int     `json:"recordCount"`
}

type HourPattern struct {
	Hour             int       `json:"hour"`
	OverallAvgMotion float64   `json:"overallAvgMotion"`
	OverallAvgTemp   float64   `json:"overallAvgTemp"`
	Cows             []CowHour `json:"cows"`
}

type HourlyReport struct {
	Period         string        `json:"period"`
	HourlyPatterns []HourPattern `json:"hourlyPatterns"`
}

func (a *Analyzer) HourlyPatterns(ctx context.Context, days int) (*HourlyReport, error) {
	readings, err := a.window(ctx, a.since(daysDuration(days)), "")
	if err != nil {
		return nil, err
	}
	return &HourlyReport{Period: fmt.Sprintf("%d days", days), HourlyPatterns: ByHour(readings)}, nil
}

// ByHour groups readings by UTC hour of day and cow. Only hours with readings appear.
func ByHour(readings []data.Reading) []HourPattern {
	var perHour [24][]data.Reading
	for _, r := range readings {
		h := r.Timestamp.UTC().Hour()
		perHour[h] = append(perHour[h], r)
	}

	out := []HourPattern{}
	for h, rs := range perHour {
		if len(rs) == 0 {
			continue
		}
		groups, ids := byCow(rs)
		p := HourPattern{Hour: h, Cows: make([]CowHour, 0, len(ids))}
		var motionSum, tempSum float64
		for _, id := range ids {
			var motion, temp series
			for _, r := range groups[id] {
				motion.add(r.MotionChange)
				temp.add(r.Temperature)
			}
			p.Cows = append(p.Cows, CowHour{
				CowID:       id,
				AvgMotion:   round2(motion.avg()),
				AvgTemp:     round2(temp.avg()),
				RecordCount: len(groups[id]),
			})
			motionSum += motion.avg()
			tempSum += temp.avg()
		}
		p.OverallAvgMotion = round2(motionSum / float64(len(ids)))
		p.OverallAvgTemp = round2(tempSum / float64(len(ids)))
		out = append(out, p)
	}
	return out
}

type DiseaseShare struct {
	Disease    data.Disease `json:"disease"`
	Count      int          `json:"count"`
	Percentage float64      `json:"percentage"`
	AvgTemp    float64      `json:"avgTemp"`
	AvgMotion  float64      `json:"avgMotion"`
}

type DiseaseReport struct {
	Period           string         `json:"period"`
	TotalRecords     int            `json:"totalRecords"`
	NormalPercentage float64        `json:"normalPercentage"`
	Distribution     []DiseaseShare `json:"distribution"`
}

func (a *Analyzer) DiseaseDistribution(ctx context.Context, days int) (*DiseaseReport, error) {
	readings, err := a.window(ctx, a.since(daysDuration(days)), "")
	if err != nil {
		return nil, err
	}
	report := Distribution(readings)
	report.Period = fmt.Sprintf("%d days", days)
	return report, nil
}

// Distribution counts readings per label, largest share first.
func Distribution(readings []data.Reading) *DiseaseReport {
	type acc struct {
		n            int
		temp, motion series
	}
	perLabel := map[data.Disease]*acc{}
	for _, r := range readings {
		a, ok := perLabel[r.Disease]
		if !ok {
			a = &acc{}
			perLabel[r.Disease] = a
		}
		a.n++
		a.temp.add(r.Temperature)
		a.motion.add(r.MotionChange)
	}

	report := &DiseaseReport{TotalRecords: len(readings), Distribution: []DiseaseShare{}}
	for label, a := range perLabel {
		report.Distribution = append(report.Distribution, DiseaseShare{
			Disease:    label,
			Count:      a.n,
			Percentage: percent(a.n, len(readings)),
			AvgTemp:    round2(a.temp.avg()),
			AvgMotion:  round2(a.motion.avg()),
		})
	}
	sort.Slice(report.Distribution, func(i, j int) bool {
		di, dj := report.Distribution[i], report.Distribution[j]
		if di.Count != dj.Count {
			return di.Count > dj.Count
		}
		return di.Disease < dj.Disease
	})
	if normal, ok := perLabel[data.DiseaseNormal]; ok {
		report.NormalPercentage = percent(normal.n, len(readings))
	}
	return report
}

const (
	highRiskScore   = 70
	mediumRiskScore = 40
	maxDiseaseScore = 40
)

type CowRisk struct {
	CowID        string       `json:"cowId"`
	LatestData   data.Reading `json:"latestData"`
	RiskScore    int          `json:"riskScore"`
	RiskLevel    string       `json:"riskLevel"`
	AvgTemp      float64      `json:"avgTemp"`
	MaxTemp      float64      `json:"maxTemp"`
	MinTemp      float64      `json:"minTemp"`
	AvgMotion    float64      `json:"avgMotion"`
	TotalRecords int          `json:"totalRecords"`
}

type RiskSummary struct {
	TotalCows  int `json:"totalCows"`
	HighRisk   int `json:"highRisk"`
	MediumRisk int `json:"mediumRisk"`
	LowRisk    int `json:"lowRisk"`
}

type RiskReport struct {
	Assessment []CowRisk   `json:"assessment"`
	Summary    RiskSummary `json:"summary"`
}

func (a *Analyzer) HealthRisk(ctx context.Context, cowID string) (*RiskReport, error) {
	readings, err := a.window(ctx, time.Time{}, cowID)
	if err != nil {
		return nil, err
	}
	return AssessRisk(readings), nil
}

// AssessRisk scores every cow over its whole history, riskiest first.
func AssessRisk(readings []data.Reading) *RiskReport {
	groups, ids := byCow(readings)
	report := &RiskReport{Assessment: make([]CowRisk, 0, len(ids))}
	for _, id := range ids {
		var temp, motion series
		sick := 0
		latest := groups[id][0]
		for _, r := range groups[id] {
			temp.add(r.Temperature)
			motion.add(r.MotionChange)
			if r.Disease != data.DiseaseNormal {
				sick++
			}
			if r.Timestamp.After(latest.Timestamp) {
				latest = r
			}
		}

		score := RiskScore(temp.avg(), motion.avg(), sick)
		level := "Low"
		switch {
		case score >= highRiskScore:
			level = "High"
			report.Summary.HighRisk++
		case score >= mediumRiskScore:
			level = "Medium"
			report.Summary.MediumRisk++
		default:
			report.Summary.LowRisk++
		}

		report.Assessment = append(report.Assessment, CowRisk{
			CowID:        id,
			LatestData:   latest,
			RiskScore:    score,
			RiskLevel:    level,
			AvgTemp:      round2(temp.avg()),
			MaxTemp:      temp.max,
			MinTemp:      temp.min,
			AvgMotion:    round2(motion.avg()),
			TotalRecords: len(groups[id]),
		})
	}
	report.Summary.TotalCows = len(report.Assessment)
	sort.SliceStable(report.Assessment, func(i, j int) bool {
		return report.Assessment[i].RiskScore > report.Assessment[j].RiskScore
	})
	return report
}

// RiskScore adds temperature (up to 40), motion (up to 20) and illness history points.
// Every non-Normal reading adds 5, capped at 40.
func RiskScore(avgTemp, avgMotion float64, sickReadings int) int {
	score := 0
	switch {
	case avgTemp > 40:
		score += 40
	case avgTemp > 38:
		score += 20
	case avgTemp < 35:
		score += 30
	}
	switch {
	case avgMotion < 10:
		score += 20
	case avgMotion > 100:
		score += 10
	}
	return score + min(sickReadings*5, maxDiseaseScore)
}
