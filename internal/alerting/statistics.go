// internal/alerting/statistics.go
package alerting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
	"github.com/pateldhruv64/cow-belt-final/internal/storage"
)

type Overview struct {
	TotalAlerts        int     `json:"totalAlerts"`
	ActiveAlerts       int     `json:"activeAlerts"`
	AcknowledgedAlerts int     `json:"acknowledgedAlerts"`
	ResolvedAlerts     int     `json:"resolvedAlerts"`
	EscalatedAlerts    int     `json:"escalatedAlerts"`
	DismissedAlerts    int     `json:"dismissedAlerts"`
	CriticalAlerts     int     `json:"criticalAlerts"`
	HighPriorityAlerts int     `json:"highPriorityAlerts"`
	AvgResolutionTime  float64 `json:"avgResolutionTime"`
}

// Bucket is one group of a count-by breakdown.
type Bucket struct {
	ID    string `json:"_id"`
	Count int    `json:"count"`
}

type Statistics struct {
	Period     string    `json:"period"`
	Overview   Overview  `json:"overview"`
	ByType     []Bucket  `json:"byType"`
	BySeverity []Bucket  `json:"bySeverity"`
	Timestamp  time.Time `json:"timestamp"`
}

// Statistics summarises the alerts created in the last days days.
func (a *Alerter) Statistics(ctx context.Context, days int) (*Statistics, error) {
	now := a.now()
	alerts, _, err := a.store.ListAlerts(ctx, storage.AlertFilter{CreatedAfter: now.AddDate(0, 0, -days)})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	stats := Summarize(alerts)
	stats.Period = fmt.Sprintf("%d days", days)
	stats.Timestamp = now
	return stats, nil
}

// Summarize counts alerts by status, type and severity and averages the resolution time
// over the alerts that have one.
func Summarize(alerts []data.Alert) *Statistics {
	var o Overview
	byType := map[string]int{}
	bySeverity := map[string]int{}
	resolutionTotal, resolutionCount := 0, 0

	for _, alert := range alerts {
		o.TotalAlerts++
		switch alert.Status {
		case data.StatusActive:
			o.ActiveAlerts++
		case data.StatusAcknowledged:
			o.AcknowledgedAlerts++
		case data.StatusResolved:
			o.ResolvedAlerts++
		case data.StatusEscalated:
			o.EscalatedAlerts++
		case data.StatusDismissed:
			o.DismissedAlerts++
		}
		switch alert.Severity {
		case data.SeverityCritical:
			o.CriticalAlerts++
		case data.SeverityHigh:
			o.HighPriorityAlerts++
		}
		if rt := alert.Resolution.ResolutionTime; rt != nil {
			resolutionTotal += *rt
			resolutionCount++
		}
		byType[string(alert.Type)]++
		bySeverity[string(alert.Severity)]++
	}
	if resolutionCount > 0 {
		o.AvgResolutionTime = float64(resolutionTotal) / float64(resolutionCount)
	}

	return &Statistics{
		Overview:   o,
		ByType:     buckets(byType),
		BySeverity: buckets(bySeverity),
	}
}

// buckets orders groups by count descending, then name.
func buckets(counts map[string]int) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for id, n := range counts {
		out = append(out, Bucket{ID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ID < out[j].ID
	})
	return out
}
