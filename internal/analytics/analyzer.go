// Package analytics aggregates stored readings into farm-level reports.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pateldhruv64/cow-belt-final/internal/anomaly"
	"github.com/pateldhruv64/cow-belt-final/internal/data"
	"github.com/pateldhruv64/cow-belt-final/internal/storage"
)

// Analyzer loads reading windows from a store and summarises them.
type Analyzer struct {
	readings storage.ReadingStore
	detector *anomaly.Detector
	now      func() time.Time
}

func NewAnalyzer(readings storage.ReadingStore, detector *anomaly.Detector) *Analyzer {
	return &Analyzer{
		readings: readings,
		detector: detector,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// window returns the readings newer than since, newest first. A zero since loads everything.
func (a *Analyzer) window(ctx context.Context, since time.Time, cowID string) ([]data.Reading, error) {
	readings, _, err := a.readings.ListReadings(ctx, storage.ReadingFilter{CowID: cowID, From: since})
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	return readings, nil
}

func (a *Analyzer) since(d time.Duration) time.Time {
	return a.now().Add(-d)
}

// maxWindowDays keeps window durations inside time.Duration range.
const maxWindowDays = 36500

func daysDuration(n int) time.Duration {
	return time.Duration(min(n, maxWindowDays)) * 24 * time.Hour
}

// LatestPerCow keeps the newest reading of every cow, newest first.
func LatestPerCow(readings []data.Reading) []data.Reading {
	latest := map[string]data.Reading{}
	for _, r := range readings {
		if cur, ok := latest[r.CowID]; !ok || r.Timestamp.After(cur.Timestamp) {
			latest[r.CowID] = r
		}
	}

	out := make([]data.Reading, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].CowID < out[j].CowID
	})
	return out
}

// byCow groups readings per cow and returns the cow ids in sorted order.
func byCow(readings []data.Reading) (map[string][]data.Reading, []string) {
	groups := map[string][]data.Reading{}
	for _, r := range readings {
		groups[r.CowID] = append(groups[r.CowID], r)
	}
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return groups, ids
}

// series tracks count, sum, min and max of the present values it is fed.
type series struct {
	n             int
	sum, min, max float64
}

func (s *series) add(v *float64) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return
	}
	if s.n == 0 || *v < s.min {
		s.min = *v
	}
	if s.n == 0 || *v > s.max {
		s.max = *v
	}
	s.n++
	s.sum += *v
}

func (s series) avg() float64 {
	if s.n == 0 {
		return 0
	}
	return s.sum / float64(s.n)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}
