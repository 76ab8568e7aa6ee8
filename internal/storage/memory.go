// internal/storage/memory.go
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

const DefaultMemoryCapacity = 10000 // readings kept by the in-memory backend

// MemoryStore keeps readings in a bounded ring buffer and alerts in an unbounded slice.
// Used for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	readings []data.Reading
	alerts   []data.Alert
	capacity int
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{
		readings: make([]data.Reading, 0, min(capacity, 1024)),
		capacity: capacity,
	}
}

func (s *MemoryStore) InsertReading(_ context.Context, r *data.Reading) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.readings) >= s.capacity {
		// Remove the oldest element
		s.readings = s.readings[1:]
	}
	s.readings = append(s.readings, *r)
	return nil
}

func (s *MemoryStore) ListReadings(_ context.Context, f ReadingFilter) ([]data.Reading, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []data.Reading{}
	for i := len(s.readings) - 1; i >= 0; i-- {
		if f.matches(&s.readings[i]) {
			matched = append(matched, s.readings[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	start, end := page(len(matched), f.Offset, f.Limit)
	// Return a copy to avoid race conditions if the caller modifies it
	result := make([]data.Reading, end-start)
	copy(result, matched[start:end])
	return result, int64(len(matched)), nil
}

func (s *MemoryStore) LatestReading(ctx context.Context, cowID string) (*data.Reading, error) {
	readings, _, err := s.ListReadings(ctx, ReadingFilter{CowID: cowID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, ErrNotFound
	}
	return &readings[0], nil
}

func (s *MemoryStore) DeleteReadingsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.readings[:0]
	var deleted int64
	for _, r := range s.readings {
		if r.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.readings = kept
	return deleted, nil
}

func (s *MemoryStore) FindLatestAlertForSubjectAndDisease(_ context.Context, cowID string, disease data.Disease) (*data.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *data.Alert
	for i := range s.alerts {
		a := &s.alerts[i]
		if a.Source.CowID != cowID || a.Disease() != disease {
			continue
		}
		// Later insertions win ties on createdAt.
		if latest == nil || !a.CreatedAt.Before(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	found := cloneAlert(*latest)
	return &found, nil
}

func (s *MemoryStore) InsertAlert(_ context.Context, a *data.Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, cloneAlert(*a))
	return nil
}

func (s *MemoryStore) GetAlert(_ context.Context, id string) (*data.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	found := cloneAlert(s.alerts[i])
	return &found, nil
}

func (s *MemoryStore) UpdateAlert(_ context.Context, a *data.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(a.ID)
	if i < 0 {
		return ErrNotFound
	}
	s.alerts[i] = cloneAlert(*a)
	return nil
}

func (s *MemoryStore) ListAlerts(_ context.Context, f AlertFilter) ([]data.Alert, int64, error) {
	s.mu.RLock()
	matched := []data.Alert{}
	for i := range s.alerts {
		if f.matches(&s.alerts[i]) {
			matched = append(matched, cloneAlert(s.alerts[i]))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if f.Sort == SortPriority && matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start, end := page(len(matched), f.Offset, f.Limit)
	return matched[start:end], int64(len(matched)), nil
}

func (s *MemoryStore) DeleteResolvedAlertsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	return s.deleteAlerts(func(a *data.Alert) bool {
		return a.Status == data.StatusResolved && a.CreatedAt.Before(cutoff)
	}), nil
}

func (s *MemoryStore) DeleteExpiredAlerts(_ context.Context, now time.Time) (int64, error) {
	return s.deleteAlerts(func(a *data.Alert) bool {
		return a.ExpiresAt != nil && a.ExpiresAt.Before(now)
	}), nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }

func (s *MemoryStore) deleteAlerts(drop func(*data.Alert) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.alerts[:0]
	var deleted int64
	for i := range s.alerts {
		if drop(&s.alerts[i]) {
			deleted++
			continue
		}
		kept = append(kept, s.alerts[i])
	}
	s.alerts = kept
	return deleted
}

// indexOf must be called with s.mu held.
func (s *MemoryStore) indexOf(id string) int {
	for i := range s.alerts {
		if s.alerts[i].ID == id || s.alerts[i].AlertID == id {
			return i
		}
	}
	return -1
}

// cloneAlert copies the slices and maps of an alert so callers cannot mutate stored state.
func cloneAlert(a data.Alert) data.Alert {
	if a.Actions != nil {
		a.Actions = append([]data.AlertAction{}, a.Actions...)
	}
	if a.Tags != nil {
		a.Tags = append([]string{}, a.Tags...)
	}
	if a.Data.CustomData != nil {
		custom := make(map[string]interface{}, len(a.Data.CustomData))
		for k, v := range a.Data.CustomData {
			custom[k] = v
		}
		a.Data.CustomData = custom
	}
	return a
}
