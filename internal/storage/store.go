// internal/storage/store.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

var ErrNotFound = errors.New("not found")

// ReadingFilter selects stored readings. Zero values mean "no constraint"; a zero Limit
// returns everything that matches.
type ReadingFilter struct {
	CowID  string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// AlertSort picks the ordering of ListAlerts.
type AlertSort int

const (
	// SortNewest orders by createdAt descending.
	SortNewest AlertSort = iota
	// SortPriority orders by priority descending, then createdAt descending.
	SortPriority
)

// AlertFilter selects stored alerts. Zero values mean "no constraint".
type AlertFilter struct {
	Status        data.AlertStatus
	ExcludeStatus data.AlertStatus
	Severity      data.Severity
	Type          data.AlertType
	CowID         string
	CreatedAfter  time.Time
	Sort          AlertSort
	Limit         int
	Offset        int
}

type ReadingStore interface {
	// InsertReading persists r and assigns its ID when empty.
	InsertReading(ctx context.Context, r *data.Reading) error
	// ListReadings returns matching readings newest first and the total match count.
	ListReadings(ctx context.Context, f ReadingFilter) ([]data.Reading, int64, error)
	// LatestReading returns the newest reading of a cow or ErrNotFound.
	LatestReading(ctx context.Context, cowID string) (*data.Reading, error)
	DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type AlertStore interface {
	// FindLatestAlertForSubjectAndDisease returns the most recently created alert for the cow
	// whose custom data carries the disease label, or ErrNotFound.
	FindLatestAlertForSubjectAndDisease(ctx context.Context, cowID string, disease data.Disease) (*data.Alert, error)
	// InsertAlert persists a and assigns its ID and creation time when unset.
	InsertAlert(ctx context.Context, a *data.Alert) error
	// GetAlert looks an alert up by ID or by its ALERT-... identifier.
	GetAlert(ctx context.Context, id string) (*data.Alert, error)
	// UpdateAlert replaces a stored alert, or returns ErrNotFound.
	UpdateAlert(ctx context.Context, a *data.Alert) error
	// ListAlerts returns matching alerts and the total match count.
	ListAlerts(ctx context.Context, f AlertFilter) ([]data.Alert, int64, error)
	// DeleteResolvedAlertsBefore removes Resolved alerts created before cutoff.
	DeleteResolvedAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// DeleteExpiredAlerts removes alerts whose expiresAt is before now.
	DeleteExpiredAlerts(ctx context.Context, now time.Time) (int64, error)
}

// Store is a complete persistence backend.
type Store interface {
	ReadingStore
	AlertStore
	Close(ctx context.Context) error
}

func (f AlertFilter) matches(a *data.Alert) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.ExcludeStatus != "" && a.Status == f.ExcludeStatus {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.CowID != "" && a.Source.CowID != f.CowID {
		return false
	}
	if !f.CreatedAfter.IsZero() && a.CreatedAt.Before(f.CreatedAfter) {
		return false
	}
	return true
}

func (f ReadingFilter) matches(r *data.Reading) bool {
	if f.CowID != "" && r.CowID != f.CowID {
		return false
	}
	if !f.From.IsZero() && r.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.Timestamp.After(f.To) {
		return false
	}
	return true
}

// page applies offset and limit to n items and returns the resulting bounds.
func page(n, offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}
