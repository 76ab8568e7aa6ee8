// Package retention removes old readings and closed alerts on a cron schedule.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/robfig/cron/v3"

	"github.com/pateldhruv64/cow-belt-final/internal/storage"
)

const (
	DefaultSchedule    = "@daily"
	DefaultReadingDays = 30
	DefaultAlertDays   = 90
	sweepTimeout       = 5 * time.Minute
)

// Store is what a sweep deletes from.
type Store interface {
	DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteResolvedAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteExpiredAlerts(ctx context.Context, now time.Time) (int64, error)
}

var _ Store = (storage.Store)(nil)

type Policy struct {
	Schedule    string `mapstructure:"schedule"`
	ReadingDays int    `mapstructure:"reading_days"`
	AlertDays   int    `mapstructure:"alert_days"`
}

// Report counts what one sweep deleted.
type Report struct {
	Readings       int64 `json:"readings"`
	ResolvedAlerts int64 `json:"resolvedAlerts"`
	ExpiredAlerts  int64 `json:"expiredAlerts"`
}

type Janitor struct {
	store  Store
	policy Policy
	now    func() time.Time
	cron   *cron.Cron
}

func NewJanitor(store Store, policy Policy) *Janitor {
	if policy.Schedule == "" {
		policy.Schedule = DefaultSchedule
	}
	if policy.ReadingDays <= 0 {
		policy.ReadingDays = DefaultReadingDays
	}
	if policy.AlertDays <= 0 {
		policy.AlertDays = DefaultAlertDays
	}
	return &Janitor{
		store:  store,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Sweep runs one cleanup pass. Each step runs even if an earlier one failed.
func (j *Janitor) Sweep(ctx context.Context) (Report, error) {
	now := j.now()
	var (
		report Report
		errs   []error
		err    error
	)

	report.Readings, err = j.store.DeleteReadingsBefore(ctx, now.AddDate(0, 0, -j.policy.ReadingDays))
	if err != nil {
		errs = append(errs, fmt.Errorf("delete old readings: %w", err))
	}
	report.ResolvedAlerts, err = j.store.DeleteResolvedAlertsBefore(ctx, now.AddDate(0, 0, -j.policy.AlertDays))
	if err != nil {
		errs = append(errs, fmt.Errorf("delete resolved alerts: %w", err))
	}
	report.ExpiredAlerts, err = j.store.DeleteExpiredAlerts(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete expired alerts: %w", err))
	}

	return report, errors.Join(errs...)
}

// Start schedules Sweep. It fails on an invalid cron expression.
func (j *Janitor) Start() error {
	c := cron.New()
	_, err := c.AddFunc(j.policy.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		report, err := j.Sweep(ctx)
		if err != nil {
			slog.Error("retention sweep failed", slog.Any("error", xerrors.New(err)))
		}
		slog.Info("retention sweep finished",
			slog.Int64("readings", report.Readings),
			slog.Int64("resolvedAlerts", report.ResolvedAlerts),
			slog.Int64("expiredAlerts", report.ExpiredAlerts))
	})
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", j.policy.Schedule, err)
	}
	j.cron = c
	c.Start()
	slog.Info("retention scheduled", slog.String("schedule", j.policy.Schedule),
		slog.Int("readingDays", j.policy.ReadingDays), slog.Int("alertDays", j.policy.AlertDays))
	return nil
}

// Stop halts the scheduler and waits for a running sweep.
func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}
