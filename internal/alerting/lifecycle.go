// internal/alerting/lifecycle.go
package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

// Acknowledge marks an Active alert as seen by actor.
func (a *Alerter) Acknowledge(ctx context.Context, id, actor, note string) (*data.Alert, error) {
	return a.transition(ctx, id, "acknowledge", func(alert *data.Alert, now time.Time) error {
		return alert.Acknowledge(actor, note, now)
	})
}

// Resolve closes an open alert.
func (a *Alerter) Resolve(ctx context.Context, id, actor, note string) (*data.Alert, error) {
	return a.transition(ctx, id, "resolve", func(alert *data.Alert, now time.Time) error {
		return alert.Resolve(actor, note, now)
	})
}

// Escalate hands an alert over to target.
func (a *Alerter) Escalate(ctx context.Context, id, target, reason string) (*data.Alert, error) {
	return a.transition(ctx, id, "escalate", func(alert *data.Alert, now time.Time) error {
		return alert.Escalate(target, reason, now)
	})
}

// Dismiss closes an open alert without resolving it.
func (a *Alerter) Dismiss(ctx context.Context, id, actor, note string) (*data.Alert, error) {
	return a.transition(ctx, id, "dismiss", func(alert *data.Alert, now time.Time) error {
		return alert.Dismiss(actor, note, now)
	})
}

// Get returns one alert by ID or alertId.
func (a *Alerter) Get(ctx context.Context, id string) (*data.Alert, error) {
	return a.store.GetAlert(ctx, id)
}

func (a *Alerter) transition(ctx context.Context, id, action string, apply func(*data.Alert, time.Time) error) (*data.Alert, error) {
	alert, err := a.store.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(alert, a.now()); err != nil {
		return nil, err
	}
	if err := a.store.UpdateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("%s alert %s: %w", action, id, err)
	}
	slog.Info("alert updated", slog.String("alertId", alert.AlertID), slog.String("action", action),
		slog.String("status", string(alert.Status)))
	return alert, nil
}
