// internal/alerting/alerter.go
package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
	"github.com/pateldhruv64/cow-belt-final/internal/health"
	"github.com/pateldhruv64/cow-belt-final/internal/storage"
)

var ErrInvalidAlert = errors.New("invalid alert")

// Alerter turns classifications and anomalies into persisted alerts and fans new alerts
// out to the registered sinks.
//
// The health dedup is a plain read-then-write against the store. Two concurrent readings
// for the same cow and disease can both miss the previous alert and write a duplicate;
// sequential traffic always converges to one alert.
type Alerter struct {
	store storage.AlertStore
	sinks []Sink
	now   func() time.Time
	wg    sync.WaitGroup
}

func NewAlerter(store storage.AlertStore, sinks ...Sink) *Alerter {
	return &Alerter{
		store: store,
		sinks: sinks,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// AddSink registers another AlertCreated receiver. Not safe to call while alerts are being processed.
func (a *Alerter) AddSink(s Sink) {
	a.sinks = append(a.sinks, s)
}

// Process runs both alert paths for one reading and returns the alerts that were written.
// A failure in one path does not stop the other; all failures are joined.
func (a *Alerter) Process(ctx context.Context, r data.SensorReading, p health.Prediction, anomalies []data.Anomaly) ([]data.Alert, error) {
	created := []data.Alert{}

	healthAlert, healthErr := a.ProcessHealth(ctx, r, p)
	if healthAlert != nil {
		created = append(created, *healthAlert)
	}

	anomalyAlerts, anomalyErr := a.ProcessAnomalies(ctx, r, anomalies)
	created = append(created, anomalyAlerts...)

	return created, errors.Join(healthErr, anomalyErr)
}

// ProcessHealth writes a health alert for High and Critical predictions unless the latest
// alert for the same cow and disease carries identical severity and texts.
// It returns nil when nothing was written.
func (a *Alerter) ProcessHealth(ctx context.Context, r data.SensorReading, p health.Prediction) (*data.Alert, error) {
	if p.RiskLevel != data.RiskHigh && p.RiskLevel != data.RiskCritical {
		return nil, nil
	}

	candidate := HealthAlert(r, p)

	last, err := a.store.FindLatestAlertForSubjectAndDisease(ctx, r.CowID, p.Disease)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("check duplicate alert: %w", err)
	case IsDuplicate(last, candidate):
		slog.Debug("duplicate health alert skipped", slog.String("cowId", r.CowID),
			slog.String("disease", string(p.Disease)), slog.String("alertId", last.AlertID))
		return nil, nil
	}

	if err := a.insert(ctx, candidate); err != nil {
		return nil, err
	}
	return candidate, nil
}

// ProcessAnomalies writes one alert per high or critical anomaly. No dedup is applied.
func (a *Alerter) ProcessAnomalies(ctx context.Context, r data.SensorReading, anomalies []data.Anomaly) ([]data.Alert, error) {
	created := []data.Alert{}
	var errs []error
	for _, anomaly := range anomalies {
		if anomaly.Severity != data.AnomalyHigh && anomaly.Severity != data.AnomalyCritical {
			continue
		}
		alert := AnomalyAlert(r, anomaly)
		if err := a.insert(ctx, alert); err != nil {
			errs = append(errs, err)
			continue
		}
		created = append(created, *alert)
	}
	return created, errors.Join(errs...)
}

// Create validates and stores a manually raised alert.
func (a *Alerter) Create(ctx context.Context, alert *data.Alert) error {
	if !alert.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAlert, alert.Type)
	}
	if !alert.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidAlert, alert.Severity)
	}
	if strings.TrimSpace(alert.Title) == "" || strings.TrimSpace(alert.Message) == "" {
		return fmt.Errorf("%w: title and message are required", ErrInvalidAlert)
	}
	if alert.Priority < 0 || alert.Priority > 10 {
		return fmt.Errorf("%w: priority must be between 1 and 10", ErrInvalidAlert)
	}
	if alert.Description == "" {
		alert.Description = alert.Message
	}
	// Lifecycle fields are owned by the server.
	alert.ID, alert.AlertID, alert.Status = "", "", ""
	alert.CreatedAt = time.Time{}
	alert.Acknowledgment = data.Acknowledgment{}
	alert.Resolution = data.Resolution{}
	alert.Escalation = data.Escalation{}
	alert.Actions = nil
	return a.insert(ctx, alert)
}

// Wait blocks until every in-flight sink delivery has returned.
func (a *Alerter) Wait() {
	a.wg.Wait()
}

func (a *Alerter) insert(ctx context.Context, alert *data.Alert) error {
	alert.Prepare(a.now())
	if err := a.store.InsertAlert(ctx, alert); err != nil {
		return fmt.Errorf("insert %s alert: %w", alert.Type, err)
	}
	slog.Info("alert created", slog.String("alertId", alert.AlertID), slog.String("type", string(alert.Type)),
		slog.String("severity", string(alert.Severity)), slog.String("cowId", alert.Source.CowID))
	a.notify(ctx, *alert)
	return nil
}

// notify delivers to every sink in its own goroutine. Deliveries outlive the request context.
func (a *Alerter) notify(ctx context.Context, alert data.Alert) {
	detached := context.WithoutCancel(ctx)
	for _, sink := range a.sinks {
		a.wg.Add(1)
		go func(s Sink) {
			defer a.wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("alert sink panicked", slog.String("alertId", alert.AlertID), slog.Any("panic", rec))
				}
			}()
			s.AlertCreated(detached, alert)
		}(sink)
	}
}

// HealthAlert builds the alert a High or Critical prediction would produce.
func HealthAlert(r data.SensorReading, p health.Prediction) *data.Alert {
	severity := data.SeverityHigh
	if p.RiskLevel == data.RiskCritical {
		severity = data.SeverityCritical
	}
	text := fmt.Sprintf("Health issue detected: %s", p.Disease)

	return &data.Alert{
		Type:        data.AlertHealth,
		Severity:    severity,
		Source:      data.AlertSource{CowID: r.CowID, DeviceID: r.DeviceID},
		Title:       fmt.Sprintf("Health Alert - Cow %s", r.CowID),
		Description: text,
		Message:     text,
		Data: data.AlertData{
			Temperature:  r.Temperature,
			MotionChange: r.MotionChange,
			BatteryLevel: r.BatteryLevel,
			HealthScore:  data.Float(p.Confidence * 100),
			CustomData: map[string]interface{}{
				"disease":    string(p.Disease),
				"confidence": p.Confidence,
			},
		},
	}
}

// AnomalyAlert builds the alert for a single anomaly.
func AnomalyAlert(r data.SensorReading, anomaly data.Anomaly) *data.Alert {
	alertType := data.AlertMotion
	if strings.Contains(strings.ToLower(anomaly.Type), "temperature") {
		alertType = data.AlertTemperature
	}
	severity := data.SeverityHigh
	if anomaly.Severity == data.AnomalyCritical {
		severity = data.SeverityCritical
	}

	custom := map[string]interface{}{"anomalyType": anomaly.Type}
	switch {
	case anomaly.Value != nil:
		custom["value"] = *anomaly.Value
	case anomaly.Values != nil:
		custom["values"] = map[string]interface{}{
			"temperature": anomaly.Values.Temperature,
			"motion":      anomaly.Values.Motion,
		}
	}

	return &data.Alert{
		Type:        alertType,
		Severity:    severity,
		Source:      data.AlertSource{CowID: r.CowID, DeviceID: r.DeviceID},
		Title:       fmt.Sprintf("Anomaly Alert - Cow %s", r.CowID),
		Description: anomaly.Message,
		Message:     anomaly.Message,
		Data: data.AlertData{
			Temperature:  r.Temperature,
			MotionChange: r.MotionChange,
			CustomData:   custom,
		},
	}
}

// IsDuplicate reports whether candidate repeats last.
func IsDuplicate(last, candidate *data.Alert) bool {
	return last != nil &&
		last.Severity == candidate.Severity &&
		last.Title == candidate.Title &&
		last.Description == candidate.Description &&
		last.Message == candidate.Message
}
