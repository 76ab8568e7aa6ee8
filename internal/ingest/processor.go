// Package ingest runs a sensor reading through classification, anomaly detection,
// persistence and alerting.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mdobak/go-xerrors"

	"github.com/pateldhruv64/cow-belt-final/internal/alerting"
	"github.com/pateldhruv64/cow-belt-final/internal/anomaly"
	"github.com/pateldhruv64/cow-belt-final/internal/data"
	"github.com/pateldhruv64/cow-belt-final/internal/health"
	"github.com/pateldhruv64/cow-belt-final/internal/storage"
)

// Broadcaster pushes stored readings to live viewers.
type Broadcaster interface {
	BroadcastReading(r data.Reading)
}

// Result is what a caller gets back for one reading.
type Result struct {
	health.Prediction
	Anomalies []data.Anomaly `json:"anomalies"`
	Insights  []data.Insight `json:"insights"`

	Reading *data.Reading `json:"-"`
	Alerts  []data.Alert  `json:"-"`
}

type Processor struct {
	predictor   *health.Predictor
	detector    *anomaly.Detector
	readings    storage.ReadingStore
	alerter     *alerting.Alerter
	broadcaster Broadcaster
}

func NewProcessor(predictor *health.Predictor, detector *anomaly.Detector, readings storage.ReadingStore,
	alerter *alerting.Alerter, broadcaster Broadcaster) *Processor {
	return &Processor{
		predictor:   predictor,
		detector:    detector,
		readings:    readings,
		alerter:     alerter,
		broadcaster: broadcaster,
	}
}

// Classify computes the prediction, anomalies and insights without touching any store.
func (p *Processor) Classify(r data.SensorReading) *Result {
	return &Result{
		Prediction: p.predictor.Predict(r),
		Anomalies:  p.detector.Check(r),
		Insights:   health.InsightsFor(r),
	}
}

// Process classifies r, stores it with the derived fields and writes any alerts.
//
// The classification is always returned for a reading with a cowId. Storage and alerting
// failures do not stop each other and come back joined in the error.
func (p *Processor) Process(ctx context.Context, r data.SensorReading) (*Result, error) {
	if r.CowID == "" {
		return nil, data.ErrMissingCowID
	}

	res := p.Classify(r)
	var errs []error

	stored := NewReading(r, res.Prediction, res.Anomalies)
	if err := p.readings.InsertReading(ctx, stored); err != nil {
		errs = append(errs, fmt.Errorf("store reading: %w", err))
	} else {
		res.Reading = stored
		if p.broadcaster != nil {
			p.broadcaster.BroadcastReading(*stored)
		}
	}

	alerts, err := p.alerter.Process(ctx, r, res.Prediction, res.Anomalies)
	res.Alerts = alerts
	if err != nil {
		errs = append(errs, fmt.Errorf("write alerts: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		slog.Error("reading processed with errors", slog.String("cowId", r.CowID), slog.Any("error", xerrors.New(err)))
		return res, err
	}

	slog.Debug("reading processed", slog.String("cowId", r.CowID), slog.String("disease", string(res.Disease)),
		slog.String("riskLevel", string(res.RiskLevel)), slog.Int("anomalies", len(res.Anomalies)),
		slog.Int("alerts", len(alerts)))
	return res, nil
}

// NewReading folds a prediction into the persisted form of a reading.
func NewReading(r data.SensorReading, p health.Prediction, anomalies []data.Anomaly) *data.Reading {
	return &data.Reading{
		CowID:        r.CowID,
		Temperature:  r.Temperature,
		MotionChange: r.MotionChange,
		Pitch:        r.Pitch,
		Roll:         r.Roll,
		Humidity:     r.Humidity,
		Disease:      p.Disease,
		HealthScore:  p.Confidence * 100,
		RiskLevel:    p.RiskLevel,
		DeviceInfo: data.DeviceInfo{
			DeviceID:     r.DeviceID,
			BatteryLevel: r.BatteryLevel,
		},
		DataQuality: data.DataQuality{
			IsValid:    p.Confidence > 0.5,
			Confidence: p.Confidence,
			Anomalies:  anomaly.Types(anomalies),
		},
		Timestamp: r.Timestamp,
	}
}
