package alerting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
	"github.com/pateldhruv64/cow-belt-final/internal/health"
	"github.com/pateldhruv64/cow-belt-final/internal/storage"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingSink struct {
	mu     sync.Mutex
	alerts []data.Alert
}

func (s *recordingSink) AlertCreated(_ context.Context, a data.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

type failingStore struct {
	*storage.MemoryStore
	findErr   error
	insertErr error
}

func (f *failingStore) FindLatestAlertForSubjectAndDisease(ctx context.Context, cowID string, disease data.Disease) (*data.Alert, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.MemoryStore.FindLatestAlertForSubjectAndDisease(ctx, cowID, disease)
}

func (f *failingStore) InsertAlert(ctx context.Context, a *data.Alert) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	return f.MemoryStore.InsertAlert(ctx, a)
}

func newTestAlerter(store storage.AlertStore, sinks ...Sink) *Alerter {
	a := NewAlerter(store, sinks...)
	a.now = func() time.Time { return fixedNow }
	return a
}

func sensor(cowID string, t, m float64) data.SensorReading {
	return data.SensorReading{CowID: cowID, Temperature: data.Float(t), MotionChange: data.Float(m)}
}

func prediction(disease data.Disease, risk data.RiskLevel, confidence float64) health.Prediction {
	return health.Prediction{Disease: disease, RiskLevel: risk, Confidence: confidence, Algorithm: health.Algorithm}
}

func allAlerts(t *testing.T, s storage.AlertStore) []data.Alert {
	t.Helper()
	alerts, _, err := s.ListAlerts(context.Background(), storage.AlertFilter{})
	require.NoError(t, err)
	return alerts
}

func TestProcessHealthDeduplicatesRepeatedAlert(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(0)
	a := newTestAlerter(store)
	r := sensor("C1", 41.8, 220)
	p := prediction(data.DiseaseHighFever, data.RiskCritical, 0.73)

	first, err := a.ProcessHealth(ctx, r, p)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := a.ProcessHealth(ctx, r, p)
	require.NoError(t, err)
	assert.Nil(t, second)

	alerts := allAlerts(t, store)
	require.Len(t, alerts, 1)
	assert.Equal(t, first.ID, alerts[0].ID)
}

func TestProcessHealthAlertContent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(0)
	a := newTestAlerter(store)
	r := sensor("C1", 41.8, 220)
	r.DeviceID = "belt-7"

	created, err := a.ProcessHealth(ctx, r, prediction(data.DiseaseHighFever, data.RiskCritical, 0.5))
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, data.AlertHealth, created.Type)
	assert.Equal(t, data.SeverityCritical, created.Severity)
	assert.Equal(t, data.StatusActive, created.Status)
	assert.Equal(t, "C1", created.Source.CowID)
	assert.Equal(t, "belt-7", created.Source.DeviceID)
	assert.Equal(t, "Health Alert - Cow C1", created.Title)
	assert.Equal(t, "Health issue detected: Heat / High Fever", created.Description)
	assert.Equal(t, created.Description, created.Message)
	assert.Equal(t, 50.0, *created.Data.HealthScore)
	assert.Equal(t, 41.8, *created.Data.Temperature)
	assert.Equal(t, data.DiseaseHighFever, created.Disease())
	assert.Equal(t, 0.5, created.Data.CustomData["confidence"])
	assert.Equal(t, data.DefaultPriority, created.Priority)
	assert.Equal(t, fixedNow, created.CreatedAt)
	assert.Regexp(t, `^ALERT-\d+-[0-9A-Z]{6}$`, created.AlertID)
	assert.Nil(t, created.ExpiresAt)
}

func TestProcessHealthSeverityChangeIsNotDuplicate(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(0)
	a := newTestAlerter(store)
	r := sensor("C1", 40.6, 50)

	_, err := a.ProcessHealth(ctx, r, prediction(data.DiseaseHighFever, data.RiskHigh, 0.8))
	require.NoError(t, err)
	created, err := a.ProcessHealth(ctx, r, prediction(data.DiseaseHighFever, data.RiskCritical, 0.8))
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, data.SeverityCritical, created.Severity)

	// Another cow never deduplicates against C1.
	created, err = a.ProcessHealth(ctx, sensor("C2", 40.6, 50), prediction(data.DiseaseHighFever, data.RiskCritical, 0.8))
	require.NoError(t, err)
	assert.NotNil(t, created)

	assert.Len(t, allAlerts(t, store), 3)
}

func TestProcessHealthDedupAgainstLatestOnly(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(0)
	a := newTestAlerter(store)
	r := sensor("C1", 40.6, 50)
	high := prediction(data.DiseaseHighFever, data.RiskHigh, 0.8)
	critical := prediction(data.DiseaseHighFever, data.RiskCritical, 0.8)

	_, err := a.ProcessHealth(ctx, r, high)
	require.NoError(t, err)
	a.now = func() time.Time { return fixedNow.Add(time.Minute) }
	_, err = a.ProcessHealth(ctx, r, critical)
	require.NoError(t, err)
	a.now = func() time.Time { return fixedNow.Add(2 * time.Minute) }
	created, err := a.ProcessHealth(ctx, r, high)
	require.NoError(t, err)
	assert.NotNil(t, created, "latest alert is Critical, so a High alert is new")

	assert.Len(t, allAlerts(t, store), 3)
}

func TestProcessHealthIgnoresLowRisk(t *testing.T) {
	store := storage.NewMemoryStore(0)
	a := newTestAlerter(store)

	for _, risk := range []data.RiskLevel{data.RiskLow, data.RiskMedium} {
		created, err := a.ProcessHealth(context.Background(), sensor("C1", 39.6, 50), prediction(data.DiseaseFever, risk, 0.9))
		require.NoError(t, err)
		assert.Nil(t, created)
	}
	assert.Empty(t, allAlerts(t, store))
}

func TestProcessHealthUnknownReadingRaisesCriticalAlert(t *testing.T) {
	store := storage.NewMemoryStore(0)
	a := newTestAlerter(store)

	p := health.NewPredictor().Predict(sensor("C1", 50, 20))
	created, err := a.ProcessHealth(context.Background(), sensor("C1", 50, 20), p)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, data.SeverityCritical, created.Severity)
	assert.Equal(t, "Health issue detected: Unknown", created.Message)
}

func TestProcessHealthStoreFailures(t *testing.T) {
	boom := errors.New("boom")

	store := &failingStore{MemoryStore: storage.NewMemoryStore(0), findErr: boom}
	_, err := newTestAlerter(store).ProcessHealth(context.Background(), sensor("C1", 42, 50), prediction(data.DiseaseHighFever, data.RiskCritical, 0.9))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, allAlerts(t, store))

	store = &failingStore{MemoryStore: storage.NewMemoryStore(0), insertErr: boom}
	_, err = newTestAlerter(store).ProcessHealth(context.Background(), sensor("C1", 42, 50), prediction(data.DiseaseHighFever, data.RiskCritical, 0.9))
	assert.ErrorIs(t, err, boom)
}

func TestProcessAnomaliesWritesHighAndCriticalWithoutDedup(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(0)
	a := newTestAlerter(store)
	r := sensor("C1", 41.8, 220)
	anomalies := []data.Anomaly{
		{Type: data.AnomalyTemperatureSpike, Severity: data.AnomalyCritical, Message: "Critical temperature spike detected", Value: data.Float(41.8)},
		{Type: data.AnomalyMotion, Severity: data.AnomalyMedium, Message: "Unusual activity pattern detected", Value: data.Float(220)},
		{Type: data.AnomalyDataInconsistency, Severity: data.AnomalyCritical, Message: "Critical condition: Extreme temperature and activity",
			Values: &data.ValuePair{Temperature: 41.8, Motion: 220}},
	}

	created, err := a.ProcessAnomalies(ctx, r, anomalies)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, data.AlertTemperature, created[0].Type)
	assert.Equal(t, data.SeverityCritical, created[0].Severity)
	assert.Equal(t, "Anomaly Alert - Cow C1", created[0].Title)
	assert.Equal(t, "Critical temperature spike detected", created[0].Message)
	assert.Equal(t, 41.8, created[0].Data.CustomData["value"])
	assert.Equal(t, data.AlertMotion, created[1].Type)
	assert.Contains(t, created[1].Data.CustomData, "values")

	created, err = a.ProcessAnomalies(ctx, r, anomalies)
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Len(t, allAlerts(t, store), 4)
}

func TestAnomalyAlertType(t *testing.T) {
	r := sensor("C1", 38, 300)
	assert.Equal(t, data.AlertTemperature, AnomalyAlert(r, data.Anomaly{Type: data.AnomalyTemperatureDrop, Severity: data.AnomalyCritical}).Type)
	assert.Equal(t, data.AlertMotion, AnomalyAlert(r, data.Anomaly{Type: data.AnomalyMotion, Severity: data.AnomalyHigh}).Type)
	assert.Equal(t, data.SeverityHigh, AnomalyAlert(r, data.Anomaly{Type: data.AnomalyMotion, Severity: data.AnomalyHigh}).Severity)
}

func TestProcessEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(0)
	sink := &recordingSink{}
	a := newTestAlerter(store, sink)

	r := sensor("C1", 41.8, 220)
	r.Pitch, r.Roll = data.Float(5), data.Float(5)
	p := health.NewPredictor().Predict(r)
	anomalies := []data.Anomaly{
		{Type: data.AnomalyTemperatureSpike, Severity: data.AnomalyCritical, Value: data.Float(41.8)},
		{Type: data.AnomalyDataInconsistency, Severity: data.AnomalyCritical, Values: &data.ValuePair{Temperature: 41.8, Motion: 220}},
	}

	created, err := a.Process(ctx, r, p, anomalies)
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, data.AlertHealth, created[0].Type)
	assert.Equal(t, data.SeverityCritical, created[0].Severity)

	a.Wait()
	assert.Equal(t, 3, sink.count())
}

func TestProcessJoinsErrorsAndContinues(t *testing.T) {
	boom := errors.New("boom")
	store := &failingStore{MemoryStore: storage.NewMemoryStore(0), findErr: boom}
	a := newTestAlerter(store)

	created, err := a.Process(context.Background(), sensor("C1", 42, 5),
		prediction(data.DiseaseHighFever, data.RiskCritical, 0.9),
		[]data.Anomaly{{Type: data.AnomalyMotion, Severity: data.AnomalyHigh}})
	assert.ErrorIs(t, err, boom)
	require.Len(t, created, 1)
	assert.Equal(t, data.AlertMotion, created[0].Type)
}

func TestSinkPanicDoesNotEscape(t *testing.T) {
	store := storage.NewMemoryStore(0)
	good := &recordingSink{}
	a := newTestAlerter(store, SinkFunc(func(context.Context, data.Alert) { panic("sink down") }), good)

	_, err := a.ProcessHealth(context.Background(), sensor("C1", 42, 50), prediction(data.DiseaseHighFever, data.RiskCritical, 0.9))
	require.NoError(t, err)
	a.Wait()
	assert.Equal(t, 1, good.count())
}

func TestCreateManualAlert(t *testing.T) {
	store := storage.NewMemoryStore(0)
	a := newTestAlerter(store)

	alert := &data.Alert{
		Type:     data.AlertBattery,
		Severity: data.SeverityLow,
		Title:    "Battery low",
		Message:  "Belt battery under 10%",
		Status:   data.StatusResolved,
	}
	require.NoError(t, a.Create(context.Background(), alert))
	assert.Equal(t, data.StatusActive, alert.Status)
	assert.Equal(t, "Belt battery under 10%", alert.Description)
	require.NotNil(t, alert.ExpiresAt)
	assert.Equal(t, fixedNow.AddDate(0, 0, 30), *alert.ExpiresAt)

	for _, bad := range []*data.Alert{
		{Type: "Weather", Severity: data.SeverityLow, Title: "t", Message: "m"},
		{Type: data.AlertSystem, Severity: "Severe", Title: "t", Message: "m"},
		{Type: data.AlertSystem, Severity: data.SeverityLow, Title: " ", Message: "m"},
		{Type: data.AlertSystem, Severity: data.SeverityLow, Title: "t", Message: "m", Priority: 11},
	} {
		assert.ErrorIs(t, a.Create(context.Background(), bad), ErrInvalidAlert)
	}
	assert.Len(t, allAlerts(t, store), 1)
}
