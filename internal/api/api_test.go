package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pateldhruv64/cow-belt-final/internal/alerting"
	"github.com/pateldhruv64/cow-belt-final/internal/analytics"
	"github.com/pateldhruv64/cow-belt-final/internal/anomaly"
	"github.com/pateldhruv64/cow-belt-final/internal/auth"
	"github.com/pateldhruv64/cow-belt-final/internal/data"
	"github.com/pateldhruv64/cow-belt-final/internal/health"
	"github.com/pateldhruv64/cow-belt-final/internal/ingest"
	"github.com/pateldhruv64/cow-belt-final/internal/storage"
	"github.com/pateldhruv64/cow-belt-final/internal/websocket"
)

type testServer struct {
	data  http.Handler
	ui    http.Handler
	store *storage.MemoryStore
	auth  *auth.Manager
}

func newTestServer(t *testing.T, authCfg auth.Config) *testServer {
	t.Helper()

	webDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(webDir, "templates"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(webDir, "templates", "index.html"), []byte(`<h1>Cow Belt Monitor</h1>`), 0o600))

	store := storage.NewMemoryStore(0)
	hub := websocket.NewHub()
	alerter := alerting.NewAlerter(store)
	detector := anomaly.NewDetector(anomaly.DefaultThresholds())
	processor := ingest.NewProcessor(health.NewPredictor(), detector, store, alerter, hub)
	authManager := auth.NewManager(authCfg)

	h, err := NewAPIHandler(Deps{
		Processor: processor,
		Store:     store,
		Alerter:   alerter,
		Analyzer:  analytics.NewAnalyzer(store, detector),
		Hub:       hub,
		Auth:      authManager,
		WebDir:    webDir,
	})
	require.NoError(t, err)

	return &testServer{data: SetupDataRouter(h), ui: SetupUIRouter(h), store: store, auth: authManager}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.data.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestIngestReading(t *testing.T) {
	s := newTestServer(t, auth.Config{})

	rec, out := s.do(t, http.MethodPost, "/api/cow/data",
		`{"cowId":"C1","temperature":41.8,"motionChange":220,"pitch":5,"roll":5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "Data saved successfully", out["message"])
	assert.Equal(t, "Heat / High Fever", out["disease"])
	assert.Equal(t, "Critical", out["riskLevel"])
	assert.Equal(t, health.Algorithm, out["algorithm"])
	assert.Equal(t, "low", out["orientation"])
	assert.NotEmpty(t, out["anomalies"])
	assert.NotEmpty(t, out["insights"])
	assert.NotContains(t, out, "errors")

	_, total, err := s.store.ListAlerts(context.Background(), storage.AlertFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}

func TestIngestUnclassifiableReadingStillSaved(t *testing.T) {
	s := newTestServer(t, auth.Config{})

	rec, out := s.do(t, http.MethodPost, "/api/cow/data", `{"cowId":"C1","temperature":"hot","motionChange":20}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Unknown", out["disease"])
	assert.Equal(t, 0.0, out["confidence"])
	assert.Equal(t, "Critical", out["riskLevel"])
}

func TestIngestRejectsBadPayloads(t *testing.T) {
	s := newTestServer(t, auth.Config{})

	rec, _ := s.do(t, http.MethodPost, "/api/cow/data", `{"temperature":38.5,"motionChange":20}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/cow/data", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadingQueries(t *testing.T) {
	s := newTestServer(t, auth.Config{})
	for _, cow := range []string{"C1", "C2", "C1"} {
		rec, _ := s.do(t, http.MethodPost, "/api/cow/data", `{"cowId":"`+cow+`","temperature":38.5,"motionChange":40}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, out := s.do(t, http.MethodGet, "/api/cow/data/all?page=1&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	pagination := out["pagination"].(map[string]any)
	assert.EqualValues(t, 2, pagination["totalPages"])
	assert.EqualValues(t, 3, pagination["totalRecords"])
	assert.Equal(t, true, pagination["hasNext"])
	assert.Len(t, out["data"], 2)

	rec, _ = s.do(t, http.MethodGet, "/api/cow/data/cow/C1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var readings []data.Reading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &readings))
	assert.Len(t, readings, 2)

	rec, _ = s.do(t, http.MethodGet, "/api/cow/data/cow/C9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, out = s.do(t, http.MethodGet, "/api/cow/data/cow/C2/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "C2", out["cowId"])
	assert.Equal(t, "Normal", out["disease"])

	rec, _ = s.do(t, http.MethodGet, "/api/cow/data", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &readings))
	assert.Len(t, readings, 3)

	rec, _ = s.do(t, http.MethodGet, "/api/cow/data/range?startDate=2020-01-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = s.do(t, http.MethodGet, "/api/cow/data/range?startDate=2020-01-01&endDate=2999-01-01&cowId=C1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, out["count"])
	assert.Equal(t, "C1", out["cowId"])

	rec, out = s.do(t, http.MethodDelete, "/api/cow/data/cleanup?days=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, out["deletedCount"])
}

func TestAnalyticsEndpoints(t *testing.T) {
	s := newTestServer(t, auth.Config{})
	for _, body := range []string{
		`{"cowId":"C1","temperature":41.8,"motionChange":220,"pitch":5,"roll":5}`,
		`{"cowId":"C2","temperature":38.5,"motionChange":40}`,
		`{"cowId":"C3","temperature":39.6,"motionChange":8}`,
	} {
		rec, _ := s.do(t, http.MethodPost, "/api/cow/data", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec, out := s.do(t, http.MethodGet, "/api/ml/anomalies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "24 hours", out["period"])
	assert.EqualValues(t, 2, out["totalAnomalies"])
	cows := map[string]bool{}
	for _, a := range out["anomalies"].([]any) {
		cows[a.(map[string]any)["cowId"].(string)] = true
	}
	assert.Equal(t, map[string]bool{"C1": true, "C3": true}, cows)

	rec, out = s.do(t, http.MethodGet, "/api/ml/insights?days=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2 days", out["period"])
	assert.EqualValues(t, 2, out["totalInsights"])
	first := out["insights"].([]any)[0].(map[string]any)
	assert.Equal(t, "C3", first["cowId"], "the cow with a critical insight comes first")

	rec, out = s.do(t, http.MethodGet, "/api/ml/performance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, out["metrics"].(map[string]any)["totalPredictions"])
	assert.Equal(t, health.Algorithm, out["performance"].(map[string]any)["algorithm"])

	rec, out = s.do(t, http.MethodGet, "/api/cow/data/statistics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	overview := out["overview"].(map[string]any)
	assert.EqualValues(t, 3, overview["totalRecords"])
	assert.EqualValues(t, 3, overview["totalCows"])
	assert.EqualValues(t, 3, overview["recentActivity24h"])
	assert.Equal(t, []any{"C1", "C2", "C3"}, out["uniqueCows"])
	assert.EqualValues(t, 1, out["health"].(map[string]any)["healthy"])

	rec, out = s.do(t, http.MethodGet, "/api/cow/data/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, out["summary"].(map[string]any)["low"])
	flags := out["alerts"].([]any)
	require.NotEmpty(t, flags)
	assert.Equal(t, "high", flags[0].(map[string]any)["severity"])

	rec, out = s.do(t, http.MethodGet, "/api/analytics/temperature-trends?cowId=C1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7 days", out["period"])
	assert.Equal(t, "C1", out["cowId"])
	assert.NotEmpty(t, out["trends"])

	rec, out = s.do(t, http.MethodGet, "/api/analytics/motion-analysis", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["analysis"], 3)

	rec, out = s.do(t, http.MethodGet, "/api/analytics/hourly-patterns", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, out["hourlyPatterns"])

	rec, out = s.do(t, http.MethodGet, "/api/analytics/disease-distribution", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, out["totalRecords"])

	rec, out = s.do(t, http.MethodGet, "/api/analytics/health-risk?cowId=C2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := out["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["totalCows"])
	assert.EqualValues(t, 1, summary["lowRisk"])
}

func TestClassifyAndHealthAnalysis(t *testing.T) {
	s := newTestServer(t, auth.Config{})

	rec, out := s.do(t, http.MethodPost, "/api/ml/classify", `{"temperature":39.7,"motionChange":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Fever", out["disease"])
	_, total, _ := s.store.ListReadings(context.Background(), storage.ReadingFilter{})
	assert.Zero(t, total, "classify must not persist")

	rec, _ = s.do(t, http.MethodGet, "/api/ml/health-analysis/C1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.do(t, http.MethodPost, "/api/cow/data", `{"cowId":"C1","temperature":38.5,"motionChange":40}`)
	rec, out = s.do(t, http.MethodGet, "/api/ml/health-analysis/C1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, "C1", out["cowId"])
}

func TestAlertLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, auth.Config{})

	rec, _ := s.do(t, http.MethodPost, "/api/alerts", `{"type":"Device","severity":"High","title":"Belt offline"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/alerts", `{"type":"Weather","severity":"High","title":"t","message":"m"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out := s.do(t, http.MethodPost, "/api/alerts",
		`{"type":"Device","severity":"High","cowId":"C1","title":"Belt offline","message":"No data for 2h"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	alert := out["alert"].(map[string]any)
	id := alert["alertId"].(string)
	assert.Equal(t, "No data for 2h", alert["description"])
	assert.Equal(t, "Active", alert["status"])

	rec, out = s.do(t, http.MethodGet, "/api/alerts/active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, out["count"])

	rec, _ = s.do(t, http.MethodPut, "/api/alerts/"+id+"/acknowledge", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPut, "/api/alerts/ALERT-0-NOPE/acknowledge", `{"acknowledgedBy":"vet"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, out = s.do(t, http.MethodPut, "/api/alerts/"+id+"/acknowledge", `{"acknowledgedBy":"vet","acknowledgmentNote":"on it"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alert acknowledged successfully", out["message"])

	rec, _ = s.do(t, http.MethodPut, "/api/alerts/"+id+"/acknowledge", `{"acknowledgedBy":"vet"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, http.MethodPut, "/api/alerts/"+id+"/escalate", `{"escalationReason":"no target"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = s.do(t, http.MethodPut, "/api/alerts/"+id+"/escalate", `{"escalatedTo":"district-vet"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "escalation reason is required", out["error"])

	rec, out = s.do(t, http.MethodPut, "/api/alerts/"+id+"/resolve", `{"resolvedBy":"vet"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Resolved", out["alert"].(map[string]any)["status"])

	rec, _ = s.do(t, http.MethodPut, "/api/alerts/"+id+"/dismiss", `{"dismissedBy":"vet"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, out = s.do(t, http.MethodGet, "/api/alerts/statistics?days=7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7 days", out["period"])
	overview := out["overview"].(map[string]any)
	assert.EqualValues(t, 1, overview["totalAlerts"])
	assert.EqualValues(t, 1, overview["resolvedAlerts"])

	rec, out = s.do(t, http.MethodGet, "/api/alerts?status=Resolved", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["alerts"], 1)

	rec, out = s.do(t, http.MethodDelete, "/api/alerts/cleanup?days=90", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, out["deletedCount"])
}

func TestCriticalAlertsExcludeResolved(t *testing.T) {
	s := newTestServer(t, auth.Config{})
	s.do(t, http.MethodPost, "/api/cow/data", `{"cowId":"C1","temperature":41.8,"motionChange":220}`)

	rec, out := s.do(t, http.MethodGet, "/api/alerts/critical", "")
	require.Equal(t, http.StatusOK, rec.Code)
	critical := out["criticalAlerts"].([]any)
	require.NotEmpty(t, critical)

	id := critical[0].(map[string]any)["id"].(string)
	rec, _ = s.do(t, http.MethodPut, "/api/alerts/"+id+"/resolve", `{"resolvedBy":"vet"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	_, out = s.do(t, http.MethodGet, "/api/alerts/critical", "")
	assert.EqualValues(t, len(critical)-1, out["count"])
}

func TestAuthenticatedRoutes(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("moo"), bcrypt.MinCost)
	require.NoError(t, err)
	s := newTestServer(t, auth.Config{
		Enabled:   true,
		JWTSecret: "secret",
		APIKeys:   []string{"belt-key"},
		Users:     []auth.User{{Username: "vet", PasswordHash: string(hash), Role: "operator"}},
	})

	body := `{"cowId":"C1","temperature":41.8,"motionChange":220}`
	rec, _ := s.do(t, http.MethodPost, "/api/cow/data", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/api/cow/data", body, "X-API-Key", "belt-key")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/login", `{"username":"vet","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, out := s.do(t, http.MethodPost, "/api/auth/login", `{"username":"vet","password":"moo"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token := out["token"].(string)

	alerts, _, err := s.store.ListAlerts(context.Background(), storage.AlertFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, alerts)
	path := "/api/alerts/" + alerts[0].AlertID + "/acknowledge"

	rec, _ = s.do(t, http.MethodPut, path, `{"acknowledgedBy":"someone"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out = s.do(t, http.MethodPut, path, "", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ack := out["alert"].(map[string]any)["acknowledgment"].(map[string]any)
	assert.Equal(t, "vet", ack["acknowledgedBy"])

	// Reads stay open.
	rec, _ = s.do(t, http.MethodGet, "/api/alerts", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t, auth.Config{})

	rec := httptest.NewRecorder()
	s.ui.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cow Belt Monitor")

	rec = httptest.NewRecorder()
	s.data.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewAPIHandlerNeedsTemplates(t *testing.T) {
	_, err := NewAPIHandler(Deps{WebDir: t.TempDir()})
	assert.Error(t, err)
}

func TestErrorList(t *testing.T) {
	assert.Nil(t, errorList(nil))
	assert.Equal(t, []string{"x"}, errorList(assertErr("x")))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestQueryPageClampsHugeValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=9223372036854775807&limit=9223372036854775807", nil)
	page, limit, offset := queryPage(req, 20)
	assert.Equal(t, maxPage, page)
	assert.Equal(t, maxPageLimit, limit)
	assert.Equal(t, (maxPage-1)*maxPageLimit, offset)

	page, limit, offset = queryPage(httptest.NewRequest(http.MethodGet, "/?page=-3", nil), 20)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)
	assert.Zero(t, offset)
}

func TestHugePageReturnsEmptyPage(t *testing.T) {
	s := newTestServer(t, auth.Config{})
	rec, _ := s.do(t, http.MethodPost, "/api/cow/data", `{"cowId":"C1","temperature":38.5,"motionChange":40}`)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, path := range []string{
		"/api/cow/data/all?page=9223372036854775807&limit=20",
		"/api/alerts?page=9223372036854775807&limit=9223372036854775807",
	} {
		rec, out := s.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		pagination := out["pagination"].(map[string]any)
		assert.EqualValues(t, maxPage, pagination["currentPage"], path)
		assert.Equal(t, false, pagination["hasNext"], path)
	}
}
