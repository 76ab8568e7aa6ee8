package api

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	gwebsocket "github.com/gorilla/websocket" // Alias to avoid name conflict
	"github.com/mdobak/go-xerrors"

	"github.com/pateldhruv64/cow-belt-final/internal/alerting"
	"github.com/pateldhruv64/cow-belt-final/internal/analytics"
	"github.com/pateldhruv64/cow-belt-final/internal/anomaly"
	"github.com/pateldhruv64/cow-belt-final/internal/auth"
	"github.com/pateldhruv64/cow-belt-final/internal/ingest"
	"github.com/pateldhruv64/cow-belt-final/internal/storage"
	"github.com/pateldhruv64/cow-belt-final/internal/websocket"
)

const historySize = 50

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // Dashboard may be served from another port.
}

// Deps are the services the handlers sit on.
type Deps struct {
	Processor *ingest.Processor
	Store     storage.Store
	Alerter   *alerting.Alerter
	Analyzer  *analytics.Analyzer
	Hub       *websocket.Hub
	Auth      *auth.Manager
	WebDir    string
}

type APIHandler struct {
	processor *ingest.Processor
	store     storage.Store
	alerter   *alerting.Alerter
	analyzer  *analytics.Analyzer
	hub       *websocket.Hub
	auth      *auth.Manager
	tmpl      *template.Template
	webDir    string
	now       func() time.Time
}

// NewAPIHandler parses the dashboard templates under WebDir and returns the handlers.
func NewAPIHandler(d Deps) (*APIHandler, error) {
	tmplPath := filepath.Join(d.WebDir, "templates", "*.html")
	tmpl, err := template.ParseGlob(tmplPath)
	if err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", tmplPath, err)
	}

	authManager := d.Auth
	if authManager == nil {
		authManager = auth.NewManager(auth.Config{})
	}
	analyzer := d.Analyzer
	if analyzer == nil {
		analyzer = analytics.NewAnalyzer(d.Store, anomaly.NewDetector(anomaly.DefaultThresholds()))
	}

	return &APIHandler{
		processor: d.Processor,
		store:     d.Store,
		alerter:   d.Alerter,
		analyzer:  analyzer,
		hub:       d.Hub,
		auth:      authManager,
		tmpl:      tmpl,
		webDir:    d.WebDir,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// HandleWebSocket upgrades the connection, sends recent readings and registers the client.
func (h *APIHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", xerrors.New(err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	history, _, err := h.store.ListReadings(ctx, storage.ReadingFilter{Limit: historySize})
	if err != nil {
		slog.Error("failed to load websocket history", slog.Any("error", xerrors.New(err)))
	}

	var initial []websocket.Message
	if len(history) > 0 {
		initial = append(initial, websocket.Message{Type: websocket.TypeHistory, Payload: history})
	}
	h.hub.Attach(conn, initial...)
	slog.Debug("websocket connection established", slog.String("remote", conn.RemoteAddr().String()))
}

// ServeWebUI serves the dashboard shell.
func (h *APIHandler) ServeWebUI(w http.ResponseWriter, r *http.Request) {
	if err := h.tmpl.ExecuteTemplate(w, "index.html", nil); err != nil {
		slog.Error("failed to render dashboard", slog.Any("error", xerrors.New(err)))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleLogin exchanges configured operator credentials for a JWT.
func (h *APIHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// HandleHealth reports liveness.
func (h *APIHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "timestamp": h.now()})
}
