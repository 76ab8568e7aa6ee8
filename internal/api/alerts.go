package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pateldhruv64/cow-belt-final/internal/alerting"
	"github.com/pateldhruv64/cow-belt-final/internal/auth"
	"github.com/pateldhruv64/cow-belt-final/internal/data"
	"github.com/pateldhruv64/cow-belt-final/internal/storage"
)

const (
	defaultAlertLimit  = 50
	defaultActiveLimit = 20
	defaultStatsDays   = 30
	defaultAlertDays   = 90
)

type createAlertRequest struct {
	Type        data.AlertType `json:"type"`
	Severity    data.Severity  `json:"severity"`
	CowID       string         `json:"cowId"`
	DeviceID    string         `json:"deviceId"`
	FarmID      string         `json:"farmId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Message     string         `json:"message"`
	Data        data.AlertData `json:"data"`
	Tags        []string       `json:"tags"`
	Priority    int            `json:"priority"`
}

// HandleCreateAlert stores a manually raised alert.
func (h *APIHandler) HandleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Type == "" || req.Severity == "" || req.Title == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: type, severity, title, message")
		return
	}

	alert := &data.Alert{
		Type:        req.Type,
		Severity:    req.Severity,
		Source:      data.AlertSource{CowID: req.CowID, DeviceID: req.DeviceID, FarmID: req.FarmID},
		Title:       req.Title,
		Description: req.Description,
		Message:     req.Message,
		Data:        req.Data,
		Tags:        req.Tags,
		Priority:    req.Priority,
	}
	if err := h.alerter.Create(r.Context(), alert); err != nil {
		if errors.Is(err, alerting.ErrInvalidAlert) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeInternal(w, r, "failed to create alert", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Alert created successfully", "alert": alert})
}

// HandleListAlerts filters and pages alerts, newest first.
func (h *APIHandler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit, offset := queryPage(r, defaultAlertLimit)

	alerts, total, err := h.store.ListAlerts(r.Context(), storage.AlertFilter{
		Status:   data.AlertStatus(q.Get("status")),
		Severity: data.Severity(q.Get("severity")),
		Type:     data.AlertType(q.Get("type")),
		CowID:    q.Get("cowId"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeInternal(w, r, "failed to load alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts":     alerts,
		"pagination": newPagination(page, limit, total),
	})
}

// HandleActiveAlerts lists Active alerts by priority.
func (h *APIHandler) HandleActiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, _, err := h.store.ListAlerts(r.Context(), storage.AlertFilter{
		Status: data.StatusActive,
		Sort:   storage.SortPriority,
		Limit:  min(queryInt(r, "limit", defaultActiveLimit), maxPageLimit),
	})
	if err != nil {
		writeInternal(w, r, "failed to load alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activeAlerts": alerts,
		"count":        len(alerts),
		"timestamp":    h.now(),
	})
}

// HandleCriticalAlerts lists Critical alerts that are not resolved.
func (h *APIHandler) HandleCriticalAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, _, err := h.store.ListAlerts(r.Context(), storage.AlertFilter{
		Severity:      data.SeverityCritical,
		ExcludeStatus: data.StatusResolved,
	})
	if err != nil {
		writeInternal(w, r, "failed to load alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"criticalAlerts": alerts,
		"count":          len(alerts),
		"timestamp":      h.now(),
	})
}

func (h *APIHandler) HandleAlertStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.alerter.Statistics(r.Context(), queryInt(r, "days", defaultStatsDays))
	if err != nil {
		writeInternal(w, r, "failed to compute alert statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *APIHandler) HandleGetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.alerter.Get(r.Context(), chi.URLParam(r, "alertId"))
	if err != nil {
		h.writeAlertError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// actionRequest carries the body fields of every alert action. Each action reads the
// pair it needs.
type actionRequest struct {
	AcknowledgedBy     string `json:"acknowledgedBy"`
	AcknowledgmentNote string `json:"acknowledgmentNote"`
	ResolvedBy         string `json:"resolvedBy"`
	ResolutionNote     string `json:"resolutionNote"`
	EscalatedTo        string `json:"escalatedTo"`
	EscalationReason   string `json:"escalationReason"`
	DismissedBy        string `json:"dismissedBy"`
	DismissalNote      string `json:"dismissalNote"`
}

type alertAction func(ctx context.Context, id string, req actionRequest, operator string) (*data.Alert, error)

// actor prefers the authenticated operator over the name in the body.
func actor(operator, fromBody string) string {
	if operator != "" {
		return operator
	}
	return fromBody
}

func (h *APIHandler) acknowledge(ctx context.Context, id string, req actionRequest, operator string) (*data.Alert, error) {
	return h.alerter.Acknowledge(ctx, id, actor(operator, req.AcknowledgedBy), req.AcknowledgmentNote)
}

func (h *APIHandler) resolve(ctx context.Context, id string, req actionRequest, operator string) (*data.Alert, error) {
	return h.alerter.Resolve(ctx, id, actor(operator, req.ResolvedBy), req.ResolutionNote)
}

func (h *APIHandler) escalate(ctx context.Context, id string, req actionRequest, _ string) (*data.Alert, error) {
	return h.alerter.Escalate(ctx, id, req.EscalatedTo, req.EscalationReason)
}

func (h *APIHandler) dismiss(ctx context.Context, id string, req actionRequest, operator string) (*data.Alert, error) {
	return h.alerter.Dismiss(ctx, id, actor(operator, req.DismissedBy), req.DismissalNote)
}

// handleAlertAction wraps one lifecycle transition into a PUT handler.
func (h *APIHandler) handleAlertAction(past string, action alertAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req actionRequest
		if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		alert, err := action(r.Context(), chi.URLParam(r, "alertId"), req, auth.Username(r.Context()))
		if err != nil {
			h.writeAlertError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": fmt.Sprintf("Alert %s successfully", past),
			"alert":   alert,
		})
	}
}

// HandleAlertCleanup deletes Resolved alerts older than ?days (default 90).
func (h *APIHandler) HandleAlertCleanup(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", defaultAlertDays)
	deleted, err := h.store.DeleteResolvedAlertsBefore(r.Context(), h.now().AddDate(0, 0, -days))
	if err != nil {
		writeInternal(w, r, "failed to delete alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      fmt.Sprintf("Deleted %d resolved alerts older than %d days", deleted, days),
		"deletedCount": deleted,
	})
}

func (h *APIHandler) writeAlertError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Alert not found")
	case errors.Is(err, data.ErrActorRequired), errors.Is(err, data.ErrTargetRequired),
		errors.Is(err, data.ErrReasonRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, data.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeInternal(w, r, "failed to update alert", err)
	}
}
