package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
	"github.com/pateldhruv64/cow-belt-final/internal/health"
	"github.com/pateldhruv64/cow-belt-final/internal/ingest"
	"github.com/pateldhruv64/cow-belt-final/internal/storage"
)

const (
	recentReadings   = 10
	cowReadings      = 50
	defaultPageLimit = 20
	defaultKeepDays  = 30
)

type ingestResponse struct {
	Message string `json:"message"`
	*ingest.Result
	Errors []string `json:"errors,omitempty"`
}

// HandleDataIngest classifies, stores and alerts on one belt reading.
// When a store fails the classification is still returned, with the failures listed
// under errors and a 503 status.
func (h *APIHandler) HandleDataIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	reading, err := data.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.processor.Process(r.Context(), *reading)
	if res == nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, ingestResponse{
			Message: "Data classified but not fully saved",
			Result:  res,
			Errors:  errorList(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Message: "Data saved successfully", Result: res})
}

// HandleRecentReadings returns the newest readings across all cows.
func (h *APIHandler) HandleRecentReadings(w http.ResponseWriter, r *http.Request) {
	readings, _, err := h.store.ListReadings(r.Context(), storage.ReadingFilter{Limit: recentReadings})
	if err != nil {
		writeInternal(w, r, "failed to load readings", err)
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// HandleAllReadings pages through every stored reading, newest first.
func (h *APIHandler) HandleAllReadings(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := queryPage(r, defaultPageLimit)

	readings, total, err := h.store.ListReadings(r.Context(), storage.ReadingFilter{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeInternal(w, r, "failed to load readings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":       readings,
		"pagination": newPagination(page, limit, total),
	})
}

// HandleCowReadings returns the last readings of one cow.
func (h *APIHandler) HandleCowReadings(w http.ResponseWriter, r *http.Request) {
	cowID := chi.URLParam(r, "cowId")
	readings, _, err := h.store.ListReadings(r.Context(), storage.ReadingFilter{CowID: cowID, Limit: cowReadings})
	if err != nil {
		writeInternal(w, r, "failed to load readings", err)
		return
	}
	if len(readings) == 0 {
		writeError(w, http.StatusNotFound, "No data found for this cow")
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// HandleLatestReading returns the newest reading of one cow.
func (h *APIHandler) HandleLatestReading(w http.ResponseWriter, r *http.Request) {
	reading, err := h.store.LatestReading(r.Context(), chi.URLParam(r, "cowId"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No data found for this cow")
		return
	}
	if err != nil {
		writeInternal(w, r, "failed to load reading", err)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

// HandleReadingRange returns readings between startDate and endDate, optionally for one cow.
func (h *APIHandler) HandleReadingRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	startDate, endDate, cowID := q.Get("startDate"), q.Get("endDate"), q.Get("cowId")
	if startDate == "" || endDate == "" {
		writeError(w, http.StatusBadRequest, "Start date and end date are required")
		return
	}
	from, err := parseDate(startDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid startDate")
		return
	}
	to, err := parseDate(endDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid endDate")
		return
	}

	readings, total, err := h.store.ListReadings(r.Context(), storage.ReadingFilter{CowID: cowID, From: from, To: to})
	if err != nil {
		writeInternal(w, r, "failed to load readings", err)
		return
	}

	scope := cowID
	if scope == "" {
		scope = "All"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":      readings,
		"count":     total,
		"dateRange": map[string]string{"startDate": startDate, "endDate": endDate},
		"cowId":     scope,
	})
}

// HandleReadingCleanup deletes readings older than ?days (default 30).
func (h *APIHandler) HandleReadingCleanup(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", defaultKeepDays)
	deleted, err := h.store.DeleteReadingsBefore(r.Context(), h.now().AddDate(0, 0, -days))
	if err != nil {
		writeInternal(w, r, "failed to delete readings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      fmt.Sprintf("Deleted %d records older than %d days", deleted, days),
		"deletedCount": deleted,
	})
}

// HandleClassify runs the classifiers without storing anything.
func (h *APIHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}
	reading, err := data.Parse(body)
	if err != nil && !errors.Is(err, data.ErrMissingCowID) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.processor.Classify(*reading))
}

// HandleHealthAnalysis scores the latest reading of a cow.
func (h *APIHandler) HandleHealthAnalysis(w http.ResponseWriter, r *http.Request) {
	reading, err := h.store.LatestReading(r.Context(), chi.URLParam(r, "cowId"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No data found for this cow")
		return
	}
	if err != nil {
		writeInternal(w, r, "failed to load reading", err)
		return
	}
	writeJSON(w, http.StatusOK, health.Assess(*reading))
}
