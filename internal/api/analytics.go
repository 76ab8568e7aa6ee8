package api

import "net/http"

const (
	defaultAnomalyHours = 24
	defaultInsightDays  = 1
	defaultTrendDays    = 7
	defaultDiseaseDays  = 30
	defaultAnalysisDays = 7
)

// HandleFarmStatistics summarises every stored reading.
func (h *APIHandler) HandleFarmStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analyzer.FarmStatistics(r.Context())
	if err != nil {
		writeInternal(w, r, "failed to compute statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleHealthFlags lists readings that crossed the dashboard watch thresholds.
func (h *APIHandler) HandleHealthFlags(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyzer.HealthFlags(r.Context())
	if err != nil {
		writeInternal(w, r, "failed to scan readings", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleAnomalies runs the detector over each cow's latest reading of the last ?hours.
func (h *APIHandler) HandleAnomalies(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyzer.Anomalies(r.Context(), queryInt(r, "hours", defaultAnomalyHours))
	if err != nil {
		writeInternal(w, r, "failed to detect anomalies", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleInsights lists the insights of each cow's latest reading of the last ?days.
func (h *APIHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyzer.Insights(r.Context(), queryInt(r, "days", defaultInsightDays))
	if err != nil {
		writeInternal(w, r, "failed to generate insights", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *APIHandler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyzer.Performance(r.Context(), queryInt(r, "days", defaultAnalysisDays))
	if err != nil {
		writeInternal(w, r, "failed to measure classifier", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *APIHandler) HandleTemperatureTrends(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyzer.TemperatureTrends(r.Context(), queryInt(r, "days", defaultTrendDays), r.URL.Query().Get("cowId"))
	if err != nil {
		writeInternal(w, r, "failed to compute temperature trends", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *APIHandler) HandleMotionAnalysis(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyzer.MotionAnalysis(r.Context(), queryInt(r, "days", defaultAnalysisDays))
	if err != nil {
		writeInternal(w, r, "failed to analyse motion", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *APIHandler) HandleHourlyPatterns(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyzer.HourlyPatterns(r.Context(), queryInt(r, "days", defaultAnalysisDays))
	if err != nil {
		writeInternal(w, r, "failed to compute hourly patterns", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *APIHandler) HandleDiseaseDistribution(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyzer.DiseaseDistribution(r.Context(), queryInt(r, "days", defaultDiseaseDays))
	if err != nil {
		writeInternal(w, r, "failed to compute disease distribution", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleHealthRisk scores every cow, or only ?cowId, over its whole history.
func (h *APIHandler) HandleHealthRisk(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyzer.HealthRisk(r.Context(), r.URL.Query().Get("cowId"))
	if err != nil {
		writeInternal(w, r, "failed to assess health risk", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
