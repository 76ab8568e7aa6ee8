package api

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupDataRouter serves the REST API used by belts and the dashboard.
func SetupDataRouter(h *APIHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.HandleLogin)

		r.Route("/cow/data", func(r chi.Router) {
			r.With(h.auth.RequireAPIKey).Post("/", h.HandleDataIngest)
			r.Get("/", h.HandleRecentReadings)
			r.Get("/all", h.HandleAllReadings)
			r.Get("/range", h.HandleReadingRange)
			r.Get("/statistics", h.HandleFarmStatistics)
			r.Get("/alerts", h.HandleHealthFlags)
			r.Get("/cow/{cowId}", h.HandleCowReadings)
			r.Get("/cow/{cowId}/latest", h.HandleLatestReading)
			r.With(h.auth.RequireJWT).Delete("/cleanup", h.HandleReadingCleanup)
		})

		r.Route("/ml", func(r chi.Router) {
			r.Post("/classify", h.HandleClassify)
			r.Get("/health-analysis/{cowId}", h.HandleHealthAnalysis)
			r.Get("/anomalies", h.HandleAnomalies)
			r.Get("/insights", h.HandleInsights)
			r.Get("/performance", h.HandlePerformance)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/temperature-trends", h.HandleTemperatureTrends)
			r.Get("/motion-analysis", h.HandleMotionAnalysis)
			r.Get("/hourly-patterns", h.HandleHourlyPatterns)
			r.Get("/disease-distribution", h.HandleDiseaseDistribution)
			r.Get("/health-risk", h.HandleHealthRisk)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.HandleListAlerts)
			r.Get("/active", h.HandleActiveAlerts)
			r.Get("/critical", h.HandleCriticalAlerts)
			r.Get("/statistics", h.HandleAlertStatistics)
			r.Get("/{alertId}", h.HandleGetAlert)

			r.Group(func(r chi.Router) {
				r.Use(h.auth.RequireJWT)
				r.Post("/", h.HandleCreateAlert)
				r.Put("/{alertId}/acknowledge", h.handleAlertAction("acknowledged", h.acknowledge))
				r.Put("/{alertId}/resolve", h.handleAlertAction("resolved", h.resolve))
				r.Put("/{alertId}/escalate", h.handleAlertAction("escalated", h.escalate))
				r.Put("/{alertId}/dismiss", h.handleAlertAction("dismissed", h.dismiss))
				r.Delete("/cleanup", h.HandleAlertCleanup)
			})
		})
	})

	return r
}

// SetupUIRouter serves the dashboard, its static assets and the live websocket.
func SetupUIRouter(h *APIHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.ServeWebUI)
	r.Get("/ws", h.HandleWebSocket)

	staticPath := filepath.Join(h.webDir, "static")
	fs := http.FileServer(http.Dir(staticPath))
	r.Handle("/static/*", http.StripPrefix("/static/", fs))

	return r
}
