package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates the status router: run status, a health check and the
// Prometheus metrics endpoint.
func NewRouter(source StatusSource, runID string, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	statusHandler := NewStatusHandler(source, runID, logger)

	r.Route("/status", func(r chi.Router) {
		r.Get("/", statusHandler.GetStatus)
		r.Get("/tasks", statusHandler.ListTasks)
		r.Get("/tasks/{index}", statusHandler.GetTask)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
