package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	ChiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(ChiMiddleware.RequestID)
	r.Use(ChiMiddleware.Logger)
	r.Use(ChiMiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Accepts submissions for asynchronous storage
	r.Post("/publish", h.PublishEvent)

	// Read-only query surface
	r.Get("/events", h.ListEvents)
	r.Get("/stats", h.GetStats)

	r.Handle("/metrics", promhttp.Handler())

	return r
}
