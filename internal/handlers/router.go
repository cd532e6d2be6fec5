package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the API. metrics may be nil.
func NewRouter(h *Handler, allowedOrigins []string, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(CORS(allowedOrigins))
	r.Use(RequestLogger)

	r.Get("/health", h.Health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/complaints", func(r chi.Router) {
			r.Post("/", h.CreateComplaint)
			r.Get("/", h.ListComplaints)
			r.Get("/{id}", h.GetComplaint)
			r.Patch("/{id}/status", h.UpdateStatus)
			r.Delete("/{id}", h.DeleteComplaint)
		})
		r.Get("/analytics", h.Analytics)
	})

	return r
}
