package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the request/response grading routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/grading", func(r chi.Router) {
		r.Post("/runs", h.HandleStartRun)
		r.Get("/runs", h.HandleListRuns)
		r.Get("/runs/{id}", h.HandleGetRun)
	})
}

// RegisterStreamRoutes registers the long-lived websocket route. It must be
// mounted outside request timeout and compression middleware.
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/grading/stream", h.HandleStream)
}
