package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all circuit routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/circuits", func(r chi.Router) {
		r.Post("/encode", h.HandleEncode)
		r.Post("/qasm", h.HandleQASM)
	})
}
