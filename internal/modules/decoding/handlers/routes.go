package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all decoding routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/decode", h.HandleDecode)
}
