package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ensemble routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ensemble", func(r chi.Router) {
		r.Post("/predict", h.HandlePredict)
	})
}
