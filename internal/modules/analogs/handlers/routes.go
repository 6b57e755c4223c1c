package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all analog search routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analogs", func(r chi.Router) {
		r.Post("/search", h.HandleSearch)
		r.Post("/cluster", h.HandleCluster)
	})
}
