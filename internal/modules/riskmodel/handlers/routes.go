package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk model routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Get("/covariance", h.HandleGetCovariance)
		r.Post("/covariance/batch", h.HandleBatchCovariance)
		r.Get("/validate", h.HandleGetValidation)
		r.Post("/portfolio/variance", h.HandlePortfolioRisk)
	})
}
