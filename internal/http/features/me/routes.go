package me

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers profile routes. The caller wraps r with RequireSession.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/v1/me", h.GetMe)
}
