package login

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers the login routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/v1/auth/login", h.Login)
	r.Get("/v1/auth/lock", h.Lock)
}
