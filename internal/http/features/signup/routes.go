package signup

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers the signup route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/v1/auth/signup", h.Signup)
}
