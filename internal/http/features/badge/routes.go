package badge

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers the badge route. The caller wraps r with session
// and upload size middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/v1/driver/badge", h.Apply)
}
