package pages

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers portal page routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/auth/register", h.Register)
	r.Get("/auth/login", h.Login)
	r.Get("/auth/forgot-password", h.ForgotPassword)
	r.Get("/auth/reset-password/confirm", h.ResetPasswordConfirm)
	r.Get("/driver/badge", h.DriverBadge)
}
