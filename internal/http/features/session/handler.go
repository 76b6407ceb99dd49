package session

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tendant/farmgate/internal/httputil"
	"github.com/tendant/farmgate/pkg/auth"
)

// SignOuter ends auth service sessions. *authclient.Client satisfies it.
type SignOuter interface {
	SignOut(ctx context.Context, accessToken string) error
}

// Handler handles session endpoints.
type Handler struct {
	logger       *slog.Logger
	auth         SignOuter
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new session handler.
func NewHandler(logger *slog.Logger, auth SignOuter, cookies httputil.CookieConfig) *Handler {
	return &Handler{
		logger:       logger,
		auth:         auth,
		cookieConfig: cookies,
	}
}

// LogoutResponse is returned after logging out.
type LogoutResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

// Logout ends the session at the auth service and clears the auth cookies.
// Cookies are cleared even when the service call fails.
// POST /v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := httputil.BearerToken(r); token != "" {
		if err := h.auth.SignOut(r.Context(), token); err != nil {
			h.logger.Warn("auth service sign out failed", "error", err)
		}
	}

	httputil.ClearAuthCookies(w, h.cookieConfig)
	httputil.JSON(w, http.StatusOK, LogoutResponse{
		Message:  "logged out",
		Redirect: auth.LoginPagePath,
	})
}
