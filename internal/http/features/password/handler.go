package password

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tendant/farmgate/internal/http/middleware"
	"github.com/tendant/farmgate/internal/httputil"
	"github.com/tendant/farmgate/internal/metrics"
	"github.com/tendant/farmgate/pkg/auth"
	"github.com/tendant/farmgate/pkg/domain"
)

// Resetter drives the forgot/reset password flow. *auth.PasswordService satisfies it.
type Resetter interface {
	RequestReset(ctx context.Context, email string) error
	Reset(ctx context.Context, accessToken, password, confirm string) error
}

// Handler handles password reset endpoints.
type Handler struct {
	logger    *slog.Logger
	passwords Resetter
	metrics   *metrics.Metrics
}

// NewHandler creates a new password handler.
func NewHandler(logger *slog.Logger, passwords Resetter, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		passwords: passwords,
		metrics:   m,
	}
}

// ResetRequestRequest represents a password reset request.
type ResetRequestRequest struct {
	Email string `json:"email"`
}

// ResetRequest represents a password reset completion. The recovery access
// token comes from the link's URL fragment; it may also be sent as a bearer
// token.
type ResetRequest struct {
	AccessToken     string `json:"access_token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Messages shown on the password pages.
const (
	msgResetSent    = "Password reset link sent! Check your email."
	msgInvalidEmail = "Please enter a valid email address."
	msgResetFailed  = "Error sending reset link. Please try again."
	msgPasswordSet  = "Password updated successfully! Redirecting to login..."
	msgMismatch     = "Passwords do not match."
	msgLinkInvalid  = "Your reset link is invalid or has expired. Please request a new one."
	msgUpdateFailed = "Error updating password. Please try again."
	msgFixPassword  = "Please correct the highlighted fields."
)

// Metric labels.
const (
	stepRequest      = "request"
	stepUpdate       = "update"
	resultOK         = "ok"
	resultInvalid    = "invalid"
	resultFailed     = "failed"
	resultBadLink    = "bad_link"
	resultServiceErr = "error"
)

// MessageResponse is a plain success reply.
type MessageResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// RequestPasswordReset sends a recovery email.
// POST /v1/auth/password/reset-request
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if middleware.HandleMaxBytesError(w, err) {
			return
		}
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.passwords.RequestReset(r.Context(), req.Email)
	switch {
	case err == nil:
		h.metrics.ObservePasswordReset(stepRequest, resultOK)
		httputil.JSON(w, http.StatusOK, MessageResponse{Message: msgResetSent})
	case errors.Is(err, domain.ErrInvalidEmail):
		h.metrics.ObservePasswordReset(stepRequest, resultInvalid)
		httputil.FieldErrors(w, msgInvalidEmail, map[string]string{"email": msgInvalidEmail})
	default:
		h.metrics.ObservePasswordReset(stepRequest, resultFailed)
		h.logger.Warn("password reset request failed", "error", err)
		httputil.Error(w, http.StatusBadGateway, msgResetFailed)
	}
}

// ResetPassword sets a new password using the recovery token.
// POST /v1/auth/password/reset
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if middleware.HandleMaxBytesError(w, err) {
			return
		}
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token := req.AccessToken
	if token == "" {
		token = httputil.BearerToken(r)
	}

	err := h.passwords.Reset(r.Context(), token, req.Password, req.ConfirmPassword)
	if err == nil {
		h.metrics.ObservePasswordReset(stepUpdate, resultOK)
		httputil.JSON(w, http.StatusOK, MessageResponse{Message: msgPasswordSet, Redirect: auth.LoginPagePath})
		return
	}

	var fields auth.FieldErrors
	switch {
	case errors.As(err, &fields):
		h.metrics.ObservePasswordReset(stepUpdate, resultInvalid)
		httputil.FieldErrors(w, fields["password"], fields)
	case errors.Is(err, domain.ErrPasswordMismatch):
		h.metrics.ObservePasswordReset(stepUpdate, resultInvalid)
		httputil.FieldErrors(w, msgMismatch, map[string]string{"confirm_password": msgMismatch})
	case errors.Is(err, domain.ErrWeakPassword):
		h.metrics.ObservePasswordReset(stepUpdate, resultInvalid)
		httputil.FieldErrors(w, msgFixPassword, map[string]string{"password": err.Error()})
	case errors.Is(err, domain.ErrUnauthenticated):
		h.metrics.ObservePasswordReset(stepUpdate, resultBadLink)
		httputil.Error(w, http.StatusUnauthorized, msgLinkInvalid)
	case errors.Is(err, domain.ErrResetFailed):
		h.metrics.ObservePasswordReset(stepUpdate, resultFailed)
		h.logger.Warn("password update failed", "error", err)
		httputil.Error(w, http.StatusBadRequest, msgUpdateFailed)
	default:
		h.metrics.ObservePasswordReset(stepUpdate, resultServiceErr)
		h.logger.Error("password update failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, msgUpdateFailed)
	}
}
