package signup

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
	"github.com/tendant/farmgate/pkg/authclient"
	"github.com/tendant/farmgate/pkg/domain"
)

// Registrar registers farmers. *auth.SignupService satisfies it.
type Registrar interface {
	Register(ctx context.Context, form auth.SignupForm) (*domain.User, error)
}

// Handler handles the registration endpoint.
type Handler struct {
	logger  *slog.Logger
	signup  Registrar
	metrics *metrics.Metrics
}

// NewHandler creates a new signup handler.
func NewHandler(logger *slog.Logger, signup Registrar, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		signup:  signup,
		metrics: m,
	}
}

// Response is returned after a successful registration.
type Response struct {
	Message  string `json:"message"`
	Email    string `json:"email"`
	Redirect string `json:"redirect"`
}

// Messages shown on the register page.
const (
	msgRegistered     = "Registration successful! Please check your email to verify your account before logging in."
	msgEmailInUse     = "This email is already registered and verified. Please log in instead."
	msgEmailPending   = "This email is already registered but not yet verified. Please check your inbox."
	msgValidation     = "Please correct the highlighted fields."
	msgSignupFailed   = "Registration failed. Please try again later."
	msgAlreadyCreated = "An account with this email already exists."
)

// Signup registers a new farmer account.
// POST /v1/auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var form auth.SignupForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		if middleware.HandleMaxBytesError(w, err) {
			return
		}
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.signup.Register(r.Context(), form)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.metrics.ObserveSignup("created")
	httputil.JSON(w, http.StatusCreated, Response{
		Message:  msgRegistered,
		Email:    user.Email,
		Redirect: auth.LoginPagePath,
	})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var fields auth.FieldErrors
	if errors.As(err, &fields) {
		h.metrics.ObserveSignup("invalid")
		httputil.FieldErrors(w, msgValidation, fields)
		return
	}

	switch {
	case errors.Is(err, domain.ErrEmailInUse):
		h.metrics.ObserveSignup("conflict")
		httputil.Error(w, http.StatusConflict, msgEmailInUse)
		return
	case errors.Is(err, domain.ErrEmailPendingVerification):
		h.metrics.ObserveSignup("conflict")
		httputil.Error(w, http.StatusConflict, msgEmailPending)
		return
	case errors.Is(err, domain.ErrUserAlreadyExists):
		h.metrics.ObserveSignup("conflict")
		httputil.Error(w, http.StatusConflict, msgAlreadyCreated)
		return
	}

	var apiErr *authclient.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		h.metrics.ObserveSignup("rejected")
		status := apiErr.Status
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			status = http.StatusBadRequest
		}
		httputil.Error(w, status, apiErr.Message)
		return
	}

	h.metrics.ObserveSignup("error")
	h.logger.Error("signup failed", "error", err)
	httputil.Error(w, http.StatusBadGateway, msgSignupFailed)
}
