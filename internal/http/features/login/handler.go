package login

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tendant/farmgate/internal/http/middleware"
	"github.com/tendant/farmgate/internal/httputil"
	"github.com/tendant/farmgate/internal/metrics"
	"github.com/tendant/farmgate/pkg/auth"
	"github.com/tendant/farmgate/pkg/domain"
	"github.com/tendant/farmgate/pkg/guard"
)

// Authenticator signs a user in. *auth.LoginService satisfies it.
type Authenticator interface {
	Login(ctx context.Context, g auth.AttemptGuard, email, password string) (*auth.LoginResult, error)
}

// GuardFunc returns the login attempt guard for one device.
type GuardFunc func(deviceID string) auth.AttemptGuard

// Handler handles the login endpoints.
type Handler struct {
	logger       *slog.Logger
	login        Authenticator
	guards       GuardFunc
	metrics      *metrics.Metrics
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new login handler.
func NewHandler(logger *slog.Logger, login Authenticator, guards GuardFunc, m *metrics.Metrics, cookies httputil.CookieConfig) *Handler {
	return &Handler{
		logger:       logger,
		login:        login,
		guards:       guards,
		metrics:      m,
		cookieConfig: cookies,
	}
}

// Request is the login request body.
type Request struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileResponse is the signed-in user's portal profile.
type ProfileResponse struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Contact  string `json:"contact,omitempty"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

// Response is returned on a successful login. Tokens and the device id are
// only included for mobile clients; browsers get cookies.
type Response struct {
	Redirect     string          `json:"redirect"`
	User         ProfileResponse `json:"user"`
	DeviceID     string          `json:"device_id,omitempty"`
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	TokenType    string          `json:"token_type,omitempty"`
	ExpiresIn    int             `json:"expires_in,omitempty"`
}

// FailureResponse is returned when credentials are refused but the device is
// not yet locked.
type FailureResponse struct {
	Error        string `json:"error"`
	AttemptsLeft int    `json:"attempts_left"`
}

// LockResponse reports the device's guard status.
type LockResponse struct {
	Locked       bool       `json:"locked"`
	RetryAfter   int        `json:"retry_after"`
	Until        *time.Time `json:"until,omitempty"`
	AttemptsLeft int        `json:"attempts_left"`
}

// Messages shown on the login page.
const (
	msgInvalidCredentials = "Incorrect email or password. Please try again."
	msgNotVerified        = "Your email is registered but not yet verified. Please check your inbox."
	msgLoginFailed        = "Login failed. Please try again."
)

func lockedMessage(seconds int) string {
	return fmt.Sprintf("Too many failed attempts. Try again in %d seconds.", seconds)
}

// Login handles a login attempt.
// POST /v1/auth/login
//
// For web clients: Sets HttpOnly cookies, returns the redirect and profile.
// For mobile clients (X-Client-Type: mobile): Also returns tokens and the
// device id in the body; send the id back as X-Device-ID so failed attempts
// count against the same guard.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	g := h.guard(r)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if middleware.HandleMaxBytesError(w, err) {
			return
		}
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.login.Login(r.Context(), g, req.Email, req.Password)
	if err != nil {
		h.fail(w, res, err)
		return
	}
	h.metrics.ObserveLogin(metrics.LoginSuccess, false)

	session := res.Session
	resp := Response{
		Redirect: res.Redirect,
		User: ProfileResponse{
			FullName: res.Profile.FullName,
			Email:    res.Profile.Email,
			Contact:  res.Profile.Contact,
			Role:     string(res.Profile.Role),
			Status:   string(res.Profile.Status),
		},
	}
	if httputil.IsMobileClient(r) {
		resp.DeviceID, _ = middleware.GetDeviceID(r.Context())
		resp.AccessToken = session.AccessToken
		resp.RefreshToken = session.RefreshToken
		resp.TokenType = session.TokenType
		resp.ExpiresIn = session.ExpiresIn
	} else {
		httputil.SetAuthCookies(w, session.AccessToken, session.RefreshToken,
			time.Duration(session.ExpiresIn)*time.Second, h.cookieConfig)
	}
	httputil.JSON(w, http.StatusOK, resp)
}

func (h *Handler) fail(w http.ResponseWriter, res *auth.LoginResult, err error) {
	var status guard.Status
	if res != nil {
		status = res.Guard
	}

	switch {
	case errors.Is(err, domain.ErrLoginLocked):
		h.metrics.ObserveLogin(metrics.LoginLocked, false)
		httputil.TooManyRequests(w, lockedMessage(status.Seconds()), status.Seconds())
		return
	case errors.Is(err, domain.ErrInvalidCredentials):
		h.metrics.ObserveLogin(metrics.LoginInvalid, status.Locked)
		h.refuse(w, status, http.StatusUnauthorized, msgInvalidCredentials)
		return
	case errors.Is(err, domain.ErrEmailNotVerified):
		h.metrics.ObserveLogin(metrics.LoginUnverified, status.Locked)
		h.refuse(w, status, http.StatusForbidden, msgNotVerified)
		return
	}

	h.metrics.ObserveLogin(metrics.LoginError, status.Locked)
	if status.Locked {
		httputil.TooManyRequests(w, lockedMessage(status.Seconds()), status.Seconds())
		return
	}
	if res != nil && res.Message != "" {
		httputil.JSON(w, http.StatusUnauthorized, FailureResponse{Error: res.Message, AttemptsLeft: status.AttemptsLeft})
		return
	}
	h.logger.Error("login failed", "error", err)
	httputil.Error(w, http.StatusBadGateway, msgLoginFailed)
}

// refuse answers a counted failure. The attempt that exhausts the budget is
// reported as a lock straight away.
func (h *Handler) refuse(w http.ResponseWriter, status guard.Status, code int, message string) {
	if status.Locked {
		httputil.TooManyRequests(w, lockedMessage(status.Seconds()), status.Seconds())
		return
	}
	httputil.JSON(w, code, FailureResponse{Error: message, AttemptsLeft: status.AttemptsLeft})
}

// Lock reports whether this device is locked out and for how long.
// GET /v1/auth/lock
func (h *Handler) Lock(w http.ResponseWriter, r *http.Request) {
	status := h.guard(r).CheckLock(r.Context())

	resp := LockResponse{
		Locked:       status.Locked,
		RetryAfter:   status.Seconds(),
		AttemptsLeft: status.AttemptsLeft,
	}
	if status.Locked {
		until := status.Until.UTC()
		resp.Until = &until
	}
	httputil.JSON(w, http.StatusOK, resp)
}

func (h *Handler) guard(r *http.Request) auth.AttemptGuard {
	id, _ := middleware.GetDeviceID(r.Context())
	return h.guards(id)
}
