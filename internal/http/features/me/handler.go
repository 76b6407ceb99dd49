package me

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tendant/farmgate/internal/http/middleware"
	"github.com/tendant/farmgate/internal/httputil"
	"github.com/tendant/farmgate/pkg/auth"
	"github.com/tendant/farmgate/pkg/domain"
)

// ProfileLookup finds portal profiles. *repository.UsersRepository satisfies it.
type ProfileLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Handler handles user profile endpoints.
type Handler struct {
	logger *slog.Logger
	users  ProfileLookup
}

// NewHandler creates a new me handler.
func NewHandler(logger *slog.Logger, users ProfileLookup) *Handler {
	return &Handler{
		logger: logger,
		users:  users,
	}
}

// UserResponse represents the user profile response.
type UserResponse struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	EmailConfirmed bool       `json:"email_confirmed"`
	FullName       string     `json:"full_name"`
	Contact        string     `json:"contact,omitempty"`
	Role           string     `json:"role"`
	Status         string     `json:"status"`
	Landing        string     `json:"landing"`
	MemberSince    *time.Time `json:"member_since,omitempty"`
}

// GetMe returns the current user's profile. Accounts without a portal row
// are described from their auth metadata.
// GET /v1/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.GetUser(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp := UserResponse{
		ID:             account.ID,
		Email:          account.Email,
		EmailConfirmed: account.EmailConfirmed(),
	}

	profile, err := h.users.GetByEmail(r.Context(), auth.NormalizeEmail(account.Email))
	switch {
	case err == nil:
		resp.FullName = profile.DisplayName()
		resp.Contact = profile.Contact
		resp.Role = string(profile.Role)
		resp.Status = string(profile.Status)
		resp.Landing = profile.LandingPath()
		if !profile.CreatedAt.IsZero() {
			created := profile.CreatedAt.UTC()
			resp.MemberSince = &created
		}
	case errors.Is(err, domain.ErrUserNotFound):
		fallback := &domain.User{
			FullName: account.MetadataString("full_name"),
			Email:    account.Email,
			Role:     domain.ParseRole(account.MetadataString("role")),
		}
		resp.FullName = fallback.DisplayName()
		resp.Contact = account.MetadataString("contact")
		resp.Role = string(fallback.Role)
		resp.Status = string(domain.StatusUnverified)
		if account.EmailConfirmed() {
			resp.Status = string(domain.StatusVerified)
		}
		resp.Landing = fallback.LandingPath()
	default:
		h.logger.Error("failed to load profile", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	httputil.JSON(w, http.StatusOK, resp)
}
