package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tendant/farmgate/internal/lib/logger/sl"
	"github.com/tendant/farmgate/pkg/domain"
)

// SignupService registers farmer accounts.
type SignupService struct {
	log        *slog.Logger
	identity   Identity
	profiles   ProfileStore
	validator  SignupValidator
	appBaseURL string
}

// NewSignupService creates a new signup service.
func NewSignupService(log *slog.Logger, identity Identity, profiles ProfileStore, validator SignupValidator, appBaseURL string) *SignupService {
	return &SignupService{
		log:        log,
		identity:   identity,
		profiles:   profiles,
		validator:  validator,
		appBaseURL: appBaseURL,
	}
}

// Register validates the form, creates the auth account (which sends the
// confirmation email) and records an unverified farmer profile.
func (s *SignupService) Register(ctx context.Context, form SignupForm) (*domain.User, error) {
	const op = "auth.SignupService.Register"
	log := s.log.With(slog.String("op", op))

	form.Normalize()
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}

	existing, err := s.profiles.GetByEmail(ctx, form.Email)
	switch {
	case err == nil:
		if existing.IsVerified() {
			return nil, domain.ErrEmailInUse
		}
		return nil, domain.ErrEmailPendingVerification
	case !errors.Is(err, domain.ErrUserNotFound):
		// The service still rejects duplicates, so carry on.
		log.Warn("failed to check existing profile", sl.Err(err))
	}

	metadata := map[string]any{
		"full_name": form.FullName,
		"contact":   form.Contact,
		"role":      string(domain.RoleFarmer),
	}
	account, err := s.identity.SignUp(ctx, form.Email, form.Password, metadata, s.appBaseURL+LoginPagePath)
	if err != nil {
		log.Info("auth service rejected signup", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &domain.User{
		FullName: form.FullName,
		Email:    form.Email,
		Contact:  form.Contact,
		Role:     domain.RoleFarmer,
		Status:   domain.StatusUnverified,
	}
	if account != nil {
		if uid, err := uuid.Parse(account.ID); err == nil {
			user.UID = &uid
		}
	}

	if err := s.profiles.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, domain.ErrUserAlreadyExists
		}
		log.Error("failed to insert profile", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("farmer registered", slog.Int64("user_id", user.ID))
	return user, nil
}
