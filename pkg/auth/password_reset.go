package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/farmgate/internal/lib/logger/sl"
	"github.com/tendant/farmgate/pkg/domain"
)

// PasswordService drives the forgot-password flow. Tokens and emails are
// handled by the auth service.
type PasswordService struct {
	log        *slog.Logger
	identity   Identity
	policy     *PasswordPolicy
	appBaseURL string
}

// NewPasswordService creates a new password service. A nil policy means
// DefaultPasswordPolicy.
func NewPasswordService(log *slog.Logger, identity Identity, policy *PasswordPolicy, appBaseURL string) *PasswordService {
	if policy == nil {
		policy = DefaultPasswordPolicy()
	}
	return &PasswordService{
		log:        log,
		identity:   identity,
		policy:     policy,
		appBaseURL: appBaseURL,
	}
}

// Policy returns the password policy new passwords must meet.
func (s *PasswordService) Policy() *PasswordPolicy {
	return s.policy
}

// RequestReset asks the auth service to email a recovery link that lands on
// the reset confirmation page. Every service failure reads as
// domain.ErrResetRequestFailed.
func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	const op = "auth.PasswordService.RequestReset"
	log := s.log.With(slog.String("op", op))

	email = NormalizeEmail(email)
	if err := ValidateEmail(email, false, false); err != nil {
		return err
	}

	if err := s.identity.ResetPasswordForEmail(ctx, email, s.appBaseURL+ResetConfirmPagePath); err != nil {
		log.Warn("auth service rejected reset request", sl.Err(err))
		return fmt.Errorf("%w: %w", domain.ErrResetRequestFailed, err)
	}

	log.Info("password reset requested")
	return nil
}

// Reset sets a new password for the account owning the recovery access token.
func (s *PasswordService) Reset(ctx context.Context, accessToken, password, confirm string) error {
	const op = "auth.PasswordService.Reset"
	log := s.log.With(slog.String("op", op))

	if password == "" || confirm == "" {
		return FieldErrors{"password": "Please fill all fields."}
	}
	if password != confirm {
		return domain.ErrPasswordMismatch
	}
	if err := s.policy.ValidatePassword(password); err != nil {
		return err
	}
	if accessToken == "" {
		return domain.ErrUnauthenticated
	}

	if _, err := s.identity.UpdatePassword(ctx, accessToken, password); err != nil {
		log.Warn("auth service rejected password update", sl.Err(err))
		return fmt.Errorf("%w: %w", domain.ErrResetFailed, err)
	}

	log.Info("password reset completed")
	return nil
}
