package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/farmgate/internal/lib/logger/sl"
	"github.com/tendant/farmgate/pkg/authclient"
	"github.com/tendant/farmgate/pkg/domain"
	"github.com/tendant/farmgate/pkg/guard"
)

// AttemptGuard is the login attempt guard as the login flow uses it.
// *guard.Guard satisfies it.
type AttemptGuard interface {
	CheckLock(ctx context.Context) guard.Status
	RecordFailure(ctx context.Context) guard.Status
	RecordSuccess(ctx context.Context) guard.Status
}

// LoginResult is the outcome of a login attempt.
type LoginResult struct {
	// Guard is the guard status after the attempt. It is set on failures too.
	Guard guard.Status
	// Session and Profile are set only on success.
	Session  *authclient.Session
	Profile  *domain.User
	Redirect string
	// Message is the auth service's own wording for failures the portal does
	// not translate.
	Message string
}

// LoginService signs users in through the auth service, consulting the
// login attempt guard before and after every try.
type LoginService struct {
	log      *slog.Logger
	identity Identity
	profiles ProfileStore
}

// NewLoginService creates a new login service. profiles may be nil, in which
// case profiles are built from auth metadata and never persisted.
func NewLoginService(log *slog.Logger, identity Identity, profiles ProfileStore) *LoginService {
	return &LoginService{
		log:      log,
		identity: identity,
		profiles: profiles,
	}
}

// Login attempts to sign in with email and password.
//
// A locked guard short-circuits with domain.ErrLoginLocked before the auth
// service is contacted. Rejected credentials, an unconfirmed email and
// unexpected service failures each count as one failed attempt. The result
// is never nil.
func (s *LoginService) Login(ctx context.Context, g AttemptGuard, email, password string) (*LoginResult, error) {
	const op = "auth.LoginService.Login"
	log := s.log.With(slog.String("op", op))

	if status := g.CheckLock(ctx); status.Locked {
		return &LoginResult{Guard: status}, domain.ErrLoginLocked
	}

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return &LoginResult{Guard: g.RecordFailure(ctx)}, domain.ErrInvalidCredentials
	}

	session, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		res := &LoginResult{Guard: g.RecordFailure(ctx)}
		switch {
		case errors.Is(err, authclient.ErrInvalidLogin):
			return res, domain.ErrInvalidCredentials
		case errors.Is(err, authclient.ErrEmailNotConfirmed):
			return res, domain.ErrEmailNotVerified
		}

		var apiErr *authclient.APIError
		if errors.As(err, &apiErr) {
			res.Message = apiErr.Message
		} else {
			log.Error("sign in failed", sl.Err(err))
		}
		return res, fmt.Errorf("%w: %w", domain.ErrLoginFailed, err)
	}

	if session == nil || session.User == nil {
		// Nothing to count against the user here.
		return &LoginResult{Guard: g.CheckLock(ctx)}, domain.ErrLoginFailed
	}

	account := session.User
	if !account.EmailConfirmed() {
		return &LoginResult{Guard: g.RecordFailure(ctx)}, domain.ErrEmailNotVerified
	}

	profile := s.loadProfile(ctx, log, account, email)

	return &LoginResult{
		Guard:    g.RecordSuccess(ctx),
		Session:  session,
		Profile:  profile,
		Redirect: profile.LandingPath(),
	}, nil
}

// loadProfile returns the portal profile for a confirmed account. A missing
// row is rebuilt from auth metadata and inserted; failures there are logged
// and the in-memory profile is used anyway. Without a profile store the
// metadata profile is returned directly.
func (s *LoginService) loadProfile(ctx context.Context, log *slog.Logger, account *authclient.User, email string) *domain.User {
	var uid *uuid.UUID
	if id, err := uuid.Parse(account.ID); err == nil {
		uid = &id
	}
	if s.profiles == nil {
		return profileFromAccount(account, uid, email)
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err == nil {
		if !profile.IsVerified() {
			if uid != nil {
				if err := s.profiles.MarkVerified(ctx, email, *uid); err != nil {
					log.Warn("failed to mark profile verified", sl.Err(err))
				}
			}
			profile.Status = domain.StatusVerified
		}
		return profile
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		log.Warn("failed to load profile, using auth metadata", sl.Err(err))
	} else {
		log.Warn("no profile row, using auth metadata")
	}

	profile = profileFromAccount(account, uid, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		if err := s.profiles.Create(ctx, profile); err != nil {
			log.Error("failed to insert fallback profile", sl.Err(err))
		}
	}
	return profile
}

func profileFromAccount(account *authclient.User, uid *uuid.UUID, email string) *domain.User {
	profile := &domain.User{
		UID:      uid,
		FullName: account.MetadataString("full_name"),
		Email:    strings.ToLower(account.Email),
		Contact:  account.MetadataString("contact"),
		Role:     domain.ParseRole(account.MetadataString("role")),
		Status:   domain.StatusVerified,
	}
	if profile.FullName == "" {
		profile.FullName = account.Email
	}
	if profile.Email == "" {
		profile.Email = email
	}
	return profile
}
