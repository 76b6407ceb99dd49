package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/tendant/farmgate/pkg/authclient"
	"github.com/tendant/farmgate/pkg/domain"
)

// Identity is the part of the external auth service the portal calls.
// *authclient.Client satisfies it.
type Identity interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any, redirectTo string) (*authclient.User, error)
	SignIn(ctx context.Context, email, password string) (*authclient.Session, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, accessToken, password string) (*authclient.User, error)
}

// ProfileStore persists portal profiles. *repository.UsersRepository satisfies it.
type ProfileStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	MarkVerified(ctx context.Context, email string, uid uuid.UUID) error
	UpdateRole(ctx context.Context, email string, role domain.Role) error
}

// BadgeStore persists driver badge applications. *repository.BadgesRepository satisfies it.
type BadgeStore interface {
	ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error)
	Create(ctx context.Context, badge *domain.DriverBadge) error
}

// Portal page paths the auth service redirects back to.
const (
	LoginPagePath        = "/auth/login"
	ResetConfirmPagePath = "/auth/reset-password/confirm"
)
