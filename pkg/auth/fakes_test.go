package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/farmgate/pkg/authclient"
	"github.com/tendant/farmgate/pkg/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeIdentity records calls and returns canned answers.
type fakeIdentity struct {
	mu sync.Mutex

	signUpUser *authclient.User
	signUpErr  error
	signUpMeta map[string]any
	signUpTo   string
	signUps    int

	session   *authclient.Session
	signInErr error
	signIns   int

	resetErr   error
	resetEmail string
	resetTo    string

	updateErr   error
	updateToken string
	updatePass  string
}

func (f *fakeIdentity) SignUp(_ context.Context, email, _ string, metadata map[string]any, redirectTo string) (*authclient.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUps++
	f.signUpMeta = metadata
	f.signUpTo = redirectTo
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	if f.signUpUser != nil {
		return f.signUpUser, nil
	}
	return &authclient.User{ID: uuid.NewString(), Email: email}, nil
}

func (f *fakeIdentity) SignIn(_ context.Context, _, _ string) (*authclient.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signIns++
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.session, nil
}

func (f *fakeIdentity) ResetPasswordForEmail(_ context.Context, email, redirectTo string) error {
	f.resetEmail = email
	f.resetTo = redirectTo
	return f.resetErr
}

func (f *fakeIdentity) UpdatePassword(_ context.Context, accessToken, password string) (*authclient.User, error) {
	f.updateToken = accessToken
	f.updatePass = password
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &authclient.User{ID: uuid.NewString()}, nil
}

// fakeProfiles is an in-memory ProfileStore keyed by email.
type fakeProfiles struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	getErr   error
	roleErr  error
	created  int
	verified int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{users: map[string]*domain.User{}}
}

func (f *fakeProfiles) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeProfiles) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.Email]; ok {
		return domain.ErrUserAlreadyExists
	}
	f.created++
	user.ID = int64(len(f.users) + 1)
	cp := *user
	f.users[user.Email] = &cp
	return nil
}

func (f *fakeProfiles) MarkVerified(_ context.Context, email string, uid uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return domain.ErrUserNotFound
	}
	f.verified++
	u.Status = domain.StatusVerified
	if u.UID == nil {
		u.UID = &uid
	}
	return nil
}

func (f *fakeProfiles) UpdateRole(_ context.Context, email string, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roleErr != nil {
		return f.roleErr
	}
	u, ok := f.users[email]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	return nil
}

// fakeBadges is an in-memory BadgeStore.
type fakeBadges struct {
	mu        sync.Mutex
	byUser    map[uuid.UUID]*domain.DriverBadge
	existsErr error
	createErr error
}

func newFakeBadges() *fakeBadges {
	return &fakeBadges{byUser: map[uuid.UUID]*domain.DriverBadge{}}
}

func (f *fakeBadges) ExistsForUser(_ context.Context, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.byUser[userID]
	return ok, nil
}

func (f *fakeBadges) Create(_ context.Context, badge *domain.DriverBadge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byUser[badge.UserID]; ok {
		return domain.ErrBadgeAlreadyApplied
	}
	f.byUser[badge.UserID] = badge
	return nil
}
