package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/farmgate/pkg/authclient"
	"github.com/tendant/farmgate/pkg/domain"
)

func fakeSignupForm() SignupForm {
	password := "Aa1@" + gofakeit.Password(true, true, true, false, false, 10)
	return SignupForm{
		FullName:        gofakeit.Name(),
		Email:           gofakeit.Email(),
		Contact:         gofakeit.Phone(),
		Password:        password,
		ConfirmPassword: password,
		AcceptTerms:     true,
	}
}

func newSignupService(identity Identity, profiles ProfileStore) *SignupService {
	return NewSignupService(discardLogger(), identity, profiles, SignupValidator{Policy: DefaultPasswordPolicy()}, "https://portal.example.ph")
}

func TestRegister_CreatesUnverifiedFarmer(t *testing.T) {
	identity := &fakeIdentity{signUpUser: &authclient.User{ID: "6f1c2b9e-8a3d-4c5e-9f70-1a2b3c4d5e6f"}}
	profiles := newFakeProfiles()
	svc := newSignupService(identity, profiles)

	form := fakeSignupForm()
	user, err := svc.Register(context.Background(), form)
	require.NoError(t, err)

	assert.Equal(t, domain.RoleFarmer, user.Role)
	assert.Equal(t, domain.StatusUnverified, user.Status)
	assert.Equal(t, NormalizeEmail(form.Email), user.Email)
	require.NotNil(t, user.UID)
	assert.Equal(t, "6f1c2b9e-8a3d-4c5e-9f70-1a2b3c4d5e6f", user.UID.String())

	assert.Equal(t, "farmer", identity.signUpMeta["role"])
	assert.Equal(t, form.Contact, identity.signUpMeta["contact"])
	assert.Equal(t, "https://portal.example.ph/auth/login", identity.signUpTo)
	assert.Equal(t, 1, profiles.created)
}

func TestRegister_ValidationStopsBeforeService(t *testing.T) {
	identity := &fakeIdentity{}
	svc := newSignupService(identity, newFakeProfiles())

	form := fakeSignupForm()
	form.AcceptTerms = false

	_, err := svc.Register(context.Background(), form)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, 0, identity.signUps)
}

func TestRegister_ExistingProfile(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.AccountStatus
		wantErr error
	}{
		{"pending verification", domain.StatusUnverified, domain.ErrEmailPendingVerification},
		{"already verified", domain.StatusVerified, domain.ErrEmailInUse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := &fakeIdentity{}
			profiles := newFakeProfiles()
			form := fakeSignupForm()
			email := NormalizeEmail(form.Email)
			profiles.users[email] = &domain.User{Email: email, Role: domain.RoleFarmer, Status: tt.status}

			_, err := newSignupService(identity, profiles).Register(context.Background(), form)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, identity.signUps)
		})
	}
}

func TestRegister_LookupFailureStillSignsUp(t *testing.T) {
	identity := &fakeIdentity{}
	profiles := newFakeProfiles()
	profiles.getErr = errors.New("connection reset")

	_, err := newSignupService(identity, profiles).Register(context.Background(), fakeSignupForm())
	require.NoError(t, err)
	assert.Equal(t, 1, identity.signUps)
}

func TestRegister_ServiceError(t *testing.T) {
	apiErr := &authclient.APIError{Status: 422, Code: "weak_password", Message: "Password should be at least 6 characters"}
	identity := &fakeIdentity{signUpErr: apiErr}
	profiles := newFakeProfiles()

	_, err := newSignupService(identity, profiles).Register(context.Background(), fakeSignupForm())
	require.Error(t, err)

	var got *authclient.APIError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, apiErr.Message, got.Message)
	assert.Equal(t, 0, profiles.created)
}

func TestRegister_DuplicateInsert(t *testing.T) {
	identity := &fakeIdentity{}
	profiles := newFakeProfiles()
	svc := newSignupService(identity, profiles)
	form := fakeSignupForm()

	// A row inserted between the lookup and the insert.
	profiles.getErr = errors.New("stale read")
	profiles.users[NormalizeEmail(form.Email)] = &domain.User{Email: NormalizeEmail(form.Email)}

	_, err := svc.Register(context.Background(), form)
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}
