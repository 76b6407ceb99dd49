package domain

import "errors"

// Authentication errors
var (
	ErrUserNotFound             = errors.New("user not found")
	ErrUserAlreadyExists        = errors.New("user already exists")
	ErrEmailInUse               = errors.New("email already verified and in use")
	ErrEmailPendingVerification = errors.New("email registered but not yet verified")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrEmailNotVerified         = errors.New("email not verified")
	ErrLoginLocked              = errors.New("too many failed login attempts")
	ErrLoginFailed              = errors.New("login failed")
	ErrUnauthenticated          = errors.New("not signed in")
)

// Password reset errors
var (
	ErrResetRequestFailed = errors.New("password reset request failed")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrResetFailed        = errors.New("password reset failed")
)

// Driver badge errors
var (
	ErrBadgeAlreadyApplied = errors.New("driver badge already applied for")
)

// Validation errors
var (
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrInvalidContact = errors.New("invalid contact number")
	ErrWeakPassword   = errors.New("password does not meet requirements")
	ErrValidation     = errors.New("validation failed")
)
