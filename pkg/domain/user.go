package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the portal role of an account.
type Role string

// Roles
const (
	RoleFarmer     Role = "farmer"
	RoleDriver     Role = "driver"
	RoleSRAOfficer Role = "sra_officer"
)

// AccountStatus tracks whether the account's email has been confirmed.
type AccountStatus string

// Account statuses
const (
	StatusUnverified AccountStatus = "unverified"
	StatusVerified   AccountStatus = "verified"
)

// Landing pages after sign in.
const (
	LobbyPath        = "/lobby"
	SRADashboardPath = "/sra/dashboard"
)

// User is the portal profile row kept alongside the auth service account.
type User struct {
	ID        int64
	UID       *uuid.UUID // auth service account ID, nil for rows created before linking
	FullName  string
	Email     string
	Contact   string
	Role      Role
	Status    AccountStatus
	CreatedAt time.Time
}

// IsVerified returns true if the account's email has been confirmed.
func (u *User) IsVerified() bool {
	return u.Status == StatusVerified
}

// DisplayName returns the name to greet the user with.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	if u.Email != "" {
		return u.Email
	}
	return "User"
}

// LandingPath returns where the user goes after signing in.
func (u *User) LandingPath() string {
	if u.Role == RoleSRAOfficer {
		return SRADashboardPath
	}
	return LobbyPath
}

// ParseRole converts a stored or metadata role, defaulting to farmer.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleFarmer, RoleDriver, RoleSRAOfficer:
		return Role(s)
	}
	return RoleFarmer
}
