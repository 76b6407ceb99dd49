package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestUser_LandingPath(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want string
	}{
		{name: "farmer", role: RoleFarmer, want: LobbyPath},
		{name: "driver", role: RoleDriver, want: LobbyPath},
		{name: "sra officer", role: RoleSRAOfficer, want: SRADashboardPath},
		{name: "empty role", role: "", want: LobbyPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{Role: tt.role}
			if got := u.LandingPath(); got != tt.want {
				t.Errorf("LandingPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{name: "full name", user: User{FullName: "Maria Santos", Email: "maria@farm.ph"}, want: "Maria Santos"},
		{name: "email fallback", user: User{Email: "maria@farm.ph"}, want: "maria@farm.ph"},
		{name: "nothing set", user: User{}, want: "User"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUser_IsVerified(t *testing.T) {
	uid := uuid.New()
	u := &User{UID: &uid, Status: StatusUnverified}
	if u.IsVerified() {
		t.Error("unverified user reported verified")
	}
	u.Status = StatusVerified
	if !u.IsVerified() {
		t.Error("verified user reported unverified")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"farmer", RoleFarmer},
		{"driver", RoleDriver},
		{"sra_officer", RoleSRAOfficer},
		{"", RoleFarmer},
		{"admin", RoleFarmer},
	}

	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
