package domain

import (
	"time"

	"github.com/google/uuid"
)

// DriverBadge is a driver badge application. A user may file one.
type DriverBadge struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	FullName         string
	ContactNumber    string
	Address          string
	BirthDate        time.Time
	Email            string
	LicenseNumber    string
	LicenseExpiry    time.Time
	LicenseType      string
	LicenseStatus    string
	PlateNumber      string
	VehicleModel     string
	VehicleYear      int
	VehicleColor     string
	VehicleTypes     []string
	OtherVehicleType string

	// Uploaded documents, stored as data URLs.
	LicenseFrontURL string
	LicenseBackURL  string
	PhotoURL        string
	VehicleORCRURL  string

	CreatedAt time.Time
}
