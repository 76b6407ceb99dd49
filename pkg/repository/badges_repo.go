package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tendant/farmgate/pkg/domain"
)

// BadgesRepository handles driver badge application persistence.
type BadgesRepository struct {
	db *sql.DB
}

// NewBadgesRepository creates a new driver badges repository.
func NewBadgesRepository(db *sql.DB) *BadgesRepository {
	return &BadgesRepository{db: db}
}

// ExistsForUser checks whether the user already filed an application.
func (r *BadgesRepository) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM driver_badges WHERE user_id = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&exists)
	return exists, err
}

// Create inserts an application. A second application for the same user
// returns domain.ErrBadgeAlreadyApplied.
func (r *BadgesRepository) Create(ctx context.Context, b *domain.DriverBadge) error {
	query := `
		INSERT INTO driver_badges (
			id, user_id, fullname, contact_number, address, birth_date, email,
			license_number, license_expiry, license_type, license_status,
			plate_number, vehicle_model, vehicle_year, vehicle_color,
			vehicle_types, other_vehicle_type,
			license_front_url, license_back_url, photo_url, vehicle_orcr_url,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`
	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.UserID, b.FullName, b.ContactNumber, b.Address, nullDate(b.BirthDate), b.Email,
		b.LicenseNumber, nullDate(b.LicenseExpiry), b.LicenseType, b.LicenseStatus,
		b.PlateNumber, b.VehicleModel, nullInt(b.VehicleYear), b.VehicleColor,
		pq.Array(b.VehicleTypes), b.OtherVehicleType,
		nullString(b.LicenseFrontURL), nullString(b.LicenseBackURL), nullString(b.PhotoURL), nullString(b.VehicleORCRURL),
		b.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrBadgeAlreadyApplied
	}
	return err
}
