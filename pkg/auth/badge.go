package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/farmgate/internal/lib/logger/sl"
	"github.com/tendant/farmgate/pkg/domain"
)

const dateLayout = "2006-01-02"

// Upload is one submitted document.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DataURL encodes the upload as data:<mime>;base64,<payload>. The declared
// content type wins; otherwise it is sniffed from the bytes.
func (u *Upload) DataURL() string {
	if u == nil || len(u.Data) == 0 {
		return ""
	}
	mime := strings.TrimSpace(u.ContentType)
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(u.Data)
	}
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(u.Data)
}

// BadgeApplication is the driver badge form as submitted.
type BadgeApplication struct {
	FullName         string
	ContactNumber    string
	Address          string
	BirthDate        string
	Email            string
	LicenseNumber    string
	LicenseExpiry    string
	LicenseType      string
	LicenseStatus    string
	PlateNumber      string
	VehicleModel     string
	VehicleYear      string
	VehicleColor     string
	VehicleTypes     []string
	OtherVehicleType string

	LicenseFront *Upload
	LicenseBack  *Upload
	Photo        *Upload
	VehicleORCR  *Upload
}

// Applicant is the signed-in account filing the application.
type Applicant struct {
	ID    uuid.UUID
	Email string
}

// BadgeResult is the outcome of a successful application.
type BadgeResult struct {
	Badge *domain.DriverBadge
	// RoleUpdated is false when the profile could not be switched to driver.
	RoleUpdated bool
}

// BadgeService files driver badge applications.
type BadgeService struct {
	log      *slog.Logger
	badges   BadgeStore
	profiles ProfileStore
	now      func() time.Time
}

// NewBadgeService creates a new badge service.
func NewBadgeService(log *slog.Logger, badges BadgeStore, profiles ProfileStore) *BadgeService {
	return &BadgeService{
		log:      log,
		badges:   badges,
		profiles: profiles,
		now:      time.Now,
	}
}

// Apply files one application per user, then promotes the applicant's
// profile to the driver role. A failed role update is logged, not returned.
func (s *BadgeService) Apply(ctx context.Context, who Applicant, app BadgeApplication) (*BadgeResult, error) {
	const op = "auth.BadgeService.Apply"
	log := s.log.With(slog.String("op", op), slog.String("user_id", who.ID.String()))

	if who.ID == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}

	applied, err := s.badges.ExistsForUser(ctx, who.ID)
	if err != nil {
		// Refuse rather than risk a duplicate.
		log.Error("failed to check existing application", sl.Err(err))
		return nil, domain.ErrBadgeAlreadyApplied
	}
	if applied {
		return nil, domain.ErrBadgeAlreadyApplied
	}

	badge, err := s.buildBadge(who.ID, app)
	if err != nil {
		return nil, err
	}

	if err := s.badges.Create(ctx, badge); err != nil {
		if errors.Is(err, domain.ErrBadgeAlreadyApplied) {
			return nil, err
		}
		log.Error("failed to insert application", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := &BadgeResult{Badge: badge, RoleUpdated: true}

	email := NormalizeEmail(who.Email)
	if email == "" {
		email = badge.Email
	}
	if err := s.profiles.UpdateRole(ctx, email, domain.RoleDriver); err != nil {
		log.Warn("role update failed", sl.Err(err))
		res.RoleUpdated = false
	}

	log.Info("driver badge application filed", slog.String("badge_id", badge.ID.String()))
	return res, nil
}

func (s *BadgeService) buildBadge(userID uuid.UUID, app BadgeApplication) (*domain.DriverBadge, error) {
	errs := FieldErrors{}

	required := []struct{ field, value, message string }{
		{"fullname", app.FullName, "Please enter your full name."},
		{"contact_number", app.ContactNumber, "Please enter your contact number."},
		{"address", app.Address, "Please enter your address."},
		{"email", app.Email, "Please enter your email."},
		{"license_number", app.LicenseNumber, "Please enter your license number."},
	}
	for _, r := range required {
		if CleanText(r.value) == "" {
			errs.Add(r.field, r.message)
		}
	}

	email := NormalizeEmail(app.Email)
	if email != "" {
		if err := ValidateEmail(email, false, false); err != nil {
			errs.Add("email", "Please enter a valid email.")
		}
	}

	birthDate := parseDate(errs, "birth_date", app.BirthDate)
	licenseExpiry := parseDate(errs, "license_expiry", app.LicenseExpiry)

	var year int
	if y := strings.TrimSpace(app.VehicleYear); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil || n < 1900 || n > s.now().Year()+1 {
			errs.Add("vehicle_year", "Please enter a valid vehicle year.")
		}
		year = n
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}

	var types []string
	for _, t := range app.VehicleTypes {
		if t = CleanText(t); t != "" {
			types = append(types, t)
		}
	}

	return &domain.DriverBadge{
		ID:               uuid.New(),
		UserID:           userID,
		FullName:         SanitizeName(app.FullName),
		ContactNumber:    CleanText(app.ContactNumber),
		Address:          CleanMultiline(app.Address),
		BirthDate:        birthDate,
		Email:            email,
		LicenseNumber:    CleanText(app.LicenseNumber),
		LicenseExpiry:    licenseExpiry,
		LicenseType:      CleanText(app.LicenseType),
		LicenseStatus:    CleanText(app.LicenseStatus),
		PlateNumber:      CleanText(app.PlateNumber),
		VehicleModel:     CleanText(app.VehicleModel),
		VehicleYear:      year,
		VehicleColor:     CleanText(app.VehicleColor),
		VehicleTypes:     types,
		OtherVehicleType: CleanText(app.OtherVehicleType),
		LicenseFrontURL:  app.LicenseFront.DataURL(),
		LicenseBackURL:   app.LicenseBack.DataURL(),
		PhotoURL:         app.Photo.DataURL(),
		VehicleORCRURL:   app.VehicleORCR.DataURL(),
		CreatedAt:        s.now().UTC(),
	}, nil
}

// parseDate parses an optional yyyy-mm-dd form value.
func parseDate(errs FieldErrors, field, value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		errs.Add(field, "Please enter a valid date.")
		return time.Time{}
	}
	return t
}
