package badge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/farmgate/internal/http/middleware"
	"github.com/tendant/farmgate/internal/httputil"
	"github.com/tendant/farmgate/internal/metrics"
	"github.com/tendant/farmgate/pkg/auth"
	"github.com/tendant/farmgate/pkg/domain"
)

// Applier files driver badge applications. *auth.BadgeService satisfies it.
type Applier interface {
	Apply(ctx context.Context, who auth.Applicant, app auth.BadgeApplication) (*auth.BadgeResult, error)
}

// Handler handles the driver badge endpoint.
type Handler struct {
	logger  *slog.Logger
	badges  Applier
	metrics *metrics.Metrics
}

// NewHandler creates a new badge handler.
func NewHandler(logger *slog.Logger, badges Applier, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		badges:  badges,
		metrics: m,
	}
}

// Response is returned after an application is filed.
type Response struct {
	Message     string `json:"message"`
	BadgeID     string `json:"badge_id"`
	RoleUpdated bool   `json:"role_updated"`
	Redirect    string `json:"redirect"`
}

// Messages shown on the badge page.
const (
	msgSubmitted      = "Driver badge application submitted successfully!"
	msgAlreadyApplied = "You have already applied for a driver badge. Only one application is allowed."
	msgFixFields      = "Please correct the highlighted fields."
	msgSubmitFailed   = "Error submitting application. Please try again."
	msgLoginRequired  = "You must be logged in to apply."
)

// maxMemory is how much of a multipart body is held in memory before
// spilling files to disk. The body itself is capped by RequestSizeLimit.
const maxMemory = 8 << 20

// Apply files a driver badge application for the signed-in user.
// POST /v1/driver/badge (multipart/form-data)
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, msgLoginRequired)
		return
	}
	id, err := uuid.Parse(user.ID)
	if err != nil {
		httputil.Error(w, http.StatusUnauthorized, msgLoginRequired)
		return
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		if middleware.HandleMaxBytesError(w, err) {
			return
		}
		httputil.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	app, err := readApplication(r.MultipartForm)
	if err != nil {
		h.logger.Warn("failed to read uploads", "error", err)
		httputil.Error(w, http.StatusBadRequest, "invalid file upload")
		return
	}

	res, err := h.badges.Apply(r.Context(), auth.Applicant{ID: id, Email: user.Email}, app)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.metrics.ObserveBadge("filed")
	httputil.JSON(w, http.StatusCreated, Response{
		Message:     msgSubmitted,
		BadgeID:     res.Badge.ID.String(),
		RoleUpdated: res.RoleUpdated,
		Redirect:    domain.LobbyPath,
	})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var fields auth.FieldErrors
	switch {
	case errors.As(err, &fields):
		h.metrics.ObserveBadge("invalid")
		httputil.FieldErrors(w, msgFixFields, fields)
	case errors.Is(err, domain.ErrBadgeAlreadyApplied):
		h.metrics.ObserveBadge("duplicate")
		httputil.Error(w, http.StatusConflict, msgAlreadyApplied)
	case errors.Is(err, domain.ErrUnauthenticated):
		httputil.Error(w, http.StatusUnauthorized, msgLoginRequired)
	default:
		h.metrics.ObserveBadge("error")
		h.logger.Error("badge application failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, msgSubmitFailed)
	}
}

func readApplication(form *multipart.Form) (auth.BadgeApplication, error) {
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	app := auth.BadgeApplication{
		FullName:         value("fullname"),
		ContactNumber:    value("contact_number"),
		Address:          value("address"),
		BirthDate:        value("birth_date"),
		Email:            value("email"),
		LicenseNumber:    value("license_number"),
		LicenseExpiry:    value("license_expiry"),
		LicenseType:      value("license_type"),
		LicenseStatus:    value("license_status"),
		PlateNumber:      value("plate_number"),
		VehicleModel:     value("vehicle_model"),
		VehicleYear:      value("vehicle_year"),
		VehicleColor:     value("vehicle_color"),
		VehicleTypes:     append(append([]string(nil), form.Value["vehicle_types[]"]...), form.Value["vehicle_types"]...),
		OtherVehicleType: value("other_vehicle_type"),
	}

	uploads := []struct {
		field string
		dst   **auth.Upload
	}{
		{"license_front", &app.LicenseFront},
		{"license_back", &app.LicenseBack},
		{"photo", &app.Photo},
		{"vehicle_orcr", &app.VehicleORCR},
	}
	for _, u := range uploads {
		up, err := readUpload(form, u.field)
		if err != nil {
			return app, err
		}
		*u.dst = up
	}
	return app, nil
}

// readUpload returns nil when the field is absent or the file is empty.
func readUpload(form *multipart.Form, field string) (*auth.Upload, error) {
	files := form.File[field]
	if len(files) == 0 || files[0].Size == 0 {
		return nil, nil
	}
	fh := files[0]

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &auth.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
