package badge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/tendant/farmgate/internal/http/middleware"
	"github.com/tendant/farmgate/pkg/auth"
	"github.com/tendant/farmgate/pkg/authclient"
	"github.com/tendant/farmgate/pkg/domain"
)

type stubApplier struct {
	err error
	who auth.Applicant
	app auth.BadgeApplication
}

func (s *stubApplier) Apply(_ context.Context, who auth.Applicant, app auth.BadgeApplication) (*auth.BadgeResult, error) {
	s.who, s.app = who, app
	if s.err != nil {
		return nil, s.err
	}
	return &auth.BadgeResult{Badge: &domain.DriverBadge{ID: uuid.New()}, RoleUpdated: true}, nil
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func multipartBody(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{
		"fullname":       "Juan Dela Cruz",
		"contact_number": "09171234567",
		"address":        "Brgy. Mabini, Batangas",
		"email":          "juan@farm.ph",
		"license_number": "N01-23-456789",
		"vehicle_year":   "2019",
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.WriteField("vehicle_types[]", "truck")
	mw.WriteField("vehicle_types[]", "tractor")

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="photo"; filename="me.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(pngBytes)

	mw.Close()
	return &buf, mw.FormDataContentType()
}

func newRequest(t *testing.T, user *authclient.User) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/driver/badge", body)
	req.Header.Set("Content-Type", contentType)
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserKey, user))
	}
	return req
}

func newHandler(a Applier) *Handler {
	return NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), a, nil)
}

func TestApply_Filed(t *testing.T) {
	stub := &stubApplier{}
	h := newHandler(stub)
	id := uuid.New()

	rec := httptest.NewRecorder()
	h.Apply(rec, newRequest(t, &authclient.User{ID: id.String(), Email: "juan@farm.ph"}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp Response
	json.NewDecoder(rec.Body).Decode(&resp)
	if !resp.RoleUpdated || resp.Redirect != domain.LobbyPath {
		t.Errorf("response = %+v", resp)
	}

	if stub.who.ID != id || stub.who.Email != "juan@farm.ph" {
		t.Errorf("applicant = %+v", stub.who)
	}
	if stub.app.FullName != "Juan Dela Cruz" || stub.app.VehicleYear != "2019" {
		t.Errorf("application = %+v", stub.app)
	}
	if len(stub.app.VehicleTypes) != 2 {
		t.Errorf("vehicle types = %v", stub.app.VehicleTypes)
	}
	if stub.app.Photo == nil || !strings.HasPrefix(stub.app.Photo.DataURL(), "data:image/png;base64,") {
		t.Errorf("photo upload not read: %+v", stub.app.Photo)
	}
	if stub.app.LicenseFront != nil {
		t.Error("absent upload should be nil")
	}
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{name: "duplicate", err: domain.ErrBadgeAlreadyApplied, expectedStatus: http.StatusConflict, expectedError: msgAlreadyApplied},
		{name: "invalid", err: auth.FieldErrors{"address": "Please enter your address."}, expectedStatus: http.StatusBadRequest, expectedError: msgFixFields},
		{name: "storage", err: errors.New("connection reset"), expectedStatus: http.StatusInternalServerError, expectedError: msgSubmitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(&stubApplier{err: tt.err})

			rec := httptest.NewRecorder()
			h.Apply(rec, newRequest(t, &authclient.User{ID: uuid.NewString()}))

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}
			var response map[string]any
			json.NewDecoder(rec.Body).Decode(&response)
			if response["error"] != tt.expectedError {
				t.Errorf("Error = %v, want %q", response["error"], tt.expectedError)
			}
		})
	}
}

func TestApply_RequiresUser(t *testing.T) {
	h := newHandler(&stubApplier{})

	rec := httptest.NewRecorder()
	h.Apply(rec, newRequest(t, nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestApply_BodyTooLarge(t *testing.T) {
	h := middleware.RequestSizeLimit(64)(http.HandlerFunc(newHandler(&stubApplier{}).Apply))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newRequest(t, &authclient.User{ID: uuid.NewString()}))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}
