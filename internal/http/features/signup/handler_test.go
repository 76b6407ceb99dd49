package signup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tendant/farmgate/pkg/auth"
	"github.com/tendant/farmgate/pkg/authclient"
	"github.com/tendant/farmgate/pkg/domain"
)

type stubRegistrar struct {
	err  error
	form auth.SignupForm
}

func (s *stubRegistrar) Register(_ context.Context, form auth.SignupForm) (*domain.User, error) {
	s.form = form
	if s.err != nil {
		return nil, s.err
	}
	return &domain.User{Email: form.Email, Role: domain.RoleFarmer, Status: domain.StatusUnverified}, nil
}

func newHandler(reg Registrar) *Handler {
	return NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), reg, nil)
}

const validBody = `{"full_name":"Ana Cruz","email":"ana@farm.ph","contact":"09171234567","password":"Str0ng!pass","confirm_password":"Str0ng!pass","accept_terms":true}`

func TestSignup(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "created",
			body:           validBody,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid json",
			body:           `{invalid}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid request body",
		},
		{
			name:           "field errors",
			body:           validBody,
			err:            auth.FieldErrors{"email": "Please enter a valid email address."},
			expectedStatus: http.StatusBadRequest,
			expectedError:  msgValidation,
		},
		{
			name:           "verified email",
			body:           validBody,
			err:            domain.ErrEmailInUse,
			expectedStatus: http.StatusConflict,
			expectedError:  msgEmailInUse,
		},
		{
			name:           "pending email",
			body:           validBody,
			err:            domain.ErrEmailPendingVerification,
			expectedStatus: http.StatusConflict,
			expectedError:  msgEmailPending,
		},
		{
			name:           "service rejects",
			body:           validBody,
			err:            fmt.Errorf("op: %w", &authclient.APIError{Status: 422, Message: "User already registered"}),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  "User already registered",
		},
		{
			name:           "service down",
			body:           validBody,
			err:            errors.New("dial tcp: connection refused"),
			expectedStatus: http.StatusBadGateway,
			expectedError:  msgSignupFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(&stubRegistrar{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.Signup(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}
			if tt.expectedError == "" {
				return
			}
			var response map[string]any
			json.NewDecoder(rec.Body).Decode(&response)
			if response["error"] != tt.expectedError {
				t.Errorf("Error = %v, want %q", response["error"], tt.expectedError)
			}
		})
	}
}

func TestSignup_FieldErrorsInBody(t *testing.T) {
	h := newHandler(&stubRegistrar{err: auth.FieldErrors{
		"password": "Password must be at least 8 characters",
		"terms":    "You must accept the terms.",
	}})

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", bytes.NewBufferString(validBody))
	rec := httptest.NewRecorder()
	h.Signup(rec, req)

	var response struct {
		Fields map[string]string `json:"fields"`
	}
	json.NewDecoder(rec.Body).Decode(&response)
	if len(response.Fields) != 2 || response.Fields["terms"] == "" {
		t.Errorf("fields = %v", response.Fields)
	}
}

func TestSignup_DecodesForm(t *testing.T) {
	reg := &stubRegistrar{}
	h := newHandler(reg)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", bytes.NewBufferString(validBody))
	h.Signup(httptest.NewRecorder(), req)

	if reg.form.FullName != "Ana Cruz" || !reg.form.AcceptTerms || reg.form.ConfirmPassword != "Str0ng!pass" {
		t.Errorf("decoded form = %+v", reg.form)
	}
}
