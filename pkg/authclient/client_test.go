package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", AnonKey: "anon-key"})
}

func TestSignIn_Success(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "juan@farm.ph", body["email"])
		assert.Equal(t, "Secret1!", body["password"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "at",
			"refresh_token": "rt",
			"token_type": "bearer",
			"expires_in": 3600,
			"user": {
				"id": "8b7c6a1e-2f5d-4f0e-9a51-1f1d0c0f1e11",
				"email": "juan@farm.ph",
				"email_confirmed_at": "2025-01-02T03:04:05Z",
				"user_metadata": {"full_name": "Juan Dela Cruz", "role": "farmer"}
			}
		}`))
	})

	session, err := c.SignIn(context.Background(), "juan@farm.ph", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, "at", session.AccessToken)
	assert.Equal(t, 3600, session.ExpiresIn)
	require.NotNil(t, session.User)
	assert.True(t, session.User.EmailConfirmed())
	assert.Equal(t, "Juan Dela Cruz", session.User.MetadataString("full_name"))
	assert.Equal(t, "", session.User.MetadataString("contact"))
}

func TestSignIn_InvalidLogin(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"gotrue v1", `{"error":"invalid_grant","error_description":"Invalid login credentials"}`},
		{"gotrue v2", `{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			})

			_, err := c.SignIn(context.Background(), "juan@farm.ph", "wrong")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidLogin))

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.Status)
			assert.Equal(t, "Invalid login credentials", apiErr.Message)
		})
	}
}

func TestSignIn_EmailNotConfirmed(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":400,"error_code":"email_not_confirmed","msg":"Email not confirmed"}`))
	})

	_, err := c.SignIn(context.Background(), "juan@farm.ph", "Secret1!")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmailNotConfirmed))
	assert.False(t, errors.Is(err, ErrInvalidLogin))
}

func TestObserveHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	var paths []string
	c := New(Config{
		BaseURL: srv.URL,
		AnonKey: "anon-key",
		Observe: func(path string, d time.Duration) {
			paths = append(paths, path)
			assert.GreaterOrEqual(t, d, time.Duration(0))
		},
	})

	require.NoError(t, c.ResetPasswordForEmail(context.Background(), "juan@farm.ph", ""))
	assert.Equal(t, []string{"/auth/v1/recover"}, paths)
}

func TestSignUp_MetadataAndRedirect(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		assert.Equal(t, "https://portal.example/auth/login", r.URL.Query().Get("redirect_to"))

		var body struct {
			Email string         `json:"email"`
			Data  map[string]any `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "farmer", body.Data["role"])

		w.Write([]byte(`{"id":"u-1","email":"ana@farm.ph"}`))
	})

	user, err := c.SignUp(context.Background(), "ana@farm.ph", "Secret1!",
		map[string]any{"full_name": "Ana", "contact": "+639171234567", "role": "farmer"},
		"https://portal.example/auth/login")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.False(t, user.EmailConfirmed())
}

func TestSignUp_SessionShape(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"at","user":{"id":"u-2","email":"ben@farm.ph"}}`))
	})

	user, err := c.SignUp(context.Background(), "ben@farm.ph", "Secret1!", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "u-2", user.ID)
}

func TestResetPasswordForEmail(t *testing.T) {
	var called bool
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "/auth/v1/recover", r.URL.Path)
		assert.Equal(t, "https://portal.example/auth/reset-password/confirm", r.URL.Query().Get("redirect_to"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})

	err := c.ResetPasswordForEmail(context.Background(), "ana@farm.ph", "https://portal.example/auth/reset-password/confirm")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestUpdatePassword_UsesBearer(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "Bearer recovery-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"u-1","email":"ana@farm.ph"}`))
	})

	user, err := c.UpdatePassword(context.Background(), "recovery-token", "N3w!Passw0rd")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)

	_, err = c.UpdatePassword(context.Background(), "", "N3w!Passw0rd")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetUser_Unauthorized(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":401,"msg":"invalid JWT"}`))
	})

	_, err := c.GetUser(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDecodeError_PlainText(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})

	err := c.SignOut(context.Background(), "token")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.False(t, errors.Is(err, ErrInvalidLogin))
}

func TestTokenClaims(t *testing.T) {
	exp := time.Now().Add(-time.Minute)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: "ana@farm.ph",
	})
	signed, err := token.SignedString([]byte("not-our-secret"))
	require.NoError(t, err)

	claims, err := TokenClaims(signed)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "ana@farm.ph", claims.Email)
	assert.True(t, claims.Expired(time.Now()))

	_, err = TokenClaims("not-a-jwt")
	assert.Error(t, err)
}
