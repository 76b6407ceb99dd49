// Package authclient talks to the external GoTrue-compatible authentication
// service that owns accounts, passwords and sessions.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrInvalidLogin is returned when the service rejects an email/password pair.
	ErrInvalidLogin = errors.New("invalid login credentials")
	// ErrUnauthorized is returned when an access token is missing, expired or rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmailNotConfirmed is returned when signing in before confirming the email.
	ErrEmailNotConfirmed = errors.New("email not confirmed")
)

// Config holds client configuration.
type Config struct {
	// BaseURL is the service root, e.g. https://project.example.co.
	BaseURL string
	// AnonKey is the public API key sent with every request.
	AnonKey string
	// Timeout bounds each request (default 10s).
	Timeout time.Duration
	// Observe, if set, is called after every request with the API path and
	// how long the round trip took.
	Observe func(path string, d time.Duration)
}

// Client is an HTTP client for the auth service.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	observe    func(path string, d time.Duration)
}

// New creates a new auth service client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		anonKey:    cfg.AnonKey,
		httpClient: &http.Client{Timeout: timeout},
		observe:    cfg.Observe,
	}
}

// User is an account as reported by the service.
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// EmailConfirmed reports whether the user has confirmed their email address.
func (u *User) EmailConfirmed() bool {
	return u.EmailConfirmedAt != nil && !u.EmailConfirmedAt.IsZero()
}

// MetadataString returns a string field from user metadata, or "".
func (u *User) MetadataString(key string) string {
	if u.UserMetadata == nil {
		return ""
	}
	s, _ := u.UserMetadata[key].(string)
	return s
}

// Session is the token set returned by a successful sign in.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         *User  `json:"user"`
}

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth service: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("auth service: %d: %s", e.Status, e.Message)
}

// Unwrap maps well-known failures onto sentinel errors.
func (e *APIError) Unwrap() error {
	msg := strings.ToLower(e.Message)
	switch {
	case e.Code == "invalid_credentials", e.Code == "invalid_grant", strings.Contains(msg, "invalid login"):
		return ErrInvalidLogin
	case e.Code == "email_not_confirmed", strings.Contains(msg, "email not confirmed"):
		return ErrEmailNotConfirmed
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	}
	return nil
}

// errorBody covers the error shapes the service uses.
type errorBody struct {
	Error            string `json:"error"`
	ErrorCode        string `json:"error_code"`
	Code             any    `json:"code"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

// SignUp registers a new account. Metadata is stored with the account and
// redirectTo is where the confirmation link lands.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any, redirectTo string) (*User, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}

	// Depending on confirmation settings the service answers with either a
	// bare user or a session wrapping one.
	var resp struct {
		User
		Nested *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", query, "", body, &resp); err != nil {
		return nil, err
	}
	if resp.Nested != nil {
		return resp.Nested, nil
	}
	return &resp.User, nil
}

// SignIn exchanges an email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	query := url.Values{"grant_type": {"password"}}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", query, "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ResetPasswordForEmail asks the service to email a password recovery link.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	return c.do(ctx, http.MethodPost, "/auth/v1/recover", query, "", map[string]string{"email": email}, nil)
}

// UpdatePassword sets a new password for the user owning accessToken, which
// is typically the recovery token carried by the reset link.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, password string) (*User, error) {
	if accessToken == "" {
		return nil, ErrUnauthorized
	}
	var user User
	if err := c.do(ctx, http.MethodPut, "/auth/v1/user", nil, accessToken, map[string]string{"password": password}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser returns the user owning accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, ErrUnauthorized
	}
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SignOut revokes the session owning accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, accessToken, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, accessToken string, in, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else if c.anonKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.observe != nil {
		c.observe(path, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("auth service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode auth service response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	apiErr := &APIError{Status: resp.StatusCode}
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	apiErr.Code = eb.ErrorCode
	if apiErr.Code == "" {
		if s, ok := eb.Code.(string); ok {
			apiErr.Code = s
		} else if eb.Error != "" {
			apiErr.Code = eb.Error
		}
	}

	for _, m := range []string{eb.ErrorDescription, eb.Msg, eb.Message, eb.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
