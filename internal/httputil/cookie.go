package httputil

import (
	"net/http"
	"strings"
	"time"
)

// Cookie names.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	DeviceCookie       = "device_id"
)

// DeviceHeader carries the device identifier for clients that do not keep
// cookies. Responses always echo the identifier in it.
const DeviceHeader = "X-Device-ID"

// Refresh tokens from the auth service do not carry an expiry; keep the
// cookie for a week.
const refreshCookieTTL = 7 * 24 * time.Hour

// deviceCookieTTL keeps the device identity (and so its guard state) stable
// across browser restarts.
const deviceCookieTTL = 365 * 24 * time.Hour

// CookieConfig holds cookie configuration.
type CookieConfig struct {
	Domain   string
	Path     string
	Secure   bool // Set to true in production (HTTPS)
	SameSite http.SameSite
}

// DefaultCookieConfig returns default cookie configuration.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Path:     "/",
		Secure:   false, // Set to true in production
		SameSite: http.SameSiteLaxMode,
	}
}

func (cfg CookieConfig) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	}
}

// SetAuthCookies sets HttpOnly cookies for the tokens the auth service issued.
// accessTTL is normally the session's expires_in.
func SetAuthCookies(w http.ResponseWriter, accessToken, refreshToken string, accessTTL time.Duration, cfg CookieConfig) {
	http.SetCookie(w, cfg.cookie(AccessTokenCookie, accessToken, int(accessTTL.Seconds())))
	if refreshToken != "" {
		http.SetCookie(w, cfg.cookie(RefreshTokenCookie, refreshToken, int(refreshCookieTTL.Seconds())))
	}
}

// ClearAuthCookies clears auth cookies.
func ClearAuthCookies(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, cfg.cookie(AccessTokenCookie, "", -1))
	http.SetCookie(w, cfg.cookie(RefreshTokenCookie, "", -1))
}

// SetDeviceCookie stores the device identifier.
func SetDeviceCookie(w http.ResponseWriter, deviceID string, cfg CookieConfig) {
	http.SetCookie(w, cfg.cookie(DeviceCookie, deviceID, int(deviceCookieTTL.Seconds())))
}

// GetDeviceIDFromHeader extracts the device identifier from DeviceHeader.
func GetDeviceIDFromHeader(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(DeviceHeader))
	return id, id != ""
}

// GetDeviceIDFromCookie extracts the device identifier from cookie.
func GetDeviceIDFromCookie(r *http.Request) (string, bool) {
	return cookieValue(r, DeviceCookie)
}

// GetAccessTokenFromCookie extracts access token from cookie.
func GetAccessTokenFromCookie(r *http.Request) (string, bool) {
	return cookieValue(r, AccessTokenCookie)
}

// BearerToken returns the access token from the Authorization header,
// falling back to the access token cookie for web clients.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if token, ok := GetAccessTokenFromCookie(r); ok {
		return token
	}
	return ""
}

// IsMobileClient checks if request is from a mobile client.
// Mobile clients should set header: X-Client-Type: mobile
func IsMobileClient(r *http.Request) bool {
	return r.Header.Get("X-Client-Type") == "mobile"
}

func cookieValue(r *http.Request, name string) (string, bool) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
