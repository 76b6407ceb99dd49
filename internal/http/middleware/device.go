package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/farmgate/internal/httputil"
)

type contextKey string

const (
	// DeviceIDKey is the context key for the browser's device identifier.
	DeviceIDKey contextKey = "device_id"
	// UserKey is the context key for the signed-in auth service account.
	UserKey contextKey = "user"
	// AccessTokenKey is the context key for the verified access token.
	AccessTokenKey contextKey = "access_token"
)

// Device makes sure every client carries a device identifier and puts it in
// the request context. Login attempt state is scoped to it. An X-Device-ID
// header wins over the device_id cookie; a missing or malformed identifier is
// replaced with a new one, set as a cookie. The identifier in use is echoed
// in the X-Device-ID response header so cookie-less clients can send it back.
func Device(cookies httputil.CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := validDeviceID(httputil.GetDeviceIDFromHeader(r))
			if !ok {
				id, ok = validDeviceID(httputil.GetDeviceIDFromCookie(r))
			}
			if !ok {
				id = uuid.NewString()
				httputil.SetDeviceCookie(w, id, cookies)
			}
			w.Header().Set(httputil.DeviceHeader, id)

			ctx := context.WithValue(r.Context(), DeviceIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validDeviceID(id string, ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

// GetDeviceID returns the device identifier set by Device.
func GetDeviceID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(DeviceIDKey).(string)
	return id, ok && id != ""
}
