package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tendant/farmgate/internal/httputil"
	"github.com/tendant/farmgate/pkg/authclient"
)

// UserLookup resolves an access token to its account. *authclient.Client satisfies it.
type UserLookup interface {
	GetUser(ctx context.Context, accessToken string) (*authclient.User, error)
}

// RequireSession rejects requests without a live auth service session.
// The token comes from the Authorization header or the access token cookie.
// Tokens that are visibly expired are refused without a network round trip.
func RequireSession(users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := httputil.BearerToken(r)
			if token == "" {
				httputil.Error(w, http.StatusUnauthorized, "You must be logged in.")
				return
			}

			if claims, err := authclient.TokenClaims(token); err == nil && claims.Expired(time.Now()) {
				httputil.Error(w, http.StatusUnauthorized, "Your session has expired. Please log in again.")
				return
			}

			user, err := users.GetUser(r.Context(), token)
			if err != nil {
				if errors.Is(err, authclient.ErrUnauthorized) {
					httputil.Error(w, http.StatusUnauthorized, "Your session has expired. Please log in again.")
					return
				}
				var apiErr *authclient.APIError
				if errors.As(err, &apiErr) && apiErr.Status < 500 {
					httputil.Error(w, http.StatusUnauthorized, "You must be logged in.")
					return
				}
				logger.Error("failed to verify session", "error", err)
				httputil.Error(w, http.StatusBadGateway, "could not reach the authentication service")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			ctx = context.WithValue(ctx, AccessTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireConfirmedEmail refuses accounts whose email is not confirmed.
// Must be used after RequireSession.
func RequireConfirmedEmail() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "You must be logged in.")
				return
			}
			if !user.EmailConfirmed() {
				httputil.Error(w, http.StatusForbidden, "email verification required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUser returns the account set by RequireSession.
func GetUser(ctx context.Context) (*authclient.User, bool) {
	user, ok := ctx.Value(UserKey).(*authclient.User)
	return user, ok && user != nil
}

// GetAccessToken returns the token verified by RequireSession.
func GetAccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(AccessTokenKey).(string)
	return token, ok && token != ""
}
