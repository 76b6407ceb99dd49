package authclient

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access token claims farmgate reads.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// TokenClaims parses an access token without verifying its signature.
// The service remains the authority on validity; this is only used to skip
// a round trip for tokens that are obviously malformed or expired.
func TokenClaims(accessToken string) (*Claims, error) {
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, &Claims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}
	return claims, nil
}

// Expired reports whether the claims carry an expiry at or before now.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time)
}
