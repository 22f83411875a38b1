package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jwalitptl/innoguard/internal/model"
)

// Inspect decodes the claims of an access token without verifying its
// signature. The client never holds the signing key; the result is only
// used to show the role and expiry of the current session.
func Inspect(token string) (*model.TokenClaims, error) {
	var claims model.TokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &claims, nil
}

// ExpiresAt returns the token's expiry, if it carries one.
func ExpiresAt(token string) (time.Time, bool) {
	claims, err := Inspect(token)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
