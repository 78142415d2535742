package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("no user token")
	ErrTokenExpired = errors.New("user token expired")
)

// Claims mirrors the token issued at login. The backend signs it; the client
// only reads the user id and the expiry, it never verifies the signature
// (the signing key lives server-side).
type Claims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}

// UserIDFromToken extracts the user id from the stored login token and
// rejects tokens that have already expired.
func UserIDFromToken(tokenString string) (int64, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	if tokenString == "" {
		return 0, ErrNoToken
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return 0, err
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return 0, ErrTokenExpired
	}

	return claims.UserID, nil
}
