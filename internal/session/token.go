package session

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkarpov/usagevault/internal/common"
	"github.com/mkarpov/usagevault/internal/cryptox"
)

// tokenKey derives the HS256 signing key from the device identity. Tokens
// are scoped to this installation and carry no server-side authority.
func tokenKey() []byte {
	sum := sha256.Sum256([]byte("usagevault-session|" + cryptox.DeviceID()))
	return sum[:]
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// issueToken mints a signed session token for email, valid for ttl.
func issueToken(email string, now time.Time, ttl time.Duration) (string, error) {
	c := claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "usagevault",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(tokenKey())
}

// parseToken validates a session token and returns the subject email.
func parseToken(token string) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return tokenKey(), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrSessionExpired, err)
	}
	return c.Email, nil
}
