package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim (Unix epoch seconds) from the second
// segment of a three-part dot-separated token.
//
// The signature is deliberately not verified: the expiry is only used to
// schedule proactive renewal on this side of the wire.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNoExpiryClaim, err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiryClaim
	}
	return exp.Time, nil
}
