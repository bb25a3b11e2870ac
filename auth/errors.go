package auth

import "errors"

// Sentinel errors for token handling.
var (
	ErrTokenMalformed = errors.New("auth: token malformed")
	ErrNoExpiryClaim  = errors.New("auth: token has no exp claim")
)
