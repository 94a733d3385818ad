package token

import "errors"

// Validation failures. Callers at the HTTP boundary must collapse all of
// these into one uniform unauthenticated response; the distinction exists for
// logs and tests only.
var (
	ErrMalformed    = errors.New("malformed token")
	ErrBadSignature = errors.New("invalid token signature")
	ErrExpired      = errors.New("token expired")
	ErrBadIssuer    = errors.New("invalid token issuer")
	ErrBadAudience  = errors.New("invalid token audience")
	ErrBadTokenUse  = errors.New("invalid token use")
)
