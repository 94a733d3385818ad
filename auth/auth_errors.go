package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPolicyViolation    = errors.New("password does not meet the policy")
	ErrInvalidCode        = errors.New("invalid verification code")
)
