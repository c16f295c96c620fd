// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")

	// Authentication errors. ErrInvalidCredentials covers both an unknown
	// email and a wrong password so the two are indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeleted     = errors.New("account deleted")
	ErrUserNotFound       = errors.New("user not found")

	// Registration errors, checked username first, then email.
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already registered")

	// Token lifecycle errors.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidSignature    = errors.New("invalid token signature")

	// Email confirmation errors.
	ErrEmailAlreadyConfirmed = errors.New("email already confirmed")

	// Password reset errors.
	ErrResetInvalid = errors.New("password reset invalid or expired")
)
