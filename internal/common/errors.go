// Package common defines shared constants and sentinel errors used across
// contactkeeper components. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")
	ErrorProcessing = errors.New("processing error")

	// Account-state errors.
	ErrorInvalidCredentials = errors.New("email or password is wrong")
	ErrorNotVerified        = errors.New("account has not been verified")
	ErrorAlreadyVerified    = errors.New("verification has already been passed")

	// Auth errors (missing, invalid or revoked session token).
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
)
