// Package common defines shared constants and sentinel errors used across
// the tools, the HTTP layer and the CLI. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorRateLimited  = errors.New("rate limit exceeded")

	// Input validation errors (missing file, missing or short password).
	ErrorValidation = errors.New("validation error")

	// Document errors.
	ErrorLoad              = errors.New("failed to load PDF document")
	ErrorExtraction        = errors.New("failed to extract text from PDF document")
	ErrorIncorrectPassword = errors.New("incorrect password")

	// Auth errors (invalid, malformed or expired token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
