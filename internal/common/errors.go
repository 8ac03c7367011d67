// Package common defines shared constants and sentinel errors used across
// the SmartIDS server packages. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrConfig reports a missing or malformed master key. It fails the
	// request, never the process.
	ErrConfig = errors.New("master key missing or invalid")

	// Crypto errors.
	ErrIntegrity = errors.New("integrity check failed")
	ErrFormat    = errors.New("invalid ciphertext format")

	// Blob storage errors.
	ErrStorage      = errors.New("storage error")
	ErrBlobNotFound = errors.New("blob not found")
	ErrFileTooLarge = errors.New("file too large")

	// Share lifecycle errors.
	ErrShareExpired   = errors.New("share expired")
	ErrShareExhausted = errors.New("share download limit reached")
)
