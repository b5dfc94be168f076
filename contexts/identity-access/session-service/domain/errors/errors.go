package errors

import "errors"

var (
	// ErrUnauthenticated covers missing, unknown, and expired tokens
	// alike so callers cannot probe which tokens exist.
	ErrUnauthenticated = errors.New("unauthenticated")

	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidInput    = errors.New("invalid input")
)
