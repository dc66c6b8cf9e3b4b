package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Login outcomes
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many failed login attempts")
	ErrUnavailable        = errors.New("authentication backend unavailable")

	// Registration conflicts
	ErrEmailTaken    = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrUsernameTaken = fmt.Errorf("username already taken: %w", ErrConflict)
	ErrPageExists    = fmt.Errorf("user page already exists: %w", ErrConflict)
)

// RateLimitedError is returned while an identifier is locked out.
// MinutesRemaining is the ceiling of the time left, never below 1.
type RateLimitedError struct {
	MinutesRemaining int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: retry in %d minute(s)", ErrRateLimited.Error(), e.MinutesRemaining)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// Unavailable marks a collaborator failure. The result matches both
// ErrUnavailable and the original error with errors.Is.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// ValidationError carries a user-facing message for rejected input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrBadRequest
}
