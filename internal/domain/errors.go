package domain

import "errors"

// Error kinds. Callers wrap them with context and classify with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientSeats = errors.New("insufficient seats")
	ErrHoldNotActive     = errors.New("hold is not active")
	ErrHoldExpired       = errors.New("hold expired")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnknownAttempt    = errors.New("unknown payment attempt")
	ErrProviderError     = errors.New("payment provider error")

	ErrValidation       = errors.New("validation failed")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrRouteNotBookable = errors.New("route is not bookable")
	ErrConflict         = errors.New("conflict")
)
