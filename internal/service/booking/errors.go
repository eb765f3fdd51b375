package booking

import (
	"context"
	"errors"
	"net/http"

	"github.com/openride/seatreserve/internal/domain"
)

// Client-facing error codes.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeInsufficientSeats = "INSUFFICIENT_SEATS"
	CodeHoldNotActive     = "HOLD_NOT_ACTIVE"
	CodeHoldExpired       = "HOLD_EXPIRED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeUnknownAttempt    = "UNKNOWN_ATTEMPT"
	CodeProviderError     = "PROVIDER_ERROR"
	CodeValidation        = "VALIDATION_ERROR"
	CodeForbidden         = "FORBIDDEN"
	CodeRouteNotBookable  = "ROUTE_NOT_BOOKABLE"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeConflict          = "CONFLICT"
	CodeUnavailable       = "UNAVAILABLE"
	CodeInternal          = "INTERNAL"
)

// Error is what the facade returns to clients. Message is safe to show;
// the wrapped error keeps the internal detail for logs.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	err     error
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

var kinds = []struct {
	kind    error
	code    string
	status  int
	message string
}{
	{domain.ErrNotFound, CodeNotFound, http.StatusNotFound, ""},
	{domain.ErrInsufficientSeats, CodeInsufficientSeats, http.StatusConflict, "not enough seats available"},
	{domain.ErrHoldExpired, CodeHoldExpired, http.StatusGone, "the seat hold has expired"},
	{domain.ErrHoldNotActive, CodeHoldNotActive, http.StatusConflict, "the seat hold is no longer active"},
	{domain.ErrInvalidTransition, CodeInvalidTransition, http.StatusConflict, ""},
	{domain.ErrUnknownAttempt, CodeUnknownAttempt, http.StatusNotFound, "unknown payment reference"},
	{domain.ErrProviderError, CodeProviderError, http.StatusBadGateway, "payment provider error"},
	{domain.ErrValidation, CodeValidation, http.StatusBadRequest, ""},
	{domain.ErrForbidden, CodeForbidden, http.StatusForbidden, "not allowed"},
	{domain.ErrRouteNotBookable, CodeRouteNotBookable, http.StatusConflict, "the route is not open for booking"},
	{domain.ErrUnauthorized, CodeUnauthorized, http.StatusUnauthorized, ""},
	{domain.ErrConflict, CodeConflict, http.StatusConflict, ""},
	{context.DeadlineExceeded, CodeUnavailable, http.StatusServiceUnavailable, "the request timed out"},
}

// Translate maps an internal error to an *Error. It returns nil for nil and
// passes an *Error through unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			msg := k.message
			if msg == "" {
				msg = err.Error()
			}
			return &Error{Code: k.code, Message: msg, Status: k.status, err: err}
		}
	}
	return &Error{Code: CodeInternal, Message: "internal error", Status: http.StatusInternalServerError, err: err}
}

// AsError is Translate for callers that need the concrete type.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	errors.As(Translate(err), &e)
	return e
}
