package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Validation
	ErrEmptyMessage    = fmt.Errorf("message needs a text or an image")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrNotAnImage      = fmt.Errorf("payload is not an image")
	ErrInvalidPassword = fmt.Errorf("password does not meet complexity rules")

	// Accounts
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrMessageNotFound    = fmt.Errorf("message not found")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Tokens
	ErrMissingToken    = fmt.Errorf("missing access token")
	ErrInvalidToken    = fmt.Errorf("invalid access token")
	ErrTokenGeneration = fmt.Errorf("token generation failed")

	// Sessions and workers
	ErrSessionClosed = fmt.Errorf("session is closed")
	ErrWorkerPanic   = fmt.Errorf("worker panic")
)

// MapToHTTPStatus translates domain sentinels into HTTP status codes.
// Unknown errors are treated as internal failures so that store or I/O
// problems are never mistaken for client mistakes.
func MapToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNotAnImage),
		errors.Is(err, ErrInvalidPassword):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingToken),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
