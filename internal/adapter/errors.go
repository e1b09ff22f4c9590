package adapter

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("client unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrPreconditionFailed  = errors.New("precondition failed")
	ErrInternalServerError = errors.New("internal server error")
	ErrBadGateway          = errors.New("bad gateway")
	ErrUnexpectedStatus    = errors.New("unexpected status")

	// ErrMissingCSRFToken is returned when a successful login response does
	// not carry an anti-forgery token.
	ErrMissingCSRFToken = errors.New("empty CSRF token from API")
)

// HTTPError is a non-2xx API response.
type HTTPError struct {
	Status  int
	Title   string
	Message string

	kind     error
	fallback string
}

// Error renders "title: message" when the API sent both, otherwise the
// fallback text with the status code.
func (e *HTTPError) Error() string {
	if e.Title != "" && e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Message)
	}
	return fmt.Sprintf("%s (status %d)", e.fallback, e.Status)
}

// Unwrap returns the status sentinel.
func (e *HTTPError) Unwrap() error {
	return e.kind
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}
