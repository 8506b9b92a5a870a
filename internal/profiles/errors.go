package profiles

import (
	"errors"
	"net/http"
)

var (
	ErrNotAuthenticated = errors.New("you must be signed in")
	ErrInvalidProfile   = errors.New("username and full name are required")
	ErrStoreWrite       = errors.New("failed to update profile")
)

// MapHTTPStatus maps profile errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidProfile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
