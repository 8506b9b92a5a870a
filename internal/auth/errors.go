package auth

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrNoSession          = errors.New("no active session")
	ErrNoPendingOAuth     = errors.New("no pending oauth sign-in")
	ErrInvalidToken       = errors.New("invalid access token")
	ErrProvider           = errors.New("auth provider error")
	ErrMissingField       = errors.New("email and password are required")
)

// ProviderError is a non-2xx reply from the auth API. It matches
// ErrProvider with errors.Is.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", ErrProvider, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: %s", ErrProvider, e.Message)
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// rejected reports whether the provider refused the request itself, as
// opposed to failing to serve it.
func (e *ProviderError) rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// MapHTTPStatus maps auth errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrNoPendingOAuth):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrNoSession), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.rejected() {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrProvider) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
