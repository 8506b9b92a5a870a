package discoveries

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/microfinder/internal/analysis"
)

var (
	ErrNotAuthenticated = errors.New("you must be signed in")
	// ErrNotAuthorizedOrNotFound does not reveal whether the row exists.
	ErrNotAuthorizedOrNotFound = errors.New("discovery not found or not owned by you")
	ErrNotFound                = errors.New("discovery not found")
	ErrStoreWrite              = errors.New("failed to save discovery")
	ErrEmptyUpdate             = errors.New("update contains no editable fields")
	ErrInvalidRequest          = errors.New("invalid request")
)

// MapHTTPStatus maps discovery errors, and the analysis errors a capture
// can return, to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotAuthorizedOrNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyUpdate), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrStoreWrite):
		return http.StatusInternalServerError
	}
	return analysis.MapHTTPStatus(err)
}
