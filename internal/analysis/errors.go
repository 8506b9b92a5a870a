package analysis

import (
	"errors"
	"net/http"
)

// Kind classifies why an analysis call failed.
type Kind int

const (
	// KindTransport covers network failures and caller cancellation.
	KindTransport Kind = iota + 1
	// KindService is a non-2xx reply from the model endpoint.
	KindService
	// KindTimeout means the analysis deadline elapsed.
	KindTimeout
	// KindMalformed is a reply that is missing text or is not a JSON object.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindService:
		return "service"
	case KindTimeout:
		return "timeout"
	case KindMalformed:
		return "malformed"
	}
	return "unknown"
}

// Error is returned by Client.Analyze for every failure.
type Error struct {
	Kind Kind
	// StatusCode is the upstream HTTP status for KindService.
	StatusCode int
	// Detail is the upstream message, when there is one.
	Detail string
	Err    error
}

// Sentinels matched by kind: errors.Is(err, ErrTimeout).
var (
	ErrTransport = &Error{Kind: KindTransport}
	ErrService   = &Error{Kind: KindService}
	ErrTimeout   = &Error{Kind: KindTimeout}
	ErrMalformed = &Error{Kind: KindMalformed}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return "Analysis took too long. Please try again."
	case KindService:
		if e.Detail != "" {
			return "Analysis service error: " + e.Detail
		}
		if e.StatusCode != 0 {
			return "Analysis service error: " + http.StatusText(e.StatusCode)
		}
		return "Analysis service error"
	case KindMalformed:
		return "Failed to parse analysis response"
	default:
		if e.Detail != "" {
			return "Could not reach the analysis service: " + e.Detail
		}
		return "Could not reach the analysis service"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// MapHTTPStatus maps analysis and image errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrTransport), errors.Is(err, ErrService), errors.Is(err, ErrMalformed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
