// errors.go defines the error taxonomy for platform API calls. Callers use
// errors.Is against the sentinels to tell a retryable transport failure apart
// from bad input or a state conflict, even when the surfaced message is the
// same user-facing string.
package platform

import (
	"errors"
	"net/http"
)

var (
	// ErrUnavailable means the request never reached the platform or the
	// platform failed internally. Retrying the action may succeed.
	ErrUnavailable = errors.New("platform unavailable")

	// ErrValidation means the platform rejected the input (4xx with a
	// field-level message). The caller must fix the input before retrying.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized means the bearer token is missing, expired, or invalid.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the authenticated account lacks the role required
	// for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means the entity or verification id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means the action is illegal given the entity's current
	// state, e.g. approving an already-terminal request. Nothing to do.
	ErrConflict = errors.New("state conflict")
)

// APIError carries the platform's HTTP status and message for a failed call.
// StatusCode is 0 when the request never produced a response. Unwrap yields
// the taxonomy sentinel so errors.Is works through the wrapper.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError builds an APIError wrapping the given underlying error.
func NewAPIError(statusCode int, message string, err error) *APIError {
	return &APIError{StatusCode: statusCode, Message: message, Err: err}
}

// sentinelFor maps an HTTP status code to the taxonomy sentinel. Unmapped 4xx
// codes are treated as validation failures; everything 5xx and unknown is a
// platform-side failure the caller may retry.
func sentinelFor(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	}
	if statusCode >= 400 && statusCode < 500 {
		return ErrValidation
	}
	return ErrUnavailable
}

// Message extracts the human-readable message for err: the platform's message
// field when present, otherwise fallback. This is the single string the UI
// shows regardless of category.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
