package domain

import (
	"fmt"
	"time"
)

// ConnectionError is a classified failure of a remote resource.
type ConnectionError struct {
	ResourceID string
	Category   ErrorCategory
	Message    string
	Err        error
	Timestamp  time.Time
	Context    map[string]any
}

// NewConnectionError wraps err with its classification.
func NewConnectionError(
	resourceID string,
	category ErrorCategory,
	err error,
	context map[string]any,
) *ConnectionError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &ConnectionError{
		ResourceID: resourceID,
		Category:   category,
		Message:    msg,
		Err:        err,
		Timestamp:  time.Now(),
		Context:    context,
	}
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.ResourceID == "" {
		return fmt.Sprintf("[%s] %s", e.Category, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.ResourceID, e.Message)
}

// Unwrap returns the original error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// StatusCoder is implemented by errors that carry an HTTP-style status code.
type StatusCoder interface {
	StatusCode() int
}

// CategoryForStatus maps an HTTP status code to a category. Codes outside
// the 4xx and 5xx ranges are unknown.
func CategoryForStatus(code int) ErrorCategory {
	switch {
	case code == 401 || code == 403:
		return CategoryAuthentication
	case code == 429:
		return CategoryRateLimit
	case code == 408:
		return CategoryTimeout
	case code >= 400 && code < 500:
		return CategoryClient
	case code >= 500 && code < 600:
		return CategoryServer
	default:
		return CategoryUnknown
	}
}
