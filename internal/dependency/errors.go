package dependency

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a structured analysis error with context
type Error struct {
	Code       string // Machine-readable error code
	Message    string // Human-readable message
	HTTPStatus int    // Suggested HTTP status code
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common analysis errors
var (
	ErrResourceNotFound = &Error{
		Code:       "RESOURCE_NOT_FOUND",
		Message:    "resource not found in dependency graph",
		HTTPStatus: http.StatusNotFound,
	}

	ErrInvalidOptions = &Error{
		Code:       "INVALID_OPTIONS",
		Message:    "invalid analysis options",
		HTTPStatus: http.StatusBadRequest,
	}
)

// NotFound wraps ErrResourceNotFound with the missing key
func NotFound(key string) error {
	return fmt.Errorf("%w: %s", ErrResourceNotFound, key)
}

// InvalidOptions wraps ErrInvalidOptions with a formatted reason
func InvalidOptions(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidOptions, fmt.Sprintf(format, args...))
}

// IsAnalysisError checks if an error is a dependency.Error
func IsAnalysisError(err error) (*Error, bool) {
	var analysisErr *Error
	if errors.As(err, &analysisErr) {
		return analysisErr, true
	}
	return nil, false
}

// HTTPStatusFor maps an error to the status a transport layer should return.
// Unknown errors map to 500.
func HTTPStatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if analysisErr, ok := IsAnalysisError(err); ok {
		return analysisErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
