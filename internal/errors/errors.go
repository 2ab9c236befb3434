package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Reblock error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"    // 404
	ErrCancelled        ErrorCode = "CANCELLED"         // 499
	ErrExtractionFailed ErrorCode = "EXTRACTION_FAILED" // 422
	ErrFetchFailed      ErrorCode = "FETCH_FAILED"      // 502
	ErrExternalService  ErrorCode = "EXTERNAL_SERVICE"  // 502
	ErrTimeout          ErrorCode = "TIMEOUT"           // 504
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// ReblockError represents a structured error with code, status, and details.
type ReblockError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ReblockError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for missing or malformed request parameters.
func NewInvalidRequest(msg string) *ReblockError {
	return &ReblockError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a page record cannot be found.
func NewNotFound(identifier string) *ReblockError {
	return &ReblockError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("page not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *ReblockError {
	return &ReblockError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewCancelled creates an error for an operation stopped by context cancellation.
func NewCancelled(operation string) *ReblockError {
	return &ReblockError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewFetchFailed creates a 502 error when a page or image cannot be retrieved.
func NewFetchFailed(url string, err error) *ReblockError {
	msg := fmt.Sprintf("error fetching %s", url)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &ReblockError{
		Code:    ErrFetchFailed,
		Status:  502,
		Message: msg,
		Details: map[string]any{"url": url},
	}
}

// NewExtractionFailed creates a 422 error when fetched markup cannot be turned into blocks.
func NewExtractionFailed(url string, err error) *ReblockError {
	msg := fmt.Sprintf("error extracting blocks from %s", url)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &ReblockError{
		Code:    ErrExtractionFailed,
		Status:  422,
		Message: msg,
		Details: map[string]any{"url": url},
	}
}

// NewExternalService creates a 502 error for a failing text or image generator.
func NewExternalService(service string, err error) *ReblockError {
	msg := fmt.Sprintf("%s error", service)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &ReblockError{
		Code:    ErrExternalService,
		Status:  502,
		Message: msg,
		Details: map[string]any{"service": service},
	}
}

// NewTimeout creates a 504 error when an external service exceeds its deadline.
func NewTimeout(service string, seconds int) *ReblockError {
	return &ReblockError{
		Code:    ErrTimeout,
		Status:  504,
		Message: fmt.Sprintf("%s timed out after %ds", service, seconds),
		Details: map[string]any{"service": service, "timeout_seconds": seconds},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ReblockError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ReblockError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if err (or anything it wraps) is a ReblockError with the given code.
func Is(err error, code ErrorCode) bool {
	var rErr *ReblockError
	if stderrors.As(err, &rErr) {
		return rErr.Code == code
	}
	return false
}

// As returns err as a *ReblockError, wrapping unknown errors as internal.
func As(err error) *ReblockError {
	var rErr *ReblockError
	if stderrors.As(err, &rErr) {
		return rErr
	}
	return NewInternal(err)
}
