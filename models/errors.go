package models

import (
	"errors"
	"fmt"
)

// Error codes used for run-level error handling and status reporting.
const (
	ErrCodeConfig       = "CONFIG_INVALID"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeLogin        = "LOGIN_FAILED"
	ErrCodeSession      = "SESSION_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodePersist      = "PERSIST_FAILED"
	ErrCodeExtraction   = "EXTRACTION_FAILED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
)

// ErrorDetail is the structured error in status and webhook payloads.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CrawlError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type CrawlError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *CrawlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

// NewCrawlError creates a new CrawlError.
func NewCrawlError(code, message string, err error) *CrawlError {
	return &CrawlError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *CrawlError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// DetailOf returns the ErrorDetail for any error. Errors that are not a
// CrawlError are reported as INTERNAL_ERROR.
func DetailOf(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce.ToDetail()
	}
	return &ErrorDetail{Code: "INTERNAL_ERROR", Message: err.Error()}
}

// CodeOf extracts the error code from err, or "" when err carries none.
func CodeOf(err error) string {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
