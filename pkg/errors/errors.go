package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown        ErrorCode = "UNKNOWN"
	ErrInternal       ErrorCode = "INTERNAL"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrNonInteractive ErrorCode = "NON_INTERACTIVE"

	// Resolution errors
	ErrCycleDetected ErrorCode = "CYCLE_DETECTED"
	ErrGroupNotFound ErrorCode = "GROUP_NOT_FOUND"

	// Acquisition errors
	ErrModuleNotFound    ErrorCode = "MODULE_NOT_FOUND"
	ErrUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrNetwork           ErrorCode = "NETWORK"

	// Manifest errors
	ErrManifestLoad ErrorCode = "MANIFEST_LOAD"

	// Environment errors
	ErrTemplateNotFound  ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrVenvNotFound      ErrorCode = "VENV_NOT_FOUND"
	ErrLinkSourceMissing ErrorCode = "LINK_SOURCE_MISSING"

	// FileSystem errors
	ErrFileAccess    ErrorCode = "FILE_ACCESS"
	ErrFileCreate    ErrorCode = "FILE_CREATE"
	ErrFileWrite     ErrorCode = "FILE_WRITE"
	ErrDirCreate     ErrorCode = "DIR_CREATE"
	ErrSymlinkCreate ErrorCode = "SYMLINK_CREATE"
)

// KamError represents a structured error with code and details
type KamError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *KamError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *KamError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *KamError) Is(target error) bool {
	var targetErr *KamError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new KamError with the given code and message
func New(code ErrorCode, message string) *KamError {
	return &KamError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new KamError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *KamError {
	return &KamError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a KamError
func Wrap(err error, code ErrorCode, message string) *KamError {
	if err == nil {
		return nil
	}
	return &KamError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *KamError {
	if err == nil {
		return nil
	}
	return &KamError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *KamError) WithDetail(key string, value interface{}) *KamError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var kamErr *KamError
	if errors.As(err, &kamErr) {
		return kamErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a KamError
func GetErrorCode(err error) ErrorCode {
	var kamErr *KamError
	if errors.As(err, &kamErr) {
		return kamErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a KamError
func GetErrorDetails(err error) map[string]interface{} {
	var kamErr *KamError
	if errors.As(err, &kamErr) {
		return kamErr.Details
	}
	return nil
}
