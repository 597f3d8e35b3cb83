package filevalidator

import (
	"errors"
	"fmt"
)

// ValidationErrorType classifies why a file was rejected.
type ValidationErrorType string

const (
	// ErrorTypeSize indicates the candidate exceeded the configured size ceiling.
	ErrorTypeSize ValidationErrorType = "size"

	// ErrorTypeMIMEType indicates the declared MIME type is not in the allowlist.
	ErrorTypeMIMEType ValidationErrorType = "mime_type"

	// ErrorTypeExtension indicates a missing or non-allowlisted file extension.
	ErrorTypeExtension ValidationErrorType = "extension"

	// ErrorTypeNamePattern indicates the name matched the executable-style
	// suffix denylist.
	ErrorTypeNamePattern ValidationErrorType = "name_pattern"

	// ErrorTypeContent indicates the content did not match its declared format
	// (signature mismatch or structural validation failure).
	ErrorTypeContent ValidationErrorType = "content"

	// ErrorTypeInternal is the catch-all for unexpected faults (unreadable
	// content, broken readers). Its message is always generic; internal
	// details are never surfaced to callers.
	ErrorTypeInternal ValidationErrorType = "internal"
)

// genericFailureMessage is the only message ErrorTypeInternal errors carry.
const genericFailureMessage = "file validation failed"

// ValidationError is the rejection reported to callers. Type supports
// programmatic handling; Message names the violated constraint and the
// allowed values, never internal details, so it is safe to show to the
// uploader.
type ValidationError struct {
	Type    ValidationErrorType
	Message string
}

func (e *ValidationError) Error() string {
	return string(e.Type) + " validation error: " + e.Message
}

// NewValidationError builds a rejection of the given type.
func NewValidationError(errType ValidationErrorType, message string) *ValidationError {
	return &ValidationError{Type: errType, Message: message}
}

// contentErrorf builds an ErrorTypeContent rejection with a formatted message.
func contentErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Type: ErrorTypeContent, Message: fmt.Sprintf(format, args...)}
}

// newInternalError wraps an unexpected fault into the uniform generic error.
// The cause is deliberately dropped so callers never see raw fault text.
func newInternalError() *ValidationError {
	return &ValidationError{
		Type:    ErrorTypeInternal,
		Message: genericFailureMessage,
	}
}

func asValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	ok := errors.As(err, &verr)
	return verr, ok
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	_, ok := asValidationError(err)
	return ok
}

// IsErrorOfType reports whether err is a ValidationError of the given type.
func IsErrorOfType(err error, errType ValidationErrorType) bool {
	verr, ok := asValidationError(err)
	return ok && verr.Type == errType
}

// GetErrorType returns the rejection type, or "" when err is not a
// ValidationError.
func GetErrorType(err error) ValidationErrorType {
	if verr, ok := asValidationError(err); ok {
		return verr.Type
	}
	return ""
}

// GetErrorMessage returns the user-facing message, or "" when err is
// not a ValidationError.
func GetErrorMessage(err error) string {
	if verr, ok := asValidationError(err); ok {
		return verr.Message
	}
	return ""
}
