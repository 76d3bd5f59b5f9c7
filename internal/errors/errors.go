package errors

import (
	"errors"
	"fmt"
)

// Error codes for programmatic handling.
const (
	CodeConfigInvalid  = "CONFIG_INVALID"
	CodeAPIKeyMissing  = "API_KEY_MISSING"
	CodeAPIKeyInvalid  = "API_KEY_INVALID"
	CodeSessionMissing = "SESSION_MISSING"
	CodeOrgMissing     = "ORG_MISSING"
	CodeRequestFailed  = "REQUEST_FAILED"
	CodeRemoteError    = "REMOTE_ERROR"
	CodeDecodeFailed   = "DECODE_FAILED"
	CodeStoreError     = "STORE_ERROR"
)

// Error is a structured error with a code and actionable suggestion.
type Error struct {
	Code       string // machine-readable code (e.g. API_KEY_MISSING)
	Message    string // human-readable description
	Suggestion string // actionable fix
	Err        error  // wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap supports errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping an existing error.
func Wrap(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithSuggestion sets the suggestion and returns the same error.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// Is checks whether target matches this error's code.
func (e *Error) Is(target error) bool {
	var ce *Error
	if errors.As(target, &ce) {
		return e.Code == ce.Code
	}
	return false
}

// AsCode extracts the code from an error, or "" if it is not an *Error.
func AsCode(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// Suggestion extracts the suggestion from an error, or "" if it is not an *Error.
func Suggestion(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Suggestion
	}
	return ""
}
