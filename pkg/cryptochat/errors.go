package cryptochat

import (
	"errors"
	"fmt"
)

// ErrorCode defines error classification codes for structured error handling.
type ErrorCode string

// Error codes for different error categories.
const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeTransport    ErrorCode = "TRANSPORT_ERROR"
	ErrCodeParse        ErrorCode = "PARSE_ERROR"
	ErrCodeStorage      ErrorCode = "STORAGE_ERROR"
	ErrCodeBusy         ErrorCode = "BUSY"
	ErrCodeUnsupported  ErrorCode = "UNSUPPORTED"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// Sentinel errors. Use errors.Is() to check for these conditions.
var (
	// ErrBusy is returned when a message arrives while another is still being processed.
	ErrBusy = NewError(ErrCodeBusy, "a previous message is still being processed")
	// ErrCoinNotFound indicates the provider could not resolve a query to a coin id.
	ErrCoinNotFound = NewError(ErrCodeNotFound, "coin not found")
	// ErrSpeechUnsupported is returned by SpeechIO implementations without voice support.
	ErrSpeechUnsupported = NewError(ErrCodeUnsupported, "speech recognition not supported")
	// ErrNoSpeech indicates listening finished without a transcript.
	ErrNoSpeech = errors.New("no speech detected")
)

// Error represents a structured error with classification code.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with classification code and additional context.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsErrorCode reports whether any error in err's chain carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}
