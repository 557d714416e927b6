package session

import (
	"errors"
	"fmt"
)

// Code classifies session errors so the HTTP layer can map them to status
// codes without string matching.
type Code string

const (
	// CodeNotFound means the session does not exist.
	CodeNotFound Code = "not_found"

	// CodeForbidden means the session exists but belongs to another owner.
	CodeForbidden Code = "forbidden"

	// CodeNotActive means the session no longer accepts segments.
	CodeNotActive Code = "not_active"

	// CodeAlreadyCompleted means the end of the recording was already
	// processed.
	CodeAlreadyCompleted Code = "already_completed"

	// CodeNotCompleted means the operation requires a frozen transcript but
	// the session is still active or draining.
	CodeNotCompleted Code = "not_completed"

	// CodeEmptyTranscript means the completed session contains no speech to
	// answer questions about.
	CodeEmptyTranscript Code = "empty_transcript"

	// CodeInvalidAudio means the submitted segment could not be decoded.
	CodeInvalidAudio Code = "invalid_audio"

	// CodeProcessingFailed means an upstream dependency failed while
	// processing the request.
	CodeProcessingFailed Code = "processing_failed"
)

// Error is a classified session error.
type Error struct {
	Code    Code
	Message string
	err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("session: %s: %v", e.Message, e.err)
	}
	return "session: " + e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.err
}

// ClientFault reports whether the error is the caller's fault, as opposed to
// an upstream dependency failure.
func (e *Error) ClientFault() bool {
	return e.Code != CodeProcessingFailed
}

// newError creates an Error with no cause.
func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// wrapError creates an Error wrapping cause.
func wrapError(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), err: cause}
}

// ErrorCode extracts the Code from err, or "" when err is not a session
// Error.
func ErrorCode(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
