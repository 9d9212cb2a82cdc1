package speech

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched with errors.Is against any *Error of the same code.
var (
	// ErrBackendUnavailable indicates no usable tool or library was found.
	ErrBackendUnavailable = errors.New("speech backend unavailable")

	// ErrBackendFailure indicates a tool or library ran but failed.
	ErrBackendFailure = errors.New("speech backend failed")

	// ErrInvalidInput indicates the caller supplied unusable input.
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorCode identifies the kind of speech error.
type ErrorCode string

const (
	ErrorCodeUnavailable  ErrorCode = "BACKEND_UNAVAILABLE"
	ErrorCodeFailure      ErrorCode = "BACKEND_FAILURE"
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Error is a typed speech error with optional diagnostic output from the
// underlying tool.
type Error struct {
	Code    ErrorCode
	Backend Kind
	Message string

	// Hint is remediation text for unavailable backends.
	Hint string

	// Output is the diagnostic output captured from a failed tool.
	Output string

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Hint != "" {
		b.WriteString(" ")
		b.WriteString(e.Hint)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString(": ")
		b.WriteString(out)
	}
	if e.Cause != nil {
		if e.Code == ErrorCodeUnavailable {
			b.WriteString("\nOriginal error: ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrBackendUnavailable:
		return e.Code == ErrorCodeUnavailable
	case ErrBackendFailure:
		return e.Code == ErrorCodeFailure
	case ErrInvalidInput:
		return e.Code == ErrorCodeInvalidInput
	}
	return false
}

// Unavailable builds a BACKEND_UNAVAILABLE error carrying remediation text.
func Unavailable(kind Kind, hint string, cause error) *Error {
	return &Error{
		Code:    ErrorCodeUnavailable,
		Backend: kind,
		Message: "TTS engine unavailable.",
		Hint:    hint,
		Cause:   cause,
	}
}

// Failure builds a BACKEND_FAILURE error carrying the tool's diagnostic output.
func Failure(kind Kind, message string, output string, cause error) *Error {
	return &Error{
		Code:    ErrorCodeFailure,
		Backend: kind,
		Message: message,
		Output:  output,
		Cause:   cause,
	}
}

// InvalidInput builds an INVALID_INPUT error.
func InvalidInput(format string, args ...any) *Error {
	return &Error{
		Code:    ErrorCodeInvalidInput,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsUnavailable reports whether err is a BACKEND_UNAVAILABLE error.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}
