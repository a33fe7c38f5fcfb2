package errs

import (
	"errors"
	"fmt"
)

// Application error codes.
const (
	EBUSINESS    = "business_rule"
	ECONCURRENCY = "concurrency"
	ECONFLICT    = "conflict"
	EINTERNAL    = "internal"
	EINVALID     = "invalid"
	ENOTFOUND    = "not_found"
)

// Error represents an application-specific error. Message is safe to show to
// the caller; Err keeps the underlying cause, if any.
type Error struct {
	Code    string
	Message string

	// Details lists field level problems, usually from request validation.
	Details []Detail

	Err error
}

// Detail describes a single problem with one property of a request.
type Detail struct {
	PropertyName string
	Code         string
	Message      string
}

func (e *Error) Error() string {
	return fmt.Sprintf("application error: code=%s message=%s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap returns an Error with the given code and message that keeps err as its cause.
func Wrap(code string, err error, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Invalid returns an EINVALID error carrying the given field details.
func Invalid(message string, details ...Detail) *Error {
	return &Error{
		Code:    EINVALID,
		Message: message,
		Details: details,
	}
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error.".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// ErrorDetails returns the field details of an application error. When the
// error wraps a cause, the cause text is appended as a detail without property.
func ErrorDetails(err error) []Detail {
	var e *Error
	if err == nil || !errors.As(err, &e) {
		return nil
	}

	details := append([]Detail(nil), e.Details...)
	if e.Err != nil {
		details = append(details, Detail{Message: e.Err.Error()})
	}
	return details
}
