package store

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a remote store failure.
type ErrorCode string

const (
	CodeUnavailable     ErrorCode = "UNAVAILABLE"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeRejected        ErrorCode = "REJECTED"
)

// Error is the structured error every driver returns: a message plus optional detail.
type Error struct {
	Code    ErrorCode
	Message string
	Detail  string
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound) works for every driver.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == "" || t == e
}

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = &Error{Code: CodeNotFound}

func NewError(code ErrorCode, message, detail string) *Error {
	return &Error{Code: code, Message: message, Detail: detail}
}

// WrapError wraps a driver failure into a structured *Error.
func WrapError(cause error, code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NotFound builds an ErrNotFound-compatible error naming the missing row.
func NotFound(kind Kind, id string) *Error {
	return &Error{Code: CodeNotFound, Message: "no rows", Detail: fmt.Sprintf("%s %s", kind, id)}
}

// IsNotFound reports whether err means "no rows".
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

// Detail extracts message and detail from err for display.
func Detail(err error) (message, detail string) {
	var se *Error
	if stderrors.As(err, &se) {
		return se.Message, se.Detail
	}
	if err == nil {
		return "", ""
	}
	return err.Error(), ""
}
