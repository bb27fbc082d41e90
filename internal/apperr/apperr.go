package apperr

import (
	"errors"
	"fmt"
)

// Type pairs the wire code with its default message. The HTTP status mirrors
// the code on every response.
type Type struct {
	Code int
	Msg  string
}

var (
	BadRequest         = Type{Code: 400, Msg: "Bad Request"}
	Unauthorized       = Type{Code: 401, Msg: "Unauthorized"}
	NotFound           = Type{Code: 404, Msg: "Not Found"}
	Conflict           = Type{Code: 409, Msg: "Conflict"}
	ValidationError    = Type{Code: 400, Msg: "Invalid parameters"}
	ServiceUnavailable = Type{Code: 503, Msg: "Service Unavailable"}
	InternalError      = Type{Code: 500, Msg: "Internal Server Error"}
)

type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type Error struct {
	Code int
	Msg  string
	Data any
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(t Type, msg string) *Error {
	if msg == "" {
		msg = t.Msg
	}
	return &Error{Code: t.Code, Msg: msg}
}

func Wrap(t Type, msg string, err error) *Error {
	if msg == "" {
		msg = t.Msg
	}
	return &Error{Code: t.Code, Msg: msg, Err: err}
}

func Validation(msg string, issues []Issue) *Error {
	return &Error{
		Code: ValidationError.Code,
		Msg:  msg,
		Data: map[string]any{"type": "validation", "issues": issues},
	}
}

func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
