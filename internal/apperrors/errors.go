// Package apperrors carries typed errors from the services to the HTTP
// layer.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// AppError is an error with a code and a message safe to show to the
// admin panel. Cause is only logged.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"error"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Status maps the code to an HTTP status.
func (e *AppError) Status() int {
	switch e.Code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

func BadRequest(msg string) *AppError   { return New(CodeBadRequest, msg) }
func NotFound(msg string) *AppError     { return New(CodeNotFound, msg) }
func Conflict(msg string) *AppError     { return New(CodeConflict, msg) }
func Unauthorized(msg string) *AppError { return New(CodeUnauthorized, msg) }

func Internal(err error) *AppError {
	return Wrap(err, CodeInternal, "internal error")
}

// As returns err as an *AppError, wrapping unknown errors as internal.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}
