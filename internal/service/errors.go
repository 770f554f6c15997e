package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure for clients. Everything except CodeInternal is an
// expected rejection.
type Code string

const (
	CodeInvalidImage        Code = "INVALID_IMAGE"
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeImageTooLarge       Code = "IMAGE_TOO_LARGE"
	CodeStyleNotFound       Code = "STYLE_NOT_FOUND"
	CodeInsufficientCredits Code = "INSUFFICIENT_CREDITS"
	CodeTrialExhausted      Code = "TRIAL_EXHAUSTED"
	CodeAIService           Code = "AI_SERVICE_ERROR"
	CodeInternal            Code = "INTERNAL_SERVER_ERROR"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeEmailExists         Code = "EMAIL_EXISTS"
	CodeInvalidCredentials  Code = "INVALID_CREDENTIALS"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
)

var statusByCode = map[Code]int{
	CodeInvalidImage:        http.StatusBadRequest,
	CodeValidation:          http.StatusUnprocessableEntity,
	CodeImageTooLarge:       http.StatusRequestEntityTooLarge,
	CodeStyleNotFound:       http.StatusNotFound,
	CodeInsufficientCredits: http.StatusPaymentRequired,
	CodeTrialExhausted:      http.StatusForbidden,
	CodeAIService:           http.StatusServiceUnavailable,
	CodeInternal:            http.StatusInternalServerError,
	CodeUnauthorized:        http.StatusUnauthorized,
	CodeEmailExists:         http.StatusConflict,
	CodeInvalidCredentials:  http.StatusUnauthorized,
	CodeNotFound:            http.StatusNotFound,
	CodeConflict:            http.StatusConflict,
}

func (c Code) HTTPStatus() int {
	if s, ok := statusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is the only error type the transports inspect. Message is safe to
// show to a client; Err carries the underlying cause for logs.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func reject(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "Internal server error", Err: err}
}

// AsError classifies any error. Untyped errors are internal.
func AsError(err error) *Error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return internal(err)
}

// CodeOf returns the code for err, or "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return AsError(err).Code
}
