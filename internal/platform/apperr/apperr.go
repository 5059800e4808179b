// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr is the error vocabulary shared by the gallery services and the
HTTP layer.

Services return an [*AppError] for every failure a caller can act on: unknown
components, rejected publish input, an upstream CSS compiler that failed or
timed out. Anything else is wrapped with [Internal]. The respond package maps
the error onto a status code and a JSON envelope; [AppError.Cause] only ever
reaches the logs.
*/
package apperr

import (
	"errors"
	"net/http"
)

// Machine-readable codes carried in the "code" field of error envelopes.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeConflict       = "CONFLICT"
	CodeValidation     = "VALIDATION_ERROR"
	CodeUnprocessable  = "UNPROCESSABLE"
	CodeInternal       = "INTERNAL_ERROR"
	CodeBadGateway     = "BAD_GATEWAY"
	CodeGatewayTimeout = "GATEWAY_TIMEOUT"
)

// AppError is a failure with a client-safe message and an HTTP status.
type AppError struct {
	Code    string       `json:"code"`
	Message string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`

	// HTTPStatus is applied by the respond package.
	HTTPStatus int `json:"-"`

	// Cause is logged server side and never serialised.
	Cause error `json:"-"`
}

// FieldError points at one invalid input field, e.g. "demos[1].slug".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause returns a copy of e carrying cause for the logs.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func newError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// # Client Errors (4xx)

// NotFound reports a missing resource: apperr.NotFound("Component") reads
// "Component not found".
func NotFound(resource string) *AppError {
	return newError(http.StatusNotFound, CodeNotFound, resource+" not found")
}

func Unauthorized(message string) *AppError {
	return newError(http.StatusUnauthorized, CodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return newError(http.StatusForbidden, CodeForbidden, message)
}

// Conflict reports a unique constraint hit, such as a taken component slug.
func Conflict(message string) *AppError {
	return newError(http.StatusConflict, CodeConflict, message)
}

// ValidationError rejects malformed input with optional per-field details.
func ValidationError(message string, details ...FieldError) *AppError {
	err := newError(http.StatusBadRequest, CodeValidation, message)
	err.Details = details
	return err
}

// Unprocessable rejects well-formed input that cannot be acted on, such as a
// publish with unconfirmed ambiguous imports.
func Unprocessable(message string, details ...FieldError) *AppError {
	err := newError(http.StatusUnprocessableEntity, CodeUnprocessable, message)
	err.Details = details
	return err
}

// # Server Errors (5xx)

// Internal hides cause behind a generic message.
func Internal(cause error) *AppError {
	err := newError(http.StatusInternalServerError, CodeInternal, "An unexpected error occurred")
	err.Cause = cause
	return err
}

// BadGateway reports a failing upstream, i.e. the CSS compilation service.
func BadGateway(message string, cause error) *AppError {
	err := newError(http.StatusBadGateway, CodeBadGateway, message)
	err.Cause = cause
	return err
}

// GatewayTimeout reports an upstream call that ran out of time.
func GatewayTimeout(message string, cause error) *AppError {
	err := newError(http.StatusGatewayTimeout, CodeGatewayTimeout, message)
	err.Cause = cause
	return err
}

// # Helpers

// IsAppError reports whether err's chain holds an [*AppError].
func IsAppError(err error) bool {
	return As(err) != nil
}

// As returns the first [*AppError] in err's chain, or nil.
func As(err error) *AppError {
	var target *AppError
	if errors.As(err, &target) {
		return target
	}
	return nil
}
