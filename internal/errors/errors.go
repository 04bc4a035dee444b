// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError carries the HTTP status a handler should answer with.
type AppError struct {
	Status  int
	Message string
	Details any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetails(details any) *AppError {
	out := *e
	out.Details = details
	return &out
}

func New(status int, message string) *AppError {
	return &AppError{Status: status, Message: message}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, message)
}

// Validation is a 400 with per-field details.
func Validation(details any) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: "Validation failed", Details: details}
}

func Unauthorized(message string) *AppError {
	if message == "" {
		message = "Authentication required"
	}
	return New(http.StatusUnauthorized, message)
}

func Forbidden(message string) *AppError {
	if message == "" {
		message = "Insufficient permissions"
	}
	return New(http.StatusForbidden, message)
}

// NotFound builds "<resource> not found".
func NotFound(resource string) *AppError {
	return New(http.StatusNotFound, resource+" not found")
}

func Conflict(message string) *AppError {
	return New(http.StatusConflict, message)
}

func Internal(err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Message: "Internal server error", Err: err}
}

// StatusOf reports the HTTP status for err, 500 for anything untyped.
func StatusOf(err error) int {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return http.StatusInternalServerError
}

func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
