package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithDetails attaches details rendered alongside the message.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// ValidationError reports rejected user input. State is left untouched.
func ValidationError(code, message string, err error) *AppError {
	if code == "" {
		code = "VALIDATION_ERROR"
	}
	return NewAppError(code, message, http.StatusUnprocessableEntity, err)
}

// NotFoundError reports a missing resource.
func NotFoundError(code, message string, err error) *AppError {
	if code == "" {
		code = "NOT_FOUND"
	}
	return NewAppError(code, message, http.StatusNotFound, err)
}

// TransportError reports a failed call to an external collaborator.
func TransportError(code, message string, err error) *AppError {
	if code == "" {
		code = "TRANSPORT_ERROR"
	}
	return NewAppError(code, message, http.StatusBadGateway, err)
}

// AsAppError unwraps err into an AppError.
func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// WriteError renders err. Unknown errors become a 500 without leaking details.
func WriteError(w http.ResponseWriter, err error) {
	if appErr, ok := AsAppError(err); ok {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}
