// Package errors provides the application error taxonomy.
// Every failure that crosses a use case boundary is an *AppError whose Type tells the
// caller whether to abort, retry later, or treat the outcome as success.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "validation_error"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeConflict         ErrorType = "conflict"
	ErrorTypeUnauthorized     ErrorType = "unauthorized"
	ErrorTypeInternal         ErrorType = "internal_error"
	ErrorTypeStorage          ErrorType = "storage_failure"
	ErrorTypeGatewayTransient ErrorType = "gateway_transient"
	ErrorTypeGatewayPermanent ErrorType = "gateway_permanent"
	ErrorTypeNotification     ErrorType = "notification_failure"
)

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
	// Permanent is only meaningful for notification failures.
	Permanent bool `json:"-"`
	cause     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.cause
}

func newAppError(t ErrorType, code int, message string, details []string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{Type: t, Message: message, Code: code, Details: detail}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, details)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, details)
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeConflict, http.StatusConflict, message, details)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeUnauthorized, http.StatusUnauthorized, message, details)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, details)
}

// NewStorageError wraps a store failure. The whole logical operation must be aborted
// and callers may not assume any partial write happened.
func NewStorageError(message string, cause error) *AppError {
	e := newAppError(ErrorTypeStorage, http.StatusInternalServerError, message, nil)
	e.cause = cause
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// NewGatewayTransientError marks a messaging platform failure worth retrying later.
func NewGatewayTransientError(message string, cause error) *AppError {
	e := newAppError(ErrorTypeGatewayTransient, http.StatusBadGateway, message, nil)
	e.cause = cause
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// NewGatewayPermanentError marks a messaging platform failure that will never succeed on retry.
func NewGatewayPermanentError(message string, cause error) *AppError {
	e := newAppError(ErrorTypeGatewayPermanent, http.StatusBadGateway, message, nil)
	e.cause = cause
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// NewNotificationError wraps a failed user notification.
func NewNotificationError(permanent bool, cause error) *AppError {
	e := newAppError(ErrorTypeNotification, http.StatusBadGateway, "notification not delivered", nil)
	e.Permanent = permanent
	e.cause = cause
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func isType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

func IsValidationError(err error) bool { return isType(err, ErrorTypeValidation) }
func IsConflictError(err error) bool   { return isType(err, ErrorTypeConflict) }
func IsStorageError(err error) bool    { return isType(err, ErrorTypeStorage) }

// IsTransient reports whether err is a gateway or notification failure that may succeed later.
func IsTransient(err error) bool {
	appErr := GetAppError(err)
	if appErr == nil {
		return false
	}
	switch appErr.Type {
	case ErrorTypeGatewayTransient:
		return true
	case ErrorTypeNotification:
		return !appErr.Permanent
	}
	return false
}

// IsPermanent reports whether err is a gateway or notification failure that retrying cannot fix.
func IsPermanent(err error) bool {
	appErr := GetAppError(err)
	if appErr == nil {
		return false
	}
	switch appErr.Type {
	case ErrorTypeGatewayPermanent:
		return true
	case ErrorTypeNotification:
		return appErr.Permanent
	}
	return false
}

// IsDuplicateError checks if the error is a database duplicate key error
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// MySQL
	if strings.Contains(errStr, "Duplicate entry") {
		return true
	}
	// SQLite
	return strings.Contains(errStr, "UNIQUE constraint failed")
}
