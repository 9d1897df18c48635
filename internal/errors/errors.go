// Package errors provides the application error taxonomy for the freedash API.
// Service-layer failures are returned as *AppError so handlers can answer with a
// stable code and status without leaking internal details or secrets.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches AppErrors by code so wrapped copies compare equal to their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized            = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrForbidden               = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrInsufficientPermissions = &AppError{Code: "INSUFFICIENT_PERMISSIONS", Message: "Insufficient permissions", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrConflict       = &AppError{Code: "CONFLICT", Message: "Resource already exists", StatusCode: http.StatusConflict}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound  = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrAccountExists = &AppError{Code: "ACCOUNT_EXISTS", Message: "An account with this email already exists", StatusCode: http.StatusConflict}
)

// Aggregator and sync errors.
var (
	ErrPlaidItemNotFound = &AppError{Code: "PLAID_ITEM_NOT_FOUND", Message: "No linked bank connection found", StatusCode: http.StatusNotFound}
	ErrExternalService   = &AppError{Code: "EXTERNAL_SERVICE_ERROR", Message: "Banking provider request failed", StatusCode: http.StatusInternalServerError}
	// ErrMapping scopes to a single external record and is recorded on the sync
	// result rather than returned to clients.
	ErrMapping = &AppError{Code: "MAPPING_ERROR", Message: "Unrecognized value from banking provider", StatusCode: http.StatusUnprocessableEntity}
)
