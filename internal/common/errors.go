package common

import "errors"

// Error codes shared between the pricing core and the HTTP boundary. The
// boundary maps codes (not message text) to response statuses.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodeInvalidPrice      = "INVALID_PRICE"
	CodeInvalidCostPrice  = "INVALID_COST_PRICE"
	CodeInvalidPercentage = "INVALID_PERCENTAGE"
	CodeTargetConflict    = "TARGET_CONFLICT"
	CodeRateLimited       = "RATE_LIMITED"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInternal          = "INTERNAL"
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

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// ErrorCode extracts the tagged code from an error chain, or CodeInternal.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	return CodeInternal
}
