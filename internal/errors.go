package internal

import "errors"

// Error taxonomy. Services return these wrapped with context; handlers
// map them to HTTP statuses.
var (
	ErrNotFound            = errors.New("not found")
	ErrValidationFailed    = errors.New("validation failed")
	ErrDailyLimitExceeded  = errors.New("daily limit exceeded")
	ErrDuplicateTask       = errors.New("duplicate task")
	ErrExternalUnavailable = errors.New("external service unavailable")
)

type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(code int, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}
