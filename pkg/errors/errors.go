package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"meetsignal/internal/core/domain"
)

// ErrorCode identifies a class of application error at the HTTP boundary
type ErrorCode string

const (
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidAction      ErrorCode = "INVALID_ACTION"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeNotConnected       ErrorCode = "NOT_CONNECTED"
	ErrCodeNotWaiting         ErrorCode = "NOT_WAITING"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeChatMuted          ErrorCode = "CHAT_MUTED"
	ErrCodeRateLimit          ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// AppError represents an application error with code and context
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Context    map[string]interface{}
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Context:    make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with application error
func WrapError(err error, code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      err,
		Context:    make(map[string]interface{}),
	}
}

// Common error constructors
func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NewUnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message, http.StatusForbidden)
}

func NewRateLimitError() *AppError {
	return NewAppError(ErrCodeRateLimit, "rate limit exceeded", http.StatusTooManyRequests)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func NewServiceUnavailableError(message string) *AppError {
	return NewAppError(ErrCodeServiceUnavailable, message, http.StatusServiceUnavailable)
}

// FromDomain maps session-core sentinel errors to boundary errors. An
// error outside the taxonomy becomes an opaque internal error so the
// transport never leaks collaborator details.
func FromDomain(err error) *AppError {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, domain.ErrMissingField):
		return WrapError(err, ErrCodeInvalidInput, err.Error(), http.StatusBadRequest)
	case stderrors.Is(err, domain.ErrInvalidAction):
		return WrapError(err, ErrCodeInvalidAction, err.Error(), http.StatusBadRequest)
	case stderrors.Is(err, domain.ErrNotWaiting):
		return WrapError(err, ErrCodeNotWaiting, err.Error(), http.StatusBadRequest)
	case stderrors.Is(err, domain.ErrNotParticipant):
		return WrapError(err, ErrCodeInvalidInput, err.Error(), http.StatusBadRequest)
	case stderrors.Is(err, domain.ErrNotConnected):
		return WrapError(err, ErrCodeNotConnected, err.Error(), http.StatusNotFound)
	case stderrors.Is(err, domain.ErrMeetingNotFound),
		stderrors.Is(err, domain.ErrSessionNotFound),
		stderrors.Is(err, domain.ErrUserNotFound):
		return WrapError(err, ErrCodeNotFound, err.Error(), http.StatusNotFound)
	case stderrors.Is(err, domain.ErrForbidden):
		return WrapError(err, ErrCodeForbidden, err.Error(), http.StatusForbidden)
	case stderrors.Is(err, domain.ErrChatMuted):
		return WrapError(err, ErrCodeChatMuted, err.Error(), http.StatusForbidden)
	case stderrors.Is(err, domain.ErrCollaboratorUnavailable):
		return WrapError(err, ErrCodeServiceUnavailable, err.Error(), http.StatusServiceUnavailable)
	default:
		return WrapError(err, ErrCodeInternal, "internal error", http.StatusInternalServerError)
	}
}

// IsAppError checks if error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	// Try to unwrap
	type unwrapper interface {
		Unwrap() error
	}

	if u, ok := err.(unwrapper); ok {
		return GetAppError(u.Unwrap())
	}

	return nil
}
