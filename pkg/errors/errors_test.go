package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"meetsignal/internal/core/domain"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "test error", 400)
	expected := "INVALID_INPUT: test error"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestAppError_WithCause(t *testing.T) {
	originalErr := errors.New("original error")
	err := WrapError(originalErr, ErrCodeInternal, "wrapped error", 500)

	if err.Cause != originalErr {
		t.Errorf("Cause = %v, want %v", err.Cause, originalErr)
	}

	if !strings.Contains(err.Error(), "original error") {
		t.Errorf("Error() should contain cause, got: %v", err.Error())
	}
}

func TestAppError_WithContext(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "test error", 400)
	err.WithContext("meeting_id", "m1").WithContext("count", 42)

	if err.Context["meeting_id"] != "m1" {
		t.Errorf("Context[meeting_id] = %v, want 'm1'", err.Context["meeting_id"])
	}
	if err.Context["count"] != 42 {
		t.Errorf("Context[count] = %v, want 42", err.Context["count"])
	}
}

func TestFromDomain(t *testing.T) {
	cases := []struct {
		in     error
		code   ErrorCode
		status int
	}{
		{domain.ErrMissingField, ErrCodeInvalidInput, http.StatusBadRequest},
		{domain.ErrInvalidAction, ErrCodeInvalidAction, http.StatusBadRequest},
		{domain.ErrNotWaiting, ErrCodeNotWaiting, http.StatusBadRequest},
		{domain.ErrNotParticipant, ErrCodeInvalidInput, http.StatusBadRequest},
		{domain.ErrNotConnected, ErrCodeNotConnected, http.StatusNotFound},
		{domain.ErrMeetingNotFound, ErrCodeNotFound, http.StatusNotFound},
		{domain.ErrSessionNotFound, ErrCodeNotFound, http.StatusNotFound},
		{domain.ErrForbidden, ErrCodeForbidden, http.StatusForbidden},
		{domain.ErrChatMuted, ErrCodeChatMuted, http.StatusForbidden},
		{domain.ErrCollaboratorUnavailable, ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		appErr := FromDomain(tc.in)
		if appErr.Code != tc.code {
			t.Errorf("FromDomain(%v).Code = %v, want %v", tc.in, appErr.Code, tc.code)
		}
		if appErr.HTTPStatus != tc.status {
			t.Errorf("FromDomain(%v).HTTPStatus = %v, want %v", tc.in, appErr.HTTPStatus, tc.status)
		}
	}
}

func TestFromDomain_WrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("dispatch: %w", domain.ErrForbidden)
	appErr := FromDomain(wrapped)
	if appErr.Code != ErrCodeForbidden {
		t.Errorf("Code = %v, want %v", appErr.Code, ErrCodeForbidden)
	}
	if !errors.Is(appErr, domain.ErrForbidden) {
		t.Error("mapped error should keep the sentinel in its chain")
	}
}

func TestFromDomain_Nil(t *testing.T) {
	if FromDomain(nil) != nil {
		t.Error("FromDomain(nil) should be nil")
	}
}

func TestIsAppError(t *testing.T) {
	appErr := NewAppError(ErrCodeInvalidInput, "test", 400)
	regularErr := errors.New("regular error")

	if !IsAppError(appErr) {
		t.Error("IsAppError() should return true for AppError")
	}
	if IsAppError(regularErr) {
		t.Error("IsAppError() should return false for regular error")
	}
}

func TestGetAppError(t *testing.T) {
	appErr := NewAppError(ErrCodeInvalidInput, "test", 400)

	result := GetAppError(appErr)
	if result != appErr {
		t.Errorf("GetAppError() = %v, want %v", result, appErr)
	}

	wrapped := WrapError(errors.New("cause"), ErrCodeInternal, "wrapped", 500)
	result = GetAppError(wrapped)
	if result == nil {
		t.Error("GetAppError() should extract AppError from wrapped error")
	}

	regularErr := errors.New("regular error")
	result = GetAppError(regularErr)
	if result != nil {
		t.Error("GetAppError() should return nil for regular error")
	}
}
