package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeInvalidConfig,
				Message: "configuration is invalid",
			},
			expected: "INVALID_CONFIG: configuration is invalid",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeDelegation,
				Message: "login failed",
				Cause:   errors.New("connection refused"),
			},
			expected: "DELEGATION_FAILED: login failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeUnexpected, "something went wrong")

	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
}

func TestAppError_WithContext(t *testing.T) {
	err := New(ErrCodeValidationFailed, "validation failed")

	result := err.WithContext("field", "userID").WithContext("method", "login")

	assert.Same(t, err, result)
	assert.Len(t, err.Context, 2)
	assert.Equal(t, "userID", err.Context["field"])
}

func TestWrapRetryable(t *testing.T) {
	err := WrapRetryable(errors.New("busy"), ErrCodeDatabaseConnection, "db busy")

	assert.True(t, IsRetryable(err))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestGetCode(t *testing.T) {
	appErr := New(ErrCodeTimeout, "slow")
	wrapped := fmt.Errorf("outer: %w", appErr)

	assert.Equal(t, ErrCodeTimeout, GetCode(appErr))
	assert.Equal(t, ErrCodeTimeout, GetCode(wrapped))
	assert.Equal(t, ErrCodeInternalError, GetCode(errors.New("plain")))
}

func TestGetUserMessage(t *testing.T) {
	assert.Equal(t, "shown", GetUserMessage(New(ErrCodeUnexpected, "x").WithUserMessage("shown")))
	assert.Equal(t, "An internal error occurred", GetUserMessage(New(ErrCodeUnexpected, "x")))
	assert.Equal(t, "An internal error occurred", GetUserMessage(errors.New("plain")))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"validation", New(ErrCodeValidationFailed, "x"), KindValidation},
		{"unknown method", NewUnknownMethodError("ping"), KindValidation},
		{"delegation", New(ErrCodeDelegation, "x"), KindDelegation},
		{"timeout", NewTimeoutError("login", "1s"), KindDelegation},
		{"unexpected", New(ErrCodeUnexpected, "x"), KindUnexpected},
		{"plain error", errors.New("plain"), KindUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}
