package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"imbridge/pkg/imsdk"

	"github.com/stretchr/testify/assert"
)

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("userID", "is required")

	assert.Equal(t, ErrCodeValidationFailed, err.Code)
	assert.Equal(t, "userID", err.Context["field"])
	assert.Equal(t, "invalid userID: is required", err.UserMessage)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestNewDelegationError(t *testing.T) {
	t.Run("sdk error keeps sdk message", func(t *testing.T) {
		err := NewDelegationError("login", imsdk.NewError(1501, "token invalid"))

		assert.Equal(t, ErrCodeDelegation, err.Code)
		assert.Equal(t, "token invalid", err.UserMessage)
		assert.Equal(t, "login", err.Context["operation"])
	})

	t.Run("plain error uses its text", func(t *testing.T) {
		err := NewDelegationError("logout", errors.New("dial tcp: refused"))

		assert.Equal(t, "dial tcp: refused", err.UserMessage)
	})
}

func TestNewUnexpectedError(t *testing.T) {
	err := NewUnexpectedError("initSDK", errors.New("nil map"))

	assert.Equal(t, ErrCodeUnexpected, err.Code)
	assert.Equal(t, "initSDK error: nil map", err.UserMessage)
	assert.Equal(t, KindUnexpected, KindOf(err))
}

func TestResultCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int64
	}{
		{"sdk code", NewDelegationError("login", imsdk.NewError(1501, "x")), 1501},
		{"wrapped sdk code", fmt.Errorf("outer: %w", imsdk.NewError(20, "x")), 20},
		{"sdk zero code", imsdk.NewError(0, "x"), FailureCode},
		{"validation", NewValidationError("text", "is required"), FailureCode},
		{"plain", errors.New("x"), FailureCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResultCode(tt.err))
		})
	}
}

func TestResultMessage(t *testing.T) {
	assert.Equal(t, "invalid text: is required", ResultMessage(NewValidationError("text", "is required")))
	assert.Equal(t, "network down", ResultMessage(imsdk.NewError(5, "network down")))
	assert.Equal(t, "plain", ResultMessage(errors.New("plain")))
}

func TestToResultFields(t *testing.T) {
	code, msg, kind := ToResultFields(NewDelegationError("send", imsdk.NewError(302, "blocked")))

	assert.Equal(t, int64(302), code)
	assert.Equal(t, "blocked", msg)
	assert.Equal(t, KindDelegation, kind)
}

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext(nil)) //nolint:staticcheck

	ctx := WithRequestContext(context.Background(), "req_1", "login")
	ctx = imsdk.WithOperationID(ctx, "op_1")

	fields := FromContext(ctx)
	assert.Equal(t, "req_1", fields["request_id"])
	assert.Equal(t, "login", fields["method"])
	assert.Equal(t, "op_1", fields["operation_id"])
}

func TestWithContextFromRequest(t *testing.T) {
	ctx := WithRequestContext(context.Background(), "req_2", "logout")
	err := WithContextFromRequest(New(ErrCodeDelegation, "x"), ctx)

	assert.Equal(t, "req_2", err.Context["request_id"])
	assert.Nil(t, WithContextFromRequest(nil, ctx))
}
