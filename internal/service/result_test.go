package service

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"imbridge/internal/errors"
	"imbridge/pkg/imsdk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccess(t *testing.T) {
	res := Success(imsdk.LoginStatusLoggedIn)

	assert.True(t, res.OK())
	assert.Equal(t, int64(0), res.Code)
	assert.Equal(t, "success", res.Message)
	assert.Empty(t, res.ErrorKind)
}

func TestFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int64
		wantMsg  string
		wantKind errors.Kind
	}{
		{
			name:     "validation",
			err:      errors.NewValidationError("userID", "is required"),
			wantCode: -1,
			wantMsg:  "invalid userID: is required",
			wantKind: errors.KindValidation,
		},
		{
			name:     "sdk code",
			err:      errors.NewDelegationError("login", imsdk.NewError(1501, "token expired")),
			wantCode: 1501,
			wantMsg:  "token expired",
			wantKind: errors.KindDelegation,
		},
		{
			name:     "sdk code zero",
			err:      errors.NewDelegationError("login", imsdk.NewError(0, "odd failure")),
			wantCode: -1,
			wantMsg:  "odd failure",
			wantKind: errors.KindDelegation,
		},
		{
			name:     "unexpected",
			err:      errors.NewUnexpectedError("logout", stderrors.New("nil pointer")),
			wantCode: -1,
			wantMsg:  "logout error: nil pointer",
			wantKind: errors.KindUnexpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Failure(tt.err)

			assert.False(t, res.OK())
			assert.Equal(t, tt.wantCode, res.Code)
			assert.Equal(t, tt.wantMsg, res.Message)
			assert.Equal(t, string(tt.wantKind), res.ErrorKind)
			assert.Nil(t, res.Data)
		})
	}
}

func TestResult_JSONShape(t *testing.T) {
	body, err := json.Marshal(Success(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":0,"message":"success"}`, string(body))

	body, err = json.Marshal(Failure(errors.NewTimeoutError("login", "5s")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":-1,"message":"login timed out","errorKind":"delegation"}`, string(body))
}
