package imsdk

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginStatus_String(t *testing.T) {
	tests := []struct {
		status   LoginStatus
		expected string
	}{
		{LoginStatusLoggedOut, "logged_out"},
		{LoginStatusLoggingIn, "logging_in"},
		{LoginStatusLoggedIn, "logged_in"},
		{LoginStatus(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestConfig_MarshalJSON(t *testing.T) {
	cfg := Config{
		APIAddr:    "http://im.example.com/api",
		WSAddr:     "ws://im.example.com/msg_gateway",
		PlatformID: 2,
		DataDir:    "data",
		Extra: map[string]interface{}{
			"appKey": "demo",
			// typed fields always win over extras with the same key
			"apiAddr": "http://shadowed",
		},
	}

	raw, err := json.Marshal(cfg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "http://im.example.com/api", decoded["apiAddr"])
	assert.Equal(t, "ws://im.example.com/msg_gateway", decoded["wsAddr"])
	assert.Equal(t, float64(2), decoded["platformID"])
	assert.Equal(t, "data", decoded["dataDir"])
	assert.Equal(t, "demo", decoded["appKey"])
	assert.Equal(t, false, decoded["isLogStandardOutput"])
	assert.NotContains(t, decoded, "logFilePath")
	assert.NotContains(t, decoded, "logLevel")
}

func TestTextMessage_Target(t *testing.T) {
	assert.Equal(t, "u1", TextMessage{Text: "hi", RecvID: "u1"}.Target())
	assert.Equal(t, "g1", TextMessage{Text: "hi", GroupID: "g1"}.Target())
}

func TestError(t *testing.T) {
	err := NewError(1001, "token expired")

	assert.Equal(t, "sdk error 1001: token expired", err.Error())
	assert.Equal(t, int64(1001), err.Code)
}

func TestOperationID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, OperationID(ctx))

	ctx = WithOperationID(ctx, "op-123")
	assert.Equal(t, "op-123", OperationID(ctx))
}

func TestReportProgress(t *testing.T) {
	ReportProgress(context.Background(), 50)

	var got []int64
	ctx := WithProgress(context.Background(), func(progress int64) {
		got = append(got, progress)
	})
	ReportProgress(ctx, 10)
	ReportProgress(ctx, 100)
	assert.Equal(t, []int64{10, 100}, got)
}
