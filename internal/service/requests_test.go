package service

import (
	"encoding/json"
	"strings"
	"testing"

	"imbridge/internal/errors"
	"imbridge/pkg/imsdk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_Clone(t *testing.T) {
	original := Params{
		"nested": map[string]interface{}{"key": "value"},
		"list":   []interface{}{"a", map[string]interface{}{"b": 1}},
		"plain":  "x",
	}

	clone := original.Clone()
	clone["plain"] = "y"
	clone["nested"].(map[string]interface{})["key"] = "changed"
	clone["list"].([]interface{})[1].(map[string]interface{})["b"] = 2

	assert.Equal(t, "x", original["plain"])
	assert.Equal(t, "value", original["nested"].(map[string]interface{})["key"])
	assert.Equal(t, 1, original["list"].([]interface{})[1].(map[string]interface{})["b"])
}

func TestParams_CloneNil(t *testing.T) {
	var p Params

	clone := p.Clone()

	assert.NotNil(t, clone)
	assert.Empty(t, clone)
}

func TestParams_Int(t *testing.T) {
	tests := []struct {
		name        string
		value       interface{}
		want        int
		wantPresent bool
		wantErr     bool
	}{
		{name: "absent", value: nil, wantPresent: false},
		{name: "int", value: 7, want: 7, wantPresent: true},
		{name: "int64", value: int64(9), want: 9, wantPresent: true},
		{name: "integral float", value: float64(3), want: 3, wantPresent: true},
		{name: "json number", value: json.Number("12"), want: 12, wantPresent: true},
		{name: "fractional float", value: 1.25, wantPresent: true, wantErr: true},
		{name: "string", value: "5", wantPresent: true, wantErr: true},
		{name: "bad json number", value: json.Number("1.5"), wantPresent: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Params{}
			if tt.value != nil {
				p["n"] = tt.value
			}

			got, present, err := p.Int("n")

			assert.Equal(t, tt.wantPresent, present)
			if tt.wantErr {
				assert.Equal(t, errors.KindValidation, errors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParams_StringAndBool(t *testing.T) {
	p := Params{"s": "text", "n": 1, "b": true, "null": nil}

	s, err := p.String("s")
	require.NoError(t, err)
	assert.Equal(t, "text", s)

	s, err = p.String("null")
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = p.String("n")
	assert.Error(t, err)

	b, present, err := p.Bool("b")
	require.NoError(t, err)
	assert.True(t, present)
	assert.True(t, b)

	_, present, err = p.Bool("missing")
	require.NoError(t, err)
	assert.False(t, present)

	_, _, err = p.Bool("s")
	assert.Error(t, err)
}

func TestParseInitConfig(t *testing.T) {
	cfg, err := ParseInitConfig(Params{
		KeyAPIAddr:             "https://im.example.com/api",
		KeyWSAddr:              "wss://im.example.com/msg_gateway",
		KeyPlatformID:          float64(2),
		KeyDataDir:             "/data/im",
		KeyLogLevel:            5,
		KeyIsLogStandardOutput: true,
		KeyLogFilePath:         "/data/im/logs",
		"encryptionKey":        "abc",
	})

	require.NoError(t, err)
	assert.Equal(t, imsdk.Config{
		APIAddr:             "https://im.example.com/api",
		WSAddr:              "wss://im.example.com/msg_gateway",
		PlatformID:          2,
		DataDir:             "/data/im",
		LogLevel:            5,
		IsLogStandardOutput: true,
		LogFilePath:         "/data/im/logs",
		Extra:               map[string]interface{}{"encryptionKey": "abc"},
	}, cfg)
}

func TestParseInitConfig_Invalid(t *testing.T) {
	base := func() Params {
		return Params{KeyAPIAddr: "http://h", KeyWSAddr: "ws://h", KeyPlatformID: 1}
	}

	tests := []struct {
		name   string
		mutate func(Params)
		field  string
	}{
		{name: "missing api address", mutate: func(p Params) { delete(p, KeyAPIAddr) }, field: KeyAPIAddr},
		{name: "relative api address", mutate: func(p Params) { p[KeyAPIAddr] = "/api" }, field: KeyAPIAddr},
		{name: "websocket api address", mutate: func(p Params) { p[KeyAPIAddr] = "ws://h" }, field: KeyAPIAddr},
		{name: "missing ws address", mutate: func(p Params) { p[KeyWSAddr] = "" }, field: KeyWSAddr},
		{name: "negative platform", mutate: func(p Params) { p[KeyPlatformID] = -3 }, field: KeyPlatformID},
		{name: "string log level", mutate: func(p Params) { p[KeyLogLevel] = "debug" }, field: KeyLogLevel},
		{name: "string stdout flag", mutate: func(p Params) { p[KeyIsLogStandardOutput] = "yes" }, field: KeyIsLogStandardOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(p)

			_, err := ParseInitConfig(p)

			require.Error(t, err)
			assert.Equal(t, errors.KindValidation, errors.KindOf(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestParseLogin(t *testing.T) {
	req, err := ParseLogin(Params{KeyUserID: "alice", KeyToken: "eyJhbGciOi"})
	require.NoError(t, err)
	assert.Equal(t, LoginRequest{UserID: "alice", Token: "eyJhbGciOi"}, req)

	_, err = ParseLogin(Params{KeyUserID: strings.Repeat("a", 300), KeyToken: "t"})
	assert.Error(t, err)

	_, err = ParseLogin(Params{KeyUserID: "alice"})
	assert.Error(t, err)
}

func TestParseTextMessage(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		want    imsdk.TextMessage
		wantErr bool
	}{
		{
			name:   "direct message",
			params: Params{KeyText: "hello", KeyRecvID: "bob"},
			want:   imsdk.TextMessage{Text: "hello", RecvID: "bob"},
		},
		{
			name:   "group message with empty recvID",
			params: Params{KeyText: "hello", KeyRecvID: "", KeyGroupID: "team"},
			want:   imsdk.TextMessage{Text: "hello", GroupID: "team"},
		},
		{
			name:   "whitespace text is allowed",
			params: Params{KeyText: "   ", KeyRecvID: "bob"},
			want:   imsdk.TextMessage{Text: "   ", RecvID: "bob"},
		},
		{
			name:    "text too long",
			params:  Params{KeyText: strings.Repeat("x", 64*1024+1), KeyRecvID: "bob"},
			wantErr: true,
		},
		{
			name:    "invalid utf8",
			params:  Params{KeyText: string([]byte{0xff, 0xfe}), KeyRecvID: "bob"},
			wantErr: true,
		},
		{
			name:    "both targets",
			params:  Params{KeyText: "hello", KeyRecvID: "bob", KeyGroupID: "team"},
			wantErr: true,
		},
		{
			name:    "no target",
			params:  Params{KeyText: "hello"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTextMessage(tt.params)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.KindValidation, errors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
