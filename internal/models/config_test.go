package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigError_Error(t *testing.T) {
	err := ConfigError{Message: "test error"}
	assert.Equal(t, "test error", err.Error())
}

func TestConfig_UnmarshalJSON(t *testing.T) {
	raw := `{
		"server": {"port": 9000, "authToken": "host-secret"},
		"sdk": {"driver": "remote", "baseURL": "http://127.0.0.1:10001", "breaker": {"maxFailures": 2}},
		"bridge": {"poolSize": 16, "callTimeoutMs": 2500},
		"journal": {"enabled": true, "path": "journal.db", "retentionDays": 7},
		"tracing": {"enabled": true, "sampleRate": 0.5},
		"log_level": "debug"
	}`

	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(raw), &cfg))

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "host-secret", cfg.Server.AuthToken)
	assert.Equal(t, "remote", cfg.SDK.Driver)
	assert.Equal(t, 2, cfg.SDK.Breaker.MaxFailures)
	assert.Equal(t, 16, cfg.Bridge.PoolSize)
	assert.Equal(t, 2500, cfg.Bridge.CallTimeoutMs)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, 7, cfg.Journal.RetentionDays)
	assert.Equal(t, 0.5, cfg.Tracing.SampleRate)
	assert.Equal(t, "debug", cfg.LogLevel)
}
