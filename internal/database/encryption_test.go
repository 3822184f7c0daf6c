package database

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptor_Disabled(t *testing.T) {
	enc, err := newEncryptor("")
	require.NoError(t, err)
	assert.False(t, enc.enabled())

	out, err := enc.Encrypt("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", out)

	out, err = enc.Decrypt("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", out)
}

func TestEncryptor_RoundTrip(t *testing.T) {
	enc, err := newEncryptor(testSecret)
	require.NoError(t, err)
	assert.True(t, enc.enabled())

	first, err := enc.Encrypt("sg_team")
	require.NoError(t, err)
	second, err := enc.Encrypt("sg_team")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	plain, err := enc.Decrypt(first)
	require.NoError(t, err)
	assert.Equal(t, "sg_team", plain)

	empty, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEncryptor_DecryptErrors(t *testing.T) {
	enc, err := newEncryptor(testSecret)
	require.NoError(t, err)
	other, err := newEncryptor("fedcba9876543210fedcba9876543210")
	require.NoError(t, err)

	sealed, err := other.Encrypt("alice")
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
	}{
		{name: "not base64", input: "%%%"},
		{name: "too short", input: base64.StdEncoding.EncodeToString([]byte("abc"))},
		{name: "wrong key", input: sealed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Decrypt(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestNewEncryptor_ShortSecret(t *testing.T) {
	_, err := newEncryptor("too-short")
	assert.Error(t, err)
}
