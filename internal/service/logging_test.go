package service

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestIsVerboseLogging(t *testing.T) {
	assert.False(t, IsVerboseLogging(context.Background()))
	assert.True(t, IsVerboseLogging(WithVerbose(context.Background(), true)))
	assert.False(t, IsVerboseLogging(WithVerbose(context.Background(), false)))
}

func TestSafeFields(t *testing.T) {
	fields := logrus.Fields{
		LogFieldMethod:  MethodLogin,
		LogFieldSubject: "alice-in-wonderland",
		"token":         "secret-token",
	}

	masked := SafeFields(false, fields)
	assert.Equal(t, MethodLogin, masked[LogFieldMethod])
	assert.NotEqual(t, "alice-in-wonderland", masked[LogFieldSubject])
	assert.Equal(t, "[redacted]", masked["token"])

	verbose := SafeFields(true, fields)
	assert.Equal(t, "alice-in-wonderland", verbose[LogFieldSubject])
	assert.Equal(t, "[redacted]", verbose["token"])

	assert.Equal(t, "secret-token", fields["token"])
}
