package errors

import (
	"github.com/sirupsen/logrus"
)

// sensitiveContextKeys never reach the logs
var sensitiveContextKeys = map[string]struct{}{
	"token":    {},
	"password": {},
	"secret":   {},
}

// Logger wraps logrus.Logger with structured error logging
type Logger struct {
	*logrus.Logger
}

// NewLogger creates a structured logger. A nil base gets a fresh JSON logger.
func NewLogger(base *logrus.Logger) *Logger {
	if base == nil {
		base = logrus.New()
		base.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Logger{Logger: base}
}

// WithError adds an error and its AppError context to a log entry
func (l *Logger) WithError(err error) *logrus.Entry {
	entry := l.Logger.WithError(err)

	if appErr, ok := As(err); ok {
		entry = entry.WithFields(logrus.Fields{
			"error_code": appErr.Code,
			"error_kind": KindOf(appErr),
			"retryable":  appErr.Retryable,
		})

		for k, v := range appErr.Context {
			if _, sensitive := sensitiveContextKeys[k]; sensitive {
				continue
			}
			entry = entry.WithField(k, v)
		}
	}

	return entry
}

// LogError logs an error with structured context
func (l *Logger) LogError(err error, message string, fields ...logrus.Fields) {
	entry := l.WithError(err)
	for _, f := range fields {
		entry = entry.WithFields(f)
	}
	entry.Error(message)
}

// LogWarn logs a warning with structured context
func (l *Logger) LogWarn(err error, message string, fields ...logrus.Fields) {
	entry := l.WithError(err)
	for _, f := range fields {
		entry = entry.WithFields(f)
	}
	entry.Warn(message)
}

// LogFailure logs a failed plugin call. Validation failures are the caller's
// fault and stay at warn; SDK and unexpected failures are errors.
func (l *Logger) LogFailure(err error, message string, fields ...logrus.Fields) {
	if KindOf(err) == KindValidation || IsRetryable(err) {
		l.LogWarn(err, message, fields...)
		return
	}
	l.LogError(err, message, fields...)
}
