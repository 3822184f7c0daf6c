package service

import (
	"context"

	"imbridge/internal/privacy"

	"github.com/sirupsen/logrus"
)

// ContextKey is a package-local type to prevent context key collisions
type ContextKey string

// VerboseContextKey is the context key for the verbose logging flag
const VerboseContextKey ContextKey = "verbose"

// WithVerbose marks ctx for unmasked logging
func WithVerbose(ctx context.Context, verbose bool) context.Context {
	return context.WithValue(ctx, VerboseContextKey, verbose)
}

// IsVerboseLogging checks if verbose logging is enabled from context
func IsVerboseLogging(ctx context.Context) bool {
	if verbose, ok := ctx.Value(VerboseContextKey).(bool); ok {
		return verbose
	}
	return false
}

// SafeFields masks identifiers and content unless verbose is set. Tokens are
// masked in both modes.
func SafeFields(verbose bool, fields logrus.Fields) logrus.Fields {
	if verbose {
		out := make(logrus.Fields, len(fields))
		for k, v := range fields {
			if s, ok := v.(string); ok && (k == "token" || k == "secret") {
				out[k] = privacy.MaskToken(s)
				continue
			}
			out[k] = v
		}
		return out
	}
	return logrus.Fields(privacy.MaskSensitiveFields(fields))
}
