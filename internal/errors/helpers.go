package errors

import (
	"context"
	stderrors "errors"
	"fmt"

	"imbridge/pkg/imsdk"
)

type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	traceIDKey     contextKey = "trace_id"
	methodKey      contextKey = "method"
	operationIDKey contextKey = "operation_id"
)

// FailureCode is the result code used for failures that carry no SDK code
const FailureCode int64 = -1

// NewValidationError creates a validation error with field context
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("invalid %s: %s", field, message)).
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("invalid %s: %s", field, message))
}

// NewUnknownMethodError is returned for plugin calls naming no operation
func NewUnknownMethodError(method string) *AppError {
	return New(ErrCodeUnknownMethod, fmt.Sprintf("unknown method %q", method)).
		WithContext("method", method).
		WithUserMessage(fmt.Sprintf("unknown method: %s", method))
}

// NewDelegationError wraps a failure reported by the messaging SDK
func NewDelegationError(operation string, err error) *AppError {
	msg := err.Error()
	var sdkErr *imsdk.Error
	if stderrors.As(err, &sdkErr) {
		msg = sdkErr.Message
	}
	return Wrap(err, ErrCodeDelegation, fmt.Sprintf("%s failed", operation)).
		WithContext("operation", operation).
		WithUserMessage(msg)
}

// NewUnexpectedError wraps any condition not anticipated by the bridge
func NewUnexpectedError(operation string, cause error) *AppError {
	return Wrap(cause, ErrCodeUnexpected, fmt.Sprintf("%s raised an unexpected error", operation)).
		WithContext("operation", operation).
		WithUserMessage(fmt.Sprintf("%s error: %v", operation, cause))
}

// NewTimeoutError creates a timeout error with context
func NewTimeoutError(operation string, duration string) *AppError {
	return New(ErrCodeTimeout, fmt.Sprintf("%s timed out after %s", operation, duration)).
		WithContext("operation", operation).
		WithContext("timeout", duration).
		WithUserMessage(fmt.Sprintf("%s timed out", operation))
}

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key).
		WithUserMessage("Configuration error")
}

// NewDatabaseError creates a database error with operation context
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithContext("operation", operation).
		WithUserMessage("Database operation failed")
}

// ResultCode returns the numeric code reported to the host runtime: the SDK's
// own code when the SDK supplied one, FailureCode otherwise.
func ResultCode(err error) int64 {
	var sdkErr *imsdk.Error
	if stderrors.As(err, &sdkErr) && sdkErr.Code != 0 {
		return sdkErr.Code
	}
	return FailureCode
}

// ResultMessage returns the message reported to the host runtime
func ResultMessage(err error) string {
	if appErr, ok := As(err); ok && appErr.UserMessage != "" {
		return appErr.UserMessage
	}
	var sdkErr *imsdk.Error
	if stderrors.As(err, &sdkErr) {
		return sdkErr.Message
	}
	return err.Error()
}

// ToResultFields returns the code, message and kind of a failed call
func ToResultFields(err error) (int64, string, Kind) {
	return ResultCode(err), ResultMessage(err), KindOf(err)
}

// Context helpers

// WithRequestContext stores identifiers that FromContext later copies onto errors
func WithRequestContext(ctx context.Context, requestID, method string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return context.WithValue(ctx, methodKey, method)
}

// FromContext extracts error context from a context.Context if present
func FromContext(ctx context.Context) map[string]interface{} {
	if ctx == nil {
		return nil
	}

	errorCtx := make(map[string]interface{})

	if requestID := ctx.Value(requestIDKey); requestID != nil {
		errorCtx["request_id"] = requestID
	}
	if traceID := ctx.Value(traceIDKey); traceID != nil {
		errorCtx["trace_id"] = traceID
	}
	if method := ctx.Value(methodKey); method != nil {
		errorCtx["method"] = method
	}
	if opID := imsdk.OperationID(ctx); opID != "" {
		errorCtx[string(operationIDKey)] = opID
	}

	return errorCtx
}

// WithContextFromRequest adds request context to an error
func WithContextFromRequest(err *AppError, ctx context.Context) *AppError {
	if err == nil || ctx == nil {
		return err
	}

	for k, v := range FromContext(ctx) {
		err = err.WithContext(k, v)
	}

	return err
}
