package service

import (
	"imbridge/internal/errors"
)

// SuccessMessage is the message carried by every successful result
const SuccessMessage = "success"

// Result is the single value delivered to the host runtime for a plugin call.
// Code 0 means success; failures carry the SDK's error code when the SDK
// reported one and -1 otherwise.
type Result struct {
	Code      int64       `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	ErrorKind string      `json:"errorKind,omitempty"`
}

// Continuation receives the outcome of a plugin call. It is invoked exactly
// once per call, from a goroutine owned by the bridge.
type Continuation func(Result)

// OK reports whether the result is a success
func (r Result) OK() bool {
	return r.Code == 0
}

// Success builds a successful result
func Success(data interface{}) Result {
	return Result{Code: 0, Message: SuccessMessage, Data: data}
}

// Failure builds the failure result for err
func Failure(err error) Result {
	code, message, kind := errors.ToResultFields(err)
	if code == 0 {
		code = errors.FailureCode
	}
	return Result{Code: code, Message: message, ErrorKind: string(kind)}
}
