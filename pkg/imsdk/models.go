package imsdk

import (
	"context"
	"encoding/json"
	"fmt"
)

// LoginStatus is the authentication state reported by the SDK
type LoginStatus int

const (
	LoginStatusLoggedOut LoginStatus = 1
	LoginStatusLoggingIn LoginStatus = 2
	LoginStatusLoggedIn  LoginStatus = 3
)

// String returns the string representation of the status
func (s LoginStatus) String() string {
	switch s {
	case LoginStatusLoggedOut:
		return "logged_out"
	case LoginStatusLoggingIn:
		return "logging_in"
	case LoginStatusLoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}

// ConversationType mirrors the session types used by the SDK
type ConversationType int

const (
	ConversationTypeSingle       ConversationType = 1
	ConversationTypeGroup        ConversationType = 3
	ConversationTypeNotification ConversationType = 4
)

// Config is the validated SDK initialization configuration
type Config struct {
	APIAddr             string                 `json:"apiAddr"`
	WSAddr              string                 `json:"wsAddr"`
	PlatformID          int                    `json:"platformID"`
	DataDir             string                 `json:"dataDir,omitempty"`
	LogLevel            int                    `json:"logLevel,omitempty"`
	IsLogStandardOutput bool                   `json:"isLogStandardOutput"`
	LogFilePath         string                 `json:"logFilePath,omitempty"`
	Extra               map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Extra into the top-level object so SDKs that accept a
// single JSON config string receive every key the host supplied.
func (c Config) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(c.Extra)+7)
	for k, v := range c.Extra {
		out[k] = v
	}
	out["apiAddr"] = c.APIAddr
	out["wsAddr"] = c.WSAddr
	out["platformID"] = c.PlatformID
	out["isLogStandardOutput"] = c.IsLogStandardOutput
	if c.DataDir != "" {
		out["dataDir"] = c.DataDir
	}
	if c.LogLevel != 0 {
		out["logLevel"] = c.LogLevel
	}
	if c.LogFilePath != "" {
		out["logFilePath"] = c.LogFilePath
	}
	return json.Marshal(out)
}

// InitInfo is the diagnostic payload returned by a successful initialization
type InitInfo struct {
	SDKVersion string `json:"sdkVersion,omitempty"`
}

// Session describes the user session established by Login
type Session struct {
	UserID string      `json:"userID"`
	Status LoginStatus `json:"status"`
}

// TextMessage is a text message addressed to a single user or a group.
// Exactly one of RecvID and GroupID is set.
type TextMessage struct {
	Text    string `json:"text"`
	RecvID  string `json:"recvID,omitempty"`
	GroupID string `json:"groupID,omitempty"`
}

// Target returns the conversation target of the message
func (m TextMessage) Target() string {
	if m.GroupID != "" {
		return m.GroupID
	}
	return m.RecvID
}

// SentMessage identifies a message accepted by the SDK
type SentMessage struct {
	ClientMsgID string `json:"clientMsgID"`
	ServerMsgID string `json:"serverMsgID,omitempty"`
	SendTime    int64  `json:"sendTime"`
}

// Conversation is a conversation summary as listed by the SDK
type Conversation struct {
	ConversationID    string           `json:"conversationID"`
	ConversationType  ConversationType `json:"conversationType"`
	UserID            string           `json:"userID,omitempty"`
	GroupID           string           `json:"groupID,omitempty"`
	ShowName          string           `json:"showName"`
	FaceURL           string           `json:"faceURL,omitempty"`
	UnreadCount       int              `json:"unreadCount"`
	LatestMsgSendTime int64            `json:"latestMsgSendTime"`
	IsPinned          bool             `json:"isPinned"`
}

// Error is a failure reported by the SDK through its error callback
type Error struct {
	Code    int64  `json:"errCode"`
	Message string `json:"errMsg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("sdk error %d: %s", e.Code, e.Message)
}

// NewError creates an SDK error
func NewError(code int64, message string) *Error {
	return &Error{Code: code, Message: message}
}

type contextKey string

const (
	operationIDKey contextKey = "operation_id"
	progressKey    contextKey = "progress"
)

// WithOperationID attaches the SDK operation ID used to correlate SDK logs
func WithOperationID(ctx context.Context, operationID string) context.Context {
	return context.WithValue(ctx, operationIDKey, operationID)
}

// OperationID returns the operation ID from the context, if any
func OperationID(ctx context.Context) string {
	if id, ok := ctx.Value(operationIDKey).(string); ok {
		return id
	}
	return ""
}

// ProgressFunc receives send progress as a percentage from 0 to 100
type ProgressFunc func(progress int64)

// WithProgress attaches fn to receive progress reported by the SDK while a
// message is being sent
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey, fn)
}

// ReportProgress forwards progress to the hook attached to ctx. It does
// nothing when no hook is attached.
func ReportProgress(ctx context.Context, progress int64) {
	if fn, ok := ctx.Value(progressKey).(ProgressFunc); ok && fn != nil {
		fn(progress)
	}
}
