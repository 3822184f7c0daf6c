package service

// Logging Standards for imbridge
//
// Standard field names, log levels and message patterns used across the
// bridge, the host transport and the journal.

// Standard Field Names
const (
	// Core identifiers
	LogFieldRequestID      = "request_id"
	LogFieldTraceID        = "trace_id"
	LogFieldOperationID    = "operation_id"
	LogFieldUserID         = "user_id"
	LogFieldConversationID = "conversation_id"
	LogFieldMessageID      = "message_id"
	LogFieldSubject        = "subject"

	// Service and operation fields
	LogFieldService   = "service"
	LogFieldComponent = "component"
	LogFieldMethod    = "method"
	LogFieldEvent     = "event"

	// Result fields
	LogFieldResultCode = "result_code"
	LogFieldErrorKind  = "error_kind"
	LogFieldCount      = "count"
	LogFieldProgress   = "progress"
	LogFieldStatus     = "login_status"

	// Performance
	LogFieldDuration = "duration_ms"
	LogFieldSize     = "size_bytes"

	// Network
	LogFieldURL        = "url"
	LogFieldHTTPMethod = "http_method"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"
)

// Log Level Usage Guidelines
//
// DEBUG: call arguments (masked), SDK payload sizes, per-frame websocket traffic.
// INFO:  startup and shutdown, successful plugin calls, configuration loaded.
// WARN:  validation failures, late SDK answers discarded after a timeout,
//        retryable journal errors.
// ERROR: SDK failures, unexpected failures, recovered panics.
// FATAL: configuration or driver setup that prevents startup.

// Standard Log Message Patterns
//
// Starting operations:  "Starting [operation]"
// Completed operations: "[Operation] completed"
// Failed operations:    "Failed to [operation]"
// Plugin calls:         "Plugin call completed" / "Plugin call failed"
