package privacy

import (
	"strings"
)

const (
	redacted = "[redacted]"
	hidden   = "[hidden]"
)

// conversationPrefixes are the type prefixes SDK conversation IDs carry
var conversationPrefixes = []string{"si_", "sg_", "n_"}

// MaskUserID masks a user identifier showing only the last 4 characters
// Example: "user123456" -> "******3456"
func MaskUserID(userID string) string {
	if userID == "" {
		return ""
	}
	return maskString(userID, 4)
}

// MaskGroupID masks a group identifier the same way as user IDs
func MaskGroupID(groupID string) string {
	return MaskUserID(groupID)
}

// MaskConversationID masks a conversation ID while keeping its type prefix
// Example: "si_alice_bob" -> "si_*****_bob"
func MaskConversationID(conversationID string) string {
	if conversationID == "" {
		return ""
	}

	for _, prefix := range conversationPrefixes {
		if strings.HasPrefix(conversationID, prefix) {
			return prefix + maskString(strings.TrimPrefix(conversationID, prefix), 4)
		}
	}

	return maskString(conversationID, 4)
}

// MaskMessageID masks a message ID, showing the last 8 characters
func MaskMessageID(messageID string) string {
	if messageID == "" {
		return ""
	}
	return maskString(messageID, 8)
}

// MaskToken never reveals any part of a credential
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	return redacted
}

// MaskContent completely hides message content
func MaskContent(content string) string {
	if content == "" {
		return ""
	}
	return hidden
}

// maskString masks a string showing only the last n characters
func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}

	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}

	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}

// MaskSensitiveFields applies appropriate masking to common logging fields
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		s, isString := v.(string)
		if !isString {
			masked[k] = v
			continue
		}

		switch k {
		case "user_id", "userID", "recv_id", "recvID":
			masked[k] = MaskUserID(s)
		case "group_id", "groupID":
			masked[k] = MaskGroupID(s)
		case "conversation_id", "conversationID", "subject", "target":
			masked[k] = MaskConversationID(s)
		case "message_id", "client_msg_id", "clientMsgID", "server_msg_id", "serverMsgID":
			masked[k] = MaskMessageID(s)
		case "token", "secret", "password", "api_key":
			masked[k] = MaskToken(s)
		case "text", "content":
			masked[k] = MaskContent(s)
		default:
			masked[k] = v
		}
	}

	return masked
}
