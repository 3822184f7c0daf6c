package imsdk

import (
	"context"
)

// Client is the narrow capability surface of the messaging SDK. Every method
// blocks until the SDK has completed the underlying asynchronous work.
type Client interface {
	InitSDK(ctx context.Context, cfg Config) (*InitInfo, error)
	Login(ctx context.Context, userID, token string) (*Session, error)
	Logout(ctx context.Context) error
	GetLoginStatus(ctx context.Context) (LoginStatus, error)
	SendTextMessage(ctx context.Context, msg TextMessage) (*SentMessage, error)
	GetAllConversationList(ctx context.Context) ([]Conversation, error)
}
