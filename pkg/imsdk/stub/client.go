// Package stub provides a deterministic in-memory messaging SDK. It backs the
// bridge tests and the "stub" driver used when developing host applications
// without an SDK host.
package stub

import (
	"context"
	"sync"
	"time"

	"imbridge/pkg/imsdk"

	"github.com/google/uuid"
)

// Operation names used to inject failures and delays
const (
	OpInitSDK                = "initSDK"
	OpLogin                  = "login"
	OpLogout                 = "logout"
	OpGetLoginStatus         = "getLoginStatus"
	OpSendTextMessage        = "sendTextMessage"
	OpGetAllConversationList = "getAllConversationList"
)

// Error codes mirroring the ones the real SDK reports
const (
	ErrCodeNotInitialized int64 = 10000
	ErrCodeNotLoggedIn    int64 = 10001
	ErrCodeTokenInvalid   int64 = 1501
)

// SDKVersion is reported by InitSDK
const SDKVersion = "stub-1.0.0"

// Client is an in-memory imsdk.Client. It is safe for concurrent use.
type Client struct {
	mu            sync.RWMutex
	initialized   bool
	status        imsdk.LoginStatus
	userID        string
	tokens        map[string]string
	conversations []imsdk.Conversation
	errors        map[string]error
	delays        map[string]time.Duration
	calls         map[string]int
	sent          []imsdk.TextMessage
	now           func() time.Time
}

// Option configures a stub client
type Option func(*Client)

// WithConversations sets the fixed ordered conversation list
func WithConversations(conversations []imsdk.Conversation) Option {
	return func(c *Client) {
		c.conversations = append([]imsdk.Conversation(nil), conversations...)
	}
}

// WithCredentials restricts Login to the given user/token pairs. Without it
// any non-empty token is accepted.
func WithCredentials(tokens map[string]string) Option {
	return func(c *Client) {
		c.tokens = make(map[string]string, len(tokens))
		for k, v := range tokens {
			c.tokens[k] = v
		}
	}
}

// WithClock overrides the time source used for message timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a freshly started stub: uninitialized and logged out
func New(opts ...Option) *Client {
	c := &Client{
		status: imsdk.LoginStatusLoggedOut,
		errors: make(map[string]error),
		delays: make(map[string]time.Duration),
		calls:  make(map[string]int),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FailWith makes every subsequent call of op return err. A nil err clears it.
func (c *Client) FailWith(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.errors, op)
		return
	}
	c.errors[op] = err
}

// Delay makes every subsequent call of op wait d before answering
func (c *Client) Delay(op string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays[op] = d
}

// Calls returns how many times op reached the SDK
func (c *Client) Calls(op string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls[op]
}

// Sent returns the messages accepted so far, in send order
func (c *Client) Sent() []imsdk.TextMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]imsdk.TextMessage(nil), c.sent...)
}

// begin records the call, waits for the injected delay and returns the
// injected error, if any.
func (c *Client) begin(ctx context.Context, op string) error {
	c.mu.Lock()
	c.calls[op]++
	delay := c.delays[op]
	injected := c.errors[op]
	c.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return injected
}

func (c *Client) InitSDK(ctx context.Context, cfg imsdk.Config) (*imsdk.InitInfo, error) {
	if err := c.begin(ctx, OpInitSDK); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized = true
	return &imsdk.InitInfo{SDKVersion: SDKVersion}, nil
}

func (c *Client) Login(ctx context.Context, userID, token string) (*imsdk.Session, error) {
	if err := c.begin(ctx, OpLogin); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil, imsdk.NewError(ErrCodeNotInitialized, "sdk not initialized")
	}
	if c.tokens != nil {
		if expected, ok := c.tokens[userID]; !ok || expected != token {
			return nil, imsdk.NewError(ErrCodeTokenInvalid, "token invalid")
		}
	}
	c.status = imsdk.LoginStatusLoggedIn
	c.userID = userID
	return &imsdk.Session{UserID: userID, Status: c.status}, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.begin(ctx, OpLogout); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != imsdk.LoginStatusLoggedIn {
		return imsdk.NewError(ErrCodeNotLoggedIn, "not logged in")
	}
	c.status = imsdk.LoginStatusLoggedOut
	c.userID = ""
	return nil
}

func (c *Client) GetLoginStatus(ctx context.Context) (imsdk.LoginStatus, error) {
	if err := c.begin(ctx, OpGetLoginStatus); err != nil {
		return 0, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status, nil
}

func (c *Client) SendTextMessage(ctx context.Context, msg imsdk.TextMessage) (*imsdk.SentMessage, error) {
	if err := c.begin(ctx, OpSendTextMessage); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != imsdk.LoginStatusLoggedIn {
		return nil, imsdk.NewError(ErrCodeNotLoggedIn, "not logged in")
	}
	c.sent = append(c.sent, msg)
	imsdk.ReportProgress(ctx, 100)
	return &imsdk.SentMessage{
		ClientMsgID: uuid.NewString(),
		ServerMsgID: uuid.NewString(),
		SendTime:    c.now().UnixMilli(),
	}, nil
}

func (c *Client) GetAllConversationList(ctx context.Context) ([]imsdk.Conversation, error) {
	if err := c.begin(ctx, OpGetAllConversationList); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.status != imsdk.LoginStatusLoggedIn {
		return nil, imsdk.NewError(ErrCodeNotLoggedIn, "not logged in")
	}
	out := make([]imsdk.Conversation, len(c.conversations))
	copy(out, c.conversations)
	return out, nil
}

var _ imsdk.Client = (*Client)(nil)
