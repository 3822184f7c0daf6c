// Package remote implements imsdk.Client against an SDK host process. The
// host owns the real SDK instance; this driver forwards each operation as a
// JSON request and decodes the SDK's {errCode, errMsg, data} envelope.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"imbridge/pkg/circuitbreaker"
	"imbridge/pkg/imsdk"

	"github.com/sirupsen/logrus"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	// OperationIDHeader carries the SDK operation ID
	OperationIDHeader = "operationID"
	// APIKeyHeader authenticates the driver against the SDK host
	APIKeyHeader = "X-Api-Key"

	maxResponseBytes = 4 << 20
	defaultTimeout   = 60 * time.Second
)

// Config holds the SDK host connection settings
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Breaker circuitbreaker.Config
}

// Client forwards SDK operations to the SDK host
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *logrus.Logger
}

// TransportError is a failure to reach the SDK host or a host-side fault.
// Only transport errors count against the circuit breaker.
type TransportError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sdk host %s: status %d: %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sdk host %s: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type envelope struct {
	ErrCode int64           `json:"errCode"`
	ErrMsg  string          `json:"errMsg"`
	Data    json.RawMessage `json:"data"`
}

// NewClient creates a remote SDK driver. A nil httpClient gets one with the
// configured timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	breakerCfg := cfg.Breaker
	breakerCfg.IsFailure = isTransportError

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		breaker:    circuitbreaker.New("imsdk-remote", breakerCfg, logger),
		logger:     logger,
	}
}

// Breaker exposes the circuit breaker for health reporting
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

func isTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func (c *Client) call(ctx context.Context, operation string, payload, out interface{}) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.do(ctx, operation, payload, out)
	})
}

func (c *Client) do(ctx context.Context, operation string, payload, out interface{}) error {
	if payload == nil {
		payload = struct{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sdk/"+operation, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if opID := imsdk.OperationID(ctx); opID != "" {
		req.Header.Set(OperationIDHeader, opID)
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, maxResponseBytes)); err != nil {
		return &TransportError{Operation: operation, StatusCode: resp.StatusCode, Err: err}
	}
	raw := buf.B

	if resp.StatusCode >= http.StatusInternalServerError {
		return &TransportError{Operation: operation, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return imsdk.NewError(-1, fmt.Sprintf("sdk host returned status %d", resp.StatusCode))
		}
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}

	if env.ErrCode != 0 {
		c.logger.WithFields(logrus.Fields{
			"operation":   operation,
			"operationID": imsdk.OperationID(ctx),
			"error_code":  env.ErrCode,
		}).Debug("SDK reported failure")
		return imsdk.NewError(env.ErrCode, env.ErrMsg)
	}
	if resp.StatusCode != http.StatusOK {
		return imsdk.NewError(-1, fmt.Sprintf("sdk host returned status %d", resp.StatusCode))
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", operation, err)
	}
	return nil
}

func (c *Client) InitSDK(ctx context.Context, cfg imsdk.Config) (*imsdk.InitInfo, error) {
	var info imsdk.InitInfo
	if err := c.call(ctx, "initSDK", cfg, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Login(ctx context.Context, userID, token string) (*imsdk.Session, error) {
	payload := map[string]string{"userID": userID, "token": token}
	session := imsdk.Session{UserID: userID, Status: imsdk.LoginStatusLoggedIn}
	if err := c.call(ctx, "login", payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, "logout", nil, nil)
}

func (c *Client) GetLoginStatus(ctx context.Context) (imsdk.LoginStatus, error) {
	var status imsdk.LoginStatus
	if err := c.call(ctx, "getLoginStatus", nil, &status); err != nil {
		return 0, err
	}
	return status, nil
}

func (c *Client) SendTextMessage(ctx context.Context, msg imsdk.TextMessage) (*imsdk.SentMessage, error) {
	var sent imsdk.SentMessage
	if err := c.call(ctx, "sendTextMessage", msg, &sent); err != nil {
		return nil, err
	}
	// the host answers once the send has finished
	imsdk.ReportProgress(ctx, 100)
	return &sent, nil
}

func (c *Client) GetAllConversationList(ctx context.Context) ([]imsdk.Conversation, error) {
	var conversations []imsdk.Conversation
	if err := c.call(ctx, "getAllConversationList", nil, &conversations); err != nil {
		return nil, err
	}
	if conversations == nil {
		conversations = []imsdk.Conversation{}
	}
	return conversations, nil
}

var _ imsdk.Client = (*Client)(nil)
