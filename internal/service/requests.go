package service

import (
	"encoding/json"
	"fmt"
	"math"

	"imbridge/internal/errors"
	"imbridge/internal/validation"
	"imbridge/pkg/imsdk"
)

// Params is the untyped argument mapping supplied by the host runtime
type Params map[string]interface{}

// Clone deep-copies nested maps and slices so the bridge never shares the
// caller's mapping
func (p Params) Clone() Params {
	if p == nil {
		return Params{}
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Params:
		return map[string]interface{}(t.Clone())
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}

// String returns the string at key. Absent and null values yield "".
func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(key, "must be a string")
	}
	return s, nil
}

// Int returns the integer at key and whether it was present. JSON numbers
// arrive as float64 or json.Number and must be integral.
func (p Params) Int(key string) (int, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false, nil
	}

	switch n := v.(type) {
	case int:
		return n, true, nil
	case int32:
		return int(n), true, nil
	case int64:
		if n > math.MaxInt32 || n < math.MinInt32 {
			return 0, true, errors.NewValidationError(key, "out of range")
		}
		return int(n), true, nil
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, true, errors.NewValidationError(key, "must be an integer")
		}
		return int(n), true, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil || i > math.MaxInt32 || i < math.MinInt32 {
			return 0, true, errors.NewValidationError(key, "must be an integer")
		}
		return int(i), true, nil
	default:
		return 0, true, errors.NewValidationError(key, "must be an integer")
	}
}

// Bool returns the boolean at key and whether it was present
func (p Params) Bool(key string) (bool, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return false, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, true, errors.NewValidationError(key, "must be a boolean")
	}
	return b, true, nil
}

// Configuration keys understood by initSDK
const (
	KeyAPIAddr             = "apiAddr"
	KeyWSAddr              = "wsAddr"
	KeyPlatformID          = "platformID"
	KeyDataDir             = "dataDir"
	KeyLogLevel            = "logLevel"
	KeyIsLogStandardOutput = "isLogStandardOutput"
	KeyLogFilePath         = "logFilePath"
)

// Invocation parameter keys
const (
	KeyUserID  = "userID"
	KeyToken   = "token"
	KeyText    = "text"
	KeyRecvID  = "recvID"
	KeyGroupID = "groupID"
)

var knownConfigKeys = map[string]struct{}{
	KeyAPIAddr:             {},
	KeyWSAddr:              {},
	KeyPlatformID:          {},
	KeyDataDir:             {},
	KeyLogLevel:            {},
	KeyIsLogStandardOutput: {},
	KeyLogFilePath:         {},
}

// ParseInitConfig validates the initSDK configuration mapping. Keys the
// bridge does not know are passed through to the SDK in Extra.
func ParseInitConfig(p Params) (imsdk.Config, error) {
	var cfg imsdk.Config
	var err error

	if cfg.APIAddr, err = p.String(KeyAPIAddr); err != nil {
		return cfg, err
	}
	if err := validation.ValidateEndpoint(KeyAPIAddr, cfg.APIAddr, "http", "https"); err != nil {
		return cfg, err
	}

	if cfg.WSAddr, err = p.String(KeyWSAddr); err != nil {
		return cfg, err
	}
	if err := validation.ValidateEndpoint(KeyWSAddr, cfg.WSAddr, "ws", "wss"); err != nil {
		return cfg, err
	}

	platformID, present, err := p.Int(KeyPlatformID)
	if err != nil {
		return cfg, err
	}
	if !present {
		return cfg, errors.NewValidationError(KeyPlatformID, "is required")
	}
	if err := validation.ValidateNumericRange(platformID, KeyPlatformID, 1, math.MaxInt32); err != nil {
		return cfg, err
	}
	cfg.PlatformID = platformID

	if cfg.DataDir, err = p.String(KeyDataDir); err != nil {
		return cfg, err
	}
	if cfg.LogFilePath, err = p.String(KeyLogFilePath); err != nil {
		return cfg, err
	}
	if cfg.LogLevel, _, err = p.Int(KeyLogLevel); err != nil {
		return cfg, err
	}
	if cfg.IsLogStandardOutput, _, err = p.Bool(KeyIsLogStandardOutput); err != nil {
		return cfg, err
	}

	for k, v := range p {
		if _, known := knownConfigKeys[k]; known {
			continue
		}
		if cfg.Extra == nil {
			cfg.Extra = make(map[string]interface{})
		}
		cfg.Extra[k] = v
	}

	return cfg, nil
}

// LoginRequest is the validated login argument
type LoginRequest struct {
	UserID string
	Token  string
}

// ParseLogin validates login credentials
func ParseLogin(p Params) (LoginRequest, error) {
	var req LoginRequest
	var err error

	if req.UserID, err = p.String(KeyUserID); err != nil {
		return req, err
	}
	if err := validation.ValidateIdentifier(KeyUserID, req.UserID); err != nil {
		return req, err
	}

	if req.Token, err = p.String(KeyToken); err != nil {
		return req, err
	}
	if err := validation.ValidateToken(KeyToken, req.Token); err != nil {
		return req, err
	}

	return req, nil
}

// ParseTextMessage validates a sendTextMessage argument. Exactly one of
// recvID and groupID must be non-empty.
func ParseTextMessage(p Params) (imsdk.TextMessage, error) {
	var msg imsdk.TextMessage
	var err error

	if msg.Text, err = p.String(KeyText); err != nil {
		return msg, err
	}
	if err := validation.ValidateText(KeyText, msg.Text); err != nil {
		return msg, err
	}

	if msg.RecvID, err = p.String(KeyRecvID); err != nil {
		return msg, err
	}
	if msg.GroupID, err = p.String(KeyGroupID); err != nil {
		return msg, err
	}

	switch {
	case msg.RecvID == "" && msg.GroupID == "":
		return msg, errors.NewValidationError(KeyRecvID, fmt.Sprintf("one of %s or %s is required", KeyRecvID, KeyGroupID))
	case msg.RecvID != "" && msg.GroupID != "":
		return msg, errors.NewValidationError(KeyGroupID, fmt.Sprintf("only one of %s or %s may be set", KeyRecvID, KeyGroupID))
	case msg.RecvID != "":
		return msg, validation.ValidateIdentifier(KeyRecvID, msg.RecvID)
	default:
		return msg, validation.ValidateIdentifier(KeyGroupID, msg.GroupID)
	}
}
