package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"imbridge/internal/constants"
	"imbridge/internal/models"
	"imbridge/internal/security"
	"imbridge/internal/validation"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "IMBRIDGE_"

const (
	DriverStub   = "stub"
	DriverRemote = "remote"
)

var (
	ErrMissingSDKURL      = models.ConfigError{Message: "missing SDK host base URL (sdk.baseURL)"}
	ErrUnknownDriver      = models.ConfigError{Message: "sdk.driver must be \"stub\" or \"remote\""}
	ErrMissingJournalPath = models.ConfigError{Message: "missing journal path"}
)

// LoadConfig reads the JSON config file, applies defaults and IMBRIDGE_*
// environment overrides, then validates the result.
func LoadConfig(path string) (*models.Config, error) {
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Finalize(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Finalize applies defaults, environment overrides and validation to a
// config that was built without a file.
func Finalize(config *models.Config) error {
	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	applyDefaults(config)

	if err := validate(config); err != nil {
		return err
	}
	return validateSecurity(config)
}

func applyDefaults(c *models.Config) {
	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}
	if c.Server.MaxRequestBodyBytes <= 0 {
		c.Server.MaxRequestBodyBytes = constants.DefaultMaxRequestBodyBytes
	}

	if c.SDK.Driver == "" {
		c.SDK.Driver = constants.DefaultSDKDriver
	}
	c.SDK.Driver = strings.ToLower(c.SDK.Driver)
	if c.SDK.TimeoutSec <= 0 {
		c.SDK.TimeoutSec = constants.DefaultSDKTimeoutSec
	}
	if c.SDK.Breaker.MaxFailures <= 0 {
		c.SDK.Breaker.MaxFailures = constants.DefaultBreakerMaxFailures
	}
	if c.SDK.Breaker.OpenTimeoutSec <= 0 {
		c.SDK.Breaker.OpenTimeoutSec = constants.DefaultBreakerOpenTimeoutSec
	}
	if c.SDK.Breaker.HalfOpenMaxCalls <= 0 {
		c.SDK.Breaker.HalfOpenMaxCalls = constants.DefaultBreakerHalfOpenMaxCall
	}

	if c.Bridge.PoolSize <= 0 {
		c.Bridge.PoolSize = constants.DefaultPoolSize
	}
	if c.Bridge.CallTimeoutMs < 0 {
		c.Bridge.CallTimeoutMs = constants.DefaultCallTimeoutMs
	}

	if c.Journal.Path == "" {
		c.Journal.Path = constants.DefaultJournalPath
	}
	if c.Journal.RetentionDays <= 0 {
		c.Journal.RetentionDays = constants.DefaultRetentionDays
	}
	if c.Journal.CleanupIntervalHours <= 0 {
		c.Journal.CleanupIntervalHours = constants.CleanupSchedulerIntervalHours
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultBackoffInitialMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultBackoffMaxSec * 1000
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultDatabaseRetryAttempts
	}

	if c.Tracing.SampleRate <= 0 {
		c.Tracing.SampleRate = 0.1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func validate(c *models.Config) error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return models.ConfigError{Message: fmt.Sprintf("server.port out of range: %d", c.Server.Port)}
	}

	switch c.SDK.Driver {
	case DriverStub:
	case DriverRemote:
		if c.SDK.BaseURL == "" {
			return ErrMissingSDKURL
		}
		u, err := url.Parse(c.SDK.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return models.ConfigError{Message: fmt.Sprintf("invalid sdk.baseURL: %q", c.SDK.BaseURL)}
		}
	default:
		return ErrUnknownDriver
	}

	if err := validation.ValidateTimeout(c.SDK.TimeoutSec, "sdk.timeoutSec"); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := validation.ValidateRetentionDays(c.Journal.RetentionDays); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Journal.Enabled {
		if c.Journal.Path == "" {
			return ErrMissingJournalPath
		}
		if err := security.ValidateFilePath(c.Journal.Path); err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid journal path: %v", err)}
		}
	}
	if s := c.Journal.EncryptionSecret; s != "" && len(s) < constants.MinEncryptionSecretLength {
		return models.ConfigError{Message: fmt.Sprintf("journal encryption secret must be at least %d characters", constants.MinEncryptionSecretLength)}
	}

	if c.Tracing.SampleRate > 1 {
		return models.ConfigError{Message: "tracing.sampleRate must be between 0 and 1"}
	}
	return nil
}

// validateSecurity performs security-specific validation
func validateSecurity(c *models.Config) error {
	if c.Environment == "production" {
		if len(c.Server.AuthToken) < 16 {
			return models.ConfigError{Message: "server auth token of at least 16 characters is required in production (set IMBRIDGE_SERVER_AUTH_TOKEN)"}
		}
		if c.Journal.Enabled && c.Journal.EncryptionSecret == "" {
			return models.ConfigError{Message: "journal encryption secret is required in production (set IMBRIDGE_JOURNAL_ENCRYPTION_SECRET)"}
		}
		if c.LogLevel == "debug" {
			return models.ConfigError{Message: "debug logging should not be used in production (security risk)"}
		}
		return nil
	}

	if c.Server.AuthToken == "" {
		fmt.Fprintf(os.Stderr, "WARNING: plugin endpoints are unauthenticated. Set IMBRIDGE_SERVER_AUTH_TOKEN to require a token.\n")
	}
	return nil
}
