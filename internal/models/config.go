package models

// Config holds the application configuration. Values come from the JSON
// config file and may be overridden by IMBRIDGE_* environment variables.
type Config struct {
	Server      ServerConfig  `json:"server" envPrefix:"SERVER_"`
	SDK         SDKConfig     `json:"sdk" envPrefix:"SDK_"`
	Bridge      BridgeConfig  `json:"bridge" envPrefix:"BRIDGE_"`
	Journal     JournalConfig `json:"journal" envPrefix:"JOURNAL_"`
	Retry       RetryConfig   `json:"retry" envPrefix:"RETRY_"`
	Tracing     TracingConfig `json:"tracing" envPrefix:"TRACING_"`
	LogLevel    string        `json:"log_level" env:"LOG_LEVEL"`
	Environment string        `json:"environment" env:"ENV"`
}

// ServerConfig configures the host-facing plugin transport
type ServerConfig struct {
	Port                int    `json:"port" env:"PORT"`
	ReadTimeoutSec      int    `json:"readTimeoutSec" env:"READ_TIMEOUT_SEC"`
	WriteTimeoutSec     int    `json:"writeTimeoutSec" env:"WRITE_TIMEOUT_SEC"`
	IdleTimeoutSec      int    `json:"idleTimeoutSec" env:"IDLE_TIMEOUT_SEC"`
	MaxRequestBodyBytes int64  `json:"maxRequestBodyBytes" env:"MAX_REQUEST_BODY_BYTES"`
	AuthToken           string `json:"authToken" env:"AUTH_TOKEN"`
}

// SDKConfig selects and configures the messaging SDK driver
type SDKConfig struct {
	Driver     string        `json:"driver" env:"DRIVER"`
	BaseURL    string        `json:"baseURL" env:"BASE_URL"`
	APIKey     string        `json:"apiKey" env:"API_KEY"`
	TimeoutSec int           `json:"timeoutSec" env:"TIMEOUT_SEC"`
	Breaker    BreakerConfig `json:"breaker" envPrefix:"BREAKER_"`
}

// BreakerConfig configures the circuit breaker in front of the SDK host
type BreakerConfig struct {
	MaxFailures      int `json:"maxFailures" env:"MAX_FAILURES"`
	OpenTimeoutSec   int `json:"openTimeoutSec" env:"OPEN_TIMEOUT_SEC"`
	HalfOpenMaxCalls int `json:"halfOpenMaxCalls" env:"HALF_OPEN_MAX_CALLS"`
}

// BridgeConfig configures the plugin call adapter
type BridgeConfig struct {
	PoolSize      int `json:"poolSize" env:"POOL_SIZE"`
	CallTimeoutMs int `json:"callTimeoutMs" env:"CALL_TIMEOUT_MS"`
}

// JournalConfig configures the optional invocation journal
type JournalConfig struct {
	Enabled              bool   `json:"enabled" env:"ENABLED"`
	Path                 string `json:"path" env:"PATH"`
	EncryptionSecret     string `json:"encryptionSecret" env:"ENCRYPTION_SECRET"`
	RetentionDays        int    `json:"retentionDays" env:"RETENTION_DAYS"`
	CleanupIntervalHours int    `json:"cleanupIntervalHours" env:"CLEANUP_INTERVAL_HOURS"`
}

// RetryConfig holds retry related configurations
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs" env:"INITIAL_BACKOFF_MS"`
	MaxBackoffMs     int `json:"maxBackoffMs" env:"MAX_BACKOFF_MS"`
	MaxAttempts      int `json:"maxAttempts" env:"MAX_ATTEMPTS"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled      bool    `json:"enabled" env:"ENABLED"`
	UseStdout    bool    `json:"useStdout" env:"USE_STDOUT"`
	OTLPEndpoint string  `json:"otlpEndpoint" env:"OTLP_ENDPOINT"`
	SampleRate   float64 `json:"sampleRate" env:"SAMPLE_RATE"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
