package constants

// Default server configuration values
const (
	DefaultServerPort            = 8082
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 60
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	DefaultMaxRequestBodyBytes   = 1 << 20
)

// Default bridge values
const (
	DefaultPoolSize      = 1024
	DefaultCallTimeoutMs = 0
)

// Default SDK host values
const (
	DefaultSDKDriver              = "stub"
	DefaultSDKTimeoutSec          = 30
	DefaultBreakerMaxFailures     = 5
	DefaultBreakerOpenTimeoutSec  = 30
	DefaultBreakerHalfOpenMaxCall = 3
)

// Default journal values
const (
	DefaultJournalPath            = "imbridge.db"
	DefaultRetentionDays          = 30
	CleanupSchedulerIntervalHours = 24
	DefaultDatabaseRetryAttempts  = 3
	DefaultBackoffInitialMs       = 500
	DefaultBackoffMaxSec          = 5
	DefaultJournalWriteTimeoutSec = 5
)

// Journal encryption parameters
const (
	JournalEncryptionSalt     = "imbridge-journal-subject-v1"
	PBKDF2Iterations          = 100000
	EncryptionKeySize         = 32
	GCMNonceSize              = 12
	MinEncryptionSecretLength = 32
)

// Plugin parameter limits
const (
	MaxIdentifierLength = 256
	MaxTextLength       = 64 * 1024
	MaxEndpointLength   = 2048
)
