package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"imbridge/internal/constants"
	"imbridge/internal/errors"
	"imbridge/internal/migrations"
	"imbridge/internal/retry"
	"imbridge/internal/security"
	"imbridge/internal/service"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

const (
	insertInvocationQuery = `
		INSERT INTO invocations (
			request_id, operation_id, method, code, error_kind, message,
			subject, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectRecentInvocationsQuery = `
		SELECT id, request_id, operation_id, method, code, error_kind, message,
			   subject, duration_ms, created_at
		FROM invocations
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	deleteInvocationsBeforeQuery = `DELETE FROM invocations WHERE created_at < ?`

	createSchemaVersionQuery = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`
)

// Record is one journal row
type Record struct {
	ID          int64     `json:"id"`
	RequestID   string    `json:"requestID"`
	OperationID string    `json:"operationID"`
	Method      string    `json:"method"`
	Code        int64     `json:"code"`
	ErrorKind   string    `json:"errorKind,omitempty"`
	Message     string    `json:"message"`
	Subject     string    `json:"subject,omitempty"`
	DurationMs  int64     `json:"durationMs"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Journal is the append-only sqlite record of plugin call outcomes. It is
// written after each continuation has fired and is never consulted when
// answering a call.
type Journal struct {
	db           *sql.DB
	encryptor    *encryptor
	backoff      *retry.Backoff
	logger       *logrus.Logger
	errLogger    *errors.Logger
	writeTimeout time.Duration
	now          func() time.Time
}

// Options configures Open
type Options struct {
	Path             string
	EncryptionSecret string
	Backoff          retry.BackoffConfig
}

// Open creates the journal file if needed, connects and migrates the schema.
// Transient sqlite failures are retried with backoff.
func Open(ctx context.Context, opts Options, logger *logrus.Logger) (*Journal, error) {
	if err := security.ValidateFilePath(opts.Path); err != nil {
		return nil, fmt.Errorf("invalid journal path: %w", err)
	}

	file, err := os.OpenFile(opts.Path, os.O_RDWR|os.O_CREATE, 0600) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to create journal file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close journal file: %w", err)
	}

	db, err := sql.Open("sqlite3", opts.Path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	j, err := newJournal(db, opts.EncryptionSecret, opts.Backoff, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	err = j.backoff.RetryWithPredicate(ctx, func() error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		return j.migrate(ctx)
	}, isRetryableDBError)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize journal: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}

	logger.WithFields(logrus.Fields{
		service.LogFieldComponent: "journal",
		"encrypted":               j.encryptor.enabled(),
	}).Info("Invocation journal opened")

	return j, nil
}

func newJournal(db *sql.DB, secret string, backoff retry.BackoffConfig, logger *logrus.Logger) (*Journal, error) {
	enc, err := newEncryptor(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Journal{
		db:           db,
		encryptor:    enc,
		backoff:      retry.NewBackoff(backoff),
		logger:       logger,
		errLogger:    errors.NewLogger(logger),
		writeTimeout: time.Duration(constants.DefaultJournalWriteTimeoutSec) * time.Second,
		now:          time.Now,
	}, nil
}

// migrate applies every embedded migration not yet recorded
func (j *Journal) migrate(ctx context.Context) error {
	all, err := migrations.Load()
	if err != nil {
		return err
	}

	if _, err := j.db.ExecContext(ctx, createSchemaVersionQuery); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, m := range all {
		var applied int
		err := j.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, m.Version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		if applied > 0 {
			continue
		}

		tx, err := j.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.Name, err)
		}
		j.logger.WithField("migration", m.Name).Debug("Applied journal migration")
	}
	return nil
}

// Close closes the underlying database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Ping checks the journal connection
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Append stores one record
func (j *Journal) Append(ctx context.Context, rec Record) error {
	subject, err := j.encryptor.Encrypt(rec.Subject)
	if err != nil {
		return fmt.Errorf("failed to encrypt subject: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = j.now()
	}

	return j.backoff.RetryWithPredicate(ctx, func() error {
		_, err := j.db.ExecContext(ctx, insertInvocationQuery,
			rec.RequestID,
			rec.OperationID,
			rec.Method,
			rec.Code,
			rec.ErrorKind,
			rec.Message,
			subject,
			rec.DurationMs,
			rec.CreatedAt.UTC(),
		)
		if err != nil {
			return errors.NewDatabaseError("insert invocation", err)
		}
		return nil
	}, isRetryableDBError)
}

// InvocationCompleted journals a finished plugin call. Failures are logged
// and never reach the caller.
func (j *Journal) InvocationCompleted(ctx context.Context, inv service.Invocation) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.writeTimeout)
	defer cancel()

	rec := Record{
		RequestID:   inv.RequestID,
		OperationID: inv.OperationID,
		Method:      inv.Method,
		Code:        inv.Result.Code,
		ErrorKind:   inv.Result.ErrorKind,
		Message:     inv.Result.Message,
		Subject:     inv.Subject,
		DurationMs:  inv.Duration.Milliseconds(),
		CreatedAt:   inv.CompletedAt,
	}
	if err := j.Append(ctx, rec); err != nil {
		j.errLogger.LogError(err, "Failed to journal invocation", logrus.Fields{
			service.LogFieldRequestID: inv.RequestID,
			service.LogFieldMethod:    inv.Method,
		})
	}
}

// Recent returns up to limit records, newest first, with subjects decrypted
func (j *Journal) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := j.db.QueryContext(ctx, selectRecentInvocationsQuery, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("select invocations", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.RequestID, &rec.OperationID, &rec.Method, &rec.Code,
			&rec.ErrorKind, &rec.Message, &rec.Subject, &rec.DurationMs, &rec.CreatedAt); err != nil {
			return nil, errors.NewDatabaseError("scan invocation", err)
		}
		if rec.Subject, err = j.encryptor.Decrypt(rec.Subject); err != nil {
			return nil, fmt.Errorf("failed to decrypt subject of invocation %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("iterate invocations", err)
	}
	return out, nil
}

// CleanupOldRecords deletes records older than retentionDays and returns how
// many were removed
func (j *Journal) CleanupOldRecords(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}
	cutoff := j.now().AddDate(0, 0, -retentionDays).UTC()

	res, err := j.db.ExecContext(ctx, deleteInvocationsBeforeQuery, cutoff)
	if err != nil {
		return 0, errors.NewDatabaseError("cleanup invocations", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("cleanup invocations", err)
	}
	return removed, nil
}

var (
	_ service.Observer      = (*Journal)(nil)
	_ service.JournalPruner = (*Journal)(nil)
)
