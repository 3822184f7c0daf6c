package database

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"imbridge/internal/retry"
	"imbridge/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sqlmock "gopkg.in/DATA-DOG/go-sqlmock.v1"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func fastBackoff() retry.BackoffConfig {
	return retry.BackoffConfig{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2, MaxAttempts: 3}
}

func openTestJournal(t *testing.T, secret string) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(context.Background(), Options{Path: path, EncryptionSecret: secret, Backoff: fastBackoff()}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(context.Background(), Options{Path: "../escape.db"}, testLogger())
	assert.Error(t, err)

	_, err = Open(context.Background(), Options{Path: ""}, testLogger())
	assert.Error(t, err)
}

func TestOpen_ShortSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	_, err := Open(context.Background(), Options{Path: path, EncryptionSecret: "short"}, testLogger())

	assert.ErrorContains(t, err, "at least 32 characters")
}

func TestOpen_MigratesOnce(t *testing.T) {
	j, path := openTestJournal(t, "")
	require.NoError(t, j.Close())

	reopened, err := Open(context.Background(), Options{Path: path, Backoff: fastBackoff()}, testLogger())
	require.NoError(t, err)
	defer reopened.Close()

	var versions int
	require.NoError(t, reopened.db.QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&versions))
	assert.Equal(t, 2, versions)
	assert.NoError(t, reopened.Ping(context.Background()))
}

func TestJournal_InvocationCompleted(t *testing.T) {
	j, _ := openTestJournal(t, "")
	ctx := context.Background()

	j.InvocationCompleted(ctx, service.Invocation{
		RequestID:   "req_1",
		OperationID: "op1",
		Method:      service.MethodLogin,
		Subject:     "alice",
		Result:      service.Success(nil),
		Duration:    42 * time.Millisecond,
		CompletedAt: time.Now(),
	})
	j.InvocationCompleted(ctx, service.Invocation{
		RequestID:   "req_2",
		OperationID: "op2",
		Method:      service.MethodSendTextMessage,
		Subject:     "bob",
		Result:      service.Result{Code: 1302, Message: "recipient blocked", ErrorKind: "delegation"},
		Duration:    7 * time.Millisecond,
		CompletedAt: time.Now().Add(time.Second),
	})

	records, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "req_2", records[0].RequestID)
	assert.Equal(t, service.MethodSendTextMessage, records[0].Method)
	assert.Equal(t, int64(1302), records[0].Code)
	assert.Equal(t, "delegation", records[0].ErrorKind)
	assert.Equal(t, "recipient blocked", records[0].Message)
	assert.Equal(t, "bob", records[0].Subject)
	assert.Equal(t, int64(7), records[0].DurationMs)

	assert.Equal(t, "req_1", records[1].RequestID)
	assert.Equal(t, int64(0), records[1].Code)
	assert.Equal(t, "success", records[1].Message)
	assert.Equal(t, int64(42), records[1].DurationMs)
}

func TestJournal_EncryptsSubject(t *testing.T) {
	j, _ := openTestJournal(t, testSecret)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, Record{RequestID: "req_1", OperationID: "op", Method: "login", Subject: "alice"}))

	var stored string
	require.NoError(t, j.db.QueryRow(`SELECT subject FROM invocations`).Scan(&stored))
	assert.NotEqual(t, "alice", stored)
	assert.NotContains(t, stored, "alice")

	records, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].Subject)
}

func TestJournal_CleanupOldRecords(t *testing.T) {
	j, _ := openTestJournal(t, "")
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	require.NoError(t, j.Append(ctx, Record{RequestID: "old", Method: "login", CreatedAt: now.AddDate(0, 0, -40)}))
	require.NoError(t, j.Append(ctx, Record{RequestID: "edge", Method: "login", CreatedAt: now.AddDate(0, 0, -29)}))
	require.NoError(t, j.Append(ctx, Record{RequestID: "new", Method: "login"}))

	removed, err := j.CleanupOldRecords(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	records, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.RequestID)
	}
	assert.Equal(t, []string{"new", "edge"}, ids)

	_, err = j.CleanupOldRecords(ctx, 0)
	assert.Error(t, err)
}

func TestJournal_AppendRetriesLockedDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	j, err := newJournal(db, "", fastBackoff(), testLogger())
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO invocations").WillReturnError(stderrors.New("database is locked"))
	mock.ExpectExec("INSERT INTO invocations").WillReturnResult(sqlmock.NewResult(1, 1))

	err = j.Append(context.Background(), Record{RequestID: "req", Method: "logout"})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournal_AppendPermanentFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	j, err := newJournal(db, "", fastBackoff(), testLogger())
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO invocations").WillReturnError(stderrors.New("no such table: invocations"))

	err = j.Append(context.Background(), Record{RequestID: "req", Method: "logout"})

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no such table"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournal_ObserverSwallowsErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	j, err := newJournal(db, "", fastBackoff(), testLogger())
	require.NoError(t, err)
	mock.ExpectExec("INSERT INTO invocations").WillReturnError(stderrors.New("disk full"))

	assert.NotPanics(t, func() {
		j.InvocationCompleted(context.Background(), service.Invocation{RequestID: "req", Method: "login"})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournal_CleanupReportsRowsAffected(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	j, err := newJournal(db, "", fastBackoff(), testLogger())
	require.NoError(t, err)
	mock.ExpectExec("DELETE FROM invocations").WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 4))

	removed, err := j.CleanupOldRecords(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
