// Command journal inspects and maintains the imbridge invocation journal.
// Opening the journal applies any pending schema migrations.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"imbridge/internal/database"
	"imbridge/internal/retry"

	"github.com/sirupsen/logrus"
)

// secretEnv matches the server's journal secret override
const secretEnv = "IMBRIDGE_JOURNAL_ENCRYPTION_SECRET"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		logrus.Fatalf("journal: %v", err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	dbPath := fs.String("db", "./imbridge.db", "Path to the journal database")
	recent := fs.Int("recent", 20, "Number of most recent invocations to print (0 to skip)")
	prune := fs.Int("prune", 0, "Delete invocations older than this many days (0 to skip)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
		return fmt.Errorf("journal file not found: %s", *dbPath)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	journal, err := database.Open(ctx, database.Options{
		Path:             *dbPath,
		EncryptionSecret: os.Getenv(secretEnv),
		Backoff:          retry.DefaultBackoffConfig(),
	}, logger)
	if err != nil {
		return err
	}
	defer journal.Close()

	if *prune > 0 {
		removed, err := journal.CleanupOldRecords(ctx, *prune)
		if err != nil {
			return fmt.Errorf("failed to prune journal: %w", err)
		}
		logger.WithField("count", removed).Info("Journal pruned")
	}

	if *recent > 0 {
		records, err := journal.Recent(ctx, *recent)
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		enc := json.NewEncoder(out)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
	}
	return nil
}
