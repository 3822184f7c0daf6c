package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imbridge/internal/config"
	"imbridge/internal/constants"
	"imbridge/internal/database"
	"imbridge/internal/metrics"
	"imbridge/internal/models"
	"imbridge/internal/retry"
	"imbridge/internal/service"
	"imbridge/internal/tracing"
	"imbridge/pkg/circuitbreaker"
	"imbridge/pkg/imsdk"
	"imbridge/pkg/imsdk/remote"
	"imbridge/pkg/imsdk/stub"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("imbridge %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting imbridge")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyLogLevel(logger, cfg.LogLevel, *verbose)

	tracingConfig := tracing.DefaultTracingConfig()
	tracingConfig.ServiceVersion = Version
	tracingConfig.Enabled = cfg.Tracing.Enabled
	tracingConfig.UseStdout = cfg.Tracing.UseStdout
	tracingConfig.SampleRate = cfg.Tracing.SampleRate
	if cfg.Tracing.OTLPEndpoint != "" {
		tracingConfig.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	}
	if cfg.Environment != "" {
		tracingConfig.Environment = cfg.Environment
	}
	tracingManager := tracing.NewTracingManager(tracingConfig, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	sdk, err := newSDKClient(cfg, logger)
	if err != nil {
		return err
	}

	opts := []service.BridgeOption{service.WithMetrics(metrics.GetRegistry())}

	var journalPinger Pinger
	if cfg.Journal.Enabled {
		journal, err := database.Open(ctx, database.Options{
			Path:             cfg.Journal.Path,
			EncryptionSecret: cfg.Journal.EncryptionSecret,
			Backoff:          retry.ConfigFromMillis(cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs, cfg.Retry.MaxAttempts),
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to open invocation journal: %w", err)
		}
		defer func() {
			if err := journal.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close invocation journal")
			}
		}()

		opts = append(opts, service.WithObserver(journal))
		journalPinger = journal

		scheduler := service.NewScheduler(journal, cfg.Journal.RetentionDays, cfg.Journal.CleanupIntervalHours, logger)
		go scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	bridge, err := service.NewBridge(sdk, service.BridgeConfig{
		PoolSize:    cfg.Bridge.PoolSize,
		CallTimeout: time.Duration(cfg.Bridge.CallTimeoutMs) * time.Millisecond,
		Verbose:     *verbose,
	}, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}
	defer func() {
		if err := bridge.Close(time.Duration(constants.DefaultGracefulShutdownSec) * time.Second); err != nil {
			logger.WithError(err).Warn("Bridge shutdown incomplete")
		}
	}()

	logger.WithFields(logrus.Fields{
		"driver":    cfg.SDK.Driver,
		"pool_size": cfg.Bridge.PoolSize,
		"journal":   cfg.Journal.Enabled,
	}).Info("Plugin bridge initialized")

	watcher := config.NewConfigWatcher(*configPath, cfg, logger)
	watcher.OnConfigChange(func(updated *models.Config) {
		applyLogLevel(logger, updated.LogLevel, *verbose)
	})
	go watcher.Start(ctx)

	server := NewServer(cfg, bridge, sdk, journalPinger, logger, *verbose)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}

// applyLogLevel sets the configured level. Verbose mode always wins and
// configured levels below info are raised to info.
func applyLogLevel(logger *logrus.Logger, configured string, verbose bool) {
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
		return
	}
	if configured == "" {
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	level, err := logrus.ParseLevel(configured)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", configured)
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	logger.SetLevel(level)
}

// newSDKClient builds the configured SDK driver
func newSDKClient(cfg *models.Config, logger *logrus.Logger) (imsdk.Client, error) {
	switch cfg.SDK.Driver {
	case config.DriverStub:
		logger.Warn("Using the in-memory stub SDK driver")
		return stub.New(), nil
	case config.DriverRemote:
		return remote.NewClient(remote.Config{
			BaseURL: cfg.SDK.BaseURL,
			APIKey:  cfg.SDK.APIKey,
			Timeout: time.Duration(cfg.SDK.TimeoutSec) * time.Second,
			Breaker: circuitbreaker.Config{
				MaxFailures:      uint32(cfg.SDK.Breaker.MaxFailures),
				OpenTimeout:      time.Duration(cfg.SDK.Breaker.OpenTimeoutSec) * time.Second,
				HalfOpenMaxCalls: uint32(cfg.SDK.Breaker.HalfOpenMaxCalls),
			},
		}, nil, logger), nil
	default:
		return nil, fmt.Errorf("unknown sdk driver %q", cfg.SDK.Driver)
	}
}
