package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/platinummonkey/larder/pkg/audit"
	"github.com/platinummonkey/larder/pkg/config"
	"github.com/platinummonkey/larder/pkg/janitor"
	"github.com/platinummonkey/larder/pkg/storage"
	"github.com/platinummonkey/larder/pkg/storage/mongo"
	larderredis "github.com/platinummonkey/larder/pkg/storage/redis"
	"github.com/sirupsen/logrus"
)

// Options holds the janitor command line
type Options struct {
	Schedule string
	RunOnce  bool
	Timeout  time.Duration
	LogLevel string
}

// Janitor purges expired revoked tokens (and old audit events when an audit
// database is configured) outside the API process
func main() {
	opts := parseFlags()
	logger := setupLogger(opts.LogLevel)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	purger, closeAll, err := buildPurger(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize purger: %v", err)
	}
	defer closeAll()

	scheduler := janitor.NewScheduler(purger, logger, opts.Timeout)

	if opts.RunOnce {
		res, err := scheduler.RunOnce(ctx)
		if err != nil {
			logger.Fatalf("Purge failed: %v", err)
		}
		logger.WithFields(logrus.Fields{
			"revoked_tokens": res.Revocations,
			"audit_events":   res.AuditEvents,
		}).Info("Purge completed")
		return
	}

	if err := scheduler.Schedule(opts.Schedule); err != nil {
		logger.Fatalf("Invalid schedule: %v", err)
	}
	scheduler.Start()
	logger.Info("Larder janitor started")

	<-ctx.Done()
	logger.Info("Shutting down janitor...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := scheduler.Stop(stopCtx); err != nil {
		logger.Warnf("Janitor stopped before the running purge finished: %v", err)
	}
	logger.Info("Janitor stopped")
}

func parseFlags() *Options {
	opts := &Options{}

	flag.StringVar(&opts.Schedule, "schedule", getEnv("LARDER_PURGE_SCHEDULE", janitor.DefaultSchedule), "Cron schedule for purges")
	flag.BoolVar(&opts.RunOnce, "run-once", false, "Run one purge and exit")
	flag.DurationVar(&opts.Timeout, "timeout", 5*time.Minute, "Upper bound on a single purge")
	flag.StringVar(&opts.LogLevel, "log-level", getEnv("LARDER_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")

	flag.Parse()

	return opts
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// buildPurger connects the revocation store the API writes to. Redis wins
// over mongo, matching the API server. A memory backend has nothing to purge
// from another process.
func buildPurger(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*janitor.Purger, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var revocations storage.RevocationStore
	switch {
	case cfg.Storage.RedisURL != "":
		client, err := larderredis.NewClient(ctx, cfg.Storage)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { client.Close() })
		revocations = larderredis.NewRevocationStore(client, nil)
		logger.Info("Purging revocations in Redis")
	case cfg.Storage.Type == storage.BackendMongo:
		client, err := mongo.Connect(ctx, cfg.Storage)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { client.Disconnect(context.Background()) })
		revocations = mongo.NewRevocationStore(client.Database(cfg.Storage.MongoDatabase), nil)
		logger.WithField("database", cfg.Storage.MongoDatabase).Info("Purging revocations in MongoDB")
	default:
		closeAll()
		return nil, func() {}, fmt.Errorf("storage type %q keeps revocations in the API process; nothing to purge", cfg.Storage.Type)
	}

	var auditPurger janitor.AuditPurger
	if cfg.Audit.PostgresURL != "" && cfg.Audit.Retention > 0 {
		db, err := audit.OpenPostgres(ctx, cfg.Audit.PostgresURL, 2)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { db.Close() })
		dbLogger, err := audit.NewDBLogger(ctx, db)
		if err != nil {
			return nil, closeAll, err
		}
		auditPurger = dbLogger
		logger.Infof("Purging audit events older than %s", cfg.Audit.Retention)
	}

	purger := janitor.NewPurger(janitor.Config{
		Revocations:    revocations,
		Audit:          auditPurger,
		AuditRetention: cfg.Audit.Retention,
	})
	return purger, closeAll, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
