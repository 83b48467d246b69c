package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/platinummonkey/larder/pkg/account"
	"github.com/platinummonkey/larder/pkg/api"
	"github.com/platinummonkey/larder/pkg/audit"
	"github.com/platinummonkey/larder/pkg/auth"
	"github.com/platinummonkey/larder/pkg/config"
	"github.com/platinummonkey/larder/pkg/janitor"
	"github.com/platinummonkey/larder/pkg/middleware"
	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/platinummonkey/larder/pkg/recipes"
	"github.com/platinummonkey/larder/pkg/storage"
	"github.com/platinummonkey/larder/pkg/storage/cache"
	"github.com/platinummonkey/larder/pkg/storage/memory"
	"github.com/platinummonkey/larder/pkg/storage/mongo"
	larderredis "github.com/platinummonkey/larder/pkg/storage/redis"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel(), os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("larder exited with error")
		os.Exit(1)
	}
}

// backend holds the stores and the connections behind them
type backend struct {
	users       storage.UserStore
	recipes     recipes.Store
	revocations storage.RevocationStore
	redis       *goredis.Client
	auditDB     *sql.DB
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	logger.WithFields(map[string]interface{}{
		"environment": cfg.Environment,
		"storage":     cfg.Storage.Type,
		"version":     version,
	}).Info("Starting larder")

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)

	otelProviders, err := observability.InitOTel(ctx, cfg.OTel(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	shutdown.RegisterCloser(otelProviders.Shutdown)

	health := observability.NewHealthChecker(nil, nil)
	health.SetVersion(version)

	be, err := openBackend(ctx, cfg, metrics, health, shutdown, logger)
	if err != nil {
		return err
	}

	// Audit trail: structured log always, postgres when configured
	sinks := []audit.Logger{audit.NewLogLogger(logger)}
	var searcher audit.Searcher
	var auditPurger janitor.AuditPurger
	if be.auditDB != nil {
		dbLogger, err := audit.NewDBLogger(ctx, be.auditDB)
		if err != nil {
			return err
		}
		sinks = append(sinks, dbLogger)
		searcher = dbLogger
		auditPurger = dbLogger
		health.AddCheck("audit_postgres", false, dbLogger.HealthCheck)
		go metrics.CollectDBStats(ctx, be.auditDB, 15*time.Second)
	}
	auditSink := audit.NewMultiLogger(sinks...)
	auditSink.SetAsync(cfg.Audit.Async)
	auditSink.SetErrorHandler(func(err error) {
		metrics.RecordAuditWriteError()
		logger.WithError(err).Warn("async audit write failed")
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		auditSink.Wait()
		return auditSink.Close()
	})
	recorder := audit.NewRecorder(auditSink, func(err error) {
		metrics.RecordAuditWriteError()
		logger.WithError(err).Warn("audit write failed")
	})

	tokens, err := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	accounts := account.NewService(account.Deps{
		Users:       be.users,
		Revocations: be.revocations,
		Tokens:      tokens,
		Hasher:      auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		Audit:       recorder,
		Metrics:     metrics,
	})
	recipeService := recipes.NewService(recipes.Deps{
		Store:   be.recipes,
		Audit:   recorder,
		Metrics: metrics,
	})
	gate := middleware.NewAuthMiddleware(middleware.AuthConfig{
		Tokens:      tokens,
		Users:       be.users,
		Revocations: be.revocations,
		CookieName:  cfg.Auth.CookieName,
		Audit:       recorder,
		Metrics:     metrics,
	})

	deps := api.Deps{
		Accounts:      accounts,
		Recipes:       recipeService,
		Gate:          gate,
		Cookie:        cfg.Cookie(),
		Logger:        logger,
		Metrics:       metrics,
		TrustProxy:    cfg.Server.TrustProxy,
		CORSOrigins:   cfg.Server.CORSOrigins,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
		AuditSearcher: searcher,
	}
	if cfg.RateLimit.Enabled {
		deps.LoginLimiter, deps.APILimiter = newLimiters(ctx, cfg, be.redis, health)
	}

	// In-process purge of expired revocations and old audit events
	if cfg.Janitor.Schedule != "" {
		purger := janitor.NewPurger(janitor.Config{
			Revocations:    be.revocations,
			Audit:          auditPurger,
			AuditRetention: cfg.Audit.Retention,
			Metrics:        metrics,
		})
		scheduler := janitor.NewScheduler(purger, logger, time.Minute)
		if err := scheduler.Schedule(cfg.Janitor.Schedule); err != nil {
			return err
		}
		scheduler.Start()
		shutdown.RegisterShutdownFunc(scheduler.Stop)
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(api.NewServer(deps), "larder-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, health)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:     healthMux,
		ReadTimeout: 5 * time.Second,
	}

	// Servers stop first, then the audit flush and scheduler, then the
	// connections in reverse order of opening
	shutdown.AddServer(apiServer)
	shutdown.AddServer(healthServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(apiServer, "api", logger) })
	g.Go(func() error { return serve(healthServer, "health", logger) })
	g.Go(func() error {
		<-gctx.Done()
		return shutdown.Shutdown(context.Background())
	})

	return g.Wait()
}

func serve(server *http.Server, name string, logger *observability.Logger) error {
	logger.WithField("addr", server.Addr).Infof("%s server listening", name)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}

// openBackend connects the configured store, optional redis revocation list,
// optional revocation cache and optional audit database
func openBackend(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, health *observability.HealthChecker, shutdown *observability.ShutdownManager, logger *observability.Logger) (*backend, error) {
	be := &backend{}

	switch cfg.Storage.Type {
	case storage.BackendMongo:
		client, err := mongo.Connect(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		shutdown.RegisterCloser(client.Disconnect)
		db := client.Database(cfg.Storage.MongoDatabase)
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			return nil, err
		}
		be.users = mongo.NewUserStore(db, metrics)
		be.recipes = mongo.NewRecipeStore(db, metrics)
		be.revocations = mongo.NewRevocationStore(db, metrics)
		health.AddCheck("mongo", true, mongo.HealthCheck(client))
		logger.WithField("database", cfg.Storage.MongoDatabase).Info("Connected to MongoDB")
	default:
		be.users = memory.NewUserStore()
		be.recipes = memory.NewRecipeStore()
		be.revocations = memory.NewRevocationStore()
		logger.Warn("Using in-memory storage; data is lost on restart")
	}

	if cfg.Storage.RedisURL != "" {
		client, err := larderredis.NewClient(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		shutdown.RegisterCloser(func(context.Context) error { return client.Close() })
		be.redis = client
		store := larderredis.NewRevocationStore(client, metrics)
		be.revocations = store
		health.AddCheck("redis", false, store.HealthCheck)
		logger.Info("Revocation list and rate limits backed by Redis")
	}

	if cfg.Storage.CacheEnabled {
		be.revocations = cache.NewRevocationCache(be.revocations, cfg.Storage.CacheSize, cfg.Storage.CacheTTL, metrics)
	}

	if cfg.Audit.PostgresURL != "" {
		db, err := audit.OpenPostgres(ctx, cfg.Audit.PostgresURL, 10)
		if err != nil {
			return nil, err
		}
		shutdown.RegisterCloser(func(context.Context) error { return db.Close() })
		be.auditDB = db
	}

	return be, nil
}

// newLimiters returns the login and API limiters, shared through redis when
// a client is available
func newLimiters(ctx context.Context, cfg *config.Config, client *goredis.Client, health *observability.HealthChecker) (login, general middleware.Limiter) {
	loginCfg := middleware.LoginRateLimitConfig()
	loginCfg.RequestsPerWindow = cfg.RateLimit.LoginLimit
	loginCfg.WindowDuration = cfg.RateLimit.LoginWindow

	apiCfg := middleware.APIRateLimitConfig()
	apiCfg.RequestsPerWindow = cfg.RateLimit.APILimit
	apiCfg.WindowDuration = cfg.RateLimit.APIWindow

	if client != nil {
		distributedLogin := middleware.NewDistributedRateLimiter(client, loginCfg, "")
		health.AddCheck("ratelimit_redis", false, distributedLogin.HealthCheck)
		return distributedLogin, middleware.NewDistributedRateLimiter(client, apiCfg, "")
	}

	loginLimiter := middleware.NewRateLimiter(loginCfg)
	apiLimiter := middleware.NewRateLimiter(apiCfg)
	loginLimiter.StartCleanup(ctx)
	apiLimiter.StartCleanup(ctx)
	return loginLimiter, apiLimiter
}
