// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health checks and graceful shutdown.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("port", 8080).Info("Server started")
//
// Request-scoped logging picks up the request id, user id and trace ids:
//
//	observability.FromContext(r.Context()).WithError(err).Error("login failed")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	metrics.RecordGateRejection("revoked")
//
// All Record* helpers accept a nil *Metrics.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(auditDB, redisClient)
//	checker.AddCheck("mongo", true, mongoClient.HealthCheck)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "larder",
//	}, logger)
//	defer providers.Shutdown(ctx)
package observability
