// Package observability provides structured logging, Prometheus metrics, health
// probes, graceful shutdown and OpenTelemetry tracing.
//
// # Structured Logging
//
// Logger wraps logrus with a JSON formatter:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("request_id", reqID).WithError(err).Error("request failed")
//
// NewLoggerWithSink adds the optional sink selected by configuration: a rotating
// file under the logs directory, or a hook that copies error entries into an
// ErrorStore such as a MongoDB collection.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	metrics.RecordAuthDecision(observability.AuthOutcomeForbidden, elapsed)
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(redisClient, mongoStore)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// # Related Packages
//
//   - pkg/config: Supplies the logging and tracing settings
//   - pkg/middleware: Records authorization decisions
package observability
