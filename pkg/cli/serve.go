package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/warden/pkg/api"
	"github.com/platinummonkey/warden/pkg/auth"
	"github.com/platinummonkey/warden/pkg/config"
	"github.com/platinummonkey/warden/pkg/middleware"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/storage"
)

func newServeCommand(env *Env) *Command {
	return &Command{
		Name:        "serve",
		Description: "Run the API and health servers",
		Run: func(args []string) error {
			return runServe(env)
		},
	}
}

func runServe(env *Env) error {
	settings, err := config.Load(env.Lookup)
	if err != nil {
		logConfigurationError(observability.NewLogger(observability.InfoLevel, env.Err), err)
		return err
	}

	// Timestamps in logs and tokens follow TZ
	time.Local = settings.Server.Location

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, settings, env.Err)
	if err != nil {
		return err
	}
	defer app.closeLogs()

	return app.run(ctx)
}

func logConfigurationError(logger *observability.Logger, err error) {
	var cfgErr *config.ConfigurationError
	if !errors.As(err, &cfgErr) {
		logger.WithError(err).Error("Failed to load configuration")
		return
	}
	for _, v := range cfgErr.Violations {
		logger.WithFields(map[string]interface{}{
			"key":    v.Key,
			"reason": v.Reason,
		}).Error("Invalid configuration")
	}
}

// app holds every long lived component of a running server
type app struct {
	settings     *config.Settings
	logger       *observability.Logger
	logCloser    io.Closer
	errorStore   *storage.MongoErrorStore
	redis        *redis.Client
	otel         *observability.OTelProviders
	apiServer    *http.Server
	healthServer *http.Server
}

var connectErrorStore = storage.ConnectMongoErrorStore

func newApp(ctx context.Context, settings *config.Settings, bootstrapOut io.Writer) (_ *app, err error) {
	bootstrap := observability.NewLogger(settings.Logging.Level, bootstrapOut)

	errorStore, err := connectErrorStore(ctx, settings.Storage.MongoURI, settings.Logging.ErrorCollection)
	if err != nil {
		bootstrap.WithError(err).Error("Failed to configure mongodb")
		return nil, err
	}

	a := &app{
		settings:   settings,
		errorStore: errorStore,
	}
	defer func() {
		if err != nil {
			a.release()
		}
	}()

	logger, logCloser, err := observability.NewLoggerWithSink(settings.Logging.Level, observability.SinkOptions{
		Enabled:   settings.Logging.SinkEnabled,
		Type:      string(settings.Logging.Type),
		Directory: settings.Logging.Directory,
		Retention: settings.Logging.FileRetention,
	}, errorStore)
	if err != nil {
		bootstrap.WithError(err).Error("Failed to open log sink")
		return nil, err
	}
	a.logger = logger.WithField("service", settings.Observability.OTelServiceName)
	a.logCloser = logCloser
	logger = a.logger

	a.otel, err = observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        settings.Observability.OTelEnabled,
		Endpoint:       settings.Observability.OTelEndpoint,
		ServiceName:    settings.Observability.OTelServiceName,
		ServiceVersion: Version,
		Insecure:       !settings.IsProduction(),
	}, logger)
	if err != nil {
		logger.WithError(err).Warn("Tracing disabled: failed to initialize OpenTelemetry")
		a.otel = nil
	}

	a.redis, err = storage.NewRedisClient(settings.Storage.RedisURL)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	tokens, err := auth.NewTokenManager(settings.Auth.Secret, settings.Auth.Expiration, settings.Auth.Algorithm)
	if err != nil {
		return nil, err
	}

	health := observability.NewHealthChecker(a.redis, errorStore).
		WithMetrics(metrics).
		WithVersion(Version)

	opts := api.Options{
		Gate:           middleware.NewAuthMiddleware(tokens, logger, metrics),
		Health:         health,
		Metrics:        metrics,
		Logger:         logger,
		AllowOrigins:   settings.Server.AllowOrigins,
		RequestTimeout: settings.Server.RequestTimeout,
	}
	if settings.RateLimit.Enabled() {
		limiter := middleware.NewRateLimiter(a.redis, middleware.RateLimitConfig{
			RequestsPerWindow: settings.RateLimit.Requests,
			WindowDuration:    settings.RateLimit.Window,
		}, "")
		opts.RateLimiter = middleware.NewRateLimitMiddleware(limiter, logger).
			WithTrustedProxyHeaders(settings.RateLimit.TrustProxyHeaders)
	}
	if a.otel != nil {
		opts.ServiceName = settings.Observability.OTelServiceName
	}

	a.apiServer = &http.Server{
		Addr:              ":" + strconv.Itoa(settings.Server.Port),
		Handler:           api.NewServer(opts),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, health)
	observability.RegisterMetricsEndpoint(healthMux, registry)
	a.healthServer = &http.Server{
		Addr:              ":" + strconv.Itoa(settings.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

// run serves until ctx is cancelled or a server fails, then shuts down
func (a *app) run(ctx context.Context) error {
	apiListener, err := net.Listen("tcp", a.apiServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.apiServer.Addr, err)
	}
	healthListener, err := net.Listen("tcp", a.healthServer.Addr)
	if err != nil {
		apiListener.Close()
		return fmt.Errorf("failed to listen on %s: %w", a.healthServer.Addr, err)
	}

	shutdown := observability.NewShutdownManager(a.logger, a.settings.Server.ShutdownTimeout, a.apiServer, a.healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, a.otel, a.logger)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return a.redis.Close()
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		// flush queued error records before the store goes away
		a.closeLogs()
		return a.errorStore.Close(ctx)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serve(a.logger, a.apiServer, apiListener, "API")
	})
	g.Go(func() error {
		return serve(a.logger, a.healthServer, healthListener, "health")
	})
	g.Go(func() error {
		return shutdown.WaitForShutdown(gctx)
	})

	return g.Wait()
}

func serve(logger *observability.Logger, server *http.Server, listener net.Listener, name string) error {
	defer observability.RecoverPanic(logger, name+" server")

	logger.Infof("Starting %s server on %s", name, listener.Addr())
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Errorf("%s server failed", name)
		return err
	}
	return nil
}

func (a *app) closeLogs() {
	if a.logCloser != nil {
		a.logCloser.Close()
		a.logCloser = nil
	}
}

// release frees what a partially built app holds when newApp fails
func (a *app) release() {
	ctx, cancel := context.WithTimeout(context.Background(), a.settings.Server.ShutdownTimeout)
	defer cancel()

	if a.otel != nil {
		observability.ShutdownOTel(ctx, a.otel, a.logger)
	}
	if a.redis != nil {
		a.redis.Close()
	}
	a.closeLogs()
	a.errorStore.Close(ctx)
}
