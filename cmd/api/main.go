// Package main is the entry point for the dailypost API server.
//
// It loads the configuration, builds the external clients and domain
// services, mounts the handlers on the core chassis and serves requests. In
// AWS Lambda it answers API Gateway HTTP events; elsewhere it runs a plain
// HTTP server with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"dailypost/internal/accounts"
	"dailypost/internal/api/handlers"
	"dailypost/internal/config"
	"dailypost/internal/core"
	"dailypost/internal/dispatch"
	"dailypost/internal/external"
	"dailypost/internal/schedule"
	"dailypost/internal/segment"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("dailypost API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	metrics, err := newMetrics(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	srv, err := buildServer(cfg, logger, metrics, time.Now)
	if err != nil {
		return err
	}

	if core.IsLambda() {
		logger.Info("running in Lambda mode")
		lambda.Start(core.LambdaHandler(srv.Handler()))
		return nil
	}

	return runHTTPServer(srv, cfg, logger)
}

// buildServer wires every dependency and mounts the routes. metrics may be
// nil.
func buildServer(cfg *config.Config, logger *slog.Logger, metrics core.MetricsCollector, clock schedule.Clock) (*core.Server, error) {
	settings, err := config.LoadSegmenterSettings(cfg.Segmenter.SettingsFile)
	if err != nil {
		return nil, fmt.Errorf("loading segmenter settings: %w", err)
	}
	merged := *cfg
	merged.Segmenter = settings.ApplyTo(cfg.Segmenter)

	registry, err := external.NewClientRegistry(&merged, logger)
	if err != nil {
		return nil, fmt.Errorf("creating external clients: %w", err)
	}

	segmenter, err := segment.NewModelSegmenter(registry.Model, segment.Options{
		SystemPrompt: settings.SystemPrompt,
		UserPrompt:   settings.UserPrompt,
		Temperature:  merged.Segmenter.Temperature,
		MaxTokens:    merged.Segmenter.MaxTokens,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating segmenter: %w", err)
	}

	calculator := schedule.NewCalculator(clock, merged.Schedule.DefaultTimezone, merged.DefaultPostTime())
	posting := dispatch.NewPostingService(
		calculator,
		dispatch.NewDispatcher(registry.Publishing, logger),
		logger,
	)
	lister := accounts.NewLister(registry.Publishing, logger)

	srv, err := core.NewServer(&merged, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.Metrics = metrics
	srv.RateLimitStore = core.NewTokenBucketStore()
	for _, probe := range registry.HealthProbes() {
		srv.HealthProbes = append(srv.HealthProbes, probe)
	}

	accountHandler := handlers.NewAccountHandler(lister, logger, merged.Feature.EnableDebugRoutes)
	segmentHandler := handlers.NewSegmentHandler(segmenter, registry.Model.Name(), srv.Validator, metrics, logger)
	scheduleHandler := handlers.NewScheduleHandler(posting, srv.Validator, metrics, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		accountHandler.RegisterRoutes,
		segmentHandler.RegisterRoutes,
		scheduleHandler.RegisterRoutes,
	)

	srv.MountRoutes()
	return srv, nil
}

// newMetrics returns a CloudWatch collector when metrics are enabled, nil
// otherwise.
func newMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (core.MetricsCollector, error) {
	if !cfg.Observability.MetricsEnabled {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	logger.Info("CloudWatch metrics enabled",
		"namespace", cfg.Observability.MetricNamespace,
		"region", cfg.AWS.Region,
	)
	return core.NewCloudWatchMetrics(
		cloudwatch.NewFromConfig(awsCfg),
		cfg.Observability.MetricNamespace,
		logger.With("component", "metrics"),
	), nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	// Write deadline leaves room for a full schedule dispatch.
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler)
}
