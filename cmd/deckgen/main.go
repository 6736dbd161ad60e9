// Package main implements the entry point for the deckgen cache service.
// Deckgen fronts the presentation-generation pipeline with a multi-tier
// performance cache: in-process memory, an optional NATS-backed shared
// tier, and a persistent on-disk tier.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/tushar1003/deckgen/metric"
	"github.com/tushar1003/deckgen/natsclient"
	"github.com/tushar1003/deckgen/perfcache"
	"github.com/tushar1003/deckgen/pkg/ratelimit"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "deckgen"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Run application with proper error handling
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load and validate configuration
	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsRegistry := metric.NewMetricsRegistry()

	// Shared tier is best-effort: a missing NATS server degrades the
	// cache to two tiers instead of failing startup.
	keyValuer, natsClient := setupSharedTier(ctx, cfg)
	if natsClient != nil {
		defer func() { _ = natsClient.Close(context.Background()) }()
	}

	cache, err := setupCache(ctx, cfg, logger, metricsRegistry, keyValuer)
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	defer func() { _ = cache.Close() }()

	limiter := ratelimit.New()

	// Periodic stats logging
	if cfg.StatsInterval > 0 {
		go logStatsLoop(ctx, cache, cfg.StatsInterval)
	}

	return serveHTTP(ctx, cfg, cache, metricsRegistry, limiter, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting deckgen cache service",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// setupSharedTier connects to NATS and opens the cache bucket. Returns nils
// when NATS is disabled or unreachable.
func setupSharedTier(ctx context.Context, cfg AppConfig) (perfcache.KeyValuer, *natsclient.Client) {
	if !cfg.NATS.Enabled {
		return nil, nil
	}

	client, err := natsclient.New(cfg.NATS.URL, natsclient.WithClientName(appName))
	if err != nil {
		slog.Warn("NATS client setup failed, continuing without shared tier", "error", err)
		return nil, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Connect(connectCtx); err != nil {
		slog.Warn("NATS connection failed, continuing without shared tier",
			"url", cfg.NATS.URL, "error", err)
		_ = client.Close(context.Background())
		return nil, nil
	}

	// The bucket and the client must both admit the largest entry any
	// namespace policy allows, or big writes can never succeed.
	maxEntry := cfg.Cache.LargestEntryBytes()

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:       cfg.NATS.Bucket,
		MaxValueSize: int32(maxEntry),
	})
	if err != nil {
		slog.Warn("KV bucket setup failed, continuing without shared tier",
			"bucket", cfg.NATS.Bucket, "error", err)
		_ = client.Close(context.Background())
		return nil, nil
	}

	store := client.NewKVStore(bucket, natsclient.WithKVMaxValueSize(int(maxEntry)))

	slog.Info("Shared cache tier connected",
		"url", cfg.NATS.URL, "bucket", cfg.NATS.Bucket, "max_value_bytes", maxEntry)
	return perfcache.NewNATSKeyValuer(store), client
}

// setupCache builds the multi-tier cache from configuration.
func setupCache(
	ctx context.Context,
	cfg AppConfig,
	logger *slog.Logger,
	registry *metric.MetricsRegistry,
	keyValuer perfcache.KeyValuer,
) (*perfcache.Cache[json.RawMessage], error) {
	opts := []perfcache.Option[json.RawMessage]{
		perfcache.WithLogger[json.RawMessage](logger),
		perfcache.WithMetrics[json.RawMessage](registry, "cache"),
	}
	if keyValuer != nil {
		opts = append(opts, perfcache.WithKeyValuer[json.RawMessage](keyValuer))
	}

	return perfcache.New(ctx, cfg.Cache, opts...)
}

// logStatsLoop periodically logs a cache statistics summary.
func logStatsLoop(ctx context.Context, cache *perfcache.Cache[json.RawMessage], interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slog.Info("cache statistics", "stats", cache.Stats().String())
		}
	}
}

// serveHTTP runs the service HTTP server until the context is cancelled,
// then shuts it down gracefully.
func serveHTTP(
	ctx context.Context,
	cfg AppConfig,
	cache *perfcache.Cache[json.RawMessage],
	registry *metric.MetricsRegistry,
	limiter *ratelimit.Limiter,
	shutdownTimeout time.Duration,
) error {
	metricsServer := metric.NewServer(cfg.MetricsPort, "/metrics", registry)
	go func() {
		slog.Info("Metrics server listening", "address", metricsServer.Address())
		if err := metricsServer.Start(); err != nil {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	defer func() { _ = metricsServer.Stop() }()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newHTTPHandler(cache, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutdown signal received, stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}
