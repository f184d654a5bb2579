// Package main is the entry point for the shop gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vkorolev/shopgw/internal/auth"
	"github.com/vkorolev/shopgw/internal/composite"
	"github.com/vkorolev/shopgw/internal/config"
	"github.com/vkorolev/shopgw/internal/health"
	"github.com/vkorolev/shopgw/internal/observability"
	"github.com/vkorolev/shopgw/internal/registry"
	"github.com/vkorolev/shopgw/internal/server"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// shutdownTimeout bounds graceful shutdown, including the dispatcher
// drain.
const shutdownTimeout = 30 * time.Second

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)
	app := buildApplication(cfg, logger)

	run(app, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("SHOPGW_CONFIG_PATH", "configs/gateway.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("SHOPGW_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("SHOPGW_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("shopgw version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) *zap.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// loadAndValidateConfig loads and validates the configuration. Any
// configuration error is fatal at startup.
func loadAndValidateConfig(configPath string, logger *zap.Logger) *config.Config {
	logger.Info("starting shopgw",
		zap.String("version", version),
		zap.String("config", configPath),
	)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	if err := config.ValidateConfig(cfg); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	return cfg
}

// application holds the wired components.
type application struct {
	server     *server.Server
	dispatcher *composite.Dispatcher
}

// buildApplication constructs every component by injection. Invalid
// registry entries are startup fatal, same as configuration errors.
func buildApplication(cfg *config.Config, logger *zap.Logger) *application {
	descriptors := make([]registry.ServiceDescriptor, 0, len(cfg.Services))
	for _, svc := range cfg.Services {
		descriptors = append(descriptors, registry.ServiceDescriptor{
			Name:       registry.Service(svc.Name),
			BaseURL:    svc.BaseURL,
			SearchPath: svc.SearchPath,
			QueryParam: svc.QueryParam,
		})
	}

	reg, err := registry.New(descriptors)
	if err != nil {
		logger.Fatal("failed to build service registry", zap.Error(err))
	}

	metrics := observability.NewMetrics("shopgw")

	client := composite.NewClient(
		composite.WithCallTimeout(cfg.Upstream.Timeout.Duration()),
		composite.WithClientLogger(logger),
		composite.WithClientMetrics(metrics),
	)

	router := composite.NewRouter(reg, client, logger)
	aggregator := composite.NewAggregator(reg, client,
		composite.WithAggregateQueryParam(cfg.Aggregate.QueryParam),
		composite.WithAggregatorLogger(logger),
		composite.WithAggregatorMetrics(metrics),
	)

	orders, err := reg.Resolve(registry.ServiceOrders)
	if err != nil {
		logger.Fatal("order service missing from registry", zap.Error(err))
	}
	dispatcher := composite.NewDispatcher(client, registry.ServiceOrders, orders.WriteURL(cfg.Write.OrderPath),
		composite.WithDispatcherLogger(logger),
		composite.WithDispatcherMetrics(metrics),
	)

	products, err := reg.Resolve(registry.ServiceProducts)
	if err != nil {
		logger.Fatal("product service missing from registry", zap.Error(err))
	}
	writeProxy := composite.NewWriteProxy(client, registry.ServiceProducts, products.WriteURL(cfg.Write.ProductPath), logger)

	resolver := auth.NewResolver(cfg.Auth.SigningSecret, auth.WithResolverLogger(logger))
	signer := auth.NewSigner(cfg.Auth.SigningSecret, auth.WithTokenTTL(cfg.Auth.TokenTTL.Duration()))

	handlers := server.NewHandlers(
		reg, router, aggregator, dispatcher, writeProxy,
		signer, cfg.Auth.TokenTTL.Duration(), logger,
	)

	srv := server.New(
		server.Config{
			Address:        cfg.Server.Address,
			Port:           cfg.Server.Port,
			ReadTimeout:    cfg.Server.ReadTimeout.Duration(),
			WriteTimeout:   cfg.Server.WriteTimeout.Duration(),
			IdleTimeout:    cfg.Server.IdleTimeout.Duration(),
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
		server.Options{
			Handlers:       handlers,
			Resolver:       resolver,
			PublicPaths:    cfg.Auth.PublicPaths,
			Checker:        health.NewChecker(version),
			Metrics:        metrics,
			MetricsEnabled: cfg.Metrics.Enabled,
			Logger:         logger,
		},
	)

	return &application{server: srv, dispatcher: dispatcher}
}

// run serves until SIGINT or SIGTERM, then shuts down gracefully and
// drains in-flight dispatched writes.
func run(app *application, logger *zap.Logger) {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.server.Stop(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	if err := app.dispatcher.Drain(ctx); err != nil {
		logger.Warn("dispatcher drain interrupted, dropping in-flight writes", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
