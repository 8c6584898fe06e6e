// Package cli provides common initialization shared by cmd/cashbox,
// cmd/cashbox-worker and cmd/cashboxctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cashbox/internal/config"
	"cashbox/internal/core"
	"cashbox/internal/log"
	"cashbox/internal/records"
	"cashbox/internal/services"
)

// SetupLogger builds the application logger from LOG_LEVEL and LOG_FORMAT
// and installs it as the default logger.
func SetupLogger(cfg *config.Config) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{
		Level:     level,
		Component: log.ComponentApp,
		Handler:   log.NewHandler(os.Stdout, cfg.LogFormat, level),
	})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info level", log.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads .env and the environment, sets up logging and
// validates the result. It exits the process on validation failure.
func LoadAndValidateConfig() (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// NewController assembles the box controller from the pricing file and the
// confirmation settings in cfg.
func NewController(cfg *config.Config, store records.Store, logger *log.Logger) (*services.BoxController, error) {
	pricing, err := config.LoadPricing(cfg.PricingFile)
	if err != nil {
		return nil, err
	}
	strategy, err := services.GetConfirmationStrategy(pricing.StrategyName(cfg.ConfirmStrategy), pricing.Confirmation.Messages)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	logger.Info("Box controller configured",
		"strategy", pricing.StrategyName(cfg.ConfirmStrategy),
		log.FieldSteps, strategy.Steps(),
		"timezone", loc.String(),
		"history_days", cfg.HistoryDays)

	return services.NewBoxController(store, core.NewGenerator(pricing.RangeTable()), strategy,
		services.WithLocation(loc),
		services.WithHistoryDays(cfg.HistoryDays),
		services.WithConfirmationTTL(cfg.ConfirmTTL),
		services.WithLogger(logger),
	), nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
