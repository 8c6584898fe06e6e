package main

import (
	"context"
	"os"
	"time"

	"cashbox/internal/backend"
	"cashbox/internal/cli"
	apphttp "cashbox/internal/http"
	"cashbox/internal/log"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	boxes, err := cli.NewController(cfg, res.Store, logger)
	if err != nil {
		logger.Error("Failed to configure boxes", log.FieldError, err)
		_ = res.Close()
		os.Exit(1)
	}

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 15*time.Second)
	if err := boxes.Load(loadCtx); err != nil {
		// The page retries on every visit.
		logger.Warn("Initial currency load failed", log.FieldError, err)
	}
	cancelLoad()

	opts := []apphttp.ServerOption{apphttp.WithLogger(logger)}
	if res.Ping != nil {
		opts = append(opts, apphttp.WithPing(res.Ping))
	}
	srv := apphttp.NewServer(":"+cfg.Port, boxes, opts...)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting cashbox server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		log.FieldSteps, boxes.Steps())
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
