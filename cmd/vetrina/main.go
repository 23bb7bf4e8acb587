package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"vetrina/internal/cli"
	apphttp "vetrina/internal/http"
	applog "vetrina/internal/log"
	"vetrina/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger("info", "text", applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, applog.ComponentApp)

	res := cli.InitBackend(context.Background(), logger, cfg)
	b := res.Backend

	srv := apphttp.NewServer(":"+cfg.Port, b, apphttp.Options{
		Pages:  apphttp.PageLimits{Default: cfg.DefaultPageSize, Max: cfg.MaxPageSize},
		Logger: logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	// Changes made by other processes arrive over AMQP and drop our cached
	// listings for the affected kind.
	if b.Publisher != nil {
		invalidator := worker.NewChangeWorker(nil, worker.Config{}, b.Targets()...)
		go func() {
			err := b.Publisher.ConsumeRecordChanges(ctx, invalidator.HandleRecordChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Change consumer stopped", applog.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP disabled, cached listings expire on TTL only", "cache_ttl", cfg.CacheTTL)
	}

	logger.Info("Starting vetrina server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", b.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
