package main

import (
	"context"
	"os"
	"time"

	"vetrina/internal/cli"
	applog "vetrina/internal/log"
	gsheet "vetrina/internal/sheets/google"
	"vetrina/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger("info", "text", applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, applog.ComponentWorker)
	logger.Info("Starting vetrina-worker")

	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required by the worker")
		os.Exit(1)
	}
	if cfg.DataBackend != "sqlite" {
		logger.Warn("Worker imports into a memory backend; the server will not see these records",
			"backend", cfg.DataBackend)
	}

	tabs, err := cfg.Tabs()
	if err != nil {
		logger.Error("Invalid SHEET_TABS", applog.FieldError, err)
		os.Exit(1)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)

	source, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"tabs", len(tabs))

	w := worker.NewChangeWorker(source, worker.Config{
		Interval: cfg.SyncInterval,
		Tabs:     tabs,
	}, res.Backend.Targets()...)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := w.Stop(stopCtx); err != nil {
			logger.Error("Worker stop error", applog.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start import worker", applog.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
