package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"cpiview/internal/amqp"
	"cpiview/internal/config"
	applog "cpiview/internal/log"
	"cpiview/internal/sheetlog"
	"cpiview/internal/source/fred"
	"cpiview/internal/storage"
	"cpiview/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logCfg := applog.DefaultConfig()
	logCfg.Component = applog.ComponentWorker
	logger := applog.New(logCfg)
	applog.SetDefault(logger)

	logger.Info("Starting cpiview-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	// The worker always fetches live data regardless of the web process
	// backend, so the key is required here.
	if cfg.FREDAPIKey == "" {
		logger.Error("FRED API key not found: set the FRED_API_KEY environment variable")
		os.Exit(1)
	}

	catalog, err := config.LoadCatalog(cfg.SeriesCatalogFile)
	if err != nil {
		logger.Error("Failed to load series catalog", "error", err, "path", cfg.SeriesCatalogFile)
		os.Exit(1)
	}

	// Initialize the snapshot store the web process falls back to
	repo, err := storage.NewSnapshotRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize snapshot repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	reader := fred.New(cfg.FREDBaseURL, cfg.FREDAPIKey, cfg.FREDTimeout)

	// Google Sheets observation log (optional)
	var obsLogger worker.ObservationLogger
	if cfg.SheetsSpreadsheetID != "" {
		client, err := sheetlog.New(context.Background(), cfg.SheetsSpreadsheetID, cfg.SheetsSheetName)
		if err != nil {
			logger.Error("Failed to initialize Sheets observation log", "error", err)
			os.Exit(1)
		}
		obsLogger = client
		logger.Info("Sheets observation log initialized", "spreadsheet_id", cfg.SheetsSpreadsheetID, "sheet", cfg.SheetsSheetName)
	} else {
		logger.Info("Sheets observation log disabled - no SHEETS_SPREADSHEET_ID provided")
	}

	snapshotWorker := worker.NewSnapshotWorker(catalog, reader, repo, obsLogger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Consume refresh requests published by the web process (optional)
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			if err := amqpClient.ConsumeRefresh(ctx, snapshotWorker.HandleRefreshMessage); err != nil {
				if err != context.Canceled {
					logger.Error("Refresh consumption failed", "error", err)
				}
				cancel()
			}
		}()
		logger.Info("Consuming refresh requests", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - running on schedule only")
	}

	// On startup, sweep the whole catalog so a fresh deployment has data
	// before the first scheduled run.
	logger.Info("Performing startup catalog sweep")
	if err := snapshotWorker.RefreshCatalog(ctx); err != nil {
		logger.Error("Startup catalog sweep failed", "error", err)
		// Don't exit - continue with normal operation
	}

	// Scheduled catalog refresh. The default expression carries a seconds
	// field, so parse with seconds enabled.
	scheduler := cron.New(cron.WithSeconds())
	if _, err := scheduler.AddFunc(cfg.RefreshCron, func() {
		if err := snapshotWorker.RefreshCatalog(ctx); err != nil {
			logger.Error("Scheduled catalog refresh failed", "error", err)
		}
	}); err != nil {
		logger.Error("Invalid refresh cron expression", "error", err, "cron", cfg.RefreshCron)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Catalog refresh scheduled", "cron", cfg.RefreshCron)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	// Let an in-flight refresh finish before exiting.
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
		logger.Info("Worker shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
