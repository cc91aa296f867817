package main

import (
	"context"
	"os"
	"time"

	"conti/internal/backend"
	"conti/internal/cli"
	"conti/internal/log"
	"conti/internal/sheets"
	gsheet "conti/internal/sheets/google"
	"conti/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting conti-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if bcfg.Type == backend.MemoryBackend {
		logger.Error("The worker reads the persisted ledger; memory backend has nothing to export",
			"backend", bcfg.Type)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to open ledger storage", log.FieldError, err, "backend", bcfg.Type)
		os.Exit(1)
	}
	defer store.Close()

	// Spreadsheet mirror is optional
	var sheet sheets.TableWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(ctx, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		sheet = client
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := cli.ConnectAMQP(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	var consume worker.ConsumeFunc
	if amqpClient != nil {
		defer amqpClient.Close()
		consume = amqpClient.Consume
	} else {
		logger.Info("Running periodic exports only", "interval", cfg.ExportInterval)
	}

	w := worker.NewExportWorker(store.Gateway, sheet, worker.Config{
		ExportPath: cfg.ExportPath,
		Interval:   cfg.ExportInterval,
	}, logger)

	runCtx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)
	if err := w.Run(runCtx, consume); err != nil {
		logger.Error("Export worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("conti-worker stopped", "exports", w.Exports())
}
