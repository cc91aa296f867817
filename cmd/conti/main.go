package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"conti/internal/cli"
	apphttp "conti/internal/http"
	"conti/internal/log"
	"conti/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	led, err := cli.OpenLedger(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to open ledger",
			log.FieldError, err,
			"backend", cfg.DataBackend)
		os.Exit(1)
	}

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithClosers(led),
	}
	amqpClient, err := cli.ConnectAMQP(ctx, logger, cfg)
	if err != nil {
		// The ledger keeps working without events; the worker catches up on
		// its periodic export.
		logger.Warn("Failed to connect to AMQP, ledger events disabled", log.FieldError, err)
	} else if amqpClient != nil {
		opts = append(opts, services.WithPublisher(amqpClient), services.WithClosers(amqpClient))
	}
	svc := services.NewLedgerService(led.Book, opts...)

	serverOpts := apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		DashboardCacheTTL:  cfg.DashboardCacheTTL,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
	}
	if p, ok := led.Backend.Gateway.(apphttp.Pinger); ok {
		serverOpts.Pinger = p
	}
	srv := apphttp.NewServer(":"+cfg.Port, svc, serverOpts)

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := svc.Close(); err != nil {
			logger.Error("Failed to release resources", log.FieldError, err)
		}
	})

	logger.Info("Starting conti server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"accounts", len(led.Book.Accounts()),
		"transactions", len(led.Book.Transactions()),
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		_ = svc.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
