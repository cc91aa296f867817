// Command conti-cli manages the ledger from the terminal, against the same
// storage and event broker as the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"conti/internal/cli"
	"conti/internal/config"
	"conti/internal/log"
	"conti/internal/services"
)

// app carries what every subcommand needs. The service is opened lazily so
// that --help and flag errors never touch storage.
type app struct {
	open   func(ctx context.Context) (*services.LedgerService, error)
	svc    *services.LedgerService
	now    func() time.Time
	asJSON bool
}

func (a *app) service(ctx context.Context) (*services.LedgerService, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	svc, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

func (a *app) close() error {
	if a.svc == nil {
		return nil
	}
	return a.svc.Close()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "conti-cli",
		Short:         "Manage accounts and transactions of the conti ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Print results as JSON.")

	root.AddCommand(
		newAccountsCmd(a),
		newTransactionsCmd(a),
		newSummaryCmd(a),
		newCategoriesCmd(a),
		newExportCmd(a),
	)
	return root
}

func main() {
	cli.LoadEnvFile()

	// Logs go to stderr so they never mix with command output.
	logger := log.New(log.Config{
		Component: log.ComponentCLI,
		Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: log.ParseLevel(envOr("LOG_LEVEL", "warn")),
		}),
	})
	log.SetDefault(logger)

	a := &app{
		now: time.Now,
		open: func(ctx context.Context) (*services.LedgerService, error) {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return openService(ctx, logger, cfg)
		},
	}

	err := newRootCmd(a).ExecuteContext(context.Background())
	if cerr := a.close(); cerr != nil {
		logger.Warn("Failed to release resources", log.FieldError, cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openService opens the configured ledger and, when AMQP is configured,
// publishes every change so the worker refreshes the export.
func openService(ctx context.Context, logger *log.Logger, cfg *config.Config) (*services.LedgerService, error) {
	led, err := cli.OpenLedger(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	opts := []services.Option{services.WithLogger(logger), services.WithClosers(led)}

	client, err := cli.ConnectAMQP(ctx, logger, cfg)
	if err != nil {
		logger.Warn("AMQP unavailable, changes will reach the export on its next periodic run",
			log.FieldError, err)
	} else if client != nil {
		opts = append(opts, services.WithPublisher(client), services.WithClosers(client))
	}
	return services.NewLedgerService(led.Book, opts...), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// errUsage reports an invalid combination of flags.
var errUsage = errors.New("invalid usage")
