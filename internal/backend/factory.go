// Package backend selects and builds the ledger persistence gateway.
package backend

import (
	"context"
	"fmt"

	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/storage/jsonfile"
	"conti/internal/storage/memory"
	"conti/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case JSONBackend:
		return f.createJSONBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := sqlite.Open(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Gateway: store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createJSONBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store := jsonfile.New(config.JSONDataPath)

	f.logger.InfoContext(ctx, "Initialized JSON file backend", "path", config.JSONDataPath)

	return &BackendResult{Gateway: store}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) (*BackendResult, error) {
	f.logger.WarnContext(ctx, "Initialized memory backend, data is lost on restart")

	return &BackendResult{Gateway: memory.New(ledger.Snapshot{})}, nil
}
