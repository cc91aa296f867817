// Package worker keeps the CSV export (and optional spreadsheet mirror) in
// step with the ledger, driven by ledger events with a periodic fallback.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"conti/internal/amqp"
	"conti/internal/export"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/sheets"
)

// SnapshotLoader reads the current ledger state. Every ledger.Gateway is one.
type SnapshotLoader interface {
	Load(ctx context.Context) (ledger.Snapshot, error)
}

// ConsumeFunc delivers ledger events to handler until ctx is done.
type ConsumeFunc func(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error

// Config holds worker settings.
type Config struct {
	// ExportPath is the CSV file rewritten on every export.
	ExportPath string
	// Interval between fallback exports, in case events are lost.
	Interval time.Duration
}

// ExportWorker regenerates the export from the stored snapshot.
type ExportWorker struct {
	loader SnapshotLoader
	sheet  sheets.TableWriter
	config Config
	logger *log.Logger

	mu         sync.Mutex
	lastExport []byte
	exports    int
}

// NewExportWorker creates a worker. sheet may be nil when no spreadsheet is
// configured.
func NewExportWorker(loader SnapshotLoader, sheet sheets.TableWriter, cfg Config, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		loader: loader,
		sheet:  sheet,
		config: cfg,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single ledger event by exporting the latest state.
// A failed export is logged and the event acknowledged: every export covers
// the whole ledger and the periodic run retries it.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		"kind", ev.Kind,
		"entity_id", ev.EntityID)

	if _, err := w.Export(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Export after ledger event failed",
			log.FieldOperation, log.OpExport,
			"kind", ev.Kind,
			log.FieldError, err)
	}
	return nil
}

// Export writes the CSV file and mirrors it to the sheet. It reports whether
// anything was written: an export identical to the previous one is skipped.
func (w *ExportWorker) Export(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	snap, err := w.loader.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}

	var buf bytes.Buffer
	if err := export.WriteSnapshot(&buf, snap); err != nil {
		return false, err
	}
	if w.lastExport != nil && bytes.Equal(w.lastExport, buf.Bytes()) {
		w.logger.DebugContext(ctx, "Export unchanged, skipping")
		return false, nil
	}

	if err := writeFileAtomic(w.config.ExportPath, buf.Bytes()); err != nil {
		return false, err
	}

	if w.sheet != nil {
		rows := export.Rows(snap.Transactions, snap.Accounts)
		if err := w.sheet.WriteTable(ctx, rows); err != nil {
			// The file is written; the next run retries the sheet.
			return false, fmt.Errorf("mirror to sheet: %w", err)
		}
	}

	w.lastExport = buf.Bytes()
	w.exports++
	w.logger.InfoContext(ctx, "Export written",
		log.FieldOperation, log.OpExport,
		"path", w.config.ExportPath,
		"transactions", len(snap.Transactions),
		"sheet", w.sheet != nil,
		log.FieldDuration, time.Since(start).Milliseconds())
	return true, nil
}

// Exports returns how many exports were written.
func (w *ExportWorker) Exports() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exports
}

// Run exports once, then runs the event consumer (when consume is non-nil)
// and the periodic fallback until ctx is cancelled or the consumer fails.
func (w *ExportWorker) Run(ctx context.Context, consume ConsumeFunc) error {
	if _, err := w.Export(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup export failed", log.FieldError, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if consume != nil {
		g.Go(func() error {
			err := consume(ctx, w.HandleEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		if w.config.Interval <= 0 {
			<-ctx.Done()
			return nil
		}
		ticker := time.NewTicker(w.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := w.Export(ctx); err != nil {
					w.logger.ErrorContext(ctx, "Periodic export failed", log.FieldError, err)
				}
			}
		}
	})

	return g.Wait()
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
