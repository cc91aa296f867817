// Package jsonfile persists ledger snapshots as a single JSON document.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"conti/internal/core"
	"conti/internal/ledger"
)

// document is the on-disk layout. Transaction dates are YYYY-MM-DD strings and
// creation timestamps RFC3339, both via the core types' JSON encoding.
type document struct {
	Version      int                `json:"version"`
	Accounts     []core.Account     `json:"accounts"`
	Transactions []core.Transaction `json:"transactions"`
}

const currentVersion = 1

type Store struct {
	mu       sync.Mutex
	filename string
}

func New(filename string) *Store {
	return &Store{filename: filename}
}

// Load reads the document. A missing file is an empty ledger.
func (f *Store) Load(_ context.Context) (ledger.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.filename)
	if errors.Is(err, os.ErrNotExist) {
		return ledger.Snapshot{}, nil
	}
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("read %s: %w", f.filename, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("decode %s: %w", f.filename, err)
	}
	if doc.Version > currentVersion {
		return ledger.Snapshot{}, fmt.Errorf("decode %s: unsupported version %d", f.filename, doc.Version)
	}
	return ledger.Snapshot{Accounts: doc.Accounts, Transactions: doc.Transactions}, nil
}

// Save writes the document to a temporary file and renames it into place.
func (f *Store) Save(_ context.Context, snap ledger.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc := document{
		Version:      currentVersion,
		Accounts:     snap.Accounts,
		Transactions: snap.Transactions,
	}
	if doc.Accounts == nil {
		doc.Accounts = []core.Account{}
	}
	if doc.Transactions == nil {
		doc.Transactions = []core.Transaction{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(f.filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.filename)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.filename); err != nil {
		return fmt.Errorf("replace %s: %w", f.filename, err)
	}
	return nil
}
