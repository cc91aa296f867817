// Package memory keeps ledger snapshots in process memory. It backs tests and
// the memory data backend, where nothing survives a restart.
package memory

import (
	"context"
	"slices"
	"sync"

	"conti/internal/ledger"
)

type Store struct {
	mu    sync.Mutex
	snap  ledger.Snapshot
	saves int
}

// New returns a store holding seed, which may be empty.
func New(seed ledger.Snapshot) *Store {
	return &Store{snap: clone(seed)}
}

// Load returns a copy of the last saved snapshot.
func (s *Store) Load(_ context.Context) (ledger.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.snap), nil
}

// Save replaces the held snapshot.
func (s *Store) Save(_ context.Context, snap ledger.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = clone(snap)
	s.saves++
	return nil
}

// Saves reports how many snapshots have been saved.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func clone(snap ledger.Snapshot) ledger.Snapshot {
	return ledger.Snapshot{
		Accounts:     slices.Clone(snap.Accounts),
		Transactions: slices.Clone(snap.Transactions),
	}
}
