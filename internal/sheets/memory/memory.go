package memory

import (
	"context"
	"sync"

	"conti/internal/sheets"
)

// Store keeps the last written table; it stands in for a spreadsheet when none
// is configured and in tests.
type Store struct {
	mu     sync.Mutex
	rows   [][]string
	writes int
}

var _ sheets.TableWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// WriteTable replaces the stored table with a copy of rows.
func (s *Store) WriteTable(_ context.Context, rows [][]string) error {
	cp := make([][]string, len(rows))
	for i, r := range rows {
		cp[i] = append([]string(nil), r...)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = cp
	s.writes++
	return nil
}

// Rows returns the last written table.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Writes reports how many tables have been written.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
