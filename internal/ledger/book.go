// Package ledger owns the account and transaction collections and keeps
// account balances consistent with the transactions recorded against them.
//
// A Book is the single context object through which every mutation flows.
// Each mutation reloads the stored snapshot, is computed against a working
// copy of it, persisted with one Gateway.Save of the complete snapshot, and
// only then committed. Several processes may therefore share one store as
// long as they do not write at the same instant.
package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"conti/internal/catalog"
	"conti/internal/core"
	"conti/internal/log"
)

// Snapshot is the full persisted state.
type Snapshot struct {
	Accounts     []core.Account
	Transactions []core.Transaction
}

// Gateway loads and saves complete snapshots.
type Gateway interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Book is safe for concurrent use; mutations are serialised.
type Book struct {
	mu      sync.Mutex
	gateway Gateway
	catalog *catalog.Catalog
	logger  *log.Logger
	now     func() time.Time
	newID   func() string
	state   state
}

// Option configures a Book.
type Option func(*Book)

// WithCatalog sets the category catalog used to validate transactions.
func WithCatalog(c *catalog.Catalog) Option {
	return func(b *Book) { b.catalog = c }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Book) { b.logger = l.WithComponent(log.ComponentLedger) }
}

// WithClock overrides the time source for creation timestamps and default dates.
func WithClock(now func() time.Time) Option {
	return func(b *Book) { b.now = now }
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(gen func() string) Option {
	return func(b *Book) { b.newID = gen }
}

// New returns an empty book persisting through gw. A nil gateway keeps the
// book purely in memory.
func New(gw Gateway, opts ...Option) *Book {
	b := &Book{
		gateway: gw,
		catalog: catalog.Default(),
		logger:  log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open builds a book from the snapshot currently stored behind gw.
func Open(ctx context.Context, gw Gateway, opts ...Option) (*Book, error) {
	b := New(gw, opts...)
	if err := b.reload(ctx); err != nil {
		return nil, err
	}
	b.logger.InfoContext(ctx, "Ledger opened",
		"accounts", len(b.state.accounts),
		"transactions", len(b.state.transactions))
	return b, nil
}

// Catalog returns the category catalog in use.
func (b *Book) Catalog() *catalog.Catalog {
	return b.catalog
}

// Snapshot returns a copy of the current state. Callers may keep it freely.
func (b *Book) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.snapshot()
}

// Refresh reloads the state from the gateway so writes made through another
// Book on the same store become visible. It reports whether anything changed.
func (b *Book) Refresh(ctx context.Context) (bool, error) {
	if b.gateway == nil {
		return false, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.state
	if err := b.reload(ctx); err != nil {
		return false, err
	}
	return !prev.equal(b.state), nil
}

func (b *Book) reload(ctx context.Context) error {
	snap, err := b.gateway.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	b.state = state{
		accounts:     slices.Clone(snap.Accounts),
		transactions: slices.Clone(snap.Transactions),
	}
	return nil
}

// mutate reloads the stored state, runs fn against a working copy, saves the
// result once and commits it. Nothing is committed or saved when fn or the
// save fails.
func (b *Book) mutate(ctx context.Context, op string, fn func(w *state) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.gateway != nil {
		if err := b.reload(ctx); err != nil {
			b.logger.LogError(ctx, "Snapshot reload failed, mutation discarded", err, op, nil)
			return err
		}
	}
	work := b.state.clone()
	if err := fn(&work); err != nil {
		return err
	}
	if b.gateway != nil {
		if err := b.gateway.Save(ctx, work.snapshot()); err != nil {
			b.logger.LogError(ctx, "Snapshot save failed, mutation discarded", err, op, nil)
			return fmt.Errorf("save snapshot: %w", err)
		}
	}
	b.state = work
	return nil
}

func (b *Book) today() core.Date {
	return core.DateOf(b.now())
}
