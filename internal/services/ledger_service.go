package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/shopspring/decimal"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
)

// Publisher delivers ledger events to the export worker.
type Publisher interface {
	Publish(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService runs mutations against the Book and announces each
// successful one. Publishing is best effort: the ledger is already saved.
type LedgerService struct {
	book      *ledger.Book
	publisher Publisher
	logger    *log.Logger
	closers   []io.Closer

	mu       sync.Mutex
	onChange []func()
}

// Option configures a LedgerService.
type Option func(*LedgerService)

// WithPublisher sets the event publisher. Without one, events are skipped.
func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

// WithClosers registers resources released by Close, in order.
func WithClosers(c ...io.Closer) Option {
	return func(s *LedgerService) { s.closers = append(s.closers, c...) }
}

func NewLedgerService(book *ledger.Book, opts ...Option) *LedgerService {
	s := &LedgerService{book: book, logger: log.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to run after every committed mutation and whenever
// Refresh picks up a change written elsewhere.
func (s *LedgerService) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Book exposes the underlying ledger for reads.
func (s *LedgerService) Book() *ledger.Book {
	return s.book
}

// Snapshot returns a copy of the current ledger state.
func (s *LedgerService) Snapshot() ledger.Snapshot {
	return s.book.Snapshot()
}

// Refresh reloads the ledger from storage. Subscribers run when another
// process changed it; no event is published since the writer already did.
func (s *LedgerService) Refresh(ctx context.Context) error {
	changed, err := s.book.Refresh(ctx)
	if err != nil {
		return err
	}
	if changed {
		s.logger.DebugContext(ctx, "Ledger changed in storage, reloaded")
		s.notify()
	}
	return nil
}

func (s *LedgerService) CreateAccount(ctx context.Context, in ledger.NewAccount) (core.Account, error) {
	acc, err := s.book.CreateAccount(ctx, in)
	if err != nil {
		return core.Account{}, err
	}
	s.changed(ctx, amqp.NewLedgerEvent(amqp.AccountCreated, acc.ID))
	return acc, nil
}

func (s *LedgerService) UpdateAccount(ctx context.Context, id string, patch ledger.AccountPatch) (core.Account, error) {
	acc, err := s.book.UpdateAccount(ctx, id, patch)
	if err != nil {
		return core.Account{}, err
	}
	kind := amqp.AccountUpdated
	if patch.Balance != nil {
		kind = amqp.BalanceCorrected
	}
	s.changed(ctx, amqp.NewLedgerEvent(kind, acc.ID))
	return acc, nil
}

func (s *LedgerService) EditAccountMetadata(ctx context.Context, id string, patch ledger.AccountPatch) (core.Account, error) {
	acc, err := s.book.EditAccountMetadata(ctx, id, patch)
	if err != nil {
		return core.Account{}, err
	}
	s.changed(ctx, amqp.NewLedgerEvent(amqp.AccountUpdated, acc.ID))
	return acc, nil
}

func (s *LedgerService) CorrectBalance(ctx context.Context, id string, balance decimal.Decimal, reason string) (core.Account, error) {
	acc, err := s.book.CorrectBalance(ctx, id, balance, reason)
	if err != nil {
		return core.Account{}, err
	}
	s.changed(ctx, amqp.NewLedgerEvent(amqp.BalanceCorrected, acc.ID))
	return acc, nil
}

func (s *LedgerService) DeleteAccount(ctx context.Context, id string) error {
	if err := s.book.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, amqp.NewLedgerEvent(amqp.AccountDeleted, id))
	return nil
}

func (s *LedgerService) Record(ctx context.Context, in ledger.NewTransaction) (core.Transaction, error) {
	tx, err := s.book.Record(ctx, in)
	if err != nil {
		return core.Transaction{}, err
	}
	s.changed(ctx, amqp.NewLedgerEvent(amqp.TransactionRecorded, tx.ID))
	return tx, nil
}

func (s *LedgerService) Reverse(ctx context.Context, id string) error {
	if err := s.book.Reverse(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, amqp.NewLedgerEvent(amqp.TransactionReversed, id))
	return nil
}

func (s *LedgerService) ReplaceTransaction(ctx context.Context, id string, in ledger.NewTransaction) (core.Transaction, error) {
	tx, err := s.book.ReplaceTransaction(ctx, id, in)
	if err != nil {
		return core.Transaction{}, err
	}
	ev := amqp.NewLedgerEvent(amqp.TransactionReplaced, tx.ID)
	ev.ReplacedID = id
	s.changed(ctx, ev)
	return tx, nil
}

func (s *LedgerService) notify() {
	s.mu.Lock()
	hooks := append([]func(){}, s.onChange...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func (s *LedgerService) changed(ctx context.Context, ev *amqp.LedgerEvent) {
	s.notify()

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping ledger event",
			"kind", ev.Kind)
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		// Don't fail the request - the ledger is saved
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldOperation, log.OpPublish,
			"kind", ev.Kind,
			"entity_id", ev.EntityID,
			log.FieldError, err)
	}
}

// Close releases registered resources, collecting every error.
func (s *LedgerService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
