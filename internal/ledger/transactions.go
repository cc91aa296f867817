package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/log"
)

// NewTransaction carries the fields of a transaction to record. A zero Date
// defaults to today. Category is ignored for transfers.
type NewTransaction struct {
	Type        core.TransactionType
	Category    string
	Amount      decimal.Decimal
	Description string
	Remarks     string
	Date        core.Date
	AccountID   string
	ToAccountID string
}

// Transaction returns the transaction with the given id.
func (b *Book) Transaction(id string) (core.Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.state.transactionIndex(id)
	if i < 0 {
		return core.Transaction{}, core.TransactionNotFound(id)
	}
	return b.state.transactions[i], nil
}

// Transactions returns all transactions in recording order.
func (b *Book) Transactions() []core.Transaction {
	return b.Snapshot().Transactions
}

// Record validates in, applies its balance effect and stores it. On a
// validation error nothing changes.
func (b *Book) Record(ctx context.Context, in NewTransaction) (core.Transaction, error) {
	var tx core.Transaction
	err := b.mutate(ctx, log.OpRecord, func(w *state) error {
		var err error
		tx, err = b.record(w, in)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	b.logger.InfoContext(ctx, "Transaction recorded", txFields(tx).ToSlice()...)
	return tx, nil
}

// Reverse undoes the stored effect of a transaction and removes it. Sides
// whose account has since been deleted are skipped.
func (b *Book) Reverse(ctx context.Context, id string) error {
	var (
		tx      core.Transaction
		skipped []string
	)
	err := b.mutate(ctx, log.OpReverse, func(w *state) error {
		var err error
		tx, skipped, err = reverse(w, id)
		return err
	})
	if err != nil {
		return err
	}

	for _, accountID := range skipped {
		b.logger.WarnContext(ctx, "Reversal skipped missing account",
			log.FieldTransactionID, id,
			log.FieldAccountID, accountID)
	}
	b.logger.InfoContext(ctx, "Transaction reversed", txFields(tx).ToSlice()...)
	return nil
}

// ReplaceTransaction reverses the transaction with the given id and records
// in as its replacement, as one unit. Transactions are never edited in place.
func (b *Book) ReplaceTransaction(ctx context.Context, id string, in NewTransaction) (core.Transaction, error) {
	var tx core.Transaction
	err := b.mutate(ctx, log.OpReplace, func(w *state) error {
		if _, _, err := reverse(w, id); err != nil {
			return err
		}
		var err error
		tx, err = b.record(w, in)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	b.logger.InfoContext(ctx, "Transaction replaced",
		append([]any{"replaced_id", id}, txFields(tx).ToSlice()...)...)
	return tx, nil
}

func (b *Book) record(w *state, in NewTransaction) (core.Transaction, error) {
	tx, err := b.validate(w, in)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID = b.newID()
	tx.CreatedAt = b.now().UTC()
	if err := w.apply(tx); err != nil {
		return core.Transaction{}, err
	}
	w.transactions = append(w.transactions, tx)
	return tx, nil
}

func reverse(w *state, id string) (core.Transaction, []string, error) {
	i := w.transactionIndex(id)
	if i < 0 {
		return core.Transaction{}, nil, core.TransactionNotFound(id)
	}
	tx := w.transactions[i]
	skipped := w.invert(tx)
	w.removeTransaction(i)
	return tx, skipped, nil
}

// validate checks in against the working state and returns the normalised
// transaction without id or timestamp.
func (b *Book) validate(w *state, in NewTransaction) (core.Transaction, error) {
	tx := core.Transaction{
		Type:        in.Type,
		Category:    strings.TrimSpace(in.Category),
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Remarks:     strings.TrimSpace(in.Remarks),
		Date:        in.Date,
		AccountID:   strings.TrimSpace(in.AccountID),
		ToAccountID: strings.TrimSpace(in.ToAccountID),
	}
	if tx.Date.IsZero() {
		tx.Date = b.today()
	}

	if !tx.Type.IsValid() {
		return tx, core.Invalid("type", core.ErrInvalidType)
	}
	if err := core.ValidateAmount(tx.Amount); err != nil {
		return tx, core.Invalid("amount", err)
	}

	switch tx.Type {
	case core.Transfer:
		tx.Category = ""
		if tx.ToAccountID == "" {
			return tx, core.Invalid("to_account_id", core.ErrMissingDestination)
		}
		if tx.ToAccountID == tx.AccountID {
			return tx, core.Invalid("to_account_id", core.ErrSelfTransfer)
		}
		if !w.hasAccount(tx.ToAccountID) {
			return tx, core.Invalid("to_account_id", core.ErrUnknownAccount)
		}
	default:
		if tx.Category == "" {
			return tx, core.Invalid("category", core.ErrEmptyCategory)
		}
		if !b.catalog.Contains(tx.Type, tx.Category) {
			return tx, core.Invalid("category", core.ErrUnknownCategory)
		}
		if tx.ToAccountID != "" {
			return tx, core.Invalid("to_account_id", core.ErrUnexpectedDest)
		}
	}

	if !w.hasAccount(tx.AccountID) {
		return tx, core.Invalid("account_id", core.ErrUnknownAccount)
	}
	return tx, nil
}

func txFields(tx core.Transaction) log.LogFields {
	return log.NewFields().WithTransaction(
		tx.ID, string(tx.Type), tx.Category, tx.Amount, tx.AccountID, tx.ToAccountID)
}
