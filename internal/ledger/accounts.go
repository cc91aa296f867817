package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/log"
)

// DefaultColor is assigned to accounts created without a color.
const DefaultColor = "#3b82f6"

// NewAccount carries the fields of an account to create. Balance is the
// opening balance; it is not recorded as a transaction.
type NewAccount struct {
	Bank    string
	Name    string
	Number  string
	Type    core.AccountType
	Balance decimal.Decimal
	Color   string
}

// AccountPatch lists the fields to change; nil fields are left untouched.
type AccountPatch struct {
	Bank    *string
	Name    *string
	Number  *string
	Type    *core.AccountType
	Color   *string
	Balance *decimal.Decimal
}

func (p AccountPatch) applyMetadata(a *core.Account) {
	if p.Bank != nil {
		a.Bank = strings.TrimSpace(*p.Bank)
	}
	if p.Name != nil {
		a.Name = strings.TrimSpace(*p.Name)
	}
	if p.Number != nil {
		a.Number = strings.TrimSpace(*p.Number)
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Color != nil {
		a.Color = strings.TrimSpace(*p.Color)
	}
}

// Account returns the account with the given id.
func (b *Book) Account(id string) (core.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.state.accountIndex(id)
	if i < 0 {
		return core.Account{}, core.AccountNotFound(id)
	}
	return b.state.accounts[i], nil
}

// Accounts returns all accounts in creation order.
func (b *Book) Accounts() []core.Account {
	return b.Snapshot().Accounts
}

// CreateAccount stores a new account with a generated id and timestamp.
func (b *Book) CreateAccount(ctx context.Context, in NewAccount) (core.Account, error) {
	acc := core.Account{
		ID:        b.newID(),
		Bank:      strings.TrimSpace(in.Bank),
		Name:      strings.TrimSpace(in.Name),
		Number:    strings.TrimSpace(in.Number),
		Type:      in.Type,
		Balance:   in.Balance,
		Color:     strings.TrimSpace(in.Color),
		CreatedAt: b.now().UTC(),
	}
	if acc.Type == "" {
		acc.Type = core.Other
	}
	if acc.Color == "" {
		acc.Color = DefaultColor
	}
	if err := acc.Validate(); err != nil {
		return core.Account{}, err
	}

	err := b.mutate(ctx, log.OpCreate, func(w *state) error {
		w.accounts = append(w.accounts, acc)
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}

	b.logger.InfoContext(ctx, "Account created",
		log.FieldAccountID, acc.ID,
		"name", acc.Name,
		"type", acc.Type,
		log.FieldBalanceNew, acc.Balance.StringFixed(2))
	return acc, nil
}

// UpdateAccount merges patch into the account. A balance in the patch is
// applied as an explicit correction and logged as such.
func (b *Book) UpdateAccount(ctx context.Context, id string, patch AccountPatch) (core.Account, error) {
	return b.updateAccount(ctx, id, patch, "account edit")
}

// EditAccountMetadata changes descriptive fields only; it never touches the balance.
func (b *Book) EditAccountMetadata(ctx context.Context, id string, patch AccountPatch) (core.Account, error) {
	if patch.Balance != nil {
		return core.Account{}, core.Invalid("balance", core.ErrBalanceEdit)
	}
	return b.updateAccount(ctx, id, patch, "")
}

// CorrectBalance overwrites the balance of an account. The change does not
// reconcile with transaction history and is logged with its reason.
func (b *Book) CorrectBalance(ctx context.Context, id string, balance decimal.Decimal, reason string) (core.Account, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "manual correction"
	}
	return b.updateAccount(ctx, id, AccountPatch{Balance: &balance}, reason)
}

func (b *Book) updateAccount(ctx context.Context, id string, patch AccountPatch, reason string) (core.Account, error) {
	var (
		updated core.Account
		old     decimal.Decimal
	)
	err := b.mutate(ctx, log.OpUpdate, func(w *state) error {
		i := w.accountIndex(id)
		if i < 0 {
			return core.AccountNotFound(id)
		}
		acc := w.accounts[i]
		old = acc.Balance
		patch.applyMetadata(&acc)
		if patch.Balance != nil {
			acc.Balance = *patch.Balance
		}
		if err := acc.Validate(); err != nil {
			return err
		}
		w.accounts[i] = acc
		updated = acc
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}

	if patch.Balance != nil && !old.Equal(updated.Balance) {
		fields := log.NewFields().
			WithAccount(id).
			WithOperation(log.OpCorrect).
			WithBalanceChange(old, updated.Balance)
		fields[log.FieldReason] = reason
		fields["delta"] = updated.Balance.Sub(old).StringFixed(2)
		delete(fields, log.FieldComponent)
		b.logger.WarnContext(ctx, "Balance corrected outside the ledger", fields.ToSlice()...)
	} else {
		b.logger.InfoContext(ctx, "Account updated", log.FieldAccountID, id)
	}
	return updated, nil
}

// DeleteAccount reverses and removes every transaction referencing the
// account, then removes the account. The whole cascade is saved once.
func (b *Book) DeleteAccount(ctx context.Context, id string) error {
	var removed []core.Transaction
	err := b.mutate(ctx, log.OpDelete, func(w *state) error {
		i := w.accountIndex(id)
		if i < 0 {
			return core.AccountNotFound(id)
		}
		removed = w.cascadeDeleteForAccount(id)
		// The cascade never removes accounts, so i is still valid.
		w.accounts = append(w.accounts[:i], w.accounts[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	b.logger.InfoContext(ctx, "Account deleted",
		log.FieldAccountID, id,
		log.FieldOperation, log.OpCascade,
		log.FieldCount, len(removed))
	return nil
}
