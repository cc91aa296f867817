package ledger

import (
	"slices"

	"github.com/shopspring/decimal"

	"conti/internal/core"
)

// state holds both collections in insertion order.
type state struct {
	accounts     []core.Account
	transactions []core.Transaction
}

func (s state) clone() state {
	return state{
		accounts:     slices.Clone(s.accounts),
		transactions: slices.Clone(s.transactions),
	}
}

func (s state) snapshot() Snapshot {
	return Snapshot{
		Accounts:     slices.Clone(s.accounts),
		Transactions: slices.Clone(s.transactions),
	}
}

// equal compares two states. Transactions are immutable, so their ids in
// order identify them.
func (s state) equal(o state) bool {
	if len(s.accounts) != len(o.accounts) || len(s.transactions) != len(o.transactions) {
		return false
	}
	for i, a := range s.accounts {
		b := o.accounts[i]
		if a.ID != b.ID || a.Bank != b.Bank || a.Name != b.Name || a.Number != b.Number ||
			a.Type != b.Type || a.Color != b.Color || !a.Balance.Equal(b.Balance) {
			return false
		}
	}
	for i, t := range s.transactions {
		if t.ID != o.transactions[i].ID {
			return false
		}
	}
	return true
}

func (s *state) accountIndex(id string) int {
	return slices.IndexFunc(s.accounts, func(a core.Account) bool { return a.ID == id })
}

func (s *state) transactionIndex(id string) int {
	return slices.IndexFunc(s.transactions, func(t core.Transaction) bool { return t.ID == id })
}

func (s *state) hasAccount(id string) bool {
	return id != "" && s.accountIndex(id) >= 0
}

// applyDelta adds delta to the account balance. Only the ledger calls it.
func (s *state) applyDelta(id string, delta decimal.Decimal) error {
	i := s.accountIndex(id)
	if i < 0 {
		return core.AccountNotFound(id)
	}
	s.accounts[i].Balance = s.accounts[i].Balance.Add(delta)
	return nil
}

// posting is one side of a transaction's balance effect.
type posting struct {
	accountID string
	delta     decimal.Decimal
}

// effect computes the balance change a transaction causes when recorded.
func effect(tx core.Transaction) []posting {
	switch tx.Type {
	case core.Income:
		return []posting{{tx.AccountID, tx.Amount}}
	case core.Expense:
		return []posting{{tx.AccountID, tx.Amount.Neg()}}
	case core.Transfer:
		return []posting{
			{tx.AccountID, tx.Amount.Neg()},
			{tx.ToAccountID, tx.Amount},
		}
	default:
		return nil
	}
}

// apply posts every side of tx. Endpoints are validated beforehand, so a
// failure here leaves the working copy to be discarded by the caller.
func (s *state) apply(tx core.Transaction) error {
	for _, p := range effect(tx) {
		if err := s.applyDelta(p.accountID, p.delta); err != nil {
			return err
		}
	}
	return nil
}

// invert applies the exact inverse of tx's stored effect. Sides whose account
// no longer exists are skipped and returned.
func (s *state) invert(tx core.Transaction) (skipped []string) {
	for _, p := range effect(tx) {
		if err := s.applyDelta(p.accountID, p.delta.Neg()); err != nil {
			skipped = append(skipped, p.accountID)
		}
	}
	return skipped
}

func (s *state) removeTransaction(i int) {
	s.transactions = slices.Delete(s.transactions, i, i+1)
}

// cascadeDeleteForAccount reverses and removes every transaction that
// references accountID on either side, returning the removed transactions.
func (s *state) cascadeDeleteForAccount(accountID string) []core.Transaction {
	var removed []core.Transaction
	kept := s.transactions[:0:0]
	for _, tx := range s.transactions {
		if !tx.References(accountID) {
			kept = append(kept, tx)
			continue
		}
		s.invert(tx)
		removed = append(removed, tx)
	}
	s.transactions = kept
	return removed
}
