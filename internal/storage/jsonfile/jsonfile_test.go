package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
)

func sampleSnapshot() ledger.Snapshot {
	created := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	return ledger.Snapshot{
		Accounts: []core.Account{
			{ID: "a1", Bank: "Bank", Name: "Main", Type: core.Checking, Balance: decimal.RequireFromString("800.25"), Color: "#fff", CreatedAt: created},
			{ID: "a2", Name: "Wallet", Type: core.Cash, Balance: decimal.RequireFromString("-3"), CreatedAt: created},
		},
		Transactions: []core.Transaction{
			{ID: "t1", Type: core.Transfer, Amount: decimal.RequireFromString("200"), Date: core.NewDate(2024, 3, 2), AccountID: "a1", ToAccountID: "a2", CreatedAt: created},
			{ID: "t2", Type: core.Expense, Category: "Housing", Amount: decimal.RequireFromString("9.99"), Description: "rent \"march\"", Remarks: "late", Date: core.NewDate(2024, 3, 3), AccountID: "a1", CreatedAt: created},
		},
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing.json"))
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Accounts)
	assert.Empty(t, snap.Transactions)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.json")
	s := New(path)
	want := sampleSnapshot()
	require.NoError(t, s.Save(context.Background(), want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `"date": "2024-03-02"`), "dates are stored as ISO strings")

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Accounts, 2)
	require.Len(t, got.Transactions, 2)

	for i, a := range want.Accounts {
		assert.Equal(t, a.ID, got.Accounts[i].ID)
		assert.Equal(t, a.Type, got.Accounts[i].Type)
		assert.True(t, a.Balance.Equal(got.Accounts[i].Balance))
		assert.True(t, a.CreatedAt.Equal(got.Accounts[i].CreatedAt))
	}
	for i, tx := range want.Transactions {
		g := got.Transactions[i]
		assert.Equal(t, tx.ID, g.ID)
		assert.Equal(t, tx.Category, g.Category)
		assert.Equal(t, tx.Description, g.Description)
		assert.Equal(t, tx.ToAccountID, g.ToAccountID)
		assert.Equal(t, tx.Date.String(), g.Date.String())
		assert.True(t, tx.Amount.Equal(g.Amount))
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "ledger.json"))
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleSnapshot()))
	require.NoError(t, s.Save(ctx, ledger.Snapshot{}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Accounts)
	assert.Empty(t, got.Transactions)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := New(path).Load(context.Background())
	assert.Error(t, err)
}

func TestTwoBooksSharingOneFile(t *testing.T) {
	ctx := context.Background()
	store := New(filepath.Join(t.TempDir(), "ledger.json"))
	seed, err := ledger.Open(ctx, store, ledger.WithLogger(log.Discard()))
	require.NoError(t, err)
	acc, err := seed.CreateAccount(ctx, ledger.NewAccount{Name: "A", Type: core.Checking, Balance: decimal.NewFromInt(1000)})
	require.NoError(t, err)

	server, err := ledger.Open(ctx, store, ledger.WithLogger(log.Discard()))
	require.NoError(t, err)
	cli, err := ledger.Open(ctx, store, ledger.WithLogger(log.Discard()))
	require.NoError(t, err)

	_, err = cli.Record(ctx, ledger.NewTransaction{Type: core.Expense, Category: "Food & Groceries", Amount: decimal.NewFromInt(300), AccountID: acc.ID})
	require.NoError(t, err)
	_, err = server.Record(ctx, ledger.NewTransaction{Type: core.Income, Category: "Salary", Amount: decimal.NewFromInt(50), AccountID: acc.ID})
	require.NoError(t, err)

	reopened, err := ledger.Open(ctx, store, ledger.WithLogger(log.Discard()))
	require.NoError(t, err)
	assert.Len(t, reopened.Transactions(), 2)
	got, err := reopened.Account(acc.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(750)), got.Balance.String())
}
