package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/config"
	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
)

func testConfig(t *testing.T, backend string) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		DataBackend:  backend,
		JSONDataPath: filepath.Join(dir, "conti.json"),
		SQLiteDBPath: filepath.Join(dir, "conti.db"),
	}
}

func TestOpenLedgerPersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{config.BackendJSON, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)

			l, err := OpenLedger(ctx, log.Discard(), cfg)
			require.NoError(t, err)
			_, err = l.Book.CreateAccount(ctx, ledger.NewAccount{Name: "Main", Balance: decimal.NewFromInt(10)})
			require.NoError(t, err)
			require.NoError(t, l.Close())

			reopened, err := OpenLedger(ctx, log.Discard(), cfg)
			require.NoError(t, err)
			defer reopened.Close()
			accounts := reopened.Book.Accounts()
			require.Len(t, accounts, 1)
			assert.Equal(t, "Main", accounts[0].Name)
		})
	}
}

func TestOpenLedgerUsesCatalogFile(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendMemory)
	cfg.CatalogPath = filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(cfg.CatalogPath, []byte(`expense = ["Boat"]`), 0o644))

	l, err := OpenLedger(ctx, log.Discard(), cfg)
	require.NoError(t, err)
	defer l.Close()

	assert.True(t, l.Book.Catalog().Contains(core.Expense, "Boat"))
	assert.False(t, l.Book.Catalog().Contains(core.Expense, "Housing"))
}

func TestOpenLedgerRejectsBadCatalog(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.CatalogPath = filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(cfg.CatalogPath, []byte(`expense = [`), 0o644))

	_, err := OpenLedger(context.Background(), log.Discard(), cfg)
	assert.Error(t, err)
}

func TestConnectAMQPDisabled(t *testing.T) {
	client, err := ConnectAMQP(context.Background(), log.Discard(), &config.Config{})
	assert.NoError(t, err)
	assert.Nil(t, client)
}
