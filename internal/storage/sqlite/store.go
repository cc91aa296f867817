// Package sqlite persists ledger snapshots in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"

	_ "modernc.org/sqlite"
)

// Store implements ledger.Gateway. Each Save replaces both tables inside a
// single SQL transaction.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open creates the database directory if needed, connects and migrates.
func Open(dbPath string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps the delete-and-reinsert snapshot serialised.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load reads the stored snapshot in insertion order.
func (s *Store) Load(ctx context.Context) (ledger.Snapshot, error) {
	var snap ledger.Snapshot

	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return snap, err
	}
	txs, err := s.loadTransactions(ctx)
	if err != nil {
		return snap, err
	}
	snap.Accounts = accounts
	snap.Transactions = txs

	s.logger.DebugContext(ctx, "Snapshot loaded from SQLite",
		log.FieldOperation, log.OpLoad,
		"accounts", len(accounts),
		"transactions", len(txs))
	return snap, nil
}

func (s *Store) loadAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bank, name, number, type, balance, color, created_at
		FROM accounts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var (
			a                 core.Account
			typ, bal, created string
		)
		if err := rows.Scan(&a.ID, &a.Bank, &a.Name, &a.Number, &typ, &bal, &a.Color, &created); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Type = core.AccountType(typ)
		if a.Balance, err = decimal.NewFromString(bal); err != nil {
			return nil, fmt.Errorf("account %s balance: %w", a.ID, err)
		}
		if a.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, fmt.Errorf("account %s created_at: %w", a.ID, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}

func (s *Store) loadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, category, amount, description, remarks, date, account_id, to_account_id, created_at
		FROM transactions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t                          core.Transaction
			typ, amount, date, created string
		)
		if err := rows.Scan(&t.ID, &typ, &t.Category, &amount, &t.Description, &t.Remarks,
			&date, &t.AccountID, &t.ToAccountID, &created); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = core.TransactionType(typ)
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", t.ID, err)
		}
		if t.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %s date: %w", t.ID, err)
		}
		if t.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, fmt.Errorf("transaction %s created_at: %w", t.ID, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Save replaces the stored snapshot atomically.
func (s *Store) Save(ctx context.Context, snap ledger.Snapshot) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}

	accStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO accounts (id, position, bank, name, number, type, balance, color, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare account insert: %w", err)
	}
	defer accStmt.Close()
	for i, a := range snap.Accounts {
		if _, err := accStmt.ExecContext(ctx, a.ID, i, a.Bank, a.Name, a.Number, string(a.Type),
			a.Balance.String(), a.Color, formatTimestamp(a.CreatedAt)); err != nil {
			return fmt.Errorf("insert account %s: %w", a.ID, err)
		}
	}

	txStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (id, position, type, category, amount, description, remarks, date, account_id, to_account_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transaction insert: %w", err)
	}
	defer txStmt.Close()
	for i, t := range snap.Transactions {
		if _, err := txStmt.ExecContext(ctx, t.ID, i, string(t.Type), t.Category, t.Amount.String(),
			t.Description, t.Remarks, t.Date.String(), t.AccountID, t.ToAccountID,
			formatTimestamp(t.CreatedAt)); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	s.logger.DebugContext(ctx, "Snapshot saved to SQLite",
		log.FieldOperation, log.OpSave,
		"accounts", len(snap.Accounts),
		"transactions", len(snap.Transactions),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
