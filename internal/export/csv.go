// Package export renders transactions as a CSV table for download and for
// mirroring to spreadsheets.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"conti/internal/core"
	"conti/internal/ledger"
)

// Header is the first row of every export.
var Header = []string{"Date", "Type", "Category", "Description", "Amount", "Account", "To Account"}

// descriptionColumn is always quoted.
const descriptionColumn = 3

// Rows returns the header followed by one row per transaction, in the given
// order. Account columns carry the account name, empty when the id does not
// resolve; To Account is empty for non-transfers.
func Rows(txs []core.Transaction, accounts []core.Account) [][]string {
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}

	rows := make([][]string, 0, len(txs)+1)
	rows = append(rows, append([]string(nil), Header...))
	for _, tx := range txs {
		to := ""
		if tx.Type == core.Transfer {
			to = names[tx.ToAccountID]
		}
		rows = append(rows, []string{
			tx.Date.String(),
			string(tx.Type),
			tx.DisplayCategory(),
			tx.Description,
			core.FormatAmount(tx.Amount),
			names[tx.AccountID],
			to,
		})
	}
	return rows
}

// Write renders Rows(txs, accounts) to w, one line per row.
func Write(w io.Writer, txs []core.Transaction, accounts []core.Account) error {
	bw := bufio.NewWriter(w)
	for i, row := range Rows(txs, accounts) {
		for j, field := range row {
			if j > 0 {
				bw.WriteByte(',')
			}
			// The header row is written plain.
			if i > 0 && j == descriptionColumn {
				bw.WriteString(quote(field))
			} else {
				bw.WriteString(quoteIfNeeded(field))
			}
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteSnapshot exports every transaction of snap in recording order.
func WriteSnapshot(w io.Writer, snap ledger.Snapshot) error {
	return Write(w, snap.Transactions, snap.Accounts)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return s
	}
	if strings.ContainsAny(s, ",\"\r\n") || s[0] == ' ' || s[0] == '\t' {
		return quote(s)
	}
	return s
}
