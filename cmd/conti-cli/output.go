package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"conti/internal/core"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printAccounts(w io.Writer, accounts []core.Account) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tBANK\tTYPE\tBALANCE")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Bank, a.Type, core.FormatAmount(a.Balance))
	}
	return tw.Flush()
}

func printTransactions(w io.Writer, txs []core.Transaction, accounts []core.Account) error {
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tCATEGORY\tAMOUNT\tACCOUNT\tDESCRIPTION")
	for _, tx := range txs {
		account := names[tx.AccountID]
		if tx.Type == core.Transfer {
			account += " -> " + names[tx.ToAccountID]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.Date, tx.Type, tx.DisplayCategory(), core.FormatAmount(tx.Amount), account, tx.Description)
	}
	return tw.Flush()
}
