package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/query"
)

// filterFlags binds the date window and type filter shared by list, summary
// and export commands.
type filterFlags struct {
	window string
	start  string
	end    string
	types  string
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.window, "window", "", "Date window: all, 7days, month, year or custom.")
	fs.StringVar(&f.start, "start", "", "First date of a custom window (YYYY-MM-DD).")
	fs.StringVar(&f.end, "end", "", "Last date of a custom window (YYYY-MM-DD).")
	fs.StringVar(&f.types, "types", "", "Comma separated transaction types; empty selects none.")
}

// filter builds the query filter. Bounds without a window imply custom; an
// unset --types selects every type.
func (f *filterFlags) filter(fs *pflag.FlagSet) (query.Filter, error) {
	out := query.DefaultFilter()
	kind := f.window
	if kind == "" && (f.start != "" || f.end != "") {
		kind = string(query.WindowCustom)
	}
	if kind != "" {
		w, err := query.ParseWindow(kind, f.start, f.end)
		if err != nil {
			return query.Filter{}, err
		}
		out.Window = w
	}
	if fs.Changed("types") {
		types, err := query.ParseTypes(f.types)
		if err != nil {
			return query.Filter{}, err
		}
		out.Types = types
	}
	return out, nil
}

// txFlags binds the fields of a transaction to record.
type txFlags struct {
	txType      string
	category    string
	amount      string
	date        string
	account     string
	to          string
	description string
	remarks     string
}

func (f *txFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.txType, "type", "", "income, expense or transfer (required).")
	fs.StringVar(&f.category, "category", "", "Category from the catalog; ignored for transfers.")
	fs.StringVar(&f.amount, "amount", "", "Positive amount, e.g. 12,50 (required).")
	fs.StringVar(&f.date, "date", "", "Date as YYYY-MM-DD; defaults to today.")
	fs.StringVar(&f.account, "account", "", "Source account id (required).")
	fs.StringVar(&f.to, "to", "", "Destination account id for transfers.")
	fs.StringVar(&f.description, "description", "", "Free text description.")
	fs.StringVar(&f.remarks, "remarks", "", "Free text remarks.")
}

func (f *txFlags) newTransaction() (ledger.NewTransaction, error) {
	in := ledger.NewTransaction{
		Type:        core.TransactionType(strings.ToLower(strings.TrimSpace(f.txType))),
		Category:    f.category,
		Description: f.description,
		Remarks:     f.remarks,
		AccountID:   f.account,
		ToAccountID: f.to,
	}
	amount, err := core.ParseAmount(f.amount)
	if err != nil {
		return in, core.Invalid("amount", err)
	}
	in.Amount = amount
	if f.date != "" {
		d, err := core.ParseDate(f.date)
		if err != nil {
			return in, core.Invalid("date", core.ErrInvalidDate)
		}
		in.Date = d
	}
	return in, nil
}

func newTransactionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List, record and reverse transactions",
	}
	cmd.AddCommand(
		newTransactionsListCmd(a),
		newTransactionsRecordCmd(a),
		newTransactionsReplaceCmd(a),
		newTransactionsReverseCmd(a),
	)
	return cmd
}

func newTransactionsListCmd(a *app) *cobra.Command {
	var (
		ff    filterFlags
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := ff.filter(cmd.Flags())
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			snap := svc.Snapshot()
			txs := query.Apply(snap.Transactions, f, a.now())
			if limit > 0 && len(txs) > limit {
				txs = txs[:limit]
			}
			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), txs)
			}
			return printTransactions(cmd.OutOrStdout(), txs, snap.Accounts)
		},
	}
	ff.register(cmd.Flags())
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many transactions (0 for all).")
	return cmd
}

func newTransactionsRecordCmd(a *app) *cobra.Command {
	var tf txFlags
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record an income, expense or transfer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := tf.newTransaction()
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			tx, err := svc.Record(cmd.Context(), in)
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), tx)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s on %s (%s)\n",
				tx.Type, core.FormatAmount(tx.Amount), tx.Date, tx.ID)
			return nil
		},
	}
	tf.register(cmd.Flags())
	return cmd
}

func newTransactionsReplaceCmd(a *app) *cobra.Command {
	var tf txFlags
	cmd := &cobra.Command{
		Use:   "replace <transaction-id>",
		Short: "Reverse a transaction and record a corrected one in its place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := tf.newTransaction()
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			tx, err := svc.ReplaceTransaction(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), tx)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Replaced %s with %s\n", args[0], tx.ID)
			return nil
		},
	}
	tf.register(cmd.Flags())
	return cmd
}

func newTransactionsReverseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "reverse <transaction-id>",
		Aliases: []string{"delete"},
		Short:   "Undo a transaction's balance effect and remove it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.Reverse(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reversed transaction %s\n", args[0])
			return nil
		},
	}
}
