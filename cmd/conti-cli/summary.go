package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"conti/internal/core"
	"conti/internal/export"
	"conti/internal/query"
)

func newSummaryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show dashboard totals and rollups",
	}
	cmd.AddCommand(
		newSummaryDashboardCmd(a),
		newSummaryMonthlyCmd(a),
		newSummaryCategoriesCmd(a),
	)
	return cmd
}

func newSummaryDashboardCmd(a *app) *cobra.Command {
	var recent int
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Balances, this month's totals and the latest transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			snap := svc.Snapshot()
			dash := query.BuildDashboard(snap, a.now(), recent)
			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), dash)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Total balance: %s across %d accounts\n", core.FormatAmount(dash.TotalBalance), dash.AccountCount)
			fmt.Fprintf(w, "%s  income %s  expense %s  net %s (expenses %s vs last month)\n",
				dash.Month,
				core.FormatAmount(dash.MonthTotals.Income),
				core.FormatAmount(dash.MonthTotals.Expense),
				core.FormatAmount(dash.MonthNet),
				dash.ExpenseTrend.Direction)
			fmt.Fprintf(w, "All time  income %s  expenses %s  net %s\n",
				core.FormatAmount(dash.AllTime.Income),
				core.FormatAmount(dash.AllTime.Expenses),
				core.FormatAmount(dash.AllTime.Net))
			if len(dash.Recent) > 0 {
				fmt.Fprintln(w)
				return printTransactions(w, dash.Recent, snap.Accounts)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&recent, "recent", 5, "Number of recent transactions to show.")
	return cmd
}

func newSummaryMonthlyCmd(a *app) *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Income, expense and transfer totals per month, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if months < 1 {
				return core.Invalid("months", fmt.Errorf("must be positive"))
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			series := query.MonthlySeries(svc.Book().Transactions(), a.now(), months)
			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), series)
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSE\tTRANSFER")
			for _, m := range series {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Month,
					core.FormatAmount(m.Income), core.FormatAmount(m.Expense), core.FormatAmount(m.Transfer))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&months, "months", 6, "Number of trailing months, including the current one.")
	return cmd
}

func newSummaryCategoriesCmd(a *app) *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Expenses per category, largest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := ff.filter(cmd.Flags())
			if err != nil {
				return err
			}
			f.Types = []core.TransactionType{core.Expense}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			txs := query.Apply(svc.Book().Transactions(), f, a.now())
			categories := query.SortedCategories(query.CategoryBreakdown(txs))
			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), categories)
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "CATEGORY\tAMOUNT")
			for _, c := range categories {
				fmt.Fprintf(tw, "%s\t%s\n", c.Name, core.FormatAmount(c.Amount))
			}
			return tw.Flush()
		},
	}
	ff.register(cmd.Flags())
	return cmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the income and expense categories of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			c := svc.Book().Catalog()
			income, expense := c.Categories(core.Income), c.Categories(core.Expense)
			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), map[string][]string{"income": income, "expense": expense})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Income:")
			for _, name := range income {
				fmt.Fprintln(w, "  "+name)
			}
			fmt.Fprintln(w, "Expense:")
			for _, name := range expense {
				fmt.Fprintln(w, "  "+name)
			}
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		ff  filterFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write transactions as CSV, newest first",
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

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer file.Close()
				w = file
			}
			if err := export.Write(w, txs, snap.Accounts); err != nil {
				return err
			}
			if out != "" && out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d transactions to %s\n", len(txs), out)
			}
			return nil
		},
	}
	ff.register(cmd.Flags())
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file; stdout when empty or -.")
	return cmd
}
