package query

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func expense(category, amount string) core.Transaction {
	return core.Transaction{Type: core.Expense, Category: category, Amount: d(amount), Date: core.NewDate(2024, 3, 1)}
}

func TestCategoryBreakdown(t *testing.T) {
	txs := []core.Transaction{
		expense("Food", "100"),
		expense("Food", "50"),
		expense("Rent", "200"),
		{Type: core.Income, Category: "Salary", Amount: d("999")},
		{Type: core.Transfer, Amount: d("10"), AccountID: "a", ToAccountID: "b"},
	}
	got := CategoryBreakdown(txs)
	require.Len(t, got, 2)
	assert.True(t, got["Food"].Equal(d("150")))
	assert.True(t, got["Rent"].Equal(d("200")))

	sorted := SortedCategories(got)
	require.Len(t, sorted, 2)
	assert.Equal(t, "Rent", sorted[0].Name)
	assert.Equal(t, "Food", sorted[1].Name)
}

func TestSortedCategoriesTieBreaksByName(t *testing.T) {
	sorted := SortedCategories(map[string]decimal.Decimal{"b": d("5"), "a": d("5"), "c": d("9")})
	names := []string{sorted[0].Name, sorted[1].Name, sorted[2].Name}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestMonthlyTotals(t *testing.T) {
	txs := []core.Transaction{
		tx("first", core.Income, core.NewDate(2024, 2, 1), "100"),
		tx("last", core.Expense, core.NewDate(2024, 2, 29), "40"),
		tx("xfer", core.Transfer, core.NewDate(2024, 2, 10), "25"),
		tx("outside", core.Expense, core.NewDate(2024, 3, 1), "1000"),
	}
	got := MonthlyTotals(txs, 2024, 2)
	assert.True(t, got.Income.Equal(d("100")))
	assert.True(t, got.Expense.Equal(d("40")))
	assert.True(t, got.Transfer.Equal(d("25")))
}

func TestTrailingMonths(t *testing.T) {
	got := TrailingMonths(time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), 4)
	want := []core.YearMonth{{Year: 2023, Month: 11}, {Year: 2023, Month: 12}, {Year: 2024, Month: 1}, {Year: 2024, Month: 2}}
	assert.Equal(t, want, got)
	assert.Nil(t, TrailingMonths(now, 0))
}

func TestMonthlySeriesZeroFills(t *testing.T) {
	txs := []core.Transaction{
		tx("jan", core.Expense, core.NewDate(2024, 1, 5), "20"),
		tx("mar", core.Income, core.NewDate(2024, 3, 5), "70"),
		tx("ancient", core.Income, core.NewDate(2020, 3, 5), "70"),
	}
	series := MonthlySeries(txs, now, 3)
	require.Len(t, series, 3)

	assert.Equal(t, core.YearMonth{Year: 2024, Month: 1}, series[0].Month)
	assert.True(t, series[0].Expense.Equal(d("20")))

	assert.Equal(t, core.YearMonth{Year: 2024, Month: 2}, series[1].Month)
	assert.True(t, series[1].Income.IsZero())
	assert.True(t, series[1].Expense.IsZero())
	assert.True(t, series[1].Transfer.IsZero())

	assert.True(t, series[2].Income.Equal(d("70")))
}

func TestRecentTransactions(t *testing.T) {
	got := RecentTransactions(sample(), 3)
	assert.Equal(t, []string{"future", "today-a", "today-b"}, ids(got))
	assert.Empty(t, RecentTransactions(sample(), 0))
	assert.Len(t, RecentTransactions(sample(), 100), len(sample()))
}

func TestAllTimeTotalsIgnoresTransfers(t *testing.T) {
	got := AllTimeTotals([]core.Transaction{
		tx("i", core.Income, core.NewDate(2024, 1, 1), "100"),
		tx("e", core.Expense, core.NewDate(2024, 1, 2), "250"),
		tx("t", core.Transfer, core.NewDate(2024, 1, 3), "75"),
	})
	assert.True(t, got.Income.Equal(d("100")))
	assert.True(t, got.Expenses.Equal(d("250")))
	assert.True(t, got.Net.Equal(d("-150")))
}

func TestExpenseScenarioTotals(t *testing.T) {
	ctx := context.Background()
	book := ledger.New(nil, ledger.WithLogger(log.Discard()))
	acc, err := book.CreateAccount(ctx, ledger.NewAccount{Name: "A", Type: core.Checking, Balance: d("1000")})
	require.NoError(t, err)

	_, err = book.Record(ctx, ledger.NewTransaction{
		Type: core.Expense, Category: "Food & Groceries", Amount: d("300"), AccountID: acc.ID,
	})
	require.NoError(t, err)

	snap := book.Snapshot()
	assert.True(t, snap.Accounts[0].Balance.Equal(d("700")))
	totals := AllTimeTotals(snap.Transactions)
	assert.True(t, totals.Expenses.Equal(d("300")))
	assert.True(t, totals.Net.Equal(d("-300")))
}

func TestBuildDashboard(t *testing.T) {
	snap := ledger.Snapshot{
		Accounts: []core.Account{
			{ID: "a1", Name: "Main", Balance: d("500")},
			{ID: "a2", Name: "Savings", Balance: d("-20.5")},
		},
		Transactions: []core.Transaction{
			tx("feb", core.Expense, core.NewDate(2024, 2, 10), "100"),
			tx("mar-exp", core.Expense, core.NewDate(2024, 3, 2), "150"),
			tx("mar-inc", core.Income, core.NewDate(2024, 3, 3), "1000"),
		},
	}
	dash := BuildDashboard(snap, now, 2)

	assert.True(t, dash.TotalBalance.Equal(d("479.5")))
	assert.Equal(t, 2, dash.AccountCount)
	assert.Equal(t, core.YearMonth{Year: 2024, Month: 3}, dash.Month)
	assert.True(t, dash.MonthTotals.Expense.Equal(d("150")))
	assert.True(t, dash.MonthNet.Equal(d("850")))
	assert.Equal(t, "up", dash.ExpenseTrend.Direction)
	assert.True(t, dash.ExpenseTrend.Delta.Equal(d("50")))
	require.Len(t, dash.TopCategories, 1)
	assert.Equal(t, "Housing", dash.TopCategories[0].Name)
	assert.Equal(t, []string{"mar-inc", "mar-exp"}, ids(dash.Recent))
}

func TestTrendWithoutPreviousMonth(t *testing.T) {
	assert.Equal(t, "none", trend(d("10"), decimal.Zero).Direction)
	assert.Equal(t, "flat", trend(d("10"), d("10")).Direction)
	assert.Equal(t, "down", trend(d("5"), d("10")).Direction)
}
