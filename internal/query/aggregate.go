package query

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/ledger"
)

// TypeTotals sums amounts per transaction type.
type TypeTotals struct {
	Income   decimal.Decimal `json:"income"`
	Expense  decimal.Decimal `json:"expense"`
	Transfer decimal.Decimal `json:"transfer"`
}

func (t *TypeTotals) add(tx core.Transaction) {
	switch tx.Type {
	case core.Income:
		t.Income = t.Income.Add(tx.Amount)
	case core.Expense:
		t.Expense = t.Expense.Add(tx.Amount)
	case core.Transfer:
		t.Transfer = t.Transfer.Add(tx.Amount)
	}
}

// MonthTotals is one point of a monthly series.
type MonthTotals struct {
	Month core.YearMonth `json:"month"`
	TypeTotals
}

// Totals are all-time income and expense sums.
type Totals struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

// TotalBalance sums the balances of all accounts.
func TotalBalance(accounts []core.Account) decimal.Decimal {
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}
	return total
}

// MonthlyTotals sums the transactions dated in the given calendar month.
func MonthlyTotals(txs []core.Transaction, year, month int) TypeTotals {
	ym := core.YearMonth{Year: year, Month: month}
	var totals TypeTotals
	for _, tx := range txs {
		if ym.Contains(tx.Date) {
			totals.add(tx)
		}
	}
	return totals
}

// TrailingMonths returns the n calendar months ending with the month of now,
// oldest first.
func TrailingMonths(now time.Time, n int) []core.YearMonth {
	if n <= 0 {
		return nil
	}
	current := core.YearMonthOf(now)
	months := make([]core.YearMonth, n)
	for i := range months {
		months[i] = current.AddMonths(i - n + 1)
	}
	return months
}

// MonthlySeries returns per-type totals for each of the trailing n months.
// Months without transactions are present with zero totals.
func MonthlySeries(txs []core.Transaction, now time.Time, n int) []MonthTotals {
	months := TrailingMonths(now, n)
	series := make([]MonthTotals, len(months))
	index := make(map[core.YearMonth]int, len(months))
	for i, ym := range months {
		series[i].Month = ym
		index[ym] = i
	}
	for _, tx := range txs {
		if i, ok := index[core.YearMonthOf(tx.Date.Time)]; ok {
			series[i].add(tx)
		}
	}
	return series
}

// CategoryBreakdown sums expense amounts per category. Income and transfers
// are ignored.
func CategoryBreakdown(txs []core.Transaction) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		out[tx.Category] = out[tx.Category].Add(tx.Amount)
	}
	return out
}

// SortedCategories orders a breakdown by amount descending, then name.
func SortedCategories(breakdown map[string]decimal.Decimal) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(breakdown))
	for name, amount := range breakdown {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// RecentTransactions returns up to n transactions, newest date first.
// Transactions on the same date keep their recording order.
func RecentTransactions(txs []core.Transaction, n int) []core.Transaction {
	if n <= 0 {
		return []core.Transaction{}
	}
	out := slices.Clone(txs)
	sortByDateDesc(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// AllTimeTotals sums income and expenses over every transaction. Transfers
// move money between accounts and do not count.
func AllTimeTotals(txs []core.Transaction) Totals {
	var t TypeTotals
	for _, tx := range txs {
		t.add(tx)
	}
	return Totals{
		Income:   t.Income,
		Expenses: t.Expense,
		Net:      t.Income.Sub(t.Expense),
	}
}

// Trend compares current month expenses with the previous month.
type Trend struct {
	Previous  decimal.Decimal `json:"previous"`
	Delta     decimal.Decimal `json:"delta"`
	Direction string          `json:"direction"` // up, down, flat or none
}

// Dashboard is the summary shown on the home view.
type Dashboard struct {
	TotalBalance  decimal.Decimal       `json:"total_balance"`
	AccountCount  int                   `json:"account_count"`
	Month         core.YearMonth        `json:"month"`
	MonthTotals   TypeTotals            `json:"month_totals"`
	MonthNet      decimal.Decimal       `json:"month_net"`
	ExpenseTrend  Trend                 `json:"expense_trend"`
	AllTime       Totals                `json:"all_time"`
	TopCategories []core.CategoryAmount `json:"top_categories"`
	Recent        []core.Transaction    `json:"recent"`
}

// BuildDashboard assembles the dashboard for the month containing now.
func BuildDashboard(snap ledger.Snapshot, now time.Time, recent int) Dashboard {
	current := core.YearMonthOf(now)
	previous := current.AddMonths(-1)

	month := MonthlyTotals(snap.Transactions, current.Year, current.Month)
	prev := MonthlyTotals(snap.Transactions, previous.Year, previous.Month)

	var monthTxs []core.Transaction
	for _, tx := range snap.Transactions {
		if current.Contains(tx.Date) {
			monthTxs = append(monthTxs, tx)
		}
	}

	return Dashboard{
		TotalBalance:  TotalBalance(snap.Accounts),
		AccountCount:  len(snap.Accounts),
		Month:         current,
		MonthTotals:   month,
		MonthNet:      month.Income.Sub(month.Expense),
		ExpenseTrend:  trend(month.Expense, prev.Expense),
		AllTime:       AllTimeTotals(snap.Transactions),
		TopCategories: SortedCategories(CategoryBreakdown(monthTxs)),
		Recent:        RecentTransactions(snap.Transactions, recent),
	}
}

func trend(current, previous decimal.Decimal) Trend {
	t := Trend{Previous: previous, Delta: current.Sub(previous), Direction: "none"}
	if previous.IsZero() {
		return t
	}
	switch t.Delta.Sign() {
	case 1:
		t.Direction = "up"
	case -1:
		t.Direction = "down"
	default:
		t.Direction = "flat"
	}
	return t
}
