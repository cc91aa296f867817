package query

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/core"
)

var now = time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)

func tx(id string, typ core.TransactionType, date core.Date, amount string) core.Transaction {
	t := core.Transaction{
		ID:        id,
		Type:      typ,
		Amount:    decimal.RequireFromString(amount),
		Date:      date,
		AccountID: "a1",
	}
	switch typ {
	case core.Expense:
		t.Category = "Housing"
	case core.Income:
		t.Category = "Salary"
	case core.Transfer:
		t.ToAccountID = "a2"
	}
	return t
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}

func sample() []core.Transaction {
	return []core.Transaction{
		tx("old", core.Income, core.NewDate(2023, 6, 1), "100"),
		tx("jan", core.Expense, core.NewDate(2024, 1, 10), "20"),
		tx("mar1", core.Expense, core.NewDate(2024, 3, 1), "30"),
		tx("week-edge", core.Transfer, core.NewDate(2024, 3, 8), "40"),
		tx("today-a", core.Income, core.NewDate(2024, 3, 15), "50"),
		tx("today-b", core.Expense, core.NewDate(2024, 3, 15), "60"),
		tx("future", core.Expense, core.NewDate(2024, 3, 20), "70"),
	}
}

func TestApplyWindows(t *testing.T) {
	start := core.NewDate(2024, 1, 10)
	end := core.NewDate(2024, 3, 8)

	tests := []struct {
		name   string
		window DateWindow
		want   []string
	}{
		{"all", All(), []string{"future", "today-a", "today-b", "week-edge", "mar1", "jan", "old"}},
		{"last 7 days inclusive", Last7Days(), []string{"today-a", "today-b", "week-edge"}},
		{"month to date", MonthToDate(), []string{"today-a", "today-b", "week-edge", "mar1"}},
		{"year to date", YearToDate(), []string{"today-a", "today-b", "week-edge", "mar1", "jan"}},
		{"custom both bounds", Custom(&start, &end), []string{"week-edge", "mar1", "jan"}},
		{"custom start only", Custom(&end, nil), []string{"future", "today-a", "today-b", "week-edge"}},
		{"custom end only", Custom(nil, &start), []string{"jan", "old"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(sample(), Filter{Window: tt.window, Types: core.TransactionTypes()}, now)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApplyTypes(t *testing.T) {
	txs := sample()

	t.Run("full set is a pass-through", func(t *testing.T) {
		got := Apply(txs, DefaultFilter(), now)
		assert.Len(t, got, len(txs))
	})

	t.Run("empty set yields nothing", func(t *testing.T) {
		for _, w := range []DateWindow{All(), Last7Days(), YearToDate()} {
			got := Apply(txs, Filter{Window: w, Types: []core.TransactionType{}}, now)
			assert.Empty(t, got)
		}
	})

	t.Run("zero filter yields nothing", func(t *testing.T) {
		assert.Empty(t, Apply(txs, Filter{}, now))
		assert.Empty(t, Apply(txs, Filter{Window: All()}, now))
	})

	t.Run("membership", func(t *testing.T) {
		got := Apply(txs, Filter{Window: MonthToDate(), Types: []core.TransactionType{core.Expense}}, now)
		assert.Equal(t, []string{"today-b", "mar1"}, ids(got))
	})
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	txs := sample()
	before := ids(txs)
	_ = Apply(txs, DefaultFilter(), now)
	assert.Equal(t, before, ids(txs))
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("custom", "2024-01-01", "")
	require.NoError(t, err)
	require.NotNil(t, w.Start)
	assert.Nil(t, w.End)
	assert.Equal(t, "2024-01-01", w.Start.String())

	w, err = ParseWindow("", "", "")
	require.NoError(t, err)
	assert.Equal(t, WindowAll, w.Kind)

	_, err = ParseWindow("custom", "01/02/2024", "")
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	_, err = ParseWindow("fortnight", "", "")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestParseTypes(t *testing.T) {
	got, err := ParseTypes("income, EXPENSE,income")
	require.NoError(t, err)
	assert.Equal(t, []core.TransactionType{core.Income, core.Expense}, got)

	got, err = ParseTypes("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseTypes("income,refund")
	assert.ErrorIs(t, err, core.ErrInvalidType)
}
