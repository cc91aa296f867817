package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/catalog"
	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/query"
	"conti/internal/services"
	"conti/internal/storage/memory"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	book := ledger.New(nil,
		ledger.WithCatalog(catalog.New([]string{"Salary"}, []string{"Food", "Rent"})),
		ledger.WithLogger(log.Discard()),
		ledger.WithClock(func() time.Time { return testNow }),
	)
	svc := services.NewLedgerService(book)
	opts.Now = func() time.Time { return testNow }
	s := NewServer(":0", svc, opts)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createAccount(t *testing.T, s *Server, body string) core.Account {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/accounts", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[core.Account](t, rec)
}

func recordTx(t *testing.T, s *Server, body string) core.Transaction {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/transactions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[core.Transaction](t, rec)
}

func TestAccountLifecycle(t *testing.T) {
	s := newTestServer(t, Options{})

	acc := createAccount(t, s, `{"bank":"ING","name":"Main","type":"checking","balance":"1234,50"}`)
	assert.NotEmpty(t, acc.ID)
	assert.Equal(t, core.Checking, acc.Type)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("1234.50")))

	rec := do(t, s, http.MethodGet, "/api/accounts/"+acc.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Main", decode[core.Account](t, rec).Name)

	rec = do(t, s, http.MethodPatch, "/api/accounts/"+acc.ID, `{"name":"Everyday","color":"#ff0000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[core.Account](t, rec)
	assert.Equal(t, "Everyday", updated.Name)
	assert.Equal(t, "ING", updated.Bank)
	assert.Equal(t, "#ff0000", updated.Color)

	rec = do(t, s, http.MethodPost, "/api/accounts/"+acc.ID+"/correction", `{"balance":-20,"reason":"statement"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[core.Account](t, rec).Balance.Equal(decimal.NewFromInt(-20)))

	rec = do(t, s, http.MethodGet, "/api/accounts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Account](t, rec), 1)

	rec = do(t, s, http.MethodDelete, "/api/accounts/"+acc.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/accounts/"+acc.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccountErrors(t *testing.T) {
	s := newTestServer(t, Options{})

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		field  string
	}{
		{"empty name", http.MethodPost, "/api/accounts", `{"name":"  "}`, http.StatusUnprocessableEntity, "name"},
		{"bad type", http.MethodPost, "/api/accounts", `{"name":"X","type":"stocks"}`, http.StatusUnprocessableEntity, "type"},
		{"bad balance", http.MethodPost, "/api/accounts", `{"name":"X","balance":"abc"}`, http.StatusUnprocessableEntity, "balance"},
		{"unknown field", http.MethodPost, "/api/accounts", `{"name":"X","owner":"me"}`, http.StatusBadRequest, ""},
		{"malformed json", http.MethodPost, "/api/accounts", `{"name":`, http.StatusBadRequest, ""},
		{"empty body", http.MethodPost, "/api/accounts", ``, http.StatusBadRequest, ""},
		{"missing account", http.MethodPatch, "/api/accounts/nope", `{"name":"X"}`, http.StatusNotFound, ""},
		{"delete missing", http.MethodDelete, "/api/accounts/nope", ``, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decode[errorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.field, resp.Field)
		})
	}
}

func TestTransactionsAdjustBalances(t *testing.T) {
	s := newTestServer(t, Options{})
	main := createAccount(t, s, `{"name":"Main","balance":100}`)
	savings := createAccount(t, s, `{"name":"Savings"}`)

	recordTx(t, s, `{"type":"expense","category":"Food","amount":"12,50","description":"lunch","date":"2024-03-10","account_id":"`+main.ID+`"}`)
	transfer := recordTx(t, s, `{"type":"Transfer","amount":30,"account_id":"`+main.ID+`","to_account_id":"`+savings.ID+`"}`)
	assert.Equal(t, core.Transfer, transfer.Type)
	assert.Empty(t, transfer.Category)
	assert.Equal(t, core.DateOf(testNow), transfer.Date)

	balance := func(id string) decimal.Decimal {
		rec := do(t, s, http.MethodGet, "/api/accounts/"+id, "")
		require.Equal(t, http.StatusOK, rec.Code)
		return decode[core.Account](t, rec).Balance
	}
	assert.True(t, balance(main.ID).Equal(decimal.RequireFromString("57.50")))
	assert.True(t, balance(savings.ID).Equal(decimal.NewFromInt(30)))

	rec := do(t, s, http.MethodDelete, "/api/transactions/"+transfer.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, balance(main.ID).Equal(decimal.RequireFromString("87.50")))
	assert.True(t, balance(savings.ID).IsZero())

	rec = do(t, s, http.MethodGet, "/api/transactions/"+transfer.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReplaceTransaction(t *testing.T) {
	s := newTestServer(t, Options{})
	acc := createAccount(t, s, `{"name":"Main","balance":100}`)
	tx := recordTx(t, s, `{"type":"expense","category":"Food","amount":10,"account_id":"`+acc.ID+`"}`)

	rec := do(t, s, http.MethodPut, "/api/transactions/"+tx.ID,
		`{"type":"expense","category":"Rent","amount":40,"account_id":"`+acc.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	replaced := decode[core.Transaction](t, rec)
	assert.NotEqual(t, tx.ID, replaced.ID)
	assert.Equal(t, "Rent", replaced.Category)

	rec = do(t, s, http.MethodGet, "/api/accounts/"+acc.ID, "")
	assert.True(t, decode[core.Account](t, rec).Balance.Equal(decimal.NewFromInt(60)))

	rec = do(t, s, http.MethodPut, "/api/transactions/"+tx.ID,
		`{"type":"expense","category":"Rent","amount":40,"account_id":"`+acc.ID+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordTransactionValidation(t *testing.T) {
	s := newTestServer(t, Options{})
	acc := createAccount(t, s, `{"name":"Main"}`)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"bad type", `{"type":"gift","amount":1,"account_id":"` + acc.ID + `"}`, "type"},
		{"bad amount", `{"type":"expense","category":"Food","amount":"x","account_id":"` + acc.ID + `"}`, "amount"},
		{"zero amount", `{"type":"expense","category":"Food","amount":0,"account_id":"` + acc.ID + `"}`, "amount"},
		{"bad date", `{"type":"expense","category":"Food","amount":1,"date":"15/03/2024","account_id":"` + acc.ID + `"}`, "date"},
		{"unknown category", `{"type":"expense","category":"Travel","amount":1,"account_id":"` + acc.ID + `"}`, "category"},
		{"self transfer", `{"type":"transfer","amount":1,"account_id":"` + acc.ID + `","to_account_id":"` + acc.ID + `"}`, "to_account_id"},
		{"unknown account", `{"type":"income","category":"Salary","amount":1,"account_id":"nope"}`, "account_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/transactions", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			assert.Equal(t, tt.field, decode[errorResponse](t, rec).Field)
		})
	}

	rec := do(t, s, http.MethodGet, "/api/transactions", "")
	assert.Equal(t, 0, decode[transactionList](t, rec).Count)
}

func TestListTransactionsFilters(t *testing.T) {
	s := newTestServer(t, Options{})
	acc := createAccount(t, s, `{"name":"Main"}`)
	recordTx(t, s, `{"type":"income","category":"Salary","amount":1000,"date":"2024-01-05","account_id":"`+acc.ID+`"}`)
	recordTx(t, s, `{"type":"expense","category":"Food","amount":20,"date":"2024-03-10","account_id":"`+acc.ID+`"}`)
	recordTx(t, s, `{"type":"expense","category":"Rent","amount":500,"date":"2023-12-01","account_id":"`+acc.ID+`"}`)

	tests := []struct {
		query string
		dates []string
	}{
		{"", []string{"2024-03-10", "2024-01-05", "2023-12-01"}},
		{"?window=month", []string{"2024-03-10"}},
		{"?window=year", []string{"2024-03-10", "2024-01-05"}},
		{"?types=income", []string{"2024-01-05"}},
		{"?types=", nil},
		{"?start=2024-01-01&end=2024-02-28", []string{"2024-01-05"}},
		{"?window=year&types=expense", []string{"2024-03-10"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/api/transactions"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			list := decode[transactionList](t, rec)
			var dates []string
			for _, tx := range list.Transactions {
				dates = append(dates, tx.Date.String())
			}
			assert.Equal(t, tt.dates, dates)
			assert.Equal(t, len(tt.dates), list.Count)
		})
	}

	rec := do(t, s, http.MethodGet, "/api/transactions?window=decade", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDashboardCacheInvalidatedOnWrite(t *testing.T) {
	s := newTestServer(t, Options{})
	acc := createAccount(t, s, `{"name":"Main","balance":100}`)

	rec := do(t, s, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dash := decode[query.Dashboard](t, rec)
	assert.Equal(t, 1, dash.AccountCount)
	assert.True(t, dash.TotalBalance.Equal(decimal.NewFromInt(100)))

	do(t, s, http.MethodGet, "/api/dashboard", "")
	assert.EqualValues(t, 1, s.appMetrics.cacheHits)
	assert.EqualValues(t, 1, s.appMetrics.cacheMisses)

	recordTx(t, s, `{"type":"expense","category":"Food","amount":25,"account_id":"`+acc.ID+`"}`)
	assert.Equal(t, 0, s.dashboardCache.Size())

	rec = do(t, s, http.MethodGet, "/api/dashboard?recent=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	dash = decode[query.Dashboard](t, rec)
	assert.True(t, dash.TotalBalance.Equal(decimal.NewFromInt(75)))
	assert.True(t, dash.MonthTotals.Expense.Equal(decimal.NewFromInt(25)))
	assert.Len(t, dash.Recent, 1)

	rec = do(t, s, http.MethodGet, "/api/dashboard?recent=0", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "recent", decode[errorResponse](t, rec).Field)
}

func TestCachedValueBuiltAcrossWriteIsDropped(t *testing.T) {
	s := newTestServer(t, Options{})

	buildCached(s, s.dashboardCache, "stale", func() query.Dashboard {
		s.onLedgerChange()
		return query.Dashboard{AccountCount: 1}
	})
	_, ok := s.dashboardCache.Get("stale")
	assert.False(t, ok, "a value built before a write must not be cached")

	buildCached(s, s.dashboardCache, "fresh", func() query.Dashboard {
		return query.Dashboard{AccountCount: 2}
	})
	dash, ok := s.dashboardCache.Get("fresh")
	require.True(t, ok)
	assert.Equal(t, 2, dash.AccountCount)
}

func TestReadsSeeWritesFromAnotherProcess(t *testing.T) {
	ctx := context.Background()
	store := memory.New(ledger.Snapshot{})
	openBook := func() *ledger.Book {
		b, err := ledger.Open(ctx, store,
			ledger.WithCatalog(catalog.New([]string{"Salary"}, []string{"Food", "Rent"})),
			ledger.WithLogger(log.Discard()),
			ledger.WithClock(func() time.Time { return testNow }),
		)
		require.NoError(t, err)
		return b
	}
	s := NewServer(":0", services.NewLedgerService(openBook()), Options{Now: func() time.Time { return testNow }})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	other := openBook()

	acc := createAccount(t, s, `{"name":"Main","balance":100}`)
	rec := do(t, s, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, s.dashboardCache.Size())

	_, err := other.Record(ctx, ledger.NewTransaction{
		Type: core.Expense, Category: "Food", Amount: decimal.NewFromInt(30), AccountID: acc.ID,
	})
	require.NoError(t, err)

	rec = do(t, s, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[query.Dashboard](t, rec)
	assert.True(t, dash.TotalBalance.Equal(decimal.NewFromInt(70)), dash.TotalBalance.String())
	require.Len(t, dash.Recent, 1)

	// The server's next write keeps the other book's transaction.
	recordTx(t, s, `{"type":"income","category":"Salary","amount":50,"account_id":"`+acc.ID+`"}`)
	snap, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Transactions, 2)
	assert.True(t, snap.Accounts[0].Balance.Equal(decimal.NewFromInt(120)))
}

func TestSummaries(t *testing.T) {
	s := newTestServer(t, Options{})
	acc := createAccount(t, s, `{"name":"Main"}`)
	recordTx(t, s, `{"type":"expense","category":"Food","amount":20,"date":"2024-03-10","account_id":"`+acc.ID+`"}`)
	recordTx(t, s, `{"type":"expense","category":"Rent","amount":500,"date":"2024-03-01","account_id":"`+acc.ID+`"}`)
	recordTx(t, s, `{"type":"expense","category":"Food","amount":5,"date":"2024-02-10","account_id":"`+acc.ID+`"}`)
	recordTx(t, s, `{"type":"income","category":"Salary","amount":900,"date":"2024-03-02","account_id":"`+acc.ID+`"}`)

	rec := do(t, s, http.MethodGet, "/api/summary/monthly?months=3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	series := decode[[]query.MonthTotals](t, rec)
	require.Len(t, series, 3)
	assert.Equal(t, core.YearMonth{Year: 2024, Month: 1}, series[0].Month)
	assert.True(t, series[0].Expense.IsZero())
	assert.True(t, series[1].Expense.Equal(decimal.NewFromInt(5)))
	assert.True(t, series[2].Expense.Equal(decimal.NewFromInt(520)))
	assert.True(t, series[2].Income.Equal(decimal.NewFromInt(900)))

	rec = do(t, s, http.MethodGet, "/api/summary/categories?window=month", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	breakdown := decode[breakdownResponse](t, rec)
	assert.Equal(t, "520.00", breakdown.Total)
	require.Len(t, breakdown.Categories, 2)
	assert.Equal(t, "Rent", breakdown.Categories[0].Name)
	assert.Equal(t, "Food", breakdown.Categories[1].Name)

	rec = do(t, s, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[categoriesResponse](t, rec)
	assert.Equal(t, []string{"Salary"}, cats.Income)
	assert.Equal(t, []string{"Food", "Rent"}, cats.Expense)
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t, Options{})
	acc := createAccount(t, s, `{"name":"Main"}`)
	recordTx(t, s, `{"type":"expense","category":"Food","amount":"3,5","description":"coffee, large","date":"2024-03-10","account_id":"`+acc.ID+`"}`)
	recordTx(t, s, `{"type":"income","category":"Salary","amount":100,"date":"2024-01-10","account_id":"`+acc.ID+`"}`)

	rec := do(t, s, http.MethodGet, "/api/export.csv?window=month", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="transactions-2024-03-15.csv"`)

	want := "Date,Type,Category,Description,Amount,Account,To Account\n" +
		`2024-03-10,expense,Food,"coffee, large",3.50,Main,` + "\n"
	assert.Equal(t, want, rec.Body.String())
}

func TestHealthAndReadiness(t *testing.T) {
	pingErr := errors.New("database is locked")
	var failing bool
	s := newTestServer(t, Options{Pinger: pingerFunc(func(context.Context) error {
		if failing {
			return pingErr
		}
		return nil
	})})

	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])

	rec = do(t, s, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode[map[string]any](t, rec)["status"])

	failing = true
	rec = do(t, s, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is locked")
}

func TestMetricsAndHeaders(t *testing.T) {
	s := newTestServer(t, Options{})
	createAccount(t, s, `{"name":"Main"}`)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "ledger_writes_total 1\n")
	assert.Contains(t, body, "ledger_accounts 1\n")
	assert.Contains(t, body, "ledger_transactions 0\n")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestWritesAreRateLimited(t *testing.T) {
	s := newTestServer(t, Options{RateLimitPerMinute: 2})

	createAccount(t, s, `{"name":"A"}`)
	createAccount(t, s, `{"name":"B"}`)

	rec := do(t, s, http.MethodPost, "/api/accounts", `{"name":"C"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	rec = do(t, s, http.MethodGet, "/api/accounts", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Account](t, rec), 2)
}
