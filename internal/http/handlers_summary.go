package http

import (
	"bytes"
	"fmt"
	"net/http"
	"sync/atomic"

	"conti/internal/cache"
	"conti/internal/core"
	"conti/internal/export"
	"conti/internal/log"
	"conti/internal/query"
)

const (
	defaultRecent = 5
	maxRecent     = 50
	defaultMonths = 6
	maxMonths     = 36
)

type categoriesResponse struct {
	Income  []string `json:"income"`
	Expense []string `json:"expense"`
}

type breakdownResponse struct {
	Total      string                `json:"total"`
	Categories []core.CategoryAmount `json:"categories"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	c := s.svc.Book().Catalog()
	writeJSON(w, http.StatusOK, categoriesResponse{
		Income:  c.Categories(core.Income),
		Expense: c.Categories(core.Expense),
	})
}

// handleDashboard serves the cached dashboard for today. Ledger writes purge
// the cache.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	recent, err := parseLimit(r, "recent", defaultRecent, maxRecent)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}

	now := s.now()
	key := fmt.Sprintf("%s:%d", core.DateOf(now), recent)
	if dash, ok := s.dashboardCache.Get(key); ok {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		s.logger.DebugContext(r.Context(), "Dashboard cache hit", "key", key)
		writeJSON(w, http.StatusOK, dash)
		return
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	dash := buildCached(s, s.dashboardCache, key, func() query.Dashboard {
		return query.BuildDashboard(s.svc.Snapshot(), now, recent)
	})
	writeJSON(w, http.StatusOK, dash)
}

// buildCached builds a value and caches it unless the ledger changed while it
// was being built.
func buildCached[T any](s *Server, c *cache.LRUCache[T], key string, build func() T) T {
	gen := s.generation.Load()
	v := build()
	if s.generation.Load() == gen {
		c.Set(key, v)
	}
	return v
}

// handleMonthlySeries returns zero-filled income/expense/transfer totals for
// the trailing months, oldest first.
func (s *Server) handleMonthlySeries(w http.ResponseWriter, r *http.Request) {
	months, err := parseLimit(r, "months", defaultMonths, maxMonths)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}

	now := s.now()
	key := fmt.Sprintf("%s:%d", core.YearMonthOf(now), months)
	if series, ok := s.seriesCache.Get(key); ok {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		writeJSON(w, http.StatusOK, series)
		return
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	series := buildCached(s, s.seriesCache, key, func() []query.MonthTotals {
		return query.MonthlySeries(s.svc.Book().Transactions(), now, months)
	})
	writeJSON(w, http.StatusOK, series)
}

// handleCategoryBreakdown sums expenses per category within the requested
// window, largest first.
func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	f.Types = []core.TransactionType{core.Expense}

	txs := query.Apply(s.svc.Book().Transactions(), f, s.now())
	categories := query.SortedCategories(query.CategoryBreakdown(txs))
	total := query.AllTimeTotals(txs).Expenses
	writeJSON(w, http.StatusOK, breakdownResponse{
		Total:      core.FormatAmount(total),
		Categories: categories,
	})
}

// handleExportCSV downloads the transactions matching the filter, newest
// first, in the export format.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}

	snap := s.svc.Snapshot()
	txs := query.Apply(snap.Transactions, f, s.now())

	var buf bytes.Buffer
	if err := export.Write(&buf, txs, snap.Accounts); err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}

	filename := fmt.Sprintf("transactions-%s.csv", core.DateOf(s.now()))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
