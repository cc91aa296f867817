package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady checks the persistence backend when it can be pinged.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.pinger == nil {
		checks["storage"] = "not_applicable"
	} else if err := s.pinger.Ping(ctx); err != nil {
		checks["storage"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	checks["cache"] = map[string]any{
		"dashboard_entries": s.dashboardCache.Size(),
		"series_entries":    s.seriesCache.Size(),
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	snap := s.svc.Snapshot()
	traceMetrics := s.traceMiddleware.GetMetrics()
	rateMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	metrics := []struct {
		name, help, kind string
		value            int64
	}{
		{"http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests},
		{"http_response_time_avg_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime},
		{"ledger_writes_total", "Ledger changes, local or reloaded from storage", "counter", atomic.LoadInt64(&s.appMetrics.writes)},
		{"ledger_accounts", "Number of accounts", "gauge", int64(len(snap.Accounts))},
		{"ledger_transactions", "Number of transactions", "gauge", int64(len(snap.Transactions))},
		{"cache_hits_total", "Total cache hits", "counter", atomic.LoadInt64(&s.appMetrics.cacheHits)},
		{"cache_misses_total", "Total cache misses", "counter", atomic.LoadInt64(&s.appMetrics.cacheMisses)},
		{"rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", rateMetrics.TotalHits},
		{"rate_limit_active_clients", "Clients tracked by the rate limiter", "gauge", rateMetrics.ClientCount},
		{"security_suspicious_requests_total", "Requests flagged as suspicious", "counter", securityMetrics.SuspiciousRequests},
		{"uptime_seconds", "Process uptime", "gauge", int64(time.Since(s.appMetrics.uptime).Seconds())},
	}

	w.WriteHeader(http.StatusOK)
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
		fmt.Fprintf(w, "%s %d\n\n", m.name, m.value)
	}
}
