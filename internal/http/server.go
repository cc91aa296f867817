// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"conti/internal/cache"
	"conti/internal/log"
	"conti/internal/middleware/ratelimit"
	"conti/internal/middleware/security"
	"conti/internal/middleware/trace"
	"conti/internal/query"
	"conti/internal/services"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// Pinger reports whether the persistence backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the server. Zero values select defaults.
type Options struct {
	RateLimitPerMinute int
	DashboardCacheTTL  time.Duration
	// TrustedProxies are extra CIDRs whose forwarding headers are honoured.
	TrustedProxies []string
	// Pinger is checked by /readyz when set.
	Pinger Pinger
	Logger *log.Logger
	// Now overrides the clock used for date windows and the dashboard.
	Now func() time.Time
}

// appMetrics tracks application-level counters.
type appMetrics struct {
	uptime      time.Time
	writes      int64
	cacheHits   int64
	cacheMisses int64
}

type Server struct {
	http.Server
	svc    *services.LedgerService
	logger *log.Logger
	now    func() time.Time
	pinger Pinger

	dashboardCache *cache.LRUCache[query.Dashboard]
	seriesCache    *cache.LRUCache[[]query.MonthTotals]
	caches         *cache.Manager
	// generation is bumped on every ledger change; values built under an
	// older generation are not cached.
	generation atomic.Uint64

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.LedgerService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DashboardCacheTTL <= 0 {
		opts.DashboardCacheTTL = 30 * time.Second
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	detector := security.NewDetector(opts.Logger)
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	s := &Server{
		svc:              svc,
		logger:           logger,
		now:              opts.Now,
		pinger:           opts.Pinger,
		dashboardCache:   cache.NewLRUCache[query.Dashboard](32, opts.DashboardCacheTTL),
		seriesCache:      cache.NewLRUCache[[]query.MonthTotals](32, opts.DashboardCacheTTL),
		caches:           cache.NewManager(opts.Logger),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, opts.Logger),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.caches.Register(s.dashboardCache)
	s.caches.Register(s.seriesCache)
	s.caches.StartCleanup(5 * time.Minute)
	svc.Subscribe(s.onLedgerChange)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/accounts", s.fresh(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", s.fresh(s.handleGetAccount))
	mux.HandleFunc("PATCH /api/accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	mux.HandleFunc("POST /api/accounts/{id}/correction", s.handleCorrectBalance)

	mux.HandleFunc("GET /api/transactions", s.fresh(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.handleRecordTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.fresh(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleReplaceTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleReverseTransaction)

	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/dashboard", s.fresh(s.handleDashboard))
	mux.HandleFunc("GET /api/summary/monthly", s.fresh(s.handleMonthlySeries))
	mux.HandleFunc("GET /api/summary/categories", s.fresh(s.handleCategoryBreakdown))
	mux.HandleFunc("GET /api/export.csv", s.fresh(s.handleExportCSV))

	// Outermost first: trace, security detection, headers, rate limit.
	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, s.writeRateLimited)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

func (s *Server) onLedgerChange() {
	atomic.AddInt64(&s.appMetrics.writes, 1)
	s.generation.Add(1)
	s.caches.InvalidateAll()
}

// fresh reloads the ledger before a read so writes made through the CLI or
// another process on the same store are served.
func (s *Server) fresh(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.Refresh(r.Context()); err != nil {
			s.writeError(w, r, log.OpLoad, err)
			return
		}
		h(w, r)
	}
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) writeRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
}
