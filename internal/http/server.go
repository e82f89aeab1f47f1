package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"txreport/internal/cache"
	"txreport/internal/core"
	applog "txreport/internal/log"
	"txreport/internal/middleware/ratelimit"
	"txreport/internal/middleware/security"
	"txreport/internal/middleware/trace"
	"txreport/internal/ports"
	"txreport/internal/services"
)

// Reports is the read side the handlers serve.
type Reports interface {
	ListTransactions(ctx context.Context, q services.ListQuery) ([]core.Transaction, error)
	Statistics(ctx context.Context, month core.MonthMatch) (core.Statistics, error)
	BarChart(ctx context.Context, month core.MonthMatch) ([]core.BucketCount, error)
	PieChart(ctx context.Context, month core.MonthMatch) ([]core.CategoryCount, error)
	Combined(ctx context.Context, month core.MonthMatch) (core.Combined, error)
}

// Seeder replaces the dataset synchronously.
type Seeder interface {
	Seed(ctx context.Context) (core.SeedResult, error)
}

// Options tune the server. Zero values take the defaults below.
type Options struct {
	RequestTimeout time.Duration
	MaxPerPage     int
	RateLimit      int
	CacheSize      int
	CacheTTL       time.Duration
	TrustedProxies []string
}

// Dependencies are the collaborators behind the routes. SeedRequests,
// Events and Health may be nil.
type Dependencies struct {
	Reports      Reports
	Seeder       Seeder
	SeedRequests ports.SeedRequestPublisher
	Events       http.Handler
	Health       ports.Pinger
	Logger       *applog.Logger
}

type Server struct {
	http.Server

	reports      Reports
	seeder       Seeder
	seedRequests ports.SeedRequestPublisher
	health       ports.Pinger
	logs         *applog.StructuredLogger

	requestTimeout time.Duration
	maxPerPage     int

	detector    *security.Detector
	tracer      *trace.Middleware
	rateLimiter *ratelimit.Limiter

	caches          *cache.Manager
	statisticsCache *cache.LRUCache[core.Statistics]
	barChartCache   *cache.LRUCache[[]core.BucketCount]
	pieChartCache   *cache.LRUCache[[]core.CategoryCount]
	combinedCache   *cache.LRUCache[core.Combined]

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Dependencies, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 7 * time.Second
	}
	if opts.MaxPerPage <= 0 {
		opts.MaxPerPage = 100
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}

	s := &Server{
		reports:        deps.Reports,
		seeder:         deps.Seeder,
		seedRequests:   deps.SeedRequests,
		health:         deps.Health,
		logs:           applog.NewStructuredLogger(logger.WithComponent(applog.ComponentReports)),
		requestTimeout: opts.RequestTimeout,
		maxPerPage:     opts.MaxPerPage,
		detector:       detector,
		tracer:         trace.NewMiddleware(detector.ExtractClientIP),
		rateLimiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimit}),

		caches:          cache.NewManager(),
		statisticsCache: cache.NewLRUCache[core.Statistics](opts.CacheSize, opts.CacheTTL),
		barChartCache:   cache.NewLRUCache[[]core.BucketCount](opts.CacheSize, opts.CacheTTL),
		pieChartCache:   cache.NewLRUCache[[]core.CategoryCount](opts.CacheSize, opts.CacheTTL),
		combinedCache:   cache.NewLRUCache[core.Combined](opts.CacheSize, opts.CacheTTL),
	}
	s.caches.Register(s.statisticsCache)
	s.caches.Register(s.barChartCache)
	s.caches.Register(s.pieChartCache)
	s.caches.Register(s.combinedCache)
	s.caches.StartCleanup(opts.CacheTTL)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.Handle("/api/init", s.rateLimiter.Middleware(detector.ExtractClientIP, rateLimited)(http.HandlerFunc(s.handleInit)))
	mux.Handle("/api/transactions", s.withTimeout(s.handleTransactions))
	mux.Handle("/api/statistics", s.withTimeout(s.handleStatistics))
	mux.Handle("/api/bar-chart", s.withTimeout(s.handleBarChart))
	mux.Handle("/api/pie-chart", s.withTimeout(s.handlePieChart))
	mux.Handle("/api/combined", s.withTimeout(s.handleCombined))
	if deps.Events != nil {
		mux.Handle("/api/events", deps.Events)
	}
	mux.HandleFunc("/", handleNotFound)

	var handler http.Handler = mux
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = applog.Middleware(logger.WithComponent(applog.ComponentHTTP))(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// InvalidateReports drops every cached report. It runs after each seed.
func (s *Server) InvalidateReports() {
	s.caches.PurgeAll()
}

// Shutdown stops background work and then the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withTimeout bounds a report handler by the request timeout.
func (s *Server) withTimeout(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundError("not found").Write(w)
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldComponent, applog.ComponentRateLimit,
		applog.FieldPath, r.URL.Path)
	NewJSONResponse().
		Status(http.StatusTooManyRequests).
		JSON(errorBody{Error: "rate limit exceeded, please try again later"}).
		Write(w)
}
