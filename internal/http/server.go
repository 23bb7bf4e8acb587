package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"vetrina/internal/backend"
	applog "vetrina/internal/log"
	"vetrina/internal/middleware/ratelimit"
	"vetrina/internal/middleware/security"
	"vetrina/internal/middleware/trace"
)

// Options configures NewServer. Zero values fall back to defaults.
type Options struct {
	Pages     PageLimits
	RateLimit ratelimit.Config
	Headers   *security.HeadersConfig
	Logger    *applog.Logger
}

// Server is the listing API: one JSON resource per record kind plus the
// category table and health probes.
type Server struct {
	http.Server
	backend  *backend.Backend
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, b *backend.Backend, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	if opts.Pages.Default <= 0 {
		opts.Pages.Default = 20
	}
	if opts.Pages.Max <= 0 {
		opts.Pages.Max = 100
	}
	if opts.RateLimit.RequestsPerMinute <= 0 {
		opts.RateLimit = ratelimit.DefaultConfig()
	}
	headers := security.DefaultHeadersConfig()
	if opts.Headers != nil {
		headers = *opts.Headers
	}

	s := &Server{
		backend:  b,
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	mux := http.NewServeMux()
	events := applog.NewStructuredLogger(logger)
	mountKind(mux, b.Products, opts.Pages, events)
	mountKind(mux, b.Fundraisers, opts.Pages, events)
	mountKind(mux, b.Events, opts.Pages, events)
	mountKind(mux, b.Transactions, opts.Pages, events)
	mountKind(mux, b.Invoices, opts.Pages, events)
	mountKind(mux, b.Search, opts.Pages, events)

	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such resource").Write(w)
	})

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})(handler)
	handler = security.NewHeadersMiddleware(headers).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = applog.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// categoryBody lists the canonical category keys with their labels.
type categoryBody struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	out := []categoryBody{}
	if s.backend.Categories != nil {
		for _, key := range s.backend.Categories.Keys() {
			out = append(out, categoryBody{Key: key, Label: s.backend.Categories.Label(key)})
		}
	}
	NewJSONResponse().Body(map[string]any{"categories": out}).Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.backend.Ready(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

// Metrics reports the counters kept by the middleware.
func (s *Server) Metrics() map[string]int64 {
	t := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	d := s.detector.GetMetrics()
	return map[string]int64{
		"requests_total":      t.TotalRequests,
		"server_errors_total": t.ServerErrors,
		"rate_limited_total":  rl.Rejected,
		"rate_limit_clients":  rl.ClientCount,
		"suspicious_total":    d.SuspiciousRequests,
		"invalid_ip_total":    d.InvalidIPAttempts,
	}
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
