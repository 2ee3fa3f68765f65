package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"energytracker/internal/core"
	"energytracker/internal/log"
	"energytracker/internal/metrics"
	"energytracker/internal/middleware/ratelimit"
	"energytracker/internal/middleware/security"
	appweb "energytracker/web"
)

// Service is the application behaviour the handlers need.
// *services.EnergyService satisfies it.
type Service interface {
	AddEntry(ctx context.Context, in core.EntryInput) (core.EnergyEntry, error)
	MonthlyReport(ctx context.Context, month, year int) (core.MonthlyReport, error)
	Ping(ctx context.Context) error
}

// Options configures the HTTP server.
type Options struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PostsPerMinute int
	SecretKey      string
	SecureCookies  bool
}

type Server struct {
	http.Server
	svc     Service
	pages   map[string]*template.Template
	flash   flashStore
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	logger  *log.Logger
	now     func() time.Time
}

// NewServer parses the embedded templates and wires routes and middleware.
// m may be nil, in which case /metrics responds 404.
func NewServer(opts Options, svc Service, m *metrics.Metrics, logger *log.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("http server requires a service")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	pages, err := parsePages(appweb.TemplatesFS, pageDailyEntry, pageDashboard)
	if err != nil {
		return nil, err
	}

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	s := &Server{
		svc:     svc,
		pages:   pages,
		flash:   newFlashStore(opts.SecretKey, opts.SecureCookies),
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.PostsPerMinute}),
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleEntryForm)
	mux.HandleFunc("POST /{$}", s.handleCreateEntry)
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", m.Handler())
	mux.Handle("GET /static/", security.CacheStatic(time.Hour)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	var h http.Handler = mux
	h = s.limiter.Middleware(extractClientIP, s.handleRateLimited, http.MethodPost)(h)
	h = security.Headers(security.AppPolicy(opts.SecureCookies))(h)
	h = s.instrument(h)
	h = log.RequestIDMiddleware(func(r *http.Request) string { return r.Header.Get(headerRequestID) })(h)
	h = log.Middleware(logger)(h)
	h = withRequestID(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// instrument logs every request and records its metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		logger := log.FromContext(ctx)
		clientIP := extractClientIP(r)

		logger.DebugContext(ctx, "Request started",
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).ToSlice()...)

		if isSuspiciousRequest(r) {
			logger.WithComponent(log.ComponentSecurity).WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(r.Method, route, rw.statusCode, duration)

		logger.InfoContext(ctx, "Request completed",
			append(log.NewFields().WithHTTPResponse(rw.statusCode, duration.Milliseconds()).ToSlice(),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, clientIP)...)
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded", log.FieldClientIP, extractClientIP(r), log.FieldPath, r.URL.Path)
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

// Shutdown stops the rate limiter and gracefully shuts the listener down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
