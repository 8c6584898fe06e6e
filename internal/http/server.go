package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cashbox/internal/cache"
	"cashbox/internal/core"
	"cashbox/internal/log"
	"cashbox/internal/middleware/ratelimit"
	"cashbox/internal/middleware/security"
	"cashbox/internal/middleware/trace"
	"cashbox/internal/services"
	appweb "cashbox/web"
)

const (
	cacheCleanupInterval = time.Minute
	staticMaxAge         = 3600
)

// Server serves the box grid and its htmx partials.
type Server struct {
	http.Server
	templates *template.Template
	boxes     *services.BoxController
	ping      func(context.Context) error
	logger    *log.Logger
	caches    *cache.Manager
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	started   time.Time

	rateLimit    ratelimit.Config
	shutdownOnce sync.Once
}

// ServerOption configures a Server.
type ServerOption func(*Server)

func WithLogger(logger *log.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPing adds a backend check to /readyz.
func WithPing(ping func(context.Context) error) ServerOption {
	return func(s *Server) { s.ping = ping }
}

func WithRateLimit(cfg ratelimit.Config) ServerOption {
	return func(s *Server) { s.rateLimit = cfg }
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, boxes *services.BoxController, opts ...ServerOption) *Server {
	s := &Server{
		boxes:     boxes,
		logger:    log.New(log.DefaultConfig()),
		rateLimit: ratelimit.DefaultConfig(),
		started:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)

	t, err := parseTemplates()
	if err != nil {
		s.logger.WithComponent(log.ComponentTemplate).Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	s.caches = cache.NewManager(s.logger)
	s.caches.Register(boxes.PendingCache())
	s.caches.StartCleanup(cacheCleanupInterval)

	s.detector = security.NewDetector(s.logger)
	s.limiter = ratelimit.NewLimiter(s.rateLimit)
	s.tracer = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("POST /boxes/{id}/cash-out", s.handleCashOut)
	mux.HandleFunc("POST /boxes/{id}/confirm", s.handleConfirm)
	mux.HandleFunc("POST /boxes/{id}/cancel", s.handleCancel)
	mux.HandleFunc("GET /boxes/{id}/history", s.handleHistory)

	limit := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited, http.MethodPost)
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(s.detector.Middleware(headers.Middleware(limit(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"dollars": func(d decimal.Decimal) string { return core.FormatDollars(d) },
	}
	return template.New("").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		Header("Retry-After", "60").
		TriggerErrorNotification("Too many requests. Please try again in a minute.").
		Write(w)
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// ListenAndServe runs the server until Shutdown; http.ErrServerClosed is not an error.
func (s *Server) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
