package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"timesplit/internal/core"
	applog "timesplit/internal/log"
	"timesplit/internal/middleware/ratelimit"
	"timesplit/internal/middleware/security"
	"timesplit/internal/middleware/trace"
	"timesplit/internal/services"
)

// EntryService is what the handlers need from the service layer.
type EntryService interface {
	ListEntries(ctx context.Context) ([]core.TimeEntry, error)
	CreateEntry(ctx context.Context, n core.NewEntry) (core.TimeEntry, error)
	UpdateEntry(ctx context.Context, id string, p core.EntryPatch) (core.TimeEntry, bool, error)
	DeleteEntry(ctx context.Context, id string) (bool, error)
	GetSettings(ctx context.Context) (core.Settings, error)
	UpdateSettings(ctx context.Context, p core.SettingsPatch) (core.Settings, error)
	Summary(ctx context.Context) (core.Summary, error)
	Ping(ctx context.Context) error
	Stats() services.Stats
}

// apiPrefixes are the mount points of every API route. The bare paths and
// the /api paths behave identically.
var apiPrefixes = []string{"", "/api"}

// Server serves the time entry JSON API.
type Server struct {
	http.Server
	svc    EntryService
	logger *applog.Logger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	trace       *trace.Middleware
	startedAt   time.Time

	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger         *applog.Logger
	rateLimit      ratelimit.Config
	headers        security.HeadersConfig
	cors           security.CORSConfig
	trustedProxies []string
}

// WithLogger sets the logger used by handlers and request tracing.
func WithLogger(l *applog.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRateLimit sets how many mutating requests a client may make per minute.
func WithRateLimit(perMinute int) Option {
	return func(o *serverOptions) {
		o.rateLimit.RequestsPerMinute = perMinute
	}
}

// WithTrustedProxy adds a CIDR whose forwarding headers are believed.
func WithTrustedProxy(cidr string) Option {
	return func(o *serverOptions) {
		o.trustedProxies = append(o.trustedProxies, cidr)
	}
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc EntryService, opts ...Option) *Server {
	o := serverOptions{
		rateLimit: ratelimit.DefaultConfig(),
		headers:   security.DefaultHeadersConfig(),
		cors:      security.DefaultCORSConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = applog.New(applog.Config{Component: applog.ComponentHTTP, Handler: slog.Default().Handler()})
	}

	detector := security.NewDetector()
	for _, cidr := range o.trustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			o.logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, applog.FieldError, err)
		}
	}

	s := &Server{
		svc:         svc,
		logger:      o.logger,
		rateLimiter: ratelimit.NewLimiter(o.rateLimit),
		detector:    detector,
		trace:       trace.NewMiddleware(detector.ExtractClientIP, o.logger),
		startedAt:   time.Now(),
	}

	mux := http.NewServeMux()
	for _, prefix := range apiPrefixes {
		mux.HandleFunc(prefix+"/time-entries", s.handleEntries)
		mux.HandleFunc(prefix+"/time-entries/{id}", s.handleEntry)
		mux.HandleFunc(prefix+"/settings", s.handleSettings)
		mux.HandleFunc(prefix+"/summary", s.handleSummary)
	}
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/", s.handleNotFound)

	headers := security.NewHeadersMiddleware(o.headers)
	limit := s.rateLimiter.Middleware(detector.ExtractClientIP, s.handleRateLimited)

	var handler http.Handler = mux
	handler = limit(handler)
	handler = s.detectSuspicious(handler)
	handler = security.CORSMiddleware(o.cors)(handler)
	handler = headers.Middleware(handler)
	handler = s.trace.Middleware(handler)

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}
	return s
}

// detectSuspicious logs requests that look like probes. They are still served.
func (s *Server) detectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request detected",
				applog.FieldComponent, applog.ComponentSecurity,
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldComponent, applog.ComponentRateLimit,
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundError(MsgNotFound).Write(w)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
