package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shadcn-Component-Manager/web/internal/github"
	"github.com/Shadcn-Component-Manager/web/internal/registry"
	"github.com/Shadcn-Component-Manager/web/internal/session"
	"github.com/Shadcn-Component-Manager/web/pkg/middleware"
)

// Registry is the component source the API reads.
type Registry interface {
	List(ctx context.Context) ([]registry.CatalogEntry, error)
	Get(ctx context.Context, namespace, name, version string) (*registry.Detail, error)
	ByAuthor(ctx context.Context, author string) ([]registry.CatalogEntry, error)
}

// UserLookup resolves public GitHub profiles.
type UserLookup interface {
	User(ctx context.Context, login string) (*github.User, error)
}

// Config configures a Server.
type Config struct {
	// Registry is required.
	Registry Registry

	// Users resolves profile owners. Without it profiles carry no user.
	Users UserLookup

	// Sessions resolves the signed-in user.
	// Default: a cookie provider reading "scm_session".
	Sessions session.Provider

	// Live serves /api/live when set.
	Live http.Handler

	// Metrics instruments requests when set.
	Metrics *middleware.Metrics

	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer

	// TracerProvider enables request tracing when set.
	TracerProvider trace.TracerProvider

	// Origins are the accepted Origin header values. Requests without an
	// Origin header are always accepted.
	Origins []string

	// CacheTTL is the response cache window. Zero disables caching.
	CacheTTL time.Duration

	// CacheSize bounds the number of cached responses.
	CacheSize int

	Logger *slog.Logger

	// Now is the clock used for "revalidated" timestamps.
	Now func() time.Time
}

// Server is the HTTP API.
type Server struct {
	cfg     Config
	origins map[string]struct{}
	cache   *responseCache
	catalog *catalogCache
	logger  *slog.Logger
	now     func() time.Time
	router  chi.Router
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewCookieProvider(session.WithLogger(cfg.Logger))
	}

	s := &Server{
		cfg:     cfg,
		origins: make(map[string]struct{}, len(cfg.Origins)),
		cache:   newResponseCache(cfg.CacheSize, cfg.CacheTTL),
		catalog: newCatalogCache(cfg.Registry, cfg.CacheTTL),
		logger:  cfg.Logger.With("component", "api"),
		now:     cfg.Now,
	}
	for _, o := range cfg.Origins {
		s.origins[o] = struct{}{}
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Purge drops every cached response and the cached catalog.
func (s *Server) Purge() {
	s.cache.purge()
	s.catalog.purge()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.accessLog)
	r.Use(chimw.Recoverer)
	if s.cfg.TracerProvider != nil {
		r.Use(middleware.OpenTelemetry(
			middleware.WithTracerProvider(s.cfg.TracerProvider),
			middleware.WithRequestFilter(func(r *http.Request) bool {
				switch r.URL.Path {
				case "/healthz", "/metrics", "/api/live":
					return false
				}
				return true
			}),
		))
	}
	if s.cfg.Metrics != nil {
		r.Use(s.cfg.Metrics.Handler)
	}

	r.Get("/healthz", s.handleHealth)
	if s.cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.originGuard)

		r.Get("/components", s.cached(s.handleComponents))
		r.Get("/components/{namespace}/{name}", s.cached(s.handleComponent))
		r.Get("/search", s.serve(s.handleSearch))
		r.Get("/profile/{username}", s.cached(s.handleProfile))
		r.Get("/user", s.serve(s.handleUser))
		r.Get("/user/components", s.serve(s.handleUserComponents))
		if s.cfg.Live != nil {
			r.Get("/live", s.cfg.Live.ServeHTTP)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: http.StatusText(http.StatusNotFound), Message: "Route not found"})
	})
	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}
