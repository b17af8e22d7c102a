package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const tracerName = "github.com/Shadcn-Component-Manager/web/internal/registry"

// Registry resolves components from a remote component repository.
type Registry struct {
	client     RepositoryClient
	repo       Repository
	cache      *TreeCache
	limiter    *Limiter
	extractors []Extractor
	logger     *slog.Logger
	metrics    *metrics
	tracer     trace.Tracer

	// coalesces concurrent tree loads after the cache expires
	group singleflight.Group
}

type options struct {
	repo           Repository
	ttl            time.Duration
	now            func() time.Time
	concurrency    int
	extractors     []Extractor
	logger         *slog.Logger
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
}

// Option configures a Registry.
type Option func(*options)

// WithRepository sets the repository coordinate.
func WithRepository(repo Repository) Option {
	return func(o *options) {
		o.repo = repo
	}
}

// WithTTL sets the tree cache freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithClock sets the clock used by the tree cache.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithConcurrency sets the number of simultaneous remote fetches.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithExtractors replaces the metadata shape extractors.
func WithExtractors(extractors ...Extractor) Option {
	return func(o *options) {
		o.extractors = extractors
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegisterer registers the registry metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithTracerProvider sets the tracer provider.
// Default: the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// New creates a Registry reading from client.
func New(client RepositoryClient, opts ...Option) *Registry {
	o := options{
		repo:        DefaultRepository,
		ttl:         DefaultTreeTTL,
		concurrency: DefaultConcurrency,
		extractors:  DefaultExtractors(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}

	return &Registry{
		client:     client,
		repo:       o.repo,
		cache:      NewTreeCache(o.ttl, o.now),
		limiter:    NewLimiter(o.concurrency),
		extractors: o.extractors,
		logger:     o.logger.With("component", "registry", "repository", o.repo.String()),
		metrics:    newMetrics(o.registerer),
		tracer:     o.tracerProvider.Tracer(tracerName),
	}
}

// Repository returns the repository coordinate.
func (r *Registry) Repository() Repository {
	return r.repo
}

// Invalidate drops the cached tree so the next call rescans it.
func (r *Registry) Invalidate() {
	r.cache.Invalidate()
}

// Revision returns the current head commit of the registry branch.
func (r *Registry) Revision(ctx context.Context) (string, error) {
	var sha string
	err := r.remote(ctx, opBranchHead, func(ctx context.Context) error {
		var err error
		sha, err = r.client.BranchHead(ctx, r.repo.Owner, r.repo.Repo, r.repo.Branch)
		return err
	})
	return sha, err
}

// remote runs one remote call and records it.
func (r *Registry) remote(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	r.metrics.inflight.Inc()
	err := fn(ctx)
	r.metrics.inflight.Dec()
	r.metrics.observe(op, time.Since(start), err)
	return err
}

// fetchFile reads and decodes a file from the registry branch.
func (r *Registry) fetchFile(ctx context.Context, path string) ([]byte, error) {
	var content *Content
	err := r.remote(ctx, opFileContent, func(ctx context.Context) error {
		var err error
		content, err = r.client.FileContent(ctx, r.repo.Owner, r.repo.Repo, path, r.repo.Branch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return content.Decode()
}

func (r *Registry) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name, opts...)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
