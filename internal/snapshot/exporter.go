package snapshot

import (
	"context"
	"encoding/json"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/Shadcn-Component-Manager/web/internal/errors"
	"github.com/Shadcn-Component-Manager/web/internal/registry"
)

// Object keys.
const (
	CatalogKey  = "catalog.json"
	ManifestKey = "manifest.json"
)

// Source is the registry view an export reads from.
type Source interface {
	List(ctx context.Context) ([]registry.CatalogEntry, error)
	Get(ctx context.Context, namespace, name, version string) (*registry.Detail, error)
	Revision(ctx context.Context) (string, error)
}

// Manifest describes a completed export.
type Manifest struct {
	Revision    string    `json:"revision"`
	Count       int       `json:"count"`
	Details     int       `json:"details"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Catalog is the catalog.json document.
type Catalog struct {
	Components []registry.CatalogEntry `json:"components"`
	Count      int                     `json:"count"`
}

// Exporter writes catalog snapshots to a Store.
type Exporter struct {
	source  Source
	store   Store
	limiter *registry.Limiter
	now     func() time.Time
	logger  *slog.Logger
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithConcurrency bounds simultaneous detail fetches and writes.
func WithConcurrency(n int) ExporterOption {
	return func(e *Exporter) {
		e.limiter = registry.NewLimiter(n)
	}
}

// WithClock sets the clock used for GeneratedAt.
func WithClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) {
		e.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ExporterOption {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// NewExporter creates an Exporter.
func NewExporter(source Source, store Store, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		source:  source,
		store:   store,
		limiter: registry.NewLimiter(registry.DefaultConcurrency),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DetailKey returns the object key of a component detail document.
func DetailKey(namespace, name string) string {
	return path.Join("components", namespace, name+".json")
}

// Export writes the catalog, optionally every component's latest detail,
// and finally the manifest. The manifest is only written when everything
// before it succeeded.
func (e *Exporter) Export(ctx context.Context, withDetails bool) (*Manifest, error) {
	revision, err := e.source.Revision(ctx)
	if err != nil {
		return nil, errors.New("E100").WithDetail("Could not read the registry revision").Wrap(err)
	}

	entries, err := e.source.List(ctx)
	if err != nil {
		return nil, errors.New("E100").Wrap(err)
	}

	if err := e.putJSON(ctx, CatalogKey, Catalog{Components: entries, Count: len(entries)}); err != nil {
		return nil, err
	}

	details := 0
	if withDetails {
		details, err = e.exportDetails(ctx, entries)
		if err != nil {
			return nil, err
		}
	}

	m := &Manifest{
		Revision:    revision,
		Count:       len(entries),
		Details:     details,
		GeneratedAt: e.now().UTC(),
	}
	if err := e.putJSON(ctx, ManifestKey, m); err != nil {
		return nil, err
	}

	e.logger.Info("snapshot exported", "revision", revision, "components", m.Count, "details", details)
	return m, nil
}

func (e *Exporter) exportDetails(ctx context.Context, entries []registry.CatalogEntry) (int, error) {
	var (
		mu       sync.Mutex
		written  int
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	e.limiter.Each(ctx, len(entries), func(ctx context.Context, i int) {
		entry := entries[i]
		d, err := e.source.Get(ctx, entry.Author, entry.Name, entry.Version)
		if err != nil {
			fail(errors.New("E100").Wrap(err))
			return
		}
		if d == nil {
			e.logger.Warn("component disappeared during export", "component", entry.Author+"/"+entry.Name)
			return
		}
		if err := e.putJSON(ctx, DetailKey(entry.Author, entry.Name), d); err != nil {
			fail(err)
			return
		}
		mu.Lock()
		written++
		mu.Unlock()
	})
	if err := ctx.Err(); err != nil {
		return written, err
	}
	return written, firstErr
}

func (e *Exporter) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.New("E110").WithDetail("Failed to encode " + key).Wrap(err)
	}
	data = append(data, '\n')
	if err := e.store.Put(ctx, key, data, "application/json"); err != nil {
		return errors.New("E110").WithDetail("Failed to write " + key).Wrap(err)
	}
	return nil
}
