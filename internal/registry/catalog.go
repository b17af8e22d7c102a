package registry

import (
	"context"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
)

// List returns the latest version of every component whose metadata
// resolves. Components with unusable metadata are omitted. Versions compare
// as plain strings, so "9.0.0" sorts after "10.0.0".
func (r *Registry) List(ctx context.Context) (entries []CatalogEntry, err error) {
	ctx, span := r.startSpan(ctx, "registry.List")
	defer func() { endSpan(span, err) }()

	ids, err := r.ComponentTree(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	latest := make(map[string]CatalogEntry)

	r.limiter.Each(ctx, len(ids), func(ctx context.Context, i int) {
		id := ids[i]
		item, err := r.ResolveMetadata(ctx, id.MetadataPath)
		if err != nil {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		cur, ok := latest[id.Key()]
		if !ok || id.Version > cur.Version {
			latest[id.Key()] = CatalogEntry{
				Item:    *item,
				Slug:    id.Name,
				Version: id.Version,
				Author:  id.Namespace,
			}
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries = make([]CatalogEntry, 0, len(latest))
	for _, e := range latest {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Author != entries[j].Author {
			return entries[i].Author < entries[j].Author
		}
		return entries[i].Name < entries[j].Name
	})

	span.SetAttributes(
		attribute.Int("registry.versions", len(ids)),
		attribute.Int("registry.components", len(entries)),
	)
	return entries, nil
}

// ByAuthor returns the catalog entries published under author, by name.
func (r *Registry) ByAuthor(ctx context.Context, author string) ([]CatalogEntry, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]CatalogEntry, 0)
	for _, e := range all {
		if e.Author == author {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
