package registry

import (
	"context"
	"regexp"
	"slices"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

// metadataPattern matches components/<namespace>/<name>/<version>/registry.json.
var metadataPattern = regexp.MustCompile(`^components/([^/]+)/([^/]+)/([^/]+)/registry\.json$`)

// ScanTree extracts component identifiers from tree entries, in tree order.
func ScanTree(entries []TreeEntry) []Identifier {
	ids := make([]Identifier, 0)
	for _, e := range entries {
		if e.Path == "" || e.Type != "blob" {
			continue
		}
		m := metadataPattern.FindStringSubmatch(e.Path)
		if m == nil {
			continue
		}
		ids = append(ids, Identifier{
			Namespace:    m[1],
			Name:         m[2],
			Version:      m[3],
			MetadataPath: e.Path,
		})
	}
	return ids
}

// ComponentTree returns every published component version. The remote tree
// is scanned at most once per freshness window; failures leave the cache as
// it was and are returned to the caller.
//
// Concurrent callers share one load. The load is detached from the caller
// that started it, so a cancelled caller only abandons its own wait.
func (r *Registry) ComponentTree(ctx context.Context) ([]Identifier, error) {
	if ids, _, ok := r.cache.Get(); ok {
		r.metrics.treeCache.WithLabelValues("hit").Inc()
		return slices.Clone(ids), nil
	}
	r.metrics.treeCache.WithLabelValues("miss").Inc()

	// Callers arriving after an Invalidate must not join an older load.
	gen := r.cache.Generation()
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan("tree/"+strconv.FormatUint(gen, 10), func() (any, error) {
		// A concurrent caller may have refreshed it while we waited.
		if ids, _, ok := r.cache.Get(); ok {
			return ids, nil
		}
		return r.loadTree(loadCtx, gen)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]Identifier)), nil
	}
}

func (r *Registry) loadTree(ctx context.Context, gen uint64) (ids []Identifier, err error) {
	ctx, span := r.startSpan(ctx, "registry.loadTree")
	defer func() { endSpan(span, err) }()

	var sha string
	err = r.remote(ctx, opBranchHead, func(ctx context.Context) error {
		var err error
		sha, err = r.client.BranchHead(ctx, r.repo.Owner, r.repo.Repo, r.repo.Branch)
		return err
	})
	if err != nil {
		return nil, err
	}

	var entries []TreeEntry
	err = r.remote(ctx, opTree, func(ctx context.Context) error {
		var err error
		entries, err = r.client.Tree(ctx, r.repo.Owner, r.repo.Repo, sha, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	ids = ScanTree(entries)
	if !r.cache.Store(gen, ids, sha) {
		r.logger.Debug("discarding component tree loaded before invalidation", "sha", sha)
	}

	span.SetAttributes(
		attribute.String("registry.sha", sha),
		attribute.Int("registry.tree_entries", len(entries)),
		attribute.Int("registry.identifiers", len(ids)),
	)
	r.logger.Debug("component tree refreshed", "sha", sha, "entries", len(entries), "identifiers", len(ids))
	return ids, nil
}
