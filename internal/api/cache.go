package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/Shadcn-Component-Manager/web/internal/registry"
	"github.com/Shadcn-Component-Manager/web/pkg/middleware"
)

const staleWhileRevalidate = 60

// cachedResponse is an encoded successful response.
type cachedResponse struct {
	header http.Header
	body   []byte
}

// responseCache holds encoded responses keyed by path and query.
// A nil cache stores nothing.
type responseCache struct {
	lru *expirable.LRU[string, cachedResponse]
	ttl time.Duration
}

func newResponseCache(size int, ttl time.Duration) *responseCache {
	if ttl <= 0 {
		return nil
	}
	if size < 1 {
		size = 256
	}
	return &responseCache{
		lru: expirable.NewLRU[string, cachedResponse](size, nil, ttl),
		ttl: ttl,
	}
}

func (c *responseCache) get(key string) (cachedResponse, bool) {
	if c == nil {
		return cachedResponse{}, false
	}
	return c.lru.Get(key)
}

func (c *responseCache) add(key string, resp cachedResponse) {
	if c == nil {
		return
	}
	c.lru.Add(key, resp)
}

func (c *responseCache) purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

func (c *responseCache) cacheControl() string {
	return fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d", int(c.ttl.Seconds()), staleWhileRevalidate)
}

func cacheKey(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + r.URL.RawQuery
}

// cached serves fn through the response cache. Only 200 responses are
// stored.
func (s *Server) cached(fn apiFunc) http.HandlerFunc {
	if s.cache == nil {
		return s.serve(fn)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := cacheKey(r)
		route := middleware.RouteLabel(r)

		if hit, ok := s.cache.get(key); ok {
			s.cfg.Metrics.RecordCache(route, "hit")
			copyHeader(w.Header(), hit.header)
			w.Header().Set("Cache-Control", s.cache.cacheControl())
			writeRaw(w, http.StatusOK, hit.body)
			return
		}
		s.cfg.Metrics.RecordCache(route, "miss")

		resp, err := fn(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		data, err := encode(resp.body)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if resp.status == http.StatusOK {
			s.cache.add(key, cachedResponse{header: resp.header.Clone(), body: data})
			w.Header().Set("Cache-Control", s.cache.cacheControl())
		}
		copyHeader(w.Header(), resp.header)
		writeRaw(w, resp.status, data)
	}
}

// catalogCache keeps the last catalog for search, sharing one in-flight
// load between concurrent callers. The shared load does not inherit the
// cancellation of the request that started it.
type catalogCache struct {
	reg   Registry
	lru   *expirable.LRU[string, []registry.CatalogEntry]
	group singleflight.Group

	// gen is bumped by purge; loads from an older generation are not kept.
	mu  sync.Mutex
	gen uint64
}

const catalogKey = "catalog"

func newCatalogCache(reg Registry, ttl time.Duration) *catalogCache {
	c := &catalogCache{reg: reg}
	if ttl > 0 {
		c.lru = expirable.NewLRU[string, []registry.CatalogEntry](1, nil, ttl)
	}
	return c
}

func (c *catalogCache) list(ctx context.Context) ([]registry.CatalogEntry, error) {
	if c.lru != nil {
		if entries, ok := c.lru.Get(catalogKey); ok {
			return entries, nil
		}
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(catalogKey+"/"+strconv.FormatUint(gen, 10), func() (any, error) {
		entries, err := c.reg.List(loadCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.lru != nil && c.gen == gen {
			c.lru.Add(catalogKey, entries)
		}
		c.mu.Unlock()
		return entries, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]registry.CatalogEntry), nil
	}
}

func (c *catalogCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	if c.lru != nil {
		c.lru.Purge()
	}
}
