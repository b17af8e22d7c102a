package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Shadcn-Component-Manager/web/internal/github"
	"github.com/Shadcn-Component-Manager/web/internal/registry"
	"github.com/Shadcn-Component-Manager/web/internal/session"
	"github.com/Shadcn-Component-Manager/web/pkg/middleware"
)

type stubRegistry struct {
	mu      sync.Mutex
	entries []registry.CatalogEntry
	details map[string]*registry.Detail
	err     error

	listCalls int
	getCalls  int

	// When set, List announces itself on listStarted, then waits for
	// listRelease or its context.
	listStarted chan struct{}
	listRelease chan struct{}
}

func (s *stubRegistry) List(ctx context.Context) ([]registry.CatalogEntry, error) {
	s.mu.Lock()
	s.listCalls++
	started, release := s.listStarted, s.listRelease
	s.mu.Unlock()

	if release != nil {
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

func (s *stubRegistry) Get(ctx context.Context, namespace, name, version string) (*registry.Detail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.err != nil {
		return nil, s.err
	}
	d, ok := s.details[namespace+"/"+name]
	if !ok {
		return nil, nil
	}
	out := *d
	if version != "" && version != d.Version {
		out.RequestedVersion = version
		out.Fallback = true
	}
	return &out, nil
}

func (s *stubRegistry) ByAuthor(ctx context.Context, author string) ([]registry.CatalogEntry, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []registry.CatalogEntry{}
	for _, e := range all {
		if e.Author == author {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubUsers map[string]*github.User

func (s stubUsers) User(ctx context.Context, login string) (*github.User, error) {
	u, ok := s[login]
	if !ok {
		return nil, registry.ErrRemoteNotFound
	}
	return u, nil
}

func entry(author, name, version, desc string, cats ...string) registry.CatalogEntry {
	return registry.CatalogEntry{
		Item: registry.Item{
			Name:        name,
			Type:        "registry:component",
			Title:       strings.ToUpper(name[:1]) + name[1:],
			Description: desc,
			Categories:  cats,
		},
		Slug:    name,
		Version: version,
		Author:  author,
	}
}

func newStub() *stubRegistry {
	button := entry("alice", "button", "1.0.0", "A button", "ui")
	return &stubRegistry{
		entries: []registry.CatalogEntry{
			button,
			entry("alice", "card", "2.1.0", ""),
			entry("bob", "dialog", "0.3.0", "Modal dialog", "overlay"),
		},
		details: map[string]*registry.Detail{
			"alice/button": {
				CatalogEntry: button,
				AllVersions:  []string{"1.0.0", "0.9.0"},
				Files: []registry.DetailFile{{
					File:    registry.File{Path: "button.tsx", Type: "registry:component"},
					Content: "export const Button = () => null",
				}},
			},
		},
	}
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(reg Registry, mod func(*Config)) *Server {
	cfg := Config{
		Registry:  reg,
		Users:     stubUsers{"alice": {Login: "alice", ID: 7, Name: "Alice"}},
		Origins:   []string{"https://scm.example.com"},
		CacheTTL:  5 * time.Minute,
		CacheSize: 16,
		Logger:    quiet(),
		Now:       func() time.Time { return fixedNow },
		Sessions: session.NewCookieProvider(
			session.WithLogger(quiet()),
			session.WithClock(func() time.Time { return fixedNow }),
		),
	}
	if mod != nil {
		mod(&cfg)
	}
	return New(cfg)
}

func get(t *testing.T, h http.Handler, target string, mods ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, m := range mods {
		m(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func withOrigin(origin string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Origin", origin) }
}

func withSession(s session.Session) func(*http.Request) {
	return func(r *http.Request) {
		data, _ := json.Marshal(s)
		r.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: url.QueryEscape(string(data))})
	}
}

func validSession() session.Session {
	return session.Session{
		AccessToken: "gho_test",
		User:        &session.User{ID: 7, Login: "alice", AvatarURL: "https://avatars.example.com/7"},
		ExpiresAt:   fixedNow.Add(time.Hour).UnixMilli(),
		CreatedAt:   fixedNow.Add(-time.Hour).UnixMilli(),
	}
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(newStub(), nil), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"status":"healthy"}` {
		t.Errorf("body = %s", got)
	}
}

func TestComponents(t *testing.T) {
	rec := get(t, newTestServer(newStub(), nil), "/api/components")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, s-maxage=300, stale-while-revalidate=60" {
		t.Errorf("Cache-Control = %q", got)
	}

	var body struct {
		Components  []registry.CatalogEntry `json:"components"`
		Count       int                     `json:"count"`
		Revalidated string                  `json:"revalidated"`
	}
	decode(t, rec, &body)
	if body.Count != 3 || len(body.Components) != 3 {
		t.Errorf("count = %d, components = %d", body.Count, len(body.Components))
	}
	if body.Revalidated != "2026-03-01T12:00:00Z" {
		t.Errorf("revalidated = %q", body.Revalidated)
	}
}

func TestComponentsFailure(t *testing.T) {
	reg := newStub()
	reg.err = fmt.Errorf("tree: boom")
	rec := get(t, newTestServer(reg, nil), "/api/components")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body errorBody
	decode(t, rec, &body)
	if body.Error != "Internal Server Error" || body.Message != "Failed to fetch components" {
		t.Errorf("body = %+v", body)
	}
	if rec.Header().Get("Cache-Control") != "" {
		t.Error("error responses must not be marked cacheable")
	}
}

func TestComponentDetail(t *testing.T) {
	srv := newTestServer(newStub(), nil)

	rec := get(t, srv, "/api/components/alice/button")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if rec.Header().Get(FallbackHeader) != "" {
		t.Errorf("unexpected fallback header")
	}
	var body struct {
		Component   registry.Detail `json:"component"`
		Revalidated string          `json:"revalidated"`
	}
	decode(t, rec, &body)
	if body.Component.Name != "button" || len(body.Component.Files) != 1 {
		t.Errorf("component = %+v", body.Component)
	}
	if body.Component.Files[0].Content == "" {
		t.Error("file content missing")
	}
}

func TestComponentFallbackHeader(t *testing.T) {
	srv := newTestServer(newStub(), nil)

	for i := 0; i < 2; i++ {
		rec := get(t, srv, "/api/components/alice/button?version=9.9.9")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if got := rec.Header().Get(FallbackHeader); got != "true" {
			t.Errorf("request %d: fallback header = %q", i, got)
		}
	}
}

func TestComponentNotFound(t *testing.T) {
	rec := get(t, newTestServer(newStub(), nil), "/api/components/alice/missing")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	var body errorBody
	decode(t, rec, &body)
	if body.Error != "Not Found" || body.Message != "Component not found" {
		t.Errorf("body = %+v", body)
	}
}

func TestComponentFailure(t *testing.T) {
	reg := newStub()
	reg.err = fmt.Errorf("boom")
	rec := get(t, newTestServer(reg, nil), "/api/components/alice/button")
	var body errorBody
	decode(t, rec, &body)
	if rec.Code != http.StatusInternalServerError || body.Message != "Failed to fetch component" {
		t.Errorf("status = %d, body = %+v", rec.Code, body)
	}
}

func TestResponseCache(t *testing.T) {
	reg := newStub()
	promReg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(middleware.WithRegistry(promReg))
	srv := newTestServer(reg, func(c *Config) { c.Metrics = metrics })

	first := get(t, srv, "/api/components/alice/button")
	second := get(t, srv, "/api/components/alice/button")
	if first.Body.String() != second.Body.String() {
		t.Error("cached body differs")
	}
	if reg.getCalls != 1 {
		t.Errorf("registry Get calls = %d, want 1", reg.getCalls)
	}

	get(t, srv, "/api/components/alice/button?version=0.9.0")
	if reg.getCalls != 2 {
		t.Errorf("query should be part of the cache key; Get calls = %d", reg.getCalls)
	}

	expected := `
# HELP scm_http_response_cache_total Response cache lookups by route and result
# TYPE scm_http_response_cache_total counter
scm_http_response_cache_total{result="hit",route="/api/components/{namespace}/{name}"} 1
scm_http_response_cache_total{result="miss",route="/api/components/{namespace}/{name}"} 2
`
	if err := testutil.GatherAndCompare(promReg, strings.NewReader(expected), "scm_http_response_cache_total"); err != nil {
		t.Error(err)
	}

	srv.Purge()
	get(t, srv, "/api/components/alice/button")
	if reg.getCalls != 3 {
		t.Errorf("after purge Get calls = %d, want 3", reg.getCalls)
	}
}

func TestResponseCacheSkipsErrors(t *testing.T) {
	reg := newStub()
	srv := newTestServer(reg, nil)

	get(t, srv, "/api/components/alice/missing")
	get(t, srv, "/api/components/alice/missing")
	if reg.getCalls != 2 {
		t.Errorf("Get calls = %d, want 2", reg.getCalls)
	}
}

func TestResponseCacheDisabled(t *testing.T) {
	reg := newStub()
	srv := newTestServer(reg, func(c *Config) { c.CacheTTL = 0 })

	rec := get(t, srv, "/api/components")
	get(t, srv, "/api/components")
	if reg.listCalls != 2 {
		t.Errorf("List calls = %d, want 2", reg.listCalls)
	}
	if rec.Header().Get("Cache-Control") != "" {
		t.Error("Cache-Control set with caching disabled")
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(newStub(), nil)

	rec := get(t, srv, "/api/search?q=btn")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Results []struct {
			Component registry.CatalogEntry `json:"component"`
			Score     int                   `json:"score"`
		} `json:"results"`
		Count int    `json:"count"`
		Query string `json:"query"`
	}
	decode(t, rec, &body)
	if body.Query != "btn" || body.Count == 0 || body.Results[0].Component.Name != "button" {
		t.Errorf("body = %+v", body)
	}
}

func TestSearchValidation(t *testing.T) {
	srv := newTestServer(newStub(), nil)

	tests := []struct {
		target  string
		message string
	}{
		{"/api/search", "Search query is required"},
		{"/api/search?q=", "Search query is required"},
		{"/api/search?q=a&limit=0", "limit must be a positive integer"},
		{"/api/search?q=a&limit=x", "limit must be a positive integer"},
	}
	for _, tt := range tests {
		rec := get(t, srv, tt.target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", tt.target, rec.Code)
			continue
		}
		var body errorBody
		decode(t, rec, &body)
		if body.Error != "Bad Request" || body.Message != tt.message {
			t.Errorf("%s: body = %+v", tt.target, body)
		}
	}
}

func TestSearchLimit(t *testing.T) {
	rec := get(t, newTestServer(newStub(), nil), "/api/search?q=a&limit=1")
	var body struct {
		Count int `json:"count"`
	}
	decode(t, rec, &body)
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}
}

func TestSearchReusesCatalog(t *testing.T) {
	reg := newStub()
	srv := newTestServer(reg, nil)

	get(t, srv, "/api/search?q=button")
	get(t, srv, "/api/search?q=card")
	get(t, srv, "/api/components")
	if reg.listCalls != 1 {
		t.Errorf("List calls = %d, want 1", reg.listCalls)
	}
}

func TestProfile(t *testing.T) {
	srv := newTestServer(newStub(), nil)

	rec := get(t, srv, "/api/profile/alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		User       *github.User            `json:"user"`
		Components []registry.CatalogEntry `json:"components"`
		Count      int                     `json:"count"`
	}
	decode(t, rec, &body)
	if body.User == nil || body.User.Login != "alice" {
		t.Errorf("user = %+v", body.User)
	}
	if body.Count != 2 {
		t.Errorf("count = %d, want 2", body.Count)
	}
}

func TestProfileWithoutGitHubUser(t *testing.T) {
	rec := get(t, newTestServer(newStub(), nil), "/api/profile/bob")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		User  *github.User `json:"user"`
		Count int          `json:"count"`
	}
	decode(t, rec, &body)
	if body.User != nil || body.Count != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestProfileNotFound(t *testing.T) {
	rec := get(t, newTestServer(newStub(), nil), "/api/profile/nobody")
	var body errorBody
	decode(t, rec, &body)
	if rec.Code != http.StatusNotFound || body.Message != "User not found" {
		t.Errorf("status = %d, body = %+v", rec.Code, body)
	}
}

func TestUser(t *testing.T) {
	srv := newTestServer(newStub(), nil)

	rec := get(t, srv, "/api/user")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", rec.Code)
	}
	var errBody errorBody
	decode(t, rec, &errBody)
	if errBody.Error != "Unauthorized" || errBody.Message != "No valid session found" {
		t.Errorf("body = %+v", errBody)
	}

	sess := validSession()
	rec = get(t, srv, "/api/user", withSession(sess))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		User    session.User `json:"user"`
		Session struct {
			ExpiresAt int64 `json:"expiresAt"`
			CreatedAt int64 `json:"createdAt"`
		} `json:"session"`
	}
	decode(t, rec, &body)
	if body.User.Login != "alice" || body.Session.ExpiresAt != sess.ExpiresAt {
		t.Errorf("body = %+v", body)
	}
	if strings.Contains(rec.Body.String(), "gho_test") {
		t.Error("access token leaked into response")
	}
}

func TestUserExpiredSessionClearsCookie(t *testing.T) {
	sess := validSession()
	sess.ExpiresAt = fixedNow.Add(-time.Minute).UnixMilli()

	rec := get(t, newTestServer(newStub(), nil), "/api/user", withSession(sess))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Errorf("Set-Cookie = %q", rec.Header().Get("Set-Cookie"))
	}
}

func TestUserComponents(t *testing.T) {
	srv := newTestServer(newStub(), nil)

	if rec := get(t, srv, "/api/user/components"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", rec.Code)
	}

	rec := get(t, srv, "/api/user/components", withSession(validSession()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Components []userComponent `json:"components"`
		Count      int             `json:"count"`
	}
	decode(t, rec, &body)
	if body.Count != 2 {
		t.Fatalf("count = %d, want 2", body.Count)
	}

	byName := map[string]userComponent{}
	for _, c := range body.Components {
		byName[c.Name] = c
	}
	card := byName["card"]
	if card.Description != "No description available" || card.Categories == nil || card.LastUpdated != "2.1.0" {
		t.Errorf("card = %+v", card)
	}
	if byName["button"].Description != "A button" {
		t.Errorf("button = %+v", byName["button"])
	}
}

func TestUserComponentsUseDirectoryName(t *testing.T) {
	reg := newStub()
	tabs := entry("alice", "Fancy Tabs", "1.2.0", "Tabs")
	tabs.Slug = "tabs"
	reg.entries = append(reg.entries, tabs)

	rec := get(t, newTestServer(reg, nil), "/api/user/components", withSession(validSession()))
	var body struct {
		Components []userComponent `json:"components"`
	}
	decode(t, rec, &body)

	var names []string
	for _, c := range body.Components {
		names = append(names, c.Name)
	}
	want := []string{"button", "card", "tabs"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestOriginGuard(t *testing.T) {
	srv := newTestServer(newStub(), nil)

	rec := get(t, srv, "/api/components", withOrigin("https://evil.example.com"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	var body errorBody
	decode(t, rec, &body)
	if body.Error != "Forbidden" || body.Message != "Invalid origin" {
		t.Errorf("body = %+v", body)
	}

	if rec := get(t, srv, "/api/components", withOrigin("https://scm.example.com")); rec.Code != http.StatusOK {
		t.Errorf("allowed origin status = %d", rec.Code)
	}
	if rec := get(t, srv, "/api/components"); rec.Code != http.StatusOK {
		t.Errorf("no origin status = %d", rec.Code)
	}
	if rec := get(t, srv, "/healthz", withOrigin("https://evil.example.com")); rec.Code != http.StatusOK {
		t.Errorf("healthz is outside the guard, status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(middleware.WithRegistry(reg))
	srv := newTestServer(newStub(), func(c *Config) {
		c.Metrics = metrics
		c.Gatherer = reg
	})

	get(t, srv, "/api/components")
	rec := get(t, srv, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "scm_http_requests_total") {
		t.Errorf("exposition missing request counter:\n%s", rec.Body)
	}
}

func TestLiveRoute(t *testing.T) {
	var hits int
	live := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusSwitchingProtocols)
	})
	srv := newTestServer(newStub(), func(c *Config) { c.Live = live })

	get(t, srv, "/api/live")
	if hits != 1 {
		t.Errorf("live handler hits = %d", hits)
	}
	if rec := get(t, srv, "/api/live", withOrigin("https://evil.example.com")); rec.Code != http.StatusForbidden {
		t.Errorf("live bypassed origin guard, status = %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	rec := get(t, newTestServer(newStub(), nil), "/api/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCatalogSurvivesCancelledCaller(t *testing.T) {
	reg := newStub()
	reg.listStarted = make(chan struct{}, 1)
	reg.listRelease = make(chan struct{})
	srv := newTestServer(reg, nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := srv.catalog.list(ctxA)
		errA <- err
	}()
	<-reg.listStarted

	type result struct {
		entries []registry.CatalogEntry
		err     error
	}
	resB := make(chan result, 1)
	go func() {
		entries, err := srv.catalog.list(context.Background())
		resB <- result{entries, err}
	}()

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller err = %v", err)
	}

	close(reg.listRelease)
	got := <-resB
	if got.err != nil {
		t.Fatalf("waiting caller err = %v", got.err)
	}
	if len(got.entries) != 3 {
		t.Errorf("entries = %d, want 3", len(got.entries))
	}
	if reg.listCalls != 1 {
		t.Errorf("List calls = %d, want 1", reg.listCalls)
	}
}

func TestPurgeDiscardsCatalogLoadInFlight(t *testing.T) {
	reg := newStub()
	reg.listStarted = make(chan struct{}, 2)
	reg.listRelease = make(chan struct{})
	srv := newTestServer(reg, nil)

	done := make(chan error, 1)
	go func() {
		_, err := srv.catalog.list(context.Background())
		done <- err
	}()
	<-reg.listStarted

	srv.Purge()
	close(reg.listRelease)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if _, err := srv.catalog.list(context.Background()); err != nil {
		t.Fatal(err)
	}
	if reg.listCalls != 2 {
		t.Errorf("List calls = %d, want 2 (purged load must not be cached)", reg.listCalls)
	}
}
