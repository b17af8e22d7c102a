package registry

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// fakeClient is an in-memory RepositoryClient.
type fakeClient struct {
	mu        sync.Mutex
	sha       string
	entries   []TreeEntry
	files     map[string]string
	failFiles map[string]bool
	headErr   error
	treeErr   error
	delay     time.Duration

	// When set, BranchHead and Tree announce themselves on the started
	// channel, then wait for release or their context.
	headStarted chan struct{}
	headRelease chan struct{}
	treeStarted chan struct{}
	treeRelease chan struct{}

	headCalls   int
	treeCalls   int
	fileCalls   int
	inflight    int
	maxInflight int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		sha:       "sha-1",
		files:     make(map[string]string),
		failFiles: make(map[string]bool),
	}
}

func (f *fakeClient) addFile(path, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, TreeEntry{Path: path, Type: "blob"})
	f.files[path] = content
}

// addComponent publishes a version with a flat registry.json declaring files.
func (f *fakeClient) addComponent(ns, name, version string, files map[string]string) {
	dir := fmt.Sprintf("components/%s/%s/%s", ns, name, version)
	decl := ""
	for p := range files {
		if decl != "" {
			decl += ","
		}
		decl += fmt.Sprintf(`{"path":%q,"type":"registry:ui"}`, p)
		f.addFile(dir+"/"+p, files[p])
	}
	f.addFile(dir+"/registry.json", fmt.Sprintf(
		`{"name":%q,"type":"registry:ui","title":"%s title","description":"%s %s","files":[%s]}`,
		name, name, name, version, decl))
}

// wait blocks on release, honouring ctx. A nil release returns at once.
func wait(ctx context.Context, started, release chan struct{}) error {
	if release == nil {
		return nil
	}
	if started != nil {
		started <- struct{}{}
	}
	select {
	case <-release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeClient) BranchHead(ctx context.Context, owner, repo, branch string) (string, error) {
	f.mu.Lock()
	f.headCalls++
	started, release := f.headStarted, f.headRelease
	f.mu.Unlock()

	if err := wait(ctx, started, release); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headErr != nil {
		return "", f.headErr
	}
	return f.sha, nil
}

func (f *fakeClient) Tree(ctx context.Context, owner, repo, sha string, recursive bool) ([]TreeEntry, error) {
	f.mu.Lock()
	f.treeCalls++
	started, release := f.treeStarted, f.treeRelease
	f.mu.Unlock()

	if err := wait(ctx, started, release); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.treeErr != nil {
		return nil, f.treeErr
	}
	out := make([]TreeEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

func (f *fakeClient) FileContent(ctx context.Context, owner, repo, path, ref string) (*Content, error) {
	f.mu.Lock()
	f.fileCalls++
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight--

	if f.failFiles[path] {
		return nil, errors.New("boom")
	}
	data, ok := f.files[path]
	if !ok {
		return nil, ErrRemoteNotFound
	}
	return &Content{
		Encoding: "base64",
		Data:     base64.StdEncoding.EncodeToString([]byte(data)),
	}, nil
}

func (f *fakeClient) calls() (head, tree, file int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headCalls, f.treeCalls, f.fileCalls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(client RepositoryClient, opts ...Option) *Registry {
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	return New(client, opts...)
}
