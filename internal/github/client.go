// Package github implements the registry's remote repository client on top
// of the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v66/github"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Shadcn-Component-Manager/web/internal/registry"
)

// DefaultTimeout bounds a single GitHub request.
const DefaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	// Token is an optional personal access token. Unauthenticated requests
	// are subject to much lower rate limits.
	Token string

	// BaseURL overrides the API root (GitHub Enterprise or tests).
	BaseURL string

	// Timeout bounds each request. Default: DefaultTimeout.
	Timeout time.Duration

	// Transport is the base round tripper. Default: http.DefaultTransport.
	Transport http.RoundTripper
}

// Client is a registry.RepositoryClient backed by GitHub.
type Client struct {
	gh *gogithub.Client
}

var _ registry.RepositoryClient = (*Client)(nil)

// New creates a Client.
func New(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	hc := &http.Client{
		Timeout: opts.Timeout,
		Transport: otelhttp.NewTransport(base,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "github " + r.Method
			}),
		),
	}

	gh := gogithub.NewClient(hc)
	if opts.Token != "" {
		gh = gh.WithAuthToken(opts.Token)
	}
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url %q: %w", opts.BaseURL, err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		gh.BaseURL = u
	}

	return &Client{gh: gh}, nil
}

// BranchHead returns the head commit SHA of branch.
func (c *Client) BranchHead(ctx context.Context, owner, repo, branch string) (string, error) {
	b, _, err := c.gh.Repositories.GetBranch(ctx, owner, repo, branch, 1)
	if err != nil {
		return "", translate(err)
	}
	sha := b.GetCommit().GetSHA()
	if sha == "" {
		return "", fmt.Errorf("branch %s of %s/%s has no head commit", branch, owner, repo)
	}
	return sha, nil
}

// Tree returns the entries of the tree at sha.
func (c *Client) Tree(ctx context.Context, owner, repo, sha string, recursive bool) ([]registry.TreeEntry, error) {
	t, _, err := c.gh.Git.GetTree(ctx, owner, repo, sha, recursive)
	if err != nil {
		return nil, translate(err)
	}

	entries := make([]registry.TreeEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		entries = append(entries, registry.TreeEntry{
			Path: e.GetPath(),
			Type: e.GetType(),
		})
	}
	return entries, nil
}

// FileContent returns the content at path on ref.
func (c *Client) FileContent(ctx context.Context, owner, repo, path, ref string) (*registry.Content, error) {
	var opts *gogithub.RepositoryContentGetOptions
	if ref != "" {
		opts = &gogithub.RepositoryContentGetOptions{Ref: ref}
	}

	file, dir, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, translate(err)
	}

	if file == nil {
		entries := make([]registry.TreeEntry, 0, len(dir))
		for _, d := range dir {
			typ := d.GetType()
			if typ == "dir" {
				typ = "tree"
			} else if typ == "file" {
				typ = "blob"
			}
			entries = append(entries, registry.TreeEntry{Path: d.GetPath(), Type: typ})
		}
		return &registry.Content{Entries: entries}, nil
	}

	var data string
	if file.Content != nil {
		data = *file.Content
	}
	return &registry.Content{
		Encoding: file.GetEncoding(),
		Data:     data,
	}, nil
}

// translate maps GitHub 404 responses to registry.ErrRemoteNotFound.
func translate(err error) error {
	var er *gogithub.ErrorResponse
	if errors.As(err, &er) && er.Response != nil && er.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", registry.ErrRemoteNotFound, er.Message)
	}
	return err
}
