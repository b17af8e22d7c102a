package registry

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRemoteNotFound is returned by a RepositoryClient when a path, branch
	// or tree does not exist.
	ErrRemoteNotFound = errors.New("registry: remote object not found")
	// ErrNotAFile is returned when a content path resolves to a directory.
	ErrNotAFile = errors.New("registry: path is not a file")
	// ErrNoComponentData is returned when registry.json matches none of the
	// known shapes.
	ErrNoComponentData = errors.New("registry: no component data found")
	// ErrInvalidMetadata is returned when the selected component data fails
	// schema validation.
	ErrInvalidMetadata = errors.New("registry: invalid component metadata")
)

// RepositoryClient is the remote capability the registry reads from.
type RepositoryClient interface {
	// BranchHead returns the head commit SHA of a branch.
	BranchHead(ctx context.Context, owner, repo, branch string) (string, error)

	// Tree returns every entry of the tree at sha.
	Tree(ctx context.Context, owner, repo, sha string, recursive bool) ([]TreeEntry, error)

	// FileContent returns the content at path. For a directory, Entries is
	// set and Data is empty.
	FileContent(ctx context.Context, owner, repo, path, ref string) (*Content, error)
}

// TreeEntry is one entry of a repository tree.
type TreeEntry struct {
	Path string
	Type string // "blob", "tree" or "commit"
}

// Content is the raw result of a content lookup.
type Content struct {
	Encoding string // "base64" or "" for raw data
	Data     string
	Entries  []TreeEntry
}

// IsDir reports whether the content is a directory listing.
func (c *Content) IsDir() bool {
	return c.Entries != nil
}

// Decode returns the file bytes.
func (c *Content) Decode() ([]byte, error) {
	if c == nil || c.IsDir() {
		return nil, ErrNotAFile
	}
	switch c.Encoding {
	case "base64":
		// GitHub wraps base64 content at 60 columns.
		clean := strings.NewReplacer("\n", "", "\r", "").Replace(c.Data)
		b, err := base64.StdEncoding.DecodeString(clean)
		if err != nil {
			return nil, fmt.Errorf("decode base64 content: %w", err)
		}
		return b, nil
	case "":
		return []byte(c.Data), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", c.Encoding)
	}
}

// Repository is the owner/repo/branch coordinate of the component repository.
type Repository struct {
	Owner  string
	Repo   string
	Branch string
}

// DefaultRepository is the public community registry.
var DefaultRepository = Repository{
	Owner:  "Shadcn-Component-Manager",
	Repo:   "registry",
	Branch: "main",
}

func (r Repository) String() string {
	return r.Owner + "/" + r.Repo + "@" + r.Branch
}
