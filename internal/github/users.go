package github

import (
	"context"
	"fmt"
	"time"

	"github.com/Shadcn-Component-Manager/web/internal/registry"
)

// User is the public GitHub profile shown next to a publisher's components.
type User struct {
	Login       string    `json:"login"`
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatar_url"`
	Bio         string    `json:"bio,omitempty"`
	PublicRepos int       `json:"public_repos"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	CreatedAt   time.Time `json:"created_at"`
}

// User looks up a GitHub account by login.
func (c *Client) User(ctx context.Context, login string) (*User, error) {
	// An empty login would return the authenticated user.
	if login == "" {
		return nil, fmt.Errorf("%w: empty login", registry.ErrRemoteNotFound)
	}
	u, _, err := c.gh.Users.Get(ctx, login)
	if err != nil {
		return nil, translate(err)
	}
	return &User{
		Login:       u.GetLogin(),
		ID:          u.GetID(),
		Name:        u.GetName(),
		AvatarURL:   u.GetAvatarURL(),
		Bio:         u.GetBio(),
		PublicRepos: u.GetPublicRepos(),
		Followers:   u.GetFollowers(),
		Following:   u.GetFollowing(),
		CreatedAt:   u.GetCreatedAt().Time,
	}, nil
}
