package api

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Shadcn-Component-Manager/web/internal/errors"
	"github.com/Shadcn-Component-Manager/web/internal/github"
	"github.com/Shadcn-Component-Manager/web/internal/registry"
	"github.com/Shadcn-Component-Manager/web/internal/search"
	"github.com/Shadcn-Component-Manager/web/internal/session"
)

// FallbackHeader is set when a requested component version did not exist
// and the latest version was served instead.
const FallbackHeader = "X-Component-Version-Fallback"

const noDescription = "No description available"

type componentsResponse struct {
	Components  []registry.CatalogEntry `json:"components"`
	Count       int                     `json:"count"`
	Revalidated string                  `json:"revalidated"`
}

type componentResponse struct {
	Component   *registry.Detail `json:"component"`
	Revalidated string           `json:"revalidated"`
}

type searchResponse struct {
	Results []search.Result `json:"results"`
	Count   int             `json:"count"`
	Query   string          `json:"query"`
}

type profileResponse struct {
	User        *github.User            `json:"user"`
	Components  []registry.CatalogEntry `json:"components"`
	Count       int                     `json:"count"`
	Revalidated string                  `json:"revalidated"`
}

type sessionInfo struct {
	ExpiresAt int64 `json:"expiresAt"`
	CreatedAt int64 `json:"createdAt"`
}

type userResponse struct {
	User    *session.User `json:"user"`
	Session sessionInfo   `json:"session"`
}

type userComponent struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	LastUpdated string   `json:"lastUpdated"`
}

type userComponentsResponse struct {
	Components []userComponent `json:"components"`
	Count      int             `json:"count"`
}

func (s *Server) revalidated() string {
	return s.now().UTC().Format(time.RFC3339)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleComponents(w http.ResponseWriter, r *http.Request) (*response, error) {
	entries, err := s.catalog.list(r.Context())
	if err != nil {
		return nil, errors.New("E100").Wrap(err)
	}
	return ok(componentsResponse{
		Components:  entries,
		Count:       len(entries),
		Revalidated: s.revalidated(),
	}), nil
}

func (s *Server) handleComponent(w http.ResponseWriter, r *http.Request) (*response, error) {
	namespace := chi.URLParam(r, "namespace")
	name := chi.URLParam(r, "name")
	version := r.URL.Query().Get("version")

	detail, err := s.cfg.Registry.Get(r.Context(), namespace, name, version)
	if err != nil {
		return nil, errors.New("E100").WithMessage("Failed to fetch component").Wrap(err)
	}
	if detail == nil {
		return nil, errors.New("E101")
	}

	resp := ok(componentResponse{Component: detail, Revalidated: s.revalidated()})
	if detail.Fallback {
		resp.header = http.Header{FallbackHeader: []string{"true"}}
	}
	return resp, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) (*response, error) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		return nil, errors.New("E105").WithMessage("Search query is required")
	}

	limit := search.DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, errors.New("E105").WithMessage("limit must be a positive integer")
		}
		limit = n
	}

	entries, err := s.catalog.list(r.Context())
	if err != nil {
		return nil, errors.New("E100").Wrap(err)
	}
	results := search.Search(entries, query, limit)
	return ok(searchResponse{Results: results, Count: len(results), Query: query}), nil
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) (*response, error) {
	username := chi.URLParam(r, "username")

	entries, err := s.cfg.Registry.ByAuthor(r.Context(), username)
	if err != nil {
		return nil, errors.New("E100").WithMessage("Failed to fetch profile").Wrap(err)
	}

	var user *github.User
	if s.cfg.Users != nil {
		user, err = s.cfg.Users.User(r.Context(), username)
		switch {
		case err == nil:
		case stderrors.Is(err, registry.ErrRemoteNotFound):
			s.logger.Debug("GitHub user not found", "username", username)
			user = nil
		default:
			s.logger.Error("failed to fetch GitHub user", "username", username, "error", err)
			user = nil
		}
	}
	if user == nil && len(entries) == 0 {
		return nil, errors.New("E102")
	}

	return ok(profileResponse{
		User:        user,
		Components:  entries,
		Count:       len(entries),
		Revalidated: s.revalidated(),
	}), nil
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) (*response, error) {
	sess := s.cfg.Sessions.Lookup(w, r)
	if sess == nil {
		return nil, errors.New("E103")
	}
	return ok(userResponse{
		User:    sess.User,
		Session: sessionInfo{ExpiresAt: sess.ExpiresAt, CreatedAt: sess.CreatedAt},
	}), nil
}

func (s *Server) handleUserComponents(w http.ResponseWriter, r *http.Request) (*response, error) {
	sess := s.cfg.Sessions.Lookup(w, r)
	if sess == nil {
		return nil, errors.New("E103")
	}

	entries, err := s.cfg.Registry.ByAuthor(r.Context(), sess.User.Login)
	if err != nil {
		return nil, errors.New("E100").WithMessage("Failed to fetch user components").Wrap(err)
	}

	out := make([]userComponent, 0, len(entries))
	for _, e := range entries {
		// Listed by directory name, like the publisher's repository layout.
		name := e.Slug
		if name == "" {
			name = e.Name
		}
		desc := e.Description
		if desc == "" {
			desc = noDescription
		}
		cats := e.Categories
		if cats == nil {
			cats = []string{}
		}
		out = append(out, userComponent{
			Name:        name,
			Version:     e.Version,
			Description: desc,
			Categories:  cats,
			LastUpdated: e.Version,
		})
	}
	return ok(userComponentsResponse{Components: out, Count: len(out)}), nil
}
