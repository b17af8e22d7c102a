// Package session decodes the signed-in user from the session cookie set by
// the web app's OAuth flow. Sessions are read here, never created.
package session

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultCookieName is the cookie holding the session JSON.
const DefaultCookieName = "scm_session"

// User is the GitHub account a session belongs to.
type User struct {
	ID        int64   `json:"id"`
	Login     string  `json:"login"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	AvatarURL string  `json:"avatar_url"`
}

// Session is a signed-in user. Times are Unix milliseconds.
type Session struct {
	AccessToken string `json:"accessToken"`
	User        *User  `json:"user"`
	ExpiresAt   int64  `json:"expiresAt"`
	CreatedAt   int64  `json:"createdAt"`
}

// Provider resolves the session of a request.
type Provider interface {
	// Lookup returns the request's session, or nil. Providers may clear an
	// unusable session through w.
	Lookup(w http.ResponseWriter, r *http.Request) *Session
}

// CookieProvider reads sessions from a cookie.
type CookieProvider struct {
	name   string
	now    func() time.Time
	logger *slog.Logger
}

// CookieOption configures a CookieProvider.
type CookieOption func(*CookieProvider)

// WithCookieName sets the cookie name.
func WithCookieName(name string) CookieOption {
	return func(p *CookieProvider) {
		if name != "" {
			p.name = name
		}
	}
}

// WithClock sets the clock used for expiry checks.
func WithClock(now func() time.Time) CookieOption {
	return func(p *CookieProvider) {
		p.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CookieOption {
	return func(p *CookieProvider) {
		p.logger = logger
	}
}

// NewCookieProvider creates a CookieProvider.
func NewCookieProvider(opts ...CookieOption) *CookieProvider {
	p := &CookieProvider{
		name:   DefaultCookieName,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Lookup implements Provider. A malformed, incomplete or expired session
// yields nil and, when w is non-nil, an expiring cookie.
func (p *CookieProvider) Lookup(w http.ResponseWriter, r *http.Request) *Session {
	c, err := r.Cookie(p.name)
	if err != nil || c.Value == "" {
		return nil
	}

	s, err := Decode(c.Value)
	if err != nil {
		p.logger.Error("error parsing session", "error", err)
		p.clear(w)
		return nil
	}

	if s.AccessToken == "" || s.User == nil || s.ExpiresAt == 0 {
		p.logger.Warn("invalid session structure detected")
		p.clear(w)
		return nil
	}
	if p.now().UnixMilli() > s.ExpiresAt {
		p.logger.Info("session expired, clearing cookie")
		p.clear(w)
		return nil
	}
	if s.User.ID == 0 || s.User.Login == "" {
		p.logger.Warn("invalid user data in session")
		p.clear(w)
		return nil
	}
	return s
}

func (p *CookieProvider) clear(w http.ResponseWriter) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:   p.name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// Decode parses a cookie value. URL-encoded values are accepted.
func Decode(value string) (*Session, error) {
	if !strings.HasPrefix(value, "{") {
		if unescaped, err := url.QueryUnescape(value); err == nil {
			value = unescaped
		}
	}
	var s Session
	if err := json.Unmarshal([]byte(value), &s); err != nil {
		return nil, err
	}
	return &s, nil
}
