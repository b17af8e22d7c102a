package api

import (
	"net/http"

	"github.com/Shadcn-Component-Manager/web/internal/errors"
)

// AllowOrigin reports whether r may use the API. Requests without an Origin
// header (server-side callers) are allowed.
func (s *Server) AllowOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	_, ok := s.origins[origin]
	return ok
}

func (s *Server) originGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.AllowOrigin(r) {
			s.logger.Warn("rejected request origin", "origin", r.Header.Get("Origin"), "path", r.URL.Path)
			s.writeError(w, r, errors.New("E104"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
