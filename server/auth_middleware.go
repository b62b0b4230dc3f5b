package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-server/auth"
)

// Authenticate is the authentication gate. A valid bearer access token puts
// the caller's identity on the request context; anything else (no header,
// wrong scheme, bad signature, expired, a refresh token) leaves the request
// anonymous. It never rejects a request itself.
func (s *Server) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw, ok := bearerToken(r); ok {
			if identity, ok := s.sessions.Authenticate(raw); ok {
				r = r.WithContext(auth.WithIdentity(r.Context(), identity))
			}
		}
		next(w, r)
	}
}

// RequireAuth rejects anonymous requests with 401
func (s *Server) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFromContext(r.Context()); !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="`+s.config.GetAppName()+`"`)
			writeJSONError(w, "unauthorized", "a valid access token is required", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// RequireRole rejects anonymous requests with 401 and authenticated callers
// holding another role with 403
func (s *Server) RequireRole(role string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return s.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
			identity, _ := auth.IdentityFromContext(r.Context())
			if !identity.HasRole(role) {
				writeJSONError(w, "forbidden", "role "+role+" is required", http.StatusForbidden)
				return
			}
			next(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
