package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-session-server/auth"
	autherrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/token/refresh"
	"github.com/rs/zerolog/log"
)

const maxRequestBodyBytes = 1 << 16

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

type logoutDeviceRequest struct {
	DeviceID string `json:"device_id"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type revokedResponse struct {
	Revoked int `json:"revoked"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type identityResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, "invalid_request", "request body must be valid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

// writeTokenPair sends the access token in the body and the refresh token as a cookie
func (s *Server) writeTokenPair(w http.ResponseWriter, pair *refresh.TokenPair) {
	s.setRefreshCookie(w, pair.RefreshToken)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: pair.AccessToken.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.sessions.AccessTokenTTL().Seconds()),
	})
}

// LoginHandler checks credentials and starts a new refresh chain
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			writeJSONError(w, "invalid_request", "email and password are required", http.StatusBadRequest)
			return
		}

		pair, err := s.sessions.Login(r.Context(), req.Email, req.Password, strings.TrimSpace(req.DeviceID))
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.writeTokenPair(w, pair)
	}
}

// RefreshHandler rotates the refresh token presented in the cookie. The token
// is only ever read from the cookie, never from the body or a header.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := refreshTokenFromCookie(r)
		if raw == "" {
			writeJSONError(w, "invalid_token", "refresh token cookie is missing", http.StatusUnauthorized)
			return
		}

		pair, err := s.sessions.Refresh(r.Context(), raw)
		if err != nil {
			if status, _ := errorStatus(err); status == http.StatusUnauthorized {
				s.clearRefreshCookie(w)
			}
			if autherrors.Is(err, autherrors.ErrReuseDetected) {
				log.Warn().Str("remote_addr", r.RemoteAddr).Str("user_agent", r.UserAgent()).Msg("Replayed refresh token rejected")
			}
			writeError(w, r, err)
			return
		}
		s.writeTokenPair(w, pair)
	}
}

// LogoutHandler revokes the chain of the refresh token in the cookie
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := refreshTokenFromCookie(r); raw != "" {
			if _, err := s.sessions.Logout(r.Context(), raw); err != nil {
				writeError(w, r, err)
				return
			}
		}
		s.clearRefreshCookie(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) LogoutAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.IdentityFromContext(r.Context())
		count, err := s.sessions.LogoutAll(r.Context(), identity.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.clearRefreshCookie(w)
		writeJSON(w, http.StatusOK, revokedResponse{Revoked: count})
	}
}

func (s *Server) LogoutDeviceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req logoutDeviceRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.DeviceID) == "" {
			writeJSONError(w, "invalid_request", "device_id is required", http.StatusBadRequest)
			return
		}

		identity, _ := auth.IdentityFromContext(r.Context())
		count, err := s.sessions.LogoutDevice(r.Context(), identity.UserID, strings.TrimSpace(req.DeviceID))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, revokedResponse{Revoked: count})
	}
}

// SessionsHandler lists the caller's usable refresh tokens. Hashes never leave the server.
func (s *Server) SessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.IdentityFromContext(r.Context())
		records, err := s.sessions.Sessions(r.Context(), identity.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		sessions := make([]sessionResponse, 0, len(records))
		for _, record := range records {
			sessions = append(sessions, sessionResponse{
				ID:        record.ID,
				DeviceID:  record.DeviceID,
				IssuedAt:  record.IssuedAt,
				ExpiresAt: record.ExpiresAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.IdentityFromContext(r.Context())
		writeJSON(w, http.StatusOK, identityResponse{
			UserID: identity.UserID,
			Role:   identity.Role,
			Email:  identity.Email,
			Name:   identity.Name,
		})
	}
}

func (s *Server) AdminPingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.IdentityFromContext(r.Context())
		writeJSON(w, http.StatusOK, map[string]string{"status": "pong", "user_id": identity.UserID})
	}
}

// JWKSHandler publishes the verification keys. HMAC deployments have none.
func (s *Server) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.sessions.JWKS()
		if err != nil {
			writeJSONError(w, "not_found", "no public keys are published", http.StatusNotFound)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		writeJSON(w, http.StatusOK, jwks)
	}
}

func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			if err := check(ctx); err != nil {
				log.Warn().Err(err).Str("check", name).Msg("Health check failed")
				checks[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		body := map[string]any{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(checks) > 0 {
			body["checks"] = checks
		}
		writeJSON(w, status, body)
	}
}
