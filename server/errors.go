package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	autherrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"

	// Seconds a client should wait before retrying after a store outage
	retryAfterSeconds = 1
)

// errorMapping is the HTTP rendering of one error sentinel
type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order; the first sentinel found in the error chain wins
var errorMappings = []errorMapping{
	{autherrors.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
	{autherrors.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{autherrors.ErrAccountDisabled, http.StatusForbidden, "account_disabled"},
	{autherrors.ErrReuseDetected, http.StatusUnauthorized, "reuse_detected"},
	{autherrors.ErrRevokedToken, http.StatusUnauthorized, "revoked_token"},
	{autherrors.ErrExpiredRefreshToken, http.StatusUnauthorized, "expired_token"},
	{autherrors.ErrExpiredAccessToken, http.StatusUnauthorized, "expired_token"},
	{autherrors.ErrMalformedToken, http.StatusUnauthorized, "invalid_token"},
	{autherrors.ErrInvalidSignature, http.StatusUnauthorized, "invalid_token"},
	{autherrors.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{autherrors.ErrConcurrentRotation, http.StatusConflict, "concurrent_rotation"},
	{autherrors.ErrNotFound, http.StatusNotFound, "not_found"},
}

// errorStatus maps an error to its HTTP status and error code. Unknown errors are 500s.
func errorStatus(err error) (int, string) {
	for _, m := range errorMappings {
		if autherrors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "server_error"
}

// writeError renders err in the standard error format. Internal errors are
// logged and their text is not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)

	description := err.Error()
	switch {
	case status == http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Refresh store unavailable")
		description = "the session store is temporarily unavailable"
	case status == http.StatusInternalServerError:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		description = "internal server error"
	}

	writeJSONError(w, code, description, status)
}

// writeJSONError writes an error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
