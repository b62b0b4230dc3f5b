package config

import (
	"net/http"
	"strings"
)

type CookieConfig interface {
	GetCookieSameSite() http.SameSite
	GetCookieSecure() bool
}

type Cookies struct{}

var _ CookieConfig = Cookies{}

// GetCookieSameSite returns None for cross-site SPA deployments (default) or Lax for same-site ones
func (Cookies) GetCookieSameSite() http.SameSite {
	switch strings.ToLower(GetEnv("COOKIE_SAMESITE", "none")) {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteNoneMode
	}
}

func (Cookies) GetCookieSecure() bool {
	return GetEnvBool("COOKIE_SECURE", true)
}
