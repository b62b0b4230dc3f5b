package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Session Routes - Login & Refresh
	RouteAuthLogin         = "/auth/login"
	RouteAuthRefresh       = "/auth/refresh"
	RouteAuthRefreshLogout = "/auth/refresh/logout" // Inside the refresh cookie's path

	// Session Routes - Revocation
	RouteAuthLogoutAll    = "/auth/logout-all"
	RouteAuthLogoutDevice = "/auth/logout-device"
	RouteAuthSessions     = "/auth/sessions"

	// API Routes
	RouteAPIMe        = "/api/me"
	RouteAPIAdminPing = "/api/admin/ping"

	// Well-known Routes
	RouteWellKnownJWKS = "/.well-known/jwks.json"

	RouteHealthz = "/healthz"
)
