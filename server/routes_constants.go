package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Login flow (primary provider)
	RouteLogin         = "/login"
	RouteLoginCallback = "/login/callback"

	// Link flow (secondary provider)
	RouteLinkPage     = "/link/{token}"
	RouteLinkCallback = "/link/callback"

	// API routes
	RouteAPILink       = "/api/link"
	RouteAPIUnlink     = "/api/unlink"
	RouteAPIUnlinkChat = "/api/unlink/chat"

	// Session
	RouteLogout = "/logout"
)
