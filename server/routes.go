package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET /{$}", s.IndexHandler())

	// LOGIN
	s.RegisterRouteFunc("GET "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteLoginCallback, ChainMiddleware(s.LoginCallbackHandler(), s.HTMLMiddleware()...))

	// LINK
	s.RegisterRouteFunc("GET "+RouteLinkPage, ChainMiddleware(s.LinkPageHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteLinkCallback, ChainMiddleware(s.LinkCallbackHandler(), s.HTMLMiddleware()...))

	// API routes (require a verified identity)
	s.RegisterRouteFunc("POST "+RouteAPILink, ChainMiddleware(s.APILinkHandler(), s.LoggingMiddleware, s.RecoverMiddleware, s.RequireIdentity()))
	s.RegisterRouteFunc("POST "+RouteAPIUnlink, ChainMiddleware(s.APIUnlinkHandler(), s.LoggingMiddleware, s.RecoverMiddleware, s.RequireIdentity()))
	s.RegisterRouteFunc("GET "+RouteAPIUnlinkChat, ChainMiddleware(s.APIUnlinkChatHandler(), s.LoggingMiddleware, s.RecoverMiddleware, s.RequireIdentity()))

	// LOGOUT (never fails, no auth precondition)
	s.RegisterRouteFunc("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.LoggingMiddleware, s.RecoverMiddleware))
	s.RegisterRouteFunc("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.LoggingMiddleware, s.RecoverMiddleware))
}

// HTMLMiddleware is the chain applied to server-rendered pages.
func (s *Server) HTMLMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.FrameSecurityMiddleware,
	}
}
