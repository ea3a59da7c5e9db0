package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	// CSRF issuance: bearer identity only
	s.RegisterRouteHandler("GET "+RouteCSRFGenerate, ChainMiddleware(s.CSRFGenerateHandler(), s.APIMiddleware(s.RequireAuth())...))

	// Key management: reads need identity, mutations need identity plus a
	// fresh CSRF token. Generation checks its rate limit before the token is
	// consumed, so a 429 does not burn the caller's token.
	s.RegisterRouteHandler("GET "+RouteKeys, ChainMiddleware(s.KeysListHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteKeyGenerate, ChainMiddleware(s.KeyGenerateHandler(), s.APIMiddleware(s.RequireAuth(), s.RateLimitMiddleware(s.keyGenRate), s.RequireCSRF())...))
	s.RegisterRouteHandler("DELETE "+RouteKeyByID, ChainMiddleware(s.KeyRevokeHandler(), s.APIMiddleware(s.RequireGuard())...))

	// Extension snippet API: authenticated by API key, never by CSRF
	s.RegisterRouteHandler("GET "+RouteSnippets, ChainMiddleware(s.SnippetsListHandler(), s.APIMiddleware(s.RequireAPIKey())...))
	s.RegisterRouteHandler("POST "+RouteSnippets, ChainMiddleware(s.SnippetCreateHandler(), s.APIMiddleware(s.RequireAPIKey())...))
	s.RegisterRouteHandler("GET "+RouteSnippetByID, ChainMiddleware(s.SnippetGetHandler(), s.APIMiddleware(s.RequireAPIKey())...))
	s.RegisterRouteHandler("PATCH "+RouteSnippetByID, ChainMiddleware(s.SnippetUpdateHandler(), s.APIMiddleware(s.RequireAPIKey())...))
	s.RegisterRouteHandler("DELETE "+RouteSnippetByID, ChainMiddleware(s.SnippetDeleteHandler(), s.APIMiddleware(s.RequireAPIKey())...))

	// Sharing is a dashboard mutation, so it runs under the full guard
	s.RegisterRouteHandler("POST "+RouteSnippetShare, ChainMiddleware(s.SnippetShareHandler(), s.APIMiddleware(s.RequireGuard())...))
	s.RegisterRouteHandler("POST "+RouteSnippetInvite, ChainMiddleware(s.SnippetInviteHandler(), s.APIMiddleware(s.RequireGuard())...))

	s.RegisterRouteHandler("GET "+RouteInvitationByID, ChainMiddleware(s.InvitationHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteInvitationAccept, ChainMiddleware(s.InvitationAcceptHandler(), s.APIMiddleware(s.RequireGuard())...))
}
