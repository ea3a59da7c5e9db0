package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Health
	RouteHealth = "/api/health"

	// CSRF token issuance for the dashboard
	RouteCSRFGenerate = "/api/csrf/generate"

	// API key management (dashboard)
	RouteKeys        = "/api/keys"
	RouteKeyGenerate = "/api/keys/generate"
	RouteKeyByID     = "/api/keys/{id}"

	// Snippet API (browser extension)
	RouteSnippets    = "/api/snippets"
	RouteSnippetByID = "/api/snippets/{id}"

	// Sharing (dashboard)
	RouteSnippetShare  = "/api/snippets/{id}/share"
	RouteSnippetInvite = "/api/snippets/{id}/invite"

	// Share invitations
	RouteInvitationByID   = "/api/invitation/{id}"
	RouteInvitationAccept = "/api/invitation/{id}/accept"
)
