package server

import (
	"net/http"

	"github.com/clickmemory/go-snippet-server/snippets"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// InvitationHandler looks up a pending share by snippet id and the invited
// email. Unknown invitations answer 404 and expired ones 410 so the web app
// can render the right page.
func (s *Server) InvitationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("email")
		if email == "" {
			writeError(w, http.StatusBadRequest, "Email is required")
			return
		}

		snippet, pending, err := s.deps.Snippets.Invitation(r.Context(), r.PathValue("id"), email)
		if err != nil {
			switch {
			case errors.Is(err, snippets.InvitationNotFoundErr):
				writeError(w, http.StatusNotFound, "Invitation not found")
			case errors.Is(err, snippets.InvitationExpiredErr):
				writeError(w, http.StatusGone, "Invitation expired")
			default:
				log.Err(err).Msg("[InvitationHandler] lookup failed")
				writeError(w, http.StatusServiceUnavailable, "Service unavailable")
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"snippet": map[string]any{
				"id":    snippet.ID,
				"title": snippet.Title,
			},
			"permission": pending.Permission,
			"expires_at": pending.ExpiresAt,
		})
	}
}

// InvitationAcceptHandler converts a pending share into a real share for the
// authenticated caller. The invitation must match the caller's email.
func (s *Server) InvitationAcceptHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if user.Email == "" {
			writeError(w, http.StatusBadRequest, "Email is required")
			return
		}

		share, err := s.deps.Snippets.AcceptInvitation(r.Context(), r.PathValue("id"), user.Email, user.ID)
		if err != nil {
			switch {
			case errors.Is(err, snippets.InvitationNotFoundErr):
				writeError(w, http.StatusNotFound, "Invitation not found")
			case errors.Is(err, snippets.InvitationExpiredErr):
				writeError(w, http.StatusGone, "Invitation expired")
			default:
				log.Err(err).Msg("[InvitationAcceptHandler] accept failed")
				writeError(w, http.StatusServiceUnavailable, "Service unavailable")
			}
			return
		}

		writeJSON(w, http.StatusOK, share)
	}
}
