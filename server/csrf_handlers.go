package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// CSRFGenerateHandler issues a fresh single-use anti-forgery token scoped to
// the authenticated caller. The dashboard fetches one before every mutating
// call.
func (s *Server) CSRFGenerateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.config.IdentityConfigured() {
			writeError(w, http.StatusServiceUnavailable, "Service not configured")
			return
		}

		user, ok := userFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		token, err := s.deps.CSRF.Issue(r.Context(), user.ID)
		if err != nil {
			log.Err(err).Msg("[CSRFGenerateHandler] token issuance failed")
			writeError(w, http.StatusServiceUnavailable, "Service unavailable")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"csrfToken": token,
			"user":      user,
		})
	}
}
