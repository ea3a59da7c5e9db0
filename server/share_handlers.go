package server

import (
	"net/http"

	"github.com/clickmemory/go-snippet-server/snippets"
)

// SnippetShareHandler grants another user access to one of the caller's
// snippets.
func (s *Server) SnippetShareHandler() http.HandlerFunc {
	type request struct {
		UserID     string              `json:"user_id"`
		Permission snippets.Permission `json:"permission"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var req request
		if err := decodeJSON(r, &req); err != nil || req.UserID == "" {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !req.Permission.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid permission")
			return
		}

		share, err := s.deps.Snippets.Share(r.Context(), userID, r.PathValue("id"), req.UserID, req.Permission)
		if err != nil {
			writeSnippetError(w, err, "[SnippetShareHandler]")
			return
		}

		writeJSON(w, http.StatusCreated, share)
	}
}

// SnippetInviteHandler records a pending share for an email address that has
// no account yet.
func (s *Server) SnippetInviteHandler() http.HandlerFunc {
	type request struct {
		Email      string              `json:"email"`
		Permission snippets.Permission `json:"permission"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var req request
		if err := decodeJSON(r, &req); err != nil || req.Email == "" {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !req.Permission.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid permission")
			return
		}

		pending, err := s.deps.Snippets.Invite(r.Context(), userID, r.PathValue("id"), req.Email, req.Permission)
		if err != nil {
			writeSnippetError(w, err, "[SnippetInviteHandler]")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"id":         pending.ID,
			"email":      pending.Email,
			"permission": pending.Permission,
			"expires_at": pending.ExpiresAt,
		})
	}
}
