package server

import (
	"net/http"

	"github.com/clickmemory/go-snippet-server/snippets"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SnippetsListHandler returns the caller's snippets. With ?context_menu=true
// only the public subset comes back, which is what the extension's context
// menu shows.
func (s *Server) SnippetsListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var list []*snippets.Snippet
		var err error
		if r.URL.Query().Get("context_menu") == "true" {
			list, err = s.deps.Snippets.ListForContextMenu(r.Context(), userID)
		} else {
			list, err = s.deps.Snippets.List(r.Context(), userID)
		}
		if err != nil {
			log.Err(err).Msg("[SnippetsListHandler] list failed")
			writeError(w, http.StatusServiceUnavailable, "Service unavailable")
			return
		}
		if list == nil {
			list = []*snippets.Snippet{}
		}

		writeJSON(w, http.StatusOK, map[string]any{"snippets": list})
	}
}

// SnippetCreateHandler validates and stores a new snippet.
func (s *Server) SnippetCreateHandler() http.HandlerFunc {
	type request struct {
		Title      string `json:"title"`
		SystemRole string `json:"system_role"`
		Content    string `json:"content"`
		IsPublic   bool   `json:"is_public"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var req request
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		snippet, err := s.deps.Snippets.Create(r.Context(), userID, req.Title, req.SystemRole, req.Content, req.IsPublic)
		if err != nil {
			writeSnippetError(w, err, "[SnippetCreateHandler]")
			return
		}

		writeJSON(w, http.StatusCreated, snippet)
	}
}

// SnippetGetHandler returns one snippet the caller can read: their own, one
// shared with them, or a public one.
func (s *Server) SnippetGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		snippet, err := s.deps.Snippets.Get(r.Context(), userID, r.PathValue("id"))
		if err != nil {
			writeSnippetError(w, err, "[SnippetGetHandler]")
			return
		}

		writeJSON(w, http.StatusOK, snippet)
	}
}

// SnippetUpdateHandler applies a partial update. Absent fields keep their
// stored values.
func (s *Server) SnippetUpdateHandler() http.HandlerFunc {
	type request struct {
		Title      *string `json:"title"`
		SystemRole *string `json:"system_role"`
		Content    *string `json:"content"`
		IsPublic   *bool   `json:"is_public"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var req request
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		update := snippets.SnippetUpdate{
			Title:      req.Title,
			SystemRole: req.SystemRole,
			Content:    req.Content,
			IsPublic:   req.IsPublic,
		}

		snippet, err := s.deps.Snippets.Update(r.Context(), userID, r.PathValue("id"), update)
		if err != nil {
			writeSnippetError(w, err, "[SnippetUpdateHandler]")
			return
		}

		writeJSON(w, http.StatusOK, snippet)
	}
}

// SnippetDeleteHandler removes a snippet. Only the owner may delete; shares
// go with it.
func (s *Server) SnippetDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		if err := s.deps.Snippets.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
			writeSnippetError(w, err, "[SnippetDeleteHandler]")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

// writeSnippetError maps service errors onto status codes. Store failures
// log the cause and answer a generic 503.
func writeSnippetError(w http.ResponseWriter, err error, logContext string) {
	switch {
	case errors.Is(err, snippets.ValidationErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, snippets.SnippetNotFoundErr):
		writeError(w, http.StatusNotFound, "Snippet not found")
	case errors.Is(err, snippets.NotAuthorizedErr):
		writeError(w, http.StatusForbidden, "Not authorized")
	case errors.Is(err, snippets.ShareExistsErr):
		writeError(w, http.StatusConflict, "Snippet already shared with user")
	default:
		log.Err(err).Msg(logContext + " request failed")
		writeError(w, http.StatusServiceUnavailable, "Service unavailable")
	}
}
