package server

import (
	"net/http"

	"github.com/clickmemory/go-snippet-server/apikeys"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultKeyName labels keys generated without an explicit name.
const DefaultKeyName = "Chrome Extension"

// KeysListHandler returns the caller's key metadata. Raw key values are only
// ever returned once, by KeyGenerateHandler.
func (s *Server) KeysListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		keys, err := s.deps.Keys.List(r.Context(), userID)
		if err != nil {
			log.Err(err).Msg("[KeysListHandler] list failed")
			writeError(w, http.StatusServiceUnavailable, "Service unavailable")
			return
		}
		if keys == nil {
			keys = []*apikeys.APIKey{}
		}

		writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
	}
}

// KeyGenerateHandler mints a new extension key and returns the raw value.
// Guarded: the route requires a verified identity plus a fresh CSRF token.
func (s *Server) KeyGenerateHandler() http.HandlerFunc {
	type request struct {
		Name string `json:"name"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var req request
		if r.Body != nil && r.ContentLength != 0 {
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
		}
		if req.Name == "" {
			req.Name = DefaultKeyName
		}

		key, err := s.deps.Keys.Generate(r.Context(), userID, req.Name)
		if err != nil {
			if errors.Is(err, apikeys.InvalidKeyNameErr) {
				writeError(w, http.StatusBadRequest, "Invalid key name")
				return
			}
			log.Err(err).Msg("[KeyGenerateHandler] generation failed")
			writeError(w, http.StatusServiceUnavailable, "Service unavailable")
			return
		}

		// The only response that ever carries the raw key.
		writeJSON(w, http.StatusOK, map[string]any{
			"apiKey": key.Key,
			"id":     key.ID,
			"name":   key.Name,
		})
	}
}

// KeyRevokeHandler deletes a key owned by the caller.
func (s *Server) KeyRevokeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		keyID := r.PathValue("id")
		if keyID == "" {
			writeError(w, http.StatusBadRequest, "Key id required")
			return
		}

		if err := s.deps.Keys.Revoke(r.Context(), userID, keyID); err != nil {
			if errors.Is(err, apikeys.KeyNotFoundErr) {
				writeError(w, http.StatusNotFound, "Key not found")
				return
			}
			log.Err(err).Msg("[KeyRevokeHandler] revoke failed")
			writeError(w, http.StatusServiceUnavailable, "Service unavailable")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	}
}
