package server

import (
	"context"
	"net/http"
	"time"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler reports service readiness: whether identity verification is
// configured and whether the backing store answers a ping.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status":             "ok",
			"identityConfigured": s.config.IdentityConfigured(),
		}

		if s.deps.Store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
			defer cancel()
			if err := s.deps.Store.Ping(ctx); err != nil {
				body["status"] = "degraded"
				body["store"] = "unreachable"
				writeJSON(w, http.StatusServiceUnavailable, body)
				return
			}
			body["store"] = "ok"
		}

		writeJSON(w, http.StatusOK, body)
	}
}
