package server

import (
	"context"
	"net/http"

	"github.com/clickmemory/go-snippet-server/apikeys"
	"github.com/clickmemory/go-snippet-server/auth"
	"github.com/clickmemory/go-snippet-server/identity"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUser stores the resolved identity for bearer-authenticated routes
	ContextKeyUser ContextKey = "user"
	// ContextKeyUserID stores the authenticated user ID
	ContextKeyUserID ContextKey = "user_id"
)

// userFromContext returns the identity RequireAuth or RequireGuard stored.
func userFromContext(ctx context.Context) (*identity.Identity, bool) {
	user, ok := ctx.Value(ContextKeyUser).(*identity.Identity)
	return user, ok
}

// userIDFromContext returns the user ID any of the auth middlewares stored.
func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyUserID).(string)
	return id, ok
}

// RequireAuth validates the Bearer credential and injects the resolved
// identity. Verification failures never reveal provider detail: missing or
// invalid credentials answer 401, provider timeouts answer 503.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, err := s.deps.Verifier.Verify(r)
			if err != nil {
				writeIdentityError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			ctx = context.WithValue(ctx, ContextKeyUserID, user.ID)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireGuard validates identity and then consumes the CSRF token, in that
// order. Mutating dashboard routes chain this so no handler runs before both
// checks pass.
func (s *Server) RequireGuard() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, err := s.guard.ValidateRequest(r)
			if err != nil {
				if errors.Is(err, auth.CsrfMissingErr) || errors.Is(err, auth.CsrfInvalidErr) {
					writeError(w, http.StatusForbidden, "Invalid CSRF token")
					return
				}
				writeIdentityError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			ctx = context.WithValue(ctx, ContextKeyUserID, user.ID)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireCSRF consumes the anti-forgery token for a caller whose identity an
// earlier middleware already verified. Chains that need a check between
// identity and token consumption (such as a rate limit) use
// RequireAuth + RequireCSRF in place of RequireGuard; the identity-first
// ordering is preserved because this middleware refuses to run without a
// user in context.
func (s *Server) RequireCSRF() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userID, ok := userIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			candidate := r.Header.Get(auth.CSRFHeader)
			if candidate == "" || !s.deps.CSRF.Validate(r.Context(), userID, candidate) {
				writeError(w, http.StatusForbidden, "Invalid CSRF token")
				return
			}

			next(w, r)
		}
	}
}

// RequireAPIKey authenticates extension requests by their sk_live_ key,
// passed in the Authorization header as a bearer credential.
func (s *Server) RequireAPIKey() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rawKey, err := identity.BearerCredential(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Missing API key")
				return
			}

			userID, err := s.deps.Keys.Authenticate(r.Context(), rawKey)
			if err != nil {
				if errors.Is(err, apikeys.KeyNotFoundErr) ||
					errors.Is(err, apikeys.KeyInactiveErr) ||
					errors.Is(err, apikeys.KeyExpiredErr) {
					writeError(w, http.StatusUnauthorized, "Invalid API key")
					return
				}
				log.Err(err).Msg("[RequireAPIKey] key lookup failed")
				writeError(w, http.StatusServiceUnavailable, "Service unavailable")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
			next(w, r.WithContext(ctx))
		}
	}
}

// writeIdentityError maps verifier errors onto the status contract: missing
// or unresolvable credentials are 401, a provider timeout is 503.
func writeIdentityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.MissingCredentialErr):
		writeError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, identity.InvalidCredentialErr):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, identity.TimeoutErr):
		writeError(w, http.StatusServiceUnavailable, "Identity provider unavailable")
	default:
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	}
}
