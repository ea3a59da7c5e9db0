// Package auth composes identity verification and CSRF validation into the
// single guard every state-changing route calls before doing any work.
package auth

import (
	"context"
	"net/http"

	"github.com/clickmemory/go-snippet-server/identity"
	"github.com/pkg/errors"
)

// CSRFHeader is the dedicated header clients echo the anti-forgery token in.
const CSRFHeader = "X-CSRF-Token"

// IdentityVerifier resolves the bearer credential on a request.
type IdentityVerifier interface {
	Verify(r *http.Request) (*identity.Identity, error)
}

// CSRFValidator checks and consumes an anti-forgery token for a user.
type CSRFValidator interface {
	Validate(ctx context.Context, userID, candidate string) bool
}

// RequestValidator guards mutating routes: identity first, then the CSRF
// token scoped to that identity. A route handler must not mutate any state
// before ValidateRequest returns successfully.
type RequestValidator struct {
	verifier IdentityVerifier
	csrf     CSRFValidator
}

// NewRequestValidator initializes a new RequestValidator with required dependencies.
func NewRequestValidator(verifier IdentityVerifier, csrf CSRFValidator) (*RequestValidator, error) {
	if verifier == nil {
		return nil, errors.New("[NewRequestValidator] verifier is required")
	}
	if csrf == nil {
		return nil, errors.New("[NewRequestValidator] csrf validator is required")
	}

	return &RequestValidator{
		verifier: verifier,
		csrf:     csrf,
	}, nil
}

// ValidateRequest verifies the caller's identity and consumes the CSRF token
// presented with the request, returning the identity only when both checks
// pass. The steps are strictly ordered: the CSRF token is scoped by user id,
// so it is never inspected before the identity is known. Identity failures
// pass through unchanged (mapped to 401 by callers); CSRF failures collapse
// to CsrfMissingErr or CsrfInvalidErr (mapped to 403) without revealing
// whether the token was unknown, mismatched, or expired.
func (rv *RequestValidator) ValidateRequest(r *http.Request) (*identity.Identity, error) {
	user, err := rv.verifier.Verify(r)
	if err != nil {
		return nil, err
	}

	candidate := r.Header.Get(CSRFHeader)
	if candidate == "" {
		return nil, CsrfMissingErr
	}

	if !rv.csrf.Validate(r.Context(), user.ID, candidate) {
		return nil, CsrfInvalidErr
	}

	return user, nil
}
