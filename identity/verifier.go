package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// defaultVerifyTimeout bounds the outbound provider call so a slow identity
// provider cannot pin a request-handling worker indefinitely.
const defaultVerifyTimeout = 5 * time.Second

// Verifier converts the bearer credential on a request into a verified
// identity. It fails closed: any ambiguity in the provider's answer is an
// invalid credential.
type Verifier struct {
	provider Provider
	timeout  time.Duration
}

// VerifierOption defines a function type to modify the Verifier instance.
type VerifierOption func(*Verifier)

// WithTimeout overrides the provider call timeout (primarily for testing).
func WithTimeout(timeout time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.timeout = timeout
	}
}

// NewVerifier initializes a new Verifier with the provider client it
// delegates to. The client is constructed once and injected here rather than
// built per request.
func NewVerifier(provider Provider, options ...VerifierOption) (*Verifier, error) {
	if provider == nil {
		return nil, errors.New("[NewVerifier] provider is required")
	}

	verifier := &Verifier{
		provider: provider,
		timeout:  defaultVerifyTimeout,
	}

	for _, opt := range options {
		opt(verifier)
	}

	return verifier, nil
}

// Verify extracts the bearer credential from the Authorization header and
// resolves it through the provider. It returns MissingCredentialErr when the
// header is absent or malformed, TimeoutErr when the provider does not answer
// within the bound, and InvalidCredentialErr for every other failure.
func (v *Verifier) Verify(r *http.Request) (*Identity, error) {
	credential, err := BearerCredential(r)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(r.Context(), v.timeout)
	defer cancel()

	user, err := v.provider.ResolveUser(ctx, credential)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, TimeoutErr
		}
		log.Debug().Err(err).Msg("identity provider rejected credential")
		return nil, InvalidCredentialErr
	}
	if user == nil || user.ID == "" {
		return nil, InvalidCredentialErr
	}

	return user, nil
}

// BearerCredential extracts the credential from an "Authorization: Bearer"
// header, returning MissingCredentialErr when absent or malformed.
func BearerCredential(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", MissingCredentialErr
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", MissingCredentialErr
	}
	return parts[1], nil
}
