// Package identity resolves bearer credentials to verified user identities by
// delegating to the external identity provider. It performs no caching and
// stores nothing: the identity is a per-request, pass-through result.
package identity

import "context"

// Identity is a verified user as reported by the identity provider.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Provider resolves a bearer credential to the user it belongs to. A nil
// identity with a nil error is treated as an invalid credential by the
// Verifier.
type Provider interface {
	ResolveUser(ctx context.Context, credential string) (*Identity, error)
}
