package identity

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// JWTProvider verifies bearer credentials locally as HS256-signed JWTs using
// the identity provider's shared signing secret. No network round trip is
// made; expiry comes from the token's exp claim.
type JWTProvider struct {
	secret []byte
}

var _ Provider = (*JWTProvider)(nil)

// NewJWTProvider initializes a local verifier with the provider's JWT secret.
func NewJWTProvider(secret string) (*JWTProvider, error) {
	if secret == "" {
		return nil, errors.New("[NewJWTProvider] secret is required")
	}
	return &JWTProvider{secret: []byte(secret)}, nil
}

// ResolveUser parses and verifies the credential, returning the identity from
// its sub and email claims.
func (p *JWTProvider) ResolveUser(_ context.Context, credential string) (*Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.Wrap(err, "[ResolveUser] jwt.ParseWithClaims")
	}
	if !token.Valid {
		return nil, errors.New("[ResolveUser] token not valid")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("[ResolveUser] token missing sub claim")
	}

	email, _ := claims["email"].(string)
	return &Identity{ID: sub, Email: email}, nil
}
