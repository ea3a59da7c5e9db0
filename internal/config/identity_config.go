package config

type Identity struct{}

var _ IdentityConfig = Identity{}

// GetIdentityProviderURL is the base URL of the hosted identity provider
// (the REST resolution mode calls {url}/auth/v1/user).
func (Identity) GetIdentityProviderURL() string {
	return GetEnv("IDENTITY_PROVIDER_URL", "")
}

// GetIdentityServiceKey is the service key sent alongside provider calls.
func (Identity) GetIdentityServiceKey() string {
	return GetEnv("IDENTITY_SERVICE_KEY", "")
}

// GetIdentityJWTSecret enables local HS256 verification of provider-issued
// bearer tokens when set.
func (Identity) GetIdentityJWTSecret() string {
	return GetEnv("IDENTITY_JWT_SECRET", "")
}

// GetOIDCIssuer enables OIDC discovery-based verification when set.
func (Identity) GetOIDCIssuer() string {
	return GetEnv("OIDC_ISSUER", "")
}

func (i Identity) IdentityConfigured() bool {
	return i.GetIdentityProviderURL() != "" || i.GetIdentityJWTSecret() != "" || i.GetOIDCIssuer() != ""
}
