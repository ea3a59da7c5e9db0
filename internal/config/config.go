package config

type Config interface {
	EnvConfig
	CorsConfig
	IdentityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetDatabaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type IdentityConfig interface {
	GetIdentityProviderURL() string
	GetIdentityServiceKey() string
	GetIdentityJWTSecret() string
	GetOIDCIssuer() string
	// IdentityConfigured reports whether any identity provider mode has the
	// configuration it needs.
	IdentityConfigured() bool
}

type mainConfig struct {
	EnvVars
	Cors
	Identity
}

func New() Config {
	return mainConfig{}
}
