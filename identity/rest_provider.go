package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// RESTProvider resolves credentials against a GoTrue-style identity provider
// over HTTP (GET {base}/auth/v1/user with the credential as a bearer token).
// A single http.Client is shared by all requests.
type RESTProvider struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

var _ Provider = (*RESTProvider)(nil)

// RESTProviderOption defines a function type to modify the RESTProvider instance.
type RESTProviderOption func(*RESTProvider)

// WithHTTPClient overrides the HTTP client (primarily for testing).
func WithHTTPClient(client *http.Client) RESTProviderOption {
	return func(p *RESTProvider) {
		p.client = client
	}
}

// NewRESTProvider initializes a provider client for the given base URL and
// service key.
func NewRESTProvider(baseURL, serviceKey string, options ...RESTProviderOption) (*RESTProvider, error) {
	if baseURL == "" {
		return nil, errors.New("[NewRESTProvider] baseURL is required")
	}

	provider := &RESTProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     http.DefaultClient,
	}

	for _, opt := range options {
		opt(provider)
	}

	return provider, nil
}

// ResolveUser asks the provider which user the credential belongs to.
// Timeouts surface through ctx so the Verifier can classify them.
func (p *RESTProvider) ResolveUser(ctx context.Context, credential string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, errors.Wrap(err, "[ResolveUser] http.NewRequestWithContext")
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	if p.serviceKey != "" {
		req.Header.Set("apikey", p.serviceKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[ResolveUser] provider request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("[ResolveUser] provider returned status %d", resp.StatusCode)
	}

	var user Identity
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, errors.Wrap(err, "[ResolveUser] decode provider response")
	}
	if user.ID == "" {
		return nil, errors.New("[ResolveUser] provider response missing user id")
	}

	return &user, nil
}
