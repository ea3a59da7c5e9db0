package identity_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clickmemory/go-snippet-server/identity"
	fakeprovider "github.com/clickmemory/go-snippet-server/identity/providerfake"
	"github.com/stretchr/testify/require"
)

const (
	testCredential = "valid-bearer-token"
	testUserID     = "user-1"
	testUserEmail  = "john.doe@example.com"
)

func setupVerifier(t *testing.T, options ...identity.VerifierOption) (*identity.Verifier, *fakeprovider.FakeProvider) {
	t.Helper()

	provider := fakeprovider.NewFakeProvider()
	provider.AddUser(testCredential, &identity.Identity{ID: testUserID, Email: testUserEmail})

	verifier, err := identity.NewVerifier(provider, options...)
	require.NoError(t, err)

	return verifier, provider
}

func TestNewVerifierRequiresProvider(t *testing.T) {
	_, err := identity.NewVerifier(nil)
	require.Error(t, err)
}

func TestVerifyReturnsProviderIdentityUnchanged(t *testing.T) {
	verifier, _ := setupVerifier(t)

	r := httptest.NewRequest("GET", "/api/csrf/generate", nil)
	r.Header.Set("Authorization", "Bearer "+testCredential)

	user, err := verifier.Verify(r)
	require.NoError(t, err)
	require.Equal(t, testUserID, user.ID)
	require.Equal(t, testUserEmail, user.Email)
}

func TestVerifyMissingHeader(t *testing.T) {
	verifier, _ := setupVerifier(t)

	r := httptest.NewRequest("GET", "/api/csrf/generate", nil)

	_, err := verifier.Verify(r)
	require.ErrorIs(t, err, identity.MissingCredentialErr)
}

func TestVerifyMalformedHeader(t *testing.T) {
	verifier, _ := setupVerifier(t)

	for _, header := range []string{"Basic dXNlcjpwYXNz", "Bearer", "Bearer ", testCredential} {
		r := httptest.NewRequest("GET", "/api/csrf/generate", nil)
		r.Header.Set("Authorization", header)

		_, err := verifier.Verify(r)
		require.ErrorIs(t, err, identity.MissingCredentialErr, "header %q", header)
	}
}

func TestVerifyUnknownCredential(t *testing.T) {
	verifier, _ := setupVerifier(t)

	r := httptest.NewRequest("GET", "/api/csrf/generate", nil)
	r.Header.Set("Authorization", "Bearer no-such-token")

	_, err := verifier.Verify(r)
	require.ErrorIs(t, err, identity.InvalidCredentialErr)
}

func TestVerifyProviderTimeout(t *testing.T) {
	verifier, provider := setupVerifier(t, identity.WithTimeout(10*time.Millisecond))
	provider.SetDelay(100 * time.Millisecond)

	r := httptest.NewRequest("GET", "/api/csrf/generate", nil)
	r.Header.Set("Authorization", "Bearer "+testCredential)

	_, err := verifier.Verify(r)
	require.ErrorIs(t, err, identity.TimeoutErr)
}

func TestVerifyCaseInsensitiveBearerPrefix(t *testing.T) {
	verifier, _ := setupVerifier(t)

	r := httptest.NewRequest("GET", "/api/csrf/generate", nil)
	r.Header.Set("Authorization", "bearer "+testCredential)

	user, err := verifier.Verify(r)
	require.NoError(t, err)
	require.Equal(t, testUserID, user.ID)
}
