package auth_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/clickmemory/go-snippet-server/auth"
	"github.com/clickmemory/go-snippet-server/csrf"
	fakecsrfrepo "github.com/clickmemory/go-snippet-server/csrf/repofake"
	"github.com/clickmemory/go-snippet-server/identity"
	fakeprovider "github.com/clickmemory/go-snippet-server/identity/providerfake"
	"github.com/stretchr/testify/require"
)

const (
	testCredential = "valid-bearer-token"
	testUserID     = "user-1"
	testUserEmail  = "john.doe@example.com"
)

type testFixture struct {
	provider  *fakeprovider.FakeProvider
	csrf      *csrf.Manager
	validator *auth.RequestValidator
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	provider := fakeprovider.NewFakeProvider()
	provider.AddUser(testCredential, &identity.Identity{ID: testUserID, Email: testUserEmail})

	verifier, err := identity.NewVerifier(provider)
	require.NoError(t, err)

	manager, err := csrf.NewManager(fakecsrfrepo.NewFakeTokenRepo())
	require.NoError(t, err)

	validator, err := auth.NewRequestValidator(verifier, manager)
	require.NoError(t, err)

	return &testFixture{
		provider:  provider,
		csrf:      manager,
		validator: validator,
	}
}

// issueToken issues a CSRF token for the test user.
func (f *testFixture) issueToken(t *testing.T) string {
	t.Helper()

	token, err := f.csrf.Issue(context.Background(), testUserID)
	require.NoError(t, err)
	return token
}

// countingCSRF records whether Validate was ever invoked.
type countingCSRF struct {
	calls int
}

func (c *countingCSRF) Validate(context.Context, string, string) bool {
	c.calls++
	return true
}

func TestNewRequestValidatorRequiresDependencies(t *testing.T) {
	f := setupTestFixture(t)

	_, err := auth.NewRequestValidator(nil, f.csrf)
	require.Error(t, err)

	_, err = auth.NewRequestValidator(f.validatorVerifier(t), nil)
	require.Error(t, err)
}

// validatorVerifier builds a fresh verifier over the fixture's provider.
func (f *testFixture) validatorVerifier(t *testing.T) *identity.Verifier {
	t.Helper()

	verifier, err := identity.NewVerifier(f.provider)
	require.NoError(t, err)
	return verifier
}

func TestValidateRequestSuccess(t *testing.T) {
	f := setupTestFixture(t)
	token := f.issueToken(t)

	r := httptest.NewRequest("POST", "/api/keys/generate", nil)
	r.Header.Set("Authorization", "Bearer "+testCredential)
	r.Header.Set(auth.CSRFHeader, token)

	user, err := f.validator.ValidateRequest(r)
	require.NoError(t, err)
	require.Equal(t, testUserID, user.ID)
	require.Equal(t, testUserEmail, user.Email)
}

func TestValidateRequestMissingCredentialSkipsCSRFCheck(t *testing.T) {
	f := setupTestFixture(t)

	spy := &countingCSRF{}
	validator, err := auth.NewRequestValidator(f.validatorVerifier(t), spy)
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/api/keys/generate", nil)
	r.Header.Set(auth.CSRFHeader, "whatever")

	_, err = validator.ValidateRequest(r)
	require.ErrorIs(t, err, identity.MissingCredentialErr)
	require.Zero(t, spy.calls, "CSRF must never be checked before identity is verified")
}

func TestValidateRequestInvalidCredential(t *testing.T) {
	f := setupTestFixture(t)
	token := f.issueToken(t)

	r := httptest.NewRequest("POST", "/api/keys/generate", nil)
	r.Header.Set("Authorization", "Bearer no-such-token")
	r.Header.Set(auth.CSRFHeader, token)

	_, err := f.validator.ValidateRequest(r)
	require.ErrorIs(t, err, identity.InvalidCredentialErr)
}

func TestValidateRequestMissingCSRFHeader(t *testing.T) {
	f := setupTestFixture(t)

	r := httptest.NewRequest("POST", "/api/keys/generate", nil)
	r.Header.Set("Authorization", "Bearer "+testCredential)

	_, err := f.validator.ValidateRequest(r)
	require.ErrorIs(t, err, auth.CsrfMissingErr)
}

func TestValidateRequestInvalidCSRFToken(t *testing.T) {
	f := setupTestFixture(t)

	r := httptest.NewRequest("POST", "/api/keys/generate", nil)
	r.Header.Set("Authorization", "Bearer "+testCredential)
	r.Header.Set(auth.CSRFHeader, "never-issued")

	_, err := f.validator.ValidateRequest(r)
	require.ErrorIs(t, err, auth.CsrfInvalidErr)
}

func TestValidateRequestReusedCSRFToken(t *testing.T) {
	f := setupTestFixture(t)
	token := f.issueToken(t)

	r := httptest.NewRequest("POST", "/api/keys/generate", nil)
	r.Header.Set("Authorization", "Bearer "+testCredential)
	r.Header.Set(auth.CSRFHeader, token)

	_, err := f.validator.ValidateRequest(r)
	require.NoError(t, err)

	// Same token again: consumed on first use.
	_, err = f.validator.ValidateRequest(r)
	require.ErrorIs(t, err, auth.CsrfInvalidErr)
}
