package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clickmemory/go-snippet-server/apikeys"
	fakekeyrepo "github.com/clickmemory/go-snippet-server/apikeys/repofake"
	"github.com/clickmemory/go-snippet-server/auth"
	"github.com/clickmemory/go-snippet-server/csrf"
	fakecsrfrepo "github.com/clickmemory/go-snippet-server/csrf/repofake"
	"github.com/clickmemory/go-snippet-server/identity"
	fakeprovider "github.com/clickmemory/go-snippet-server/identity/providerfake"
	"github.com/clickmemory/go-snippet-server/internal/config"
	"github.com/clickmemory/go-snippet-server/snippets"
	fakesnippetrepo "github.com/clickmemory/go-snippet-server/snippets/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testCredential = "valid-bearer-credential"
	testUserID     = "user-1"
)

type testFixture struct {
	server   *Server
	provider *fakeprovider.FakeProvider
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("IDENTITY_JWT_SECRET", "test-secret")

	provider := fakeprovider.NewFakeProvider()
	provider.AddUser(testCredential, &identity.Identity{ID: testUserID, Email: "user@example.com"})

	verifier, err := identity.NewVerifier(provider)
	require.NoError(t, err)

	csrfManager, err := csrf.NewManager(fakecsrfrepo.NewFakeTokenRepo())
	require.NoError(t, err)

	keyManager, err := apikeys.NewManager(fakekeyrepo.NewFakeKeyRepo())
	require.NoError(t, err)

	snippetService, err := snippets.NewService(fakesnippetrepo.NewFakeSnippetRepo())
	require.NoError(t, err)

	srv, err := New(config.New(), Deps{
		Verifier: verifier,
		CSRF:     csrfManager,
		Keys:     keyManager,
		Snippets: snippetService,
	})
	require.NoError(t, err)

	return &testFixture{server: srv, provider: provider}
}

func (f *testFixture) do(method, path, bearer, csrfToken string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		raw, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(raw)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	r := httptest.NewRequest(method, path, reqBody)
	if bearer != "" {
		r.Header.Set("Authorization", "Bearer "+bearer)
	}
	if csrfToken != "" {
		r.Header.Set(auth.CSRFHeader, csrfToken)
	}

	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, r)
	return w
}

func (f *testFixture) fetchCSRFToken(t *testing.T) string {
	t.Helper()
	return f.fetchCSRFTokenFor(t, testCredential)
}

func (f *testFixture) fetchCSRFTokenFor(t *testing.T, credential string) string {
	t.Helper()
	w := f.do(http.MethodGet, RouteCSRFGenerate, credential, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.CSRFToken)
	return body.CSRFToken
}

func TestCSRFGenerateRequiresBearer(t *testing.T) {
	f := newTestFixture(t)

	w := f.do(http.MethodGet, RouteCSRFGenerate, "", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, RouteCSRFGenerate, "unknown-credential", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestKeyGenerateGuardedFlow(t *testing.T) {
	f := newTestFixture(t)

	// No CSRF token at all
	w := f.do(http.MethodPost, RouteKeyGenerate, testCredential, "", nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Token issued for the user succeeds exactly once
	token := f.fetchCSRFToken(t)
	w = f.do(http.MethodPost, RouteKeyGenerate, testCredential, token, map[string]string{"name": "Laptop"})
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		APIKey string `json:"apiKey"`
		ID     string `json:"id"`
		Name   string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.True(t, len(created.APIKey) == 72)
	require.Equal(t, "Laptop", created.Name)

	// Replaying the same token is rejected
	w = f.do(http.MethodPost, RouteKeyGenerate, testCredential, token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	// A mutated token is rejected and burns nothing
	fresh := f.fetchCSRFToken(t)
	mutated := fresh[:len(fresh)-1] + "x"
	w = f.do(http.MethodPost, RouteKeyGenerate, testCredential, mutated, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	// The untouched original still works
	w = f.do(http.MethodPost, RouteKeyGenerate, testCredential, fresh, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestIdentityCheckedBeforeCSRF(t *testing.T) {
	f := newTestFixture(t)
	token := f.fetchCSRFToken(t)

	// Valid CSRF token but no identity: the answer is 401, not 403
	w := f.do(http.MethodPost, RouteKeyGenerate, "", token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// The failed attempt must not have consumed the token
	w = f.do(http.MethodPost, RouteKeyGenerate, testCredential, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestKeyListAndRevoke(t *testing.T) {
	f := newTestFixture(t)

	token := f.fetchCSRFToken(t)
	w := f.do(http.MethodPost, RouteKeyGenerate, testCredential, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = f.do(http.MethodGet, RouteKeys, testCredential, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Keys []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Keys, 1)
	require.Equal(t, DefaultKeyName, listed.Keys[0].Name)

	// Revoking needs a fresh guard token
	revokeToken := f.fetchCSRFToken(t)
	w = f.do(http.MethodDelete, "/api/keys/"+created.ID, testCredential, revokeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, RouteKeys, testCredential, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Empty(t, listed.Keys)
}

func TestKeyGenerateRateLimited(t *testing.T) {
	f := newTestFixture(t)

	for i := 0; i < keyGenRateLimit; i++ {
		token := f.fetchCSRFToken(t)
		w := f.do(http.MethodPost, RouteKeyGenerate, testCredential, token, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	token := f.fetchCSRFToken(t)
	w := f.do(http.MethodPost, RouteKeyGenerate, testCredential, token, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	// The limited request must not have consumed the token: once the window
	// passes, the very same token still works.
	f.server.keyGenRate.now = func() time.Time { return time.Now().Add(keyGenRateWindow) }
	w = f.do(http.MethodPost, RouteKeyGenerate, testCredential, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSnippetAPIKeyAuth(t *testing.T) {
	f := newTestFixture(t)

	// No key
	w := f.do(http.MethodGet, RouteSnippets, "", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Garbage key
	w = f.do(http.MethodGet, RouteSnippets, "sk_live_not-a-real-key", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Mint a real key through the guarded dashboard flow
	token := f.fetchCSRFToken(t)
	w = f.do(http.MethodPost, RouteKeyGenerate, testCredential, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		APIKey string `json:"apiKey"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = f.do(http.MethodGet, RouteSnippets, created.APIKey, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSnippetCRUDOverAPIKey(t *testing.T) {
	f := newTestFixture(t)

	token := f.fetchCSRFToken(t)
	w := f.do(http.MethodPost, RouteKeyGenerate, testCredential, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var key struct {
		APIKey string `json:"apiKey"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &key))

	// Create
	w = f.do(http.MethodPost, RouteSnippets, key.APIKey, "", map[string]any{
		"title":     "Greeting",
		"content":   "Hello there",
		"is_public": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var snippet struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snippet))
	require.Equal(t, "Greeting", snippet.Title)

	// Validation failure
	w = f.do(http.MethodPost, RouteSnippets, key.APIKey, "", map[string]any{
		"title":   "",
		"content": "body",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Read
	w = f.do(http.MethodGet, "/api/snippets/"+snippet.ID, key.APIKey, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Partial update
	w = f.do(http.MethodPatch, "/api/snippets/"+snippet.ID, key.APIKey, "", map[string]any{
		"title": "Updated greeting",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snippet))
	require.Equal(t, "Updated greeting", snippet.Title)

	// Context-menu listing only returns public snippets
	w = f.do(http.MethodGet, RouteSnippets+"?context_menu=true", key.APIKey, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Snippets []struct {
			ID string `json:"id"`
		} `json:"snippets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Snippets, 1)

	// Delete
	w = f.do(http.MethodDelete, "/api/snippets/"+snippet.ID, key.APIKey, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/snippets/"+snippet.ID, key.APIKey, "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvitationFlowOverHTTP(t *testing.T) {
	f := newTestFixture(t)

	const (
		inviteeCredential = "invitee-bearer-credential"
		inviteeID         = "user-2"
		inviteeEmail      = "friend@example.com"
	)
	f.provider.AddUser(inviteeCredential, &identity.Identity{ID: inviteeID, Email: inviteeEmail})

	// Owner mints a key and creates a snippet
	token := f.fetchCSRFToken(t)
	w := f.do(http.MethodPost, RouteKeyGenerate, testCredential, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var key struct {
		APIKey string `json:"apiKey"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &key))

	w = f.do(http.MethodPost, RouteSnippets, key.APIKey, "", map[string]any{
		"title":   "Shared notes",
		"content": "content worth sharing",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var snippet struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snippet))

	// Owner invites the friend by email
	token = f.fetchCSRFToken(t)
	w = f.do(http.MethodPost, "/api/snippets/"+snippet.ID+"/invite", testCredential, token, map[string]any{
		"email":      inviteeEmail,
		"permission": "edit",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Invitation lookup requires the invited email
	w = f.do(http.MethodGet, "/api/invitation/"+snippet.ID, inviteeCredential, "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/invitation/"+snippet.ID+"?email="+inviteeEmail, inviteeCredential, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/invitation/"+snippet.ID+"?email=nobody@example.com", inviteeCredential, "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	// Friend accepts under the guard
	inviteeToken := f.fetchCSRFTokenFor(t, inviteeCredential)
	w = f.do(http.MethodPost, "/api/invitation/"+snippet.ID+"/accept", inviteeCredential, inviteeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var share struct {
		SharedWithUserID string `json:"shared_with_user_id"`
		Permission       string `json:"permission"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &share))
	require.Equal(t, inviteeID, share.SharedWithUserID)
	require.Equal(t, "edit", share.Permission)

	// The accepted invitation is gone
	w = f.do(http.MethodGet, "/api/invitation/"+snippet.ID+"?email="+inviteeEmail, inviteeCredential, "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestShareRequiresOwnership(t *testing.T) {
	f := newTestFixture(t)

	const (
		otherCredential = "other-bearer-credential"
		otherID         = "user-2"
	)
	f.provider.AddUser(otherCredential, &identity.Identity{ID: otherID, Email: "other@example.com"})

	token := f.fetchCSRFToken(t)
	w := f.do(http.MethodPost, RouteKeyGenerate, testCredential, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var key struct {
		APIKey string `json:"apiKey"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &key))

	w = f.do(http.MethodPost, RouteSnippets, key.APIKey, "", map[string]any{
		"title":   "Private",
		"content": "owner only",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var snippet struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snippet))

	// A non-owner cannot share someone else's snippet
	otherToken := f.fetchCSRFTokenFor(t, otherCredential)
	w = f.do(http.MethodPost, "/api/snippets/"+snippet.ID+"/share", otherCredential, otherToken, map[string]any{
		"user_id":    "user-3",
		"permission": "view",
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	// The owner can, and duplicates answer 409
	ownerToken := f.fetchCSRFToken(t)
	w = f.do(http.MethodPost, "/api/snippets/"+snippet.ID+"/share", testCredential, ownerToken, map[string]any{
		"user_id":    otherID,
		"permission": "view",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	ownerToken = f.fetchCSRFToken(t)
	w = f.do(http.MethodPost, "/api/snippets/"+snippet.ID+"/share", testCredential, ownerToken, map[string]any{
		"user_id":    otherID,
		"permission": "view",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

// unavailableTokenRepo refuses every operation, standing in for a store that
// is down.
type unavailableTokenRepo struct{}

func (unavailableTokenRepo) Insert(_ context.Context, _ *csrf.StoredToken) error {
	return errors.New("store unreachable")
}

func (unavailableTokenRepo) Consume(_ context.Context, _, _ string, _ time.Time) (bool, error) {
	return false, errors.New("store unreachable")
}

func (unavailableTokenRepo) DeleteExpired(_ context.Context, _ time.Time) error {
	return errors.New("store unreachable")
}

func TestCSRFGenerateAnswersServiceUnavailableWhenStoreDown(t *testing.T) {
	t.Setenv("IDENTITY_JWT_SECRET", "test-secret")

	provider := fakeprovider.NewFakeProvider()
	provider.AddUser(testCredential, &identity.Identity{ID: testUserID, Email: "user@example.com"})

	verifier, err := identity.NewVerifier(provider)
	require.NoError(t, err)

	csrfManager, err := csrf.NewManager(unavailableTokenRepo{})
	require.NoError(t, err)

	keyManager, err := apikeys.NewManager(fakekeyrepo.NewFakeKeyRepo())
	require.NoError(t, err)

	snippetService, err := snippets.NewService(fakesnippetrepo.NewFakeSnippetRepo())
	require.NoError(t, err)

	srv, err := New(config.New(), Deps{
		Verifier: verifier,
		CSRF:     csrfManager,
		Keys:     keyManager,
		Snippets: snippetService,
	})
	require.NoError(t, err)

	f := &testFixture{server: srv, provider: provider}
	w := f.do(http.MethodGet, RouteCSRFGenerate, testCredential, "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthHandler(t *testing.T) {
	f := newTestFixture(t)

	w := f.do(http.MethodGet, RouteHealth, "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status             string `json:"status"`
		IdentityConfigured bool   `json:"identityConfigured"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
	require.True(t, body.IdentityConfigured)
}
