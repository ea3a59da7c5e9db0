package csrf_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clickmemory/go-snippet-server/csrf"
	fakecsrfrepo "github.com/clickmemory/go-snippet-server/csrf/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testUserID      = "user-1"
	testOtherUserID = "user-2"
)

// setupManager creates a manager over a fake store with a controllable clock.
func setupManager(t *testing.T) (*csrf.Manager, *fakecsrfrepo.FakeTokenRepo, *time.Time) {
	t.Helper()

	repo := fakecsrfrepo.NewFakeTokenRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	manager, err := csrf.NewManager(repo, csrf.WithNowTime(func() time.Time { return now }))
	require.NoError(t, err)

	return manager, repo, &now
}

// brokenTokenRepo fails every operation with the configured error, standing
// in for an unreachable store.
type brokenTokenRepo struct {
	err error
}

func (r *brokenTokenRepo) Insert(_ context.Context, _ *csrf.StoredToken) error {
	return r.err
}

func (r *brokenTokenRepo) Consume(_ context.Context, _, _ string, _ time.Time) (bool, error) {
	return false, r.err
}

func (r *brokenTokenRepo) DeleteExpired(_ context.Context, _ time.Time) error {
	return r.err
}

func TestNewManagerRequiresRepo(t *testing.T) {
	_, err := csrf.NewManager(nil)
	require.Error(t, err)
}

func TestIssueRequiresUserID(t *testing.T) {
	manager, _, _ := setupManager(t)

	_, err := manager.Issue(context.Background(), "")
	require.Error(t, err)
}

func TestIssueReturnsUniqueHighEntropyTokens(t *testing.T) {
	manager, _, _ := setupManager(t)
	ctx := context.Background()

	first, err := manager.Issue(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, first, 64) // 32 random bytes, hex encoded

	second, err := manager.Issue(ctx, testUserID)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestValidateConsumesTokenExactlyOnce(t *testing.T) {
	manager, _, _ := setupManager(t)
	ctx := context.Background()

	token, err := manager.Issue(ctx, testUserID)
	require.NoError(t, err)

	require.True(t, manager.Validate(ctx, testUserID, token))
	require.False(t, manager.Validate(ctx, testUserID, token), "second use of the same token must fail")
}

func TestValidateRejectsTokenForDifferentUser(t *testing.T) {
	manager, _, _ := setupManager(t)
	ctx := context.Background()

	token, err := manager.Issue(ctx, testUserID)
	require.NoError(t, err)

	require.False(t, manager.Validate(ctx, testOtherUserID, token))

	// The owner's token was not consumed by the failed attempt.
	require.True(t, manager.Validate(ctx, testUserID, token))
}

func TestValidateRejectsUnknownToken(t *testing.T) {
	manager, _, _ := setupManager(t)

	require.False(t, manager.Validate(context.Background(), testUserID, "never-issued"))
}

func TestMultipleOutstandingTokensAreIndependentlyValid(t *testing.T) {
	manager, _, _ := setupManager(t)
	ctx := context.Background()

	first, err := manager.Issue(ctx, testUserID)
	require.NoError(t, err)
	second, err := manager.Issue(ctx, testUserID)
	require.NoError(t, err)

	require.True(t, manager.Validate(ctx, testUserID, second))
	require.True(t, manager.Validate(ctx, testUserID, first), "issuing a new token must not supersede an earlier one")
}

func TestValidateEnforcesExpiry(t *testing.T) {
	manager, repo, now := setupManager(t)
	ctx := context.Background()

	token, err := manager.Issue(ctx, testUserID)
	require.NoError(t, err)

	*now = now.Add(31 * time.Minute)
	require.False(t, manager.Validate(ctx, testUserID, token))

	// Expired record is removed as a side effect of the failed validation.
	require.Equal(t, 0, repo.Count())
}

func TestValidateAcceptsTokenJustBeforeExpiry(t *testing.T) {
	manager, _, now := setupManager(t)
	ctx := context.Background()

	token, err := manager.Issue(ctx, testUserID)
	require.NoError(t, err)

	*now = now.Add(29 * time.Minute)
	require.True(t, manager.Validate(ctx, testUserID, token))
}

func TestConcurrentValidationSingleSuccess(t *testing.T) {
	manager, _, _ := setupManager(t)
	ctx := context.Background()

	token, err := manager.Issue(ctx, testUserID)
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- manager.Validate(ctx, testUserID, token)
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for ok := range results {
		if ok {
			successes++
		}
	}
	require.Equal(t, 1, successes, "exactly one of the racing validations may succeed")
}

func TestIssueSurfacesStoreFailure(t *testing.T) {
	repo := &brokenTokenRepo{err: errors.New("store unreachable")}
	manager, err := csrf.NewManager(repo)
	require.NoError(t, err)

	// Issuance without a durable record would make the token unvalidatable,
	// so a store failure must be a hard error, never a silently lost token.
	_, err = manager.Issue(context.Background(), testUserID)
	require.Error(t, err)
}

func TestValidateFailsClosedOnStoreFailure(t *testing.T) {
	repo := &brokenTokenRepo{err: errors.New("store unreachable")}
	manager, err := csrf.NewManager(repo)
	require.NoError(t, err)

	require.False(t, manager.Validate(context.Background(), testUserID, "any-token"),
		"a store failure during validation must read as invalid, not as success")
}

func TestSweepRemovesOnlyExpiredTokens(t *testing.T) {
	manager, repo, now := setupManager(t)
	ctx := context.Background()

	stale, err := manager.Issue(ctx, testUserID)
	require.NoError(t, err)

	*now = now.Add(20 * time.Minute)
	fresh, err := manager.Issue(ctx, testOtherUserID)
	require.NoError(t, err)

	*now = now.Add(15 * time.Minute) // stale is now 35 minutes old, fresh 15
	require.NoError(t, manager.Sweep(ctx))

	require.Equal(t, 1, repo.Count())
	require.False(t, manager.Validate(ctx, testUserID, stale))
	require.True(t, manager.Validate(ctx, testOtherUserID, fresh))
}
