package fakecsrfrepo

import (
	"context"
	"sync"
	"time"

	"github.com/clickmemory/go-snippet-server/csrf"
)

var _ csrf.Repo = (*FakeTokenRepo)(nil)

// FakeTokenRepo is an in-memory token store for development and tests.
type FakeTokenRepo struct {
	tokens map[string]map[string]*csrf.StoredToken // userID -> tokenHash -> record
	lock   sync.Mutex
}

func NewFakeTokenRepo() *FakeTokenRepo {
	return &FakeTokenRepo{
		tokens: make(map[string]map[string]*csrf.StoredToken),
	}
}

func (tr *FakeTokenRepo) Insert(_ context.Context, token *csrf.StoredToken) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	userTokens, ok := tr.tokens[token.UserID]
	if !ok {
		userTokens = make(map[string]*csrf.StoredToken)
		tr.tokens[token.UserID] = userTokens
	}
	userTokens[token.TokenHash] = token
	return nil
}

func (tr *FakeTokenRepo) Consume(_ context.Context, userID, tokenHash string, now time.Time) (bool, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	userTokens, ok := tr.tokens[userID]
	if !ok {
		return false, nil
	}

	token, ok := userTokens[tokenHash]
	if !ok {
		return false, nil
	}

	// Delete whether expired or not: consumed on success, cleaned up on
	// expiry.
	delete(userTokens, tokenHash)
	if len(userTokens) == 0 {
		delete(tr.tokens, userID)
	}

	if now.After(token.ExpiresAt) {
		return false, nil
	}
	return true, nil
}

func (tr *FakeTokenRepo) DeleteExpired(_ context.Context, now time.Time) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	for userID, userTokens := range tr.tokens {
		for hash, token := range userTokens {
			if now.After(token.ExpiresAt) {
				delete(userTokens, hash)
			}
		}
		if len(userTokens) == 0 {
			delete(tr.tokens, userID)
		}
	}
	return nil
}

// Count reports the number of stored records, for test assertions.
func (tr *FakeTokenRepo) Count() int {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	count := 0
	for _, userTokens := range tr.tokens {
		count += len(userTokens)
	}
	return count
}
