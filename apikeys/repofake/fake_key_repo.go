package fakekeyrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clickmemory/go-snippet-server/apikeys"
)

var _ apikeys.Repo = (*FakeKeyRepo)(nil)

// FakeKeyRepo is an in-memory API key store for development and tests.
type FakeKeyRepo struct {
	keys  map[string]*apikeys.APIKey // id -> key
	byKey map[string]string          // raw key -> id
	lock  sync.RWMutex
}

func NewFakeKeyRepo() *FakeKeyRepo {
	return &FakeKeyRepo{
		keys:  make(map[string]*apikeys.APIKey),
		byKey: make(map[string]string),
	}
}

func (kr *FakeKeyRepo) Insert(_ context.Context, key *apikeys.APIKey) error {
	kr.lock.Lock()
	defer kr.lock.Unlock()

	stored := *key
	kr.keys[key.ID] = &stored
	kr.byKey[key.Key] = key.ID
	return nil
}

func (kr *FakeKeyRepo) GetByKey(_ context.Context, rawKey string) (*apikeys.APIKey, error) {
	kr.lock.RLock()
	defer kr.lock.RUnlock()

	id, ok := kr.byKey[rawKey]
	if !ok {
		return nil, apikeys.KeyNotFoundErr
	}

	key := *kr.keys[id]
	return &key, nil
}

func (kr *FakeKeyRepo) ListByUser(_ context.Context, userID string) ([]*apikeys.APIKey, error) {
	kr.lock.RLock()
	defer kr.lock.RUnlock()

	var keys []*apikeys.APIKey
	for _, key := range kr.keys {
		if key.UserID == userID {
			copied := *key
			keys = append(keys, &copied)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
	return keys, nil
}

func (kr *FakeKeyRepo) Delete(_ context.Context, userID, keyID string) error {
	kr.lock.Lock()
	defer kr.lock.Unlock()

	key, ok := kr.keys[keyID]
	if !ok || key.UserID != userID {
		return apikeys.KeyNotFoundErr
	}

	delete(kr.byKey, key.Key)
	delete(kr.keys, keyID)
	return nil
}

func (kr *FakeKeyRepo) TouchLastUsed(_ context.Context, keyID string, at time.Time) error {
	kr.lock.Lock()
	defer kr.lock.Unlock()

	key, ok := kr.keys[keyID]
	if !ok {
		return apikeys.KeyNotFoundErr
	}

	key.LastUsedAt = &at
	return nil
}
