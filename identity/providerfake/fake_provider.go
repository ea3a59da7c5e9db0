package fakeprovider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/clickmemory/go-snippet-server/identity"
)

var _ identity.Provider = (*FakeProvider)(nil)

// FakeProvider is an in-memory identity provider for tests. Credentials are
// registered with AddUser; everything else resolves as unknown.
type FakeProvider struct {
	users map[string]*identity.Identity // credential -> identity
	err   error
	delay time.Duration
	lock  sync.RWMutex
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		users: make(map[string]*identity.Identity),
	}
}

// AddUser registers a credential as resolving to the given identity.
func (fp *FakeProvider) AddUser(credential string, user *identity.Identity) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.users[credential] = user
}

// SetErr makes every resolution fail with err.
func (fp *FakeProvider) SetErr(err error) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.err = err
}

// SetDelay makes resolutions wait before answering, to exercise timeouts.
func (fp *FakeProvider) SetDelay(delay time.Duration) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.delay = delay
}

func (fp *FakeProvider) ResolveUser(ctx context.Context, credential string) (*identity.Identity, error) {
	fp.lock.RLock()
	delay := fp.delay
	fp.lock.RUnlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	fp.lock.RLock()
	defer fp.lock.RUnlock()

	if fp.err != nil {
		return nil, fp.err
	}

	user, ok := fp.users[credential]
	if !ok {
		return nil, errors.New("unknown credential")
	}
	return user, nil
}
