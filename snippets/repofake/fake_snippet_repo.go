package fakesnippetrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clickmemory/go-snippet-server/snippets"
)

var _ snippets.Repo = (*FakeSnippetRepo)(nil)

// FakeSnippetRepo is an in-memory snippet store for development and tests.
type FakeSnippetRepo struct {
	snippets map[string]*snippets.Snippet
	shares   map[string]*snippets.Share        // "snippetID/userID" -> share
	pending  map[string]*snippets.PendingShare // "snippetID/email" -> invitation
	lock     sync.RWMutex
}

func NewFakeSnippetRepo() *FakeSnippetRepo {
	return &FakeSnippetRepo{
		snippets: make(map[string]*snippets.Snippet),
		shares:   make(map[string]*snippets.Share),
		pending:  make(map[string]*snippets.PendingShare),
	}
}

func shareKey(snippetID, userID string) string {
	return snippetID + "/" + userID
}

func (sr *FakeSnippetRepo) Insert(_ context.Context, snippet *snippets.Snippet) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	stored := *snippet
	sr.snippets[snippet.ID] = &stored
	return nil
}

func (sr *FakeSnippetRepo) Get(_ context.Context, id string) (*snippets.Snippet, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	snippet, ok := sr.snippets[id]
	if !ok {
		return nil, snippets.SnippetNotFoundErr
	}

	copied := *snippet
	return &copied, nil
}

func (sr *FakeSnippetRepo) ListByUser(_ context.Context, userID string) ([]*snippets.Snippet, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	var results []*snippets.Snippet
	for _, snippet := range sr.snippets {
		if snippet.UserID == userID {
			copied := *snippet
			results = append(results, &copied)
		}
	}
	sortByUpdated(results)
	return results, nil
}

func (sr *FakeSnippetRepo) ListPublicByUser(_ context.Context, userID string) ([]*snippets.Snippet, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	var results []*snippets.Snippet
	for _, snippet := range sr.snippets {
		if snippet.UserID == userID && snippet.IsPublic {
			copied := *snippet
			results = append(results, &copied)
		}
	}
	sortByUpdated(results)
	return results, nil
}

func (sr *FakeSnippetRepo) ListSharedWith(_ context.Context, userID string) ([]*snippets.Snippet, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	var results []*snippets.Snippet
	for _, share := range sr.shares {
		if share.SharedWithUserID != userID {
			continue
		}
		snippet, ok := sr.snippets[share.SnippetID]
		if !ok {
			continue
		}
		copied := *snippet
		copied.Shared = true
		copied.SharedPermission = share.Permission
		results = append(results, &copied)
	}
	sortByUpdated(results)
	return results, nil
}

func (sr *FakeSnippetRepo) Update(_ context.Context, snippet *snippets.Snippet) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if _, ok := sr.snippets[snippet.ID]; !ok {
		return snippets.SnippetNotFoundErr
	}

	stored := *snippet
	stored.Shared = false
	stored.SharedPermission = ""
	sr.snippets[snippet.ID] = &stored
	return nil
}

func (sr *FakeSnippetRepo) Delete(_ context.Context, id string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if _, ok := sr.snippets[id]; !ok {
		return snippets.SnippetNotFoundErr
	}
	delete(sr.snippets, id)

	for key, share := range sr.shares {
		if share.SnippetID == id {
			delete(sr.shares, key)
		}
	}
	for key, pending := range sr.pending {
		if pending.SnippetID == id {
			delete(sr.pending, key)
		}
	}
	return nil
}

func (sr *FakeSnippetRepo) InsertShare(_ context.Context, share *snippets.Share) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	key := shareKey(share.SnippetID, share.SharedWithUserID)
	if _, ok := sr.shares[key]; ok {
		return snippets.ShareExistsErr
	}

	stored := *share
	sr.shares[key] = &stored
	return nil
}

func (sr *FakeSnippetRepo) GetShare(_ context.Context, snippetID, userID string) (*snippets.Share, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	share, ok := sr.shares[shareKey(snippetID, userID)]
	if !ok {
		return nil, snippets.SnippetNotFoundErr
	}

	copied := *share
	return &copied, nil
}

func (sr *FakeSnippetRepo) InsertPendingShare(_ context.Context, pending *snippets.PendingShare) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	stored := *pending
	sr.pending[shareKey(pending.SnippetID, pending.Email)] = &stored
	return nil
}

func (sr *FakeSnippetRepo) GetPendingShare(_ context.Context, snippetID, email string) (*snippets.PendingShare, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	pending, ok := sr.pending[shareKey(snippetID, email)]
	if !ok {
		return nil, snippets.InvitationNotFoundErr
	}

	copied := *pending
	return &copied, nil
}

func (sr *FakeSnippetRepo) DeletePendingShare(_ context.Context, id string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	for key, pending := range sr.pending {
		if pending.ID == id {
			delete(sr.pending, key)
			return nil
		}
	}
	return snippets.InvitationNotFoundErr
}

func (sr *FakeSnippetRepo) DeleteExpiredPendingShares(_ context.Context, now time.Time) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	for key, pending := range sr.pending {
		if now.After(pending.ExpiresAt) {
			delete(sr.pending, key)
		}
	}
	return nil
}

func sortByUpdated(list []*snippets.Snippet) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
}
