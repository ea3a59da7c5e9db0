package apikeys

import (
	"context"
	"time"
)

// Repo defines the interface for API key storage operations.
type Repo interface {
	// Insert stores a new key
	Insert(ctx context.Context, key *APIKey) error

	// GetByKey retrieves a key by its raw value; KeyNotFoundErr when absent
	GetByKey(ctx context.Context, rawKey string) (*APIKey, error)

	// ListByUser retrieves a user's keys, newest first
	ListByUser(ctx context.Context, userID string) ([]*APIKey, error)

	// Delete removes a key by id, scoped to its owner; KeyNotFoundErr when
	// no matching row exists
	Delete(ctx context.Context, userID, keyID string) error

	// TouchLastUsed records when a key last authenticated a request
	TouchLastUsed(ctx context.Context, keyID string, at time.Time) error
}
