package csrf

import (
	"context"
	"time"
)

// Repo defines the interface for token storage operations. Records are keyed
// by (user id, token hash), so several outstanding tokens per user can
// coexist without deduplication.
type Repo interface {
	// Insert stores a new token record
	Insert(ctx context.Context, token *StoredToken) error

	// Consume atomically deletes the record matching userID and tokenHash and
	// reports whether an unexpired record existed. The delete must be
	// conditional on the record still existing so that two racing validations
	// of the same token cannot both succeed. An expired match is deleted
	// without being reported.
	Consume(ctx context.Context, userID, tokenHash string, now time.Time) (bool, error)

	// DeleteExpired removes all records whose expiry is at or before now
	DeleteExpired(ctx context.Context, now time.Time) error
}
