package snippets

import (
	"context"
	"time"
)

// Repo defines the interface for snippet and share storage operations.
type Repo interface {
	// Insert stores a new snippet
	Insert(ctx context.Context, snippet *Snippet) error

	// Get retrieves a snippet by id; SnippetNotFoundErr when absent
	Get(ctx context.Context, id string) (*Snippet, error)

	// ListByUser retrieves a user's own snippets, most recently updated first
	ListByUser(ctx context.Context, userID string) ([]*Snippet, error)

	// ListPublicByUser retrieves only the user's public snippets, most
	// recently updated first
	ListPublicByUser(ctx context.Context, userID string) ([]*Snippet, error)

	// ListSharedWith retrieves snippets shared with the user, with Shared
	// and SharedPermission populated
	ListSharedWith(ctx context.Context, userID string) ([]*Snippet, error)

	// Update overwrites a snippet's mutable fields
	Update(ctx context.Context, snippet *Snippet) error

	// Delete removes a snippet and its shares; SnippetNotFoundErr when absent
	Delete(ctx context.Context, id string) error

	// InsertShare stores a share grant; ShareExistsErr on duplicates
	InsertShare(ctx context.Context, share *Share) error

	// GetShare retrieves the share granting userID access to snippetID;
	// SnippetNotFoundErr when no grant exists
	GetShare(ctx context.Context, snippetID, userID string) (*Share, error)

	// InsertPendingShare stores an invitation
	InsertPendingShare(ctx context.Context, pending *PendingShare) error

	// GetPendingShare retrieves an invitation by snippet and email;
	// InvitationNotFoundErr when absent
	GetPendingShare(ctx context.Context, snippetID, email string) (*PendingShare, error)

	// DeletePendingShare removes an invitation by id
	DeletePendingShare(ctx context.Context, id string) error

	// DeleteExpiredPendingShares removes invitations that expired at or
	// before now
	DeleteExpiredPendingShares(ctx context.Context, now time.Time) error
}
