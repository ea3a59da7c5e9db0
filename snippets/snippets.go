// Package snippets holds the snippet domain: the text records users store
// and share, plus the sharing and invitation records around them.
package snippets

import "time"

// Permission is the access level granted by a share.
type Permission string

const (
	PermissionView Permission = "view"
	PermissionEdit Permission = "edit"
)

// Valid reports whether p is a known permission value.
func (p Permission) Valid() bool {
	return p == PermissionView || p == PermissionEdit
}

// Snippet is a stored text snippet. Shared and SharedPermission are set only
// on listings that include snippets shared with the requesting user; they are
// never persisted on the snippet row itself.
type Snippet struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	SystemRole string    `json:"system_role"`
	Content    string    `json:"content"`
	IsPublic   bool      `json:"is_public"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Shared           bool       `json:"is_shared,omitempty"`
	SharedPermission Permission `json:"shared_permission,omitempty"`
}

// Share grants an existing user access to a snippet.
type Share struct {
	ID               string     `json:"id"`
	SnippetID        string     `json:"snippet_id"`
	SharedWithUserID string     `json:"shared_with_user_id"`
	Permission       Permission `json:"permission"`
	CreatedAt        time.Time  `json:"created_at"`
}

// PendingShare is an invitation for an email address that has not accepted
// yet. It expires if unclaimed.
type PendingShare struct {
	ID         string     `json:"id"`
	SnippetID  string     `json:"snippet_id"`
	Email      string     `json:"email"`
	Permission Permission `json:"permission"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}
