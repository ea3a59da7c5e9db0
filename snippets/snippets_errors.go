package snippets

import "errors"

var (
	ValidationErr         = errors.New("invalid input")
	SnippetNotFoundErr    = errors.New("snippet not found")
	NotAuthorizedErr      = errors.New("not authorized for snippet")
	ShareExistsErr        = errors.New("snippet already shared with user")
	InvitationNotFoundErr = errors.New("invitation not found")
	InvitationExpiredErr  = errors.New("invitation expired")
)
