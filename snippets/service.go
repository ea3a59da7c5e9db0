package snippets

import (
	"context"
	"sort"
	"time"

	"github.com/clickmemory/go-snippet-server/internal/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// pendingShareLifetime is how long an emailed invitation stays claimable.
const pendingShareLifetime = 7 * 24 * time.Hour

// SnippetUpdate carries the fields a PATCH may change; nil fields are left
// untouched.
type SnippetUpdate struct {
	Title      *string
	SystemRole *string
	Content    *string
	IsPublic   *bool
}

// Service implements snippet CRUD and sharing on top of an injected store.
// All reads and writes are scoped by the requesting user: ownership or an
// explicit share decides access.
type Service struct {
	repo      Repo
	validator *Validator
	nowTime   func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes a new Service with the required snippet store.
func NewService(repo Repo, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[NewService] repo is required")
	}

	service := &Service{
		repo:      repo,
		validator: NewValidator(),
		nowTime:   time.Now,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// Create validates and stores a new snippet owned by userID.
func (s *Service) Create(ctx context.Context, userID, title, systemRole, content string, isPublic bool) (*Snippet, error) {
	title, err := s.validator.ValidateTitle(title)
	if err != nil {
		return nil, err
	}
	content, err = s.validator.ValidateContent(content)
	if err != nil {
		return nil, err
	}
	systemRole, err = s.validator.ValidateSystemRole(systemRole)
	if err != nil {
		return nil, err
	}

	now := s.nowTime()
	snippet := &Snippet{
		ID:         uuid.New().String(),
		UserID:     userID,
		Title:      title,
		SystemRole: systemRole,
		Content:    content,
		IsPublic:   isPublic,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Insert(ctx, snippet); err != nil {
		return nil, errors.Wrap(err, "[Create] repo.Insert")
	}
	return snippet, nil
}

// List returns the user's own snippets plus snippets shared with them,
// sorted by last update, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*Snippet, error) {
	own, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[List] repo.ListByUser")
	}

	shared, err := s.repo.ListSharedWith(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[List] repo.ListSharedWith")
	}

	all := append(own, shared...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})
	return all, nil
}

// ListForContextMenu returns only the user's public snippets, for the
// extension's context-menu listing.
func (s *Service) ListForContextMenu(ctx context.Context, userID string) ([]*Snippet, error) {
	public, err := s.repo.ListPublicByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[ListForContextMenu] repo.ListPublicByUser")
	}
	return public, nil
}

// Get returns a snippet if the user owns it, has a share for it, or the
// snippet is public.
func (s *Service) Get(ctx context.Context, userID, id string) (*Snippet, error) {
	snippet, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if snippet.UserID == userID || snippet.IsPublic {
		return snippet, nil
	}

	share, err := s.repo.GetShare(ctx, id, userID)
	if err != nil {
		return nil, NotAuthorizedErr
	}

	snippet.Shared = true
	snippet.SharedPermission = share.Permission
	return snippet, nil
}

// Update applies the non-nil fields of update to a snippet. The owner may
// always update; a shared-with user needs edit permission.
func (s *Service) Update(ctx context.Context, userID, id string, update SnippetUpdate) (*Snippet, error) {
	snippet, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if snippet.UserID != userID {
		share, err := s.repo.GetShare(ctx, id, userID)
		if err != nil || share.Permission != PermissionEdit {
			return nil, NotAuthorizedErr
		}
	}

	if update.Title != nil {
		title, err := s.validator.ValidateTitle(utils.Value(update.Title))
		if err != nil {
			return nil, err
		}
		snippet.Title = title
	}
	if update.Content != nil {
		content, err := s.validator.ValidateContent(utils.Value(update.Content))
		if err != nil {
			return nil, err
		}
		snippet.Content = content
	}
	if update.SystemRole != nil {
		systemRole, err := s.validator.ValidateSystemRole(utils.Value(update.SystemRole))
		if err != nil {
			return nil, err
		}
		snippet.SystemRole = systemRole
	}
	if update.IsPublic != nil {
		snippet.IsPublic = utils.Value(update.IsPublic)
	}

	snippet.UpdatedAt = s.nowTime()
	if err := s.repo.Update(ctx, snippet); err != nil {
		return nil, errors.Wrap(err, "[Update] repo.Update")
	}
	return snippet, nil
}

// Delete removes a snippet. Only the owner may delete; edit shares do not
// grant deletion.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	snippet, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if snippet.UserID != userID {
		return NotAuthorizedErr
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "[Delete] repo.Delete")
	}
	return nil
}

// Share grants an existing user access to one of ownerID's snippets.
func (s *Service) Share(ctx context.Context, ownerID, snippetID, targetUserID string, permission Permission) (*Share, error) {
	if !permission.Valid() {
		return nil, errors.Wrapf(ValidationErr, "[Share] unknown permission %q", permission)
	}

	snippet, err := s.repo.Get(ctx, snippetID)
	if err != nil {
		return nil, err
	}
	if snippet.UserID != ownerID {
		return nil, NotAuthorizedErr
	}

	share := &Share{
		ID:               uuid.New().String(),
		SnippetID:        snippetID,
		SharedWithUserID: targetUserID,
		Permission:       permission,
		CreatedAt:        s.nowTime(),
	}
	if err := s.repo.InsertShare(ctx, share); err != nil {
		if errors.Is(err, ShareExistsErr) {
			return nil, err
		}
		return nil, errors.Wrap(err, "[Share] repo.InsertShare")
	}
	return share, nil
}

// Invite records a pending share for an email address that has no account
// yet. The invitation expires after a week.
func (s *Service) Invite(ctx context.Context, ownerID, snippetID, email string, permission Permission) (*PendingShare, error) {
	if !permission.Valid() {
		return nil, errors.Wrapf(ValidationErr, "[Invite] unknown permission %q", permission)
	}

	snippet, err := s.repo.Get(ctx, snippetID)
	if err != nil {
		return nil, err
	}
	if snippet.UserID != ownerID {
		return nil, NotAuthorizedErr
	}

	now := s.nowTime()
	pending := &PendingShare{
		ID:         uuid.New().String(),
		SnippetID:  snippetID,
		Email:      email,
		Permission: permission,
		CreatedAt:  now,
		ExpiresAt:  now.Add(pendingShareLifetime),
	}
	if err := s.repo.InsertPendingShare(ctx, pending); err != nil {
		return nil, errors.Wrap(err, "[Invite] repo.InsertPendingShare")
	}
	return pending, nil
}

// Invitation looks up a pending share by snippet and email, returning the
// snippet alongside it. Expired invitations report InvitationExpiredErr so
// the route can answer 410 rather than 404.
func (s *Service) Invitation(ctx context.Context, snippetID, email string) (*Snippet, *PendingShare, error) {
	pending, err := s.repo.GetPendingShare(ctx, snippetID, email)
	if err != nil {
		return nil, nil, err
	}

	if s.nowTime().After(pending.ExpiresAt) {
		return nil, nil, InvitationExpiredErr
	}

	snippet, err := s.repo.Get(ctx, snippetID)
	if err != nil {
		return nil, nil, err
	}
	return snippet, pending, nil
}

// AcceptInvitation converts a pending share into a real share for the user
// who signed up with the invited email.
func (s *Service) AcceptInvitation(ctx context.Context, snippetID, email, userID string) (*Share, error) {
	pending, err := s.repo.GetPendingShare(ctx, snippetID, email)
	if err != nil {
		return nil, err
	}

	if s.nowTime().After(pending.ExpiresAt) {
		return nil, InvitationExpiredErr
	}

	share := &Share{
		ID:               uuid.New().String(),
		SnippetID:        snippetID,
		SharedWithUserID: userID,
		Permission:       pending.Permission,
		CreatedAt:        s.nowTime(),
	}
	if err := s.repo.InsertShare(ctx, share); err != nil && !errors.Is(err, ShareExistsErr) {
		return nil, errors.Wrap(err, "[AcceptInvitation] repo.InsertShare")
	}

	if err := s.repo.DeletePendingShare(ctx, pending.ID); err != nil {
		return nil, errors.Wrap(err, "[AcceptInvitation] repo.DeletePendingShare")
	}
	return share, nil
}
