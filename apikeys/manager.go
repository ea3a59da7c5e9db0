package apikeys

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Manager handles API key creation, lookup, and revocation.
type Manager struct {
	repo    Repo
	nowTime func() time.Time // nowTime function (injectable for testing)
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager initializes a new Manager with the required key store.
func NewManager(repo Repo, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] repo is required")
	}

	manager := &Manager{
		repo:    repo,
		nowTime: time.Now,
	}

	for _, opt := range options {
		opt(manager)
	}

	return manager, nil
}

// Generate creates a new key for the user with a one-year expiry. The
// returned APIKey carries the raw key value; this is the only time it is
// handed out.
func (m *Manager) Generate(ctx context.Context, userID, name string) (*APIKey, error) {
	if userID == "" {
		return nil, errors.New("[Generate] userID is required")
	}

	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLength {
		return nil, InvalidKeyNameErr
	}

	rawKey, err := generateKey()
	if err != nil {
		return nil, errors.Wrap(err, "[Generate] generateKey")
	}

	now := m.nowTime()
	key := &APIKey{
		ID:        uuid.New().String(),
		UserID:    userID,
		Key:       rawKey,
		Name:      name,
		Active:    true,
		CreatedAt: now,
		ExpiresAt: now.AddDate(1, 0, 0),
	}

	if err := m.repo.Insert(ctx, key); err != nil {
		return nil, errors.Wrap(err, "[Generate] repo.Insert")
	}

	return key, nil
}

// List returns the user's keys, newest first.
func (m *Manager) List(ctx context.Context, userID string) ([]*APIKey, error) {
	keys, err := m.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[List] repo.ListByUser")
	}
	return keys, nil
}

// Revoke deletes the key with the given id if it belongs to the user.
func (m *Manager) Revoke(ctx context.Context, userID, keyID string) error {
	if err := m.repo.Delete(ctx, userID, keyID); err != nil {
		if errors.Is(err, KeyNotFoundErr) {
			return err
		}
		return errors.Wrap(err, "[Revoke] repo.Delete")
	}
	return nil
}

// Authenticate resolves a raw key to its owning user id, rejecting unknown,
// inactive, and expired keys. Successful use updates the key's last-used
// timestamp; a failure to record that is logged but does not fail the
// request.
func (m *Manager) Authenticate(ctx context.Context, rawKey string) (string, error) {
	if rawKey == "" || !strings.HasPrefix(rawKey, KeyPrefix) {
		return "", KeyNotFoundErr
	}

	key, err := m.repo.GetByKey(ctx, rawKey)
	if err != nil {
		if errors.Is(err, KeyNotFoundErr) {
			return "", err
		}
		return "", errors.Wrap(err, "[Authenticate] repo.GetByKey")
	}

	if !key.Active {
		return "", KeyInactiveErr
	}

	now := m.nowTime()
	if now.After(key.ExpiresAt) {
		return "", KeyExpiredErr
	}

	if err := m.repo.TouchLastUsed(ctx, key.ID, now); err != nil {
		log.Err(err).Str("key_id", key.ID).Msg("failed to update api key last used timestamp")
	}

	return key.UserID, nil
}
