// Package csrf issues and validates the single-use anti-forgery tokens that
// protect state-changing dashboard routes. Tokens are bound to a user, expire
// after thirty minutes, and are consumed on first successful validation.
package csrf

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	tokenGenerationLength = 32
	tokenTTL              = 30 * time.Minute

	// DefaultSweepInterval is how often the background sweeper removes
	// tokens that were issued but never consumed.
	DefaultSweepInterval = 5 * time.Minute
)

// StoredToken is the at-rest record for an issued token. Only the sha256 hash
// of the token is stored; the raw value is returned to the caller once and
// never persisted.
type StoredToken struct {
	UserID    string
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager issues and validates CSRF tokens against an injected store.
// A user may hold several outstanding tokens at once; each stays valid until
// it is consumed or expires.
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

// NewManager initializes a new Manager with the required token store.
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

// Issue generates a new token for the given user, stores its hash with a
// thirty-minute expiry, and returns the raw token. Storage failure is a hard
// error: the token would be unverifiable without a durable record.
func (m *Manager) Issue(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("[Issue] userID is required")
	}

	bytes := make([]byte, tokenGenerationLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "[Issue] rand.Read")
	}
	token := hex.EncodeToString(bytes)

	now := m.nowTime()
	if err := m.repo.Insert(ctx, &StoredToken{
		UserID:    userID,
		TokenHash: HashToken(token),
		IssuedAt:  now,
		ExpiresAt: now.Add(tokenTTL),
	}); err != nil {
		return "", errors.Wrap(err, "[Issue] repo.Insert")
	}

	return token, nil
}

// Validate reports whether candidate is an outstanding, unexpired token for
// the given user, consuming it in the process (one-time use). Not-found,
// mismatched, and expired tokens all report false; an expired match is
// deleted as a side effect. A store failure also reports false (validation
// fails closed) with the cause logged for operators only.
func (m *Manager) Validate(ctx context.Context, userID, candidate string) bool {
	if userID == "" || candidate == "" {
		return false
	}

	ok, err := m.repo.Consume(ctx, userID, HashToken(candidate), m.nowTime())
	if err != nil {
		log.Err(err).Str("user_id", userID).Msg("csrf token store failure during validation")
		return false
	}
	return ok
}

// Sweep removes all expired token records.
func (m *Manager) Sweep(ctx context.Context) error {
	if err := m.repo.DeleteExpired(ctx, m.nowTime()); err != nil {
		return errors.Wrap(err, "[Sweep] repo.DeleteExpired")
	}
	return nil
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
// It bounds store growth when tokens are issued but never consumed.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Sweep(ctx); err != nil {
					log.Err(err).Msg("csrf token sweep failed")
				}
			}
		}
	}()
}

// HashToken returns the hex-encoded sha256 digest stored in place of the raw
// token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
