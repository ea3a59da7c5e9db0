// Package apikeys manages the long-lived keys the browser extension uses to
// call the snippet API. Keys are user-scoped, expire after a year, and can be
// revoked from the dashboard.
package apikeys

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// KeyPrefix marks live extension keys. The full key is the prefix plus
	// 64 random alphanumeric characters, 72 characters in total.
	KeyPrefix = "sk_live_"

	keyGenerationLength = 64
	keyLifetime         = 365 * 24 * time.Hour

	// MaxNameLength bounds the user-supplied key label.
	MaxNameLength = 50
)

// APIKey is a stored extension key. Key holds the raw value so the extension
// surface can look callers up by it; List responses must never include it
// after creation.
type APIKey struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Key        string     `json:"-"`
	Name       string     `json:"name"`
	Active     bool       `json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// generateKey returns a new raw key string.
func generateKey() (string, error) {
	bytes := make([]byte, keyGenerationLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "[generateKey] rand.Read")
	}

	var sb strings.Builder
	sb.WriteString(KeyPrefix)
	for _, b := range bytes {
		sb.WriteByte(keyAlphabet[int(b)%len(keyAlphabet)])
	}
	return sb.String(), nil
}
