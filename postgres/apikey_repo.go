package postgres

import (
	"context"
	"time"

	"github.com/clickmemory/go-snippet-server/apikeys"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var _ apikeys.Repo = (*APIKeyRepo)(nil)

// APIKeyRepo stores extension keys in the user_api_keys table.
type APIKeyRepo struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepo(pool *pgxpool.Pool) *APIKeyRepo {
	return &APIKeyRepo{pool: pool}
}

func (kr *APIKeyRepo) Insert(ctx context.Context, key *apikeys.APIKey) error {
	_, err := kr.pool.Exec(ctx, `
		INSERT INTO user_api_keys (id, user_id, api_key, name, is_active, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.UserID, key.Key, key.Name, key.Active, key.CreatedAt, key.ExpiresAt)
	if err != nil {
		return errors.Wrap(err, "[APIKeyRepo.Insert] pool.Exec")
	}
	return nil
}

func (kr *APIKeyRepo) GetByKey(ctx context.Context, rawKey string) (*apikeys.APIKey, error) {
	row := kr.pool.QueryRow(ctx, `
		SELECT id, user_id, api_key, name, is_active, last_used_at, created_at, expires_at
		FROM user_api_keys
		WHERE api_key = $1`,
		rawKey)

	key, err := scanAPIKey(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apikeys.KeyNotFoundErr
		}
		return nil, errors.Wrap(err, "[APIKeyRepo.GetByKey] scan")
	}
	return key, nil
}

func (kr *APIKeyRepo) ListByUser(ctx context.Context, userID string) ([]*apikeys.APIKey, error) {
	rows, err := kr.pool.Query(ctx, `
		SELECT id, user_id, api_key, name, is_active, last_used_at, created_at, expires_at
		FROM user_api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "[APIKeyRepo.ListByUser] pool.Query")
	}
	defer rows.Close()

	var keys []*apikeys.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, errors.Wrap(err, "[APIKeyRepo.ListByUser] scan")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "[APIKeyRepo.ListByUser] rows.Err")
	}
	return keys, nil
}

func (kr *APIKeyRepo) Delete(ctx context.Context, userID, keyID string) error {
	tag, err := kr.pool.Exec(ctx, `
		DELETE FROM user_api_keys
		WHERE id = $1 AND user_id = $2`,
		keyID, userID)
	if err != nil {
		return errors.Wrap(err, "[APIKeyRepo.Delete] pool.Exec")
	}
	if tag.RowsAffected() == 0 {
		return apikeys.KeyNotFoundErr
	}
	return nil
}

func (kr *APIKeyRepo) TouchLastUsed(ctx context.Context, keyID string, at time.Time) error {
	_, err := kr.pool.Exec(ctx, `
		UPDATE user_api_keys SET last_used_at = $2 WHERE id = $1`,
		keyID, at)
	if err != nil {
		return errors.Wrap(err, "[APIKeyRepo.TouchLastUsed] pool.Exec")
	}
	return nil
}

func scanAPIKey(row pgx.Row) (*apikeys.APIKey, error) {
	var key apikeys.APIKey
	err := row.Scan(&key.ID, &key.UserID, &key.Key, &key.Name, &key.Active, &key.LastUsedAt, &key.CreatedAt, &key.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &key, nil
}
