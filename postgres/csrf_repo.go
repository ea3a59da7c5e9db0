package postgres

import (
	"context"
	"time"

	"github.com/clickmemory/go-snippet-server/csrf"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var _ csrf.Repo = (*CSRFTokenRepo)(nil)

// CSRFTokenRepo stores token hashes in the csrf_tokens table.
type CSRFTokenRepo struct {
	pool *pgxpool.Pool
}

func NewCSRFTokenRepo(pool *pgxpool.Pool) *CSRFTokenRepo {
	return &CSRFTokenRepo{pool: pool}
}

func (tr *CSRFTokenRepo) Insert(ctx context.Context, token *csrf.StoredToken) error {
	_, err := tr.pool.Exec(ctx, `
		INSERT INTO csrf_tokens (user_id, token_hash, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, token_hash)
		DO UPDATE SET issued_at = EXCLUDED.issued_at, expires_at = EXCLUDED.expires_at`,
		token.UserID, token.TokenHash, token.IssuedAt, token.ExpiresAt)
	if err != nil {
		return errors.Wrap(err, "[CSRFTokenRepo.Insert] pool.Exec")
	}
	return nil
}

// Consume deletes the matching unexpired record in a single conditional
// statement, so two racing validations of the same token see exactly one
// affected row between them.
func (tr *CSRFTokenRepo) Consume(ctx context.Context, userID, tokenHash string, now time.Time) (bool, error) {
	tag, err := tr.pool.Exec(ctx, `
		DELETE FROM csrf_tokens
		WHERE user_id = $1 AND token_hash = $2 AND expires_at > $3`,
		userID, tokenHash, now)
	if err != nil {
		return false, errors.Wrap(err, "[CSRFTokenRepo.Consume] pool.Exec")
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// No live record. Drop an expired match so it does not linger until the
	// next sweep.
	_, err = tr.pool.Exec(ctx, `
		DELETE FROM csrf_tokens
		WHERE user_id = $1 AND token_hash = $2`,
		userID, tokenHash)
	if err != nil {
		return false, errors.Wrap(err, "[CSRFTokenRepo.Consume] cleanup pool.Exec")
	}
	return false, nil
}

func (tr *CSRFTokenRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := tr.pool.Exec(ctx, `DELETE FROM csrf_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return errors.Wrap(err, "[CSRFTokenRepo.DeleteExpired] pool.Exec")
	}
	return nil
}
