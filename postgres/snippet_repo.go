package postgres

import (
	"context"
	"time"

	"github.com/clickmemory/go-snippet-server/snippets"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var _ snippets.Repo = (*SnippetRepo)(nil)

// SnippetRepo stores snippets, shares and invitations. Shares and pending
// shares cascade when the snippet row goes away.
type SnippetRepo struct {
	pool *pgxpool.Pool
}

func NewSnippetRepo(pool *pgxpool.Pool) *SnippetRepo {
	return &SnippetRepo{pool: pool}
}

const snippetColumns = "id, user_id, title, system_role, content, is_public, created_at, updated_at"

func (sr *SnippetRepo) Insert(ctx context.Context, snippet *snippets.Snippet) error {
	_, err := sr.pool.Exec(ctx, `
		INSERT INTO snippets (`+snippetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		snippet.ID, snippet.UserID, snippet.Title, snippet.SystemRole,
		snippet.Content, snippet.IsPublic, snippet.CreatedAt, snippet.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "[SnippetRepo.Insert] pool.Exec")
	}
	return nil
}

func (sr *SnippetRepo) Get(ctx context.Context, id string) (*snippets.Snippet, error) {
	row := sr.pool.QueryRow(ctx, `
		SELECT `+snippetColumns+` FROM snippets WHERE id = $1`, id)

	snippet, err := scanSnippet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, snippets.SnippetNotFoundErr
		}
		return nil, errors.Wrap(err, "[SnippetRepo.Get] scan")
	}
	return snippet, nil
}

func (sr *SnippetRepo) ListByUser(ctx context.Context, userID string) ([]*snippets.Snippet, error) {
	rows, err := sr.pool.Query(ctx, `
		SELECT `+snippetColumns+` FROM snippets
		WHERE user_id = $1
		ORDER BY updated_at DESC`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "[SnippetRepo.ListByUser] pool.Query")
	}
	return collectSnippets(rows)
}

func (sr *SnippetRepo) ListPublicByUser(ctx context.Context, userID string) ([]*snippets.Snippet, error) {
	rows, err := sr.pool.Query(ctx, `
		SELECT `+snippetColumns+` FROM snippets
		WHERE user_id = $1 AND is_public
		ORDER BY updated_at DESC`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "[SnippetRepo.ListPublicByUser] pool.Query")
	}
	return collectSnippets(rows)
}

func (sr *SnippetRepo) ListSharedWith(ctx context.Context, userID string) ([]*snippets.Snippet, error) {
	rows, err := sr.pool.Query(ctx, `
		SELECT s.id, s.user_id, s.title, s.system_role, s.content, s.is_public,
		       s.created_at, s.updated_at, ss.permission
		FROM snippets s
		JOIN shared_snippets ss ON ss.snippet_id = s.id
		WHERE ss.shared_with_user_id = $1
		ORDER BY s.updated_at DESC`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "[SnippetRepo.ListSharedWith] pool.Query")
	}
	defer rows.Close()

	var list []*snippets.Snippet
	for rows.Next() {
		var snippet snippets.Snippet
		err := rows.Scan(&snippet.ID, &snippet.UserID, &snippet.Title, &snippet.SystemRole,
			&snippet.Content, &snippet.IsPublic, &snippet.CreatedAt, &snippet.UpdatedAt,
			&snippet.SharedPermission)
		if err != nil {
			return nil, errors.Wrap(err, "[SnippetRepo.ListSharedWith] scan")
		}
		snippet.Shared = true
		list = append(list, &snippet)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "[SnippetRepo.ListSharedWith] rows.Err")
	}
	return list, nil
}

func (sr *SnippetRepo) Update(ctx context.Context, snippet *snippets.Snippet) error {
	tag, err := sr.pool.Exec(ctx, `
		UPDATE snippets
		SET title = $2, system_role = $3, content = $4, is_public = $5, updated_at = $6
		WHERE id = $1`,
		snippet.ID, snippet.Title, snippet.SystemRole, snippet.Content,
		snippet.IsPublic, snippet.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "[SnippetRepo.Update] pool.Exec")
	}
	if tag.RowsAffected() == 0 {
		return snippets.SnippetNotFoundErr
	}
	return nil
}

func (sr *SnippetRepo) Delete(ctx context.Context, id string) error {
	tag, err := sr.pool.Exec(ctx, `DELETE FROM snippets WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "[SnippetRepo.Delete] pool.Exec")
	}
	if tag.RowsAffected() == 0 {
		return snippets.SnippetNotFoundErr
	}
	return nil
}

func (sr *SnippetRepo) InsertShare(ctx context.Context, share *snippets.Share) error {
	_, err := sr.pool.Exec(ctx, `
		INSERT INTO shared_snippets (id, snippet_id, shared_with_user_id, permission, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		share.ID, share.SnippetID, share.SharedWithUserID, share.Permission, share.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return snippets.ShareExistsErr
		}
		return errors.Wrap(err, "[SnippetRepo.InsertShare] pool.Exec")
	}
	return nil
}

func (sr *SnippetRepo) GetShare(ctx context.Context, snippetID, userID string) (*snippets.Share, error) {
	row := sr.pool.QueryRow(ctx, `
		SELECT id, snippet_id, shared_with_user_id, permission, created_at
		FROM shared_snippets
		WHERE snippet_id = $1 AND shared_with_user_id = $2`,
		snippetID, userID)

	var share snippets.Share
	err := row.Scan(&share.ID, &share.SnippetID, &share.SharedWithUserID, &share.Permission, &share.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, snippets.SnippetNotFoundErr
		}
		return nil, errors.Wrap(err, "[SnippetRepo.GetShare] scan")
	}
	return &share, nil
}

func (sr *SnippetRepo) InsertPendingShare(ctx context.Context, pending *snippets.PendingShare) error {
	_, err := sr.pool.Exec(ctx, `
		INSERT INTO pending_shares (id, snippet_id, email, permission, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (snippet_id, email) DO UPDATE
		SET id = EXCLUDED.id, permission = EXCLUDED.permission,
		    created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`,
		pending.ID, pending.SnippetID, pending.Email, pending.Permission,
		pending.CreatedAt, pending.ExpiresAt)
	if err != nil {
		return errors.Wrap(err, "[SnippetRepo.InsertPendingShare] pool.Exec")
	}
	return nil
}

func (sr *SnippetRepo) GetPendingShare(ctx context.Context, snippetID, email string) (*snippets.PendingShare, error) {
	row := sr.pool.QueryRow(ctx, `
		SELECT id, snippet_id, email, permission, created_at, expires_at
		FROM pending_shares
		WHERE snippet_id = $1 AND email = $2`,
		snippetID, email)

	var pending snippets.PendingShare
	err := row.Scan(&pending.ID, &pending.SnippetID, &pending.Email, &pending.Permission,
		&pending.CreatedAt, &pending.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, snippets.InvitationNotFoundErr
		}
		return nil, errors.Wrap(err, "[SnippetRepo.GetPendingShare] scan")
	}
	return &pending, nil
}

func (sr *SnippetRepo) DeletePendingShare(ctx context.Context, id string) error {
	_, err := sr.pool.Exec(ctx, `DELETE FROM pending_shares WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "[SnippetRepo.DeletePendingShare] pool.Exec")
	}
	return nil
}

func (sr *SnippetRepo) DeleteExpiredPendingShares(ctx context.Context, now time.Time) error {
	_, err := sr.pool.Exec(ctx, `DELETE FROM pending_shares WHERE expires_at <= $1`, now)
	if err != nil {
		return errors.Wrap(err, "[SnippetRepo.DeleteExpiredPendingShares] pool.Exec")
	}
	return nil
}

func scanSnippet(row pgx.Row) (*snippets.Snippet, error) {
	var snippet snippets.Snippet
	err := row.Scan(&snippet.ID, &snippet.UserID, &snippet.Title, &snippet.SystemRole,
		&snippet.Content, &snippet.IsPublic, &snippet.CreatedAt, &snippet.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &snippet, nil
}

func collectSnippets(rows pgx.Rows) ([]*snippets.Snippet, error) {
	defer rows.Close()

	var list []*snippets.Snippet
	for rows.Next() {
		snippet, err := scanSnippet(rows)
		if err != nil {
			return nil, errors.Wrap(err, "[collectSnippets] scan")
		}
		list = append(list, snippet)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "[collectSnippets] rows.Err")
	}
	return list, nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
